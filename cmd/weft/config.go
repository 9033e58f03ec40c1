package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the weft configuration file (~/.config/weft/config.yaml).
// Pointer fields distinguish "not set" from zero values; CLI flags always
// win over the file.
type Config struct {
	Model       string `yaml:"model"`
	Device      string `yaml:"device"`
	Cluster     string `yaml:"cluster"`
	ClusterFile string `yaml:"cluster_file"`
	Endpoint    string `yaml:"endpoint"`

	MaxLength *int64 `yaml:"max_length"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "weft", "config.yaml")
}

// applyCommonConfig applies config file defaults to the shared model flags
// when the corresponding CLI flag was not explicitly set.
func applyCommonConfig(c *cli.Command, cfg Config) {
	if cfg.Model != "" && !c.IsSet("model") {
		modelName = cfg.Model
	}
	if cfg.Device != "" && !c.IsSet("device") {
		deviceName = cfg.Device
	}
	if cfg.Cluster != "" && !c.IsSet("cluster") {
		clusterName = cfg.Cluster
	}
	if cfg.ClusterFile != "" && !c.IsSet("cluster-file") {
		clusterFile = cfg.ClusterFile
	}
	if cfg.Endpoint != "" && !c.IsSet("endpoint") {
		endpoint = cfg.Endpoint
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyGenerateConfig applies config file defaults to the generate
// command variables.
func applyGenerateConfig(c *cli.Command, cfg Config, maxLength *int64) {
	if cfg.MaxLength != nil && !c.IsSet("max-length") {
		*maxLength = *cfg.MaxLength
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist or fails to parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

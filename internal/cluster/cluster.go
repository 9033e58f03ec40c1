// Package cluster resolves named device clusters to the endpoint and
// weight locations the mesh backend needs. The registry is a YAML file;
// decoding is strict so a typo in a field name fails the run instead of
// silently dropping configuration.
package cluster

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cluster describes one managed device cluster.
type Cluster struct {
	Name        string `yaml:"-"`
	Endpoint    string `yaml:"endpoint"`
	WeightsPath string `yaml:"weights_path"`
	NumHosts    int    `yaml:"num_hosts"`
	NumDevices  int    `yaml:"num_devices"`
}

// Registry maps cluster names to their definitions.
type Registry struct {
	Clusters map[string]Cluster `yaml:"clusters"`
}

// Builtin returns the registry shipped with the drivers. A registry file
// replaces it entirely.
func Builtin() Registry {
	return Registry{Clusters: map[string]Cluster{
		"aws": {
			Endpoint:    "http://localhost:8421",
			WeightsPath: "/home/ubuntu/opt_weights",
			NumHosts:    1,
			NumDevices:  8,
		},
		"mbzuai": {
			Endpoint:    "http://localhost:8421",
			WeightsPath: "/dataset/opt_weights",
			NumHosts:    4,
			NumDevices:  32,
		},
	}}
}

// LoadFile reads a registry from a YAML file, rejecting unknown fields.
func LoadFile(path string) (Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Registry{}, fmt.Errorf("read cluster registry: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a registry document.
func Parse(raw []byte) (Registry, error) {
	var reg Registry
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&reg); err != nil {
		return Registry{}, fmt.Errorf("parse cluster registry: %w", err)
	}
	if len(reg.Clusters) == 0 {
		return Registry{}, fmt.Errorf("cluster registry defines no clusters")
	}
	for name, c := range reg.Clusters {
		if c.Endpoint == "" {
			return Registry{}, fmt.Errorf("cluster %q: endpoint is required", name)
		}
	}
	return reg, nil
}

// Resolve looks a cluster up by name. Unrecognized names are a
// configuration error that terminates the run.
func (r Registry) Resolve(name string) (Cluster, error) {
	c, ok := r.Clusters[name]
	if !ok {
		return Cluster{}, fmt.Errorf("unrecognized cluster %q", name)
	}
	c.Name = name
	return c, nil
}

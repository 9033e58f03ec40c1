// Package api exposes a loaded engine over HTTP for interactive use. The
// benchmark drivers do not go through this surface; it exists so a model
// loaded once (possibly an expensive mesh deployment) can serve many
// generation requests.
package api

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/labstack/echo/v5"
	"golang.org/x/time/rate"

	"github.com/weft-ml/weft/internal/inference"
	"github.com/weft-ml/weft/internal/logger"
)

// Server handles the generation API against one engine.
type Server struct {
	engine  *inference.Engine
	limiter *rate.Limiter
	log     logger.Logger
}

// NewServer wraps an engine. requestsPerSecond bounds the generation
// endpoint; zero disables limiting.
func NewServer(engine *inference.Engine, requestsPerSecond float64, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	var limiter *rate.Limiter
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Server{engine: engine, limiter: limiter, log: log}
}

// Register mounts the routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/model", s.handleModel)
	e.POST("/v1/generate", s.handleGenerate)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleModel(c *echo.Context) error {
	info := s.engine.Info()
	return c.JSON(http.StatusOK, ModelResponse{
		Model:      info.Model,
		Backend:    info.Backend,
		SeqLen:     info.SeqLen,
		HiddenSize: info.HiddenSize,
		NumLayers:  info.NumLayers,
		NumHeads:   info.NumHeads,
		VocabSize:  info.VocabSize,
		NumDevices: info.NumDevices,
		NumHosts:   info.NumHosts,
	})
}

func (s *Server) handleGenerate(c *echo.Context) error {
	if s.limiter != nil && !s.limiter.Allow() {
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
	}

	req, err := decodeJSON[GenerateRequest](c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}
	if req.Prompt == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "prompt is required"})
	}

	genReq := inference.Request{Prompt: req.Prompt}
	if req.MaxLength != nil {
		genReq.MaxLength = *req.MaxLength
	}
	if req.DoSample != nil {
		genReq.DoSample = *req.DoSample
	}
	if req.Temperature != nil {
		genReq.Temperature = *req.Temperature
	}
	if req.TopK != nil {
		genReq.TopK = *req.TopK
	}
	if req.TopP != nil {
		genReq.TopP = *req.TopP
	}
	if req.Seed != nil {
		genReq.Seed = *req.Seed
	}

	id := "gen_" + uuid.NewString()
	res, err := s.engine.Generate(c.Request().Context(), genReq)
	if err != nil {
		s.log.Error("generation failed", "id", id, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	s.log.Info("generation complete",
		"id", id,
		"tokens", res.Stats.TotalTokens,
		"duration", res.Stats.Duration)
	return c.JSON(http.StatusOK, GenerateResponse{
		ID:              id,
		Model:           s.engine.Info().Model,
		Text:            res.Text,
		PromptTokens:    res.Stats.PromptTokens,
		GeneratedTokens: res.Stats.TokensGenerated,
		TotalTokens:     res.Stats.TotalTokens,
		DurationMs:      res.Stats.Duration.Milliseconds(),
		TokensPerSecond: res.Stats.TPS,
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var v T
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, err
	}
	return v, nil
}

// Package server exposes the simulator over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/forked/internal/models"
	"github.com/BerylCAtieno/forked/internal/simulator"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderFallback  = "X-Forked-Fallback"

	maxBodyBytes = 1 << 20
)

// Error messages returned to callers. Details stay in the logs.
const (
	msgMissingFields = "Missing required fields"
	msgInvalidBody   = "Invalid request body"
	msgTooShort      = "Response too short"
	msgFailed        = "Failed to generate simulation"
)

// Simulator is what the handlers need from the simulation service.
type Simulator interface {
	Simulate(ctx context.Context, req models.GenerationRequest) (*simulator.Result, error)
	Ping(ctx context.Context) (string, error)
}

type Handler struct {
	sim    Simulator
	logger *zap.Logger
}

func NewHandler(sim Simulator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sim:    sim,
		logger: logger,
	}
}

// Index serves the landing page.
func (h *Handler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"Title": "Forked - Butterfly Effect Trade-off Simulator",
	})
}

// Test checks provider connectivity with a fixed one-sentence prompt.
func (h *Handler) Test(c *gin.Context) {
	text, err := h.sim.Ping(c.Request.Context())
	if err != nil {
		h.logger.Error("provider connectivity test failed",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.TestResponse{
			Status:  models.StatusError,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, models.TestResponse{
		Status:   models.StatusSuccess,
		Response: text,
	})
}

// Generate runs one simulation.
func (h *Handler) Generate(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid generate request body",
			zap.String("request_id", requestID(c)),
			zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: msgInvalidBody})
		return
	}

	res, err := h.sim.Simulate(c.Request.Context(), req)
	if err != nil {
		status, msg := errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("simulation failed",
				zap.String("request_id", requestID(c)),
				zap.Error(err))
		}
		c.JSON(status, models.ErrorResponse{Error: msg})
		return
	}

	if res.Fallback {
		c.Header(HeaderFallback, "true")
	}
	h.logger.Info("simulation served",
		zap.String("request_id", requestID(c)),
		zap.Bool("fallback", res.Fallback),
		zap.Int("attempts", res.Attempts),
		zap.Int("chars", len(res.RawOutput)))

	c.JSON(http.StatusOK, models.GenerationResponse{RawOutput: res.RawOutput})
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.String(http.StatusOK, "OK")
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrMissingFields):
		return http.StatusBadRequest, msgMissingFields
	case errors.Is(err, simulator.ErrOutputTooShort):
		return http.StatusInternalServerError, msgTooShort
	default:
		return http.StatusInternalServerError, msgFailed
	}
}

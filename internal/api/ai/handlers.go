package ai

import (
	"errors"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	aigateway "github.com/smartsite-dev/api/internal/ai"
	"github.com/smartsite-dev/api/internal/api/common"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

// Handler handles content generation HTTP requests
type Handler struct {
	gateway *aigateway.Gateway
}

// NewHandler creates a new AI handler
func NewHandler(g *aigateway.Gateway) *Handler {
	return &Handler{gateway: g}
}

// Generate handles POST /ai/generate
func (h *Handler) Generate(c echo.Context) error {
	var req common.GenerateContentRequest

	if err := c.Bind(&req); err != nil {
		logging.Logger.Error("Failed to bind request", zap.Error(err))
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		logging.Logger.Error("Request validation failed", zap.Error(err))
		return response.BadRequest(c, err.Error())
	}

	resp, err := h.gateway.Generate(c.Request().Context(), aigateway.GenerateRequest{
		Prompt:      req.Prompt,
		TaskType:    req.TaskType,
		Context:     req.Context,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, aigateway.ErrUnavailable) {
			return response.ServiceUnavailable(c, err.Error())
		}
		return response.FromError(c, err)
	}

	return c.JSON(200, resp)
}

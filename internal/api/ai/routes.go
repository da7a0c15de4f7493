package ai

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes registers AI content generation routes
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.POST("/ai/generate", handler.Generate)
}

package template

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsite-dev/api/internal/middleware"
	authpkg "github.com/smartsite-dev/api/pkg/auth"
)

// RegisterRoutes registers template routes
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.GET("", handler.ListTemplates)
	g.GET("/:id", handler.GetTemplate)

	// Mutations require developer role or higher
	g.POST("", handler.CreateTemplate, middleware.RequireRole(authpkg.Developer))
	g.POST("/:id/archive", handler.ArchiveTemplate, middleware.RequireRole(authpkg.Developer))
	g.PUT("/:id/handoff", handler.UpdateHandoff, middleware.RequireRole(authpkg.Developer))
}

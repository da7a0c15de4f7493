package modulestatus

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsite-dev/api/internal/middleware"
	authpkg "github.com/smartsite-dev/api/pkg/auth"
)

// RegisterRoutes registers module routes
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.GET("/status", handler.GetStatus)

	// Module registration changes blueprint versioning; admin only
	g.POST("/register", handler.RegisterModule, middleware.RequireRole(authpkg.Admin))
}

package support

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsite-dev/api/internal/middleware"
	authpkg "github.com/smartsite-dev/api/pkg/auth"
)

// RegisterRoutes registers support ticket routes
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.POST("/tickets", handler.CreateTicket)
	g.GET("/tickets/:id", handler.GetTicket)
	g.POST("/tickets/:id/escalate", handler.Escalate)

	// Resolving on behalf of a customer is a staff action
	g.POST("/tickets/:id/resolve", handler.Resolve, middleware.RequireRole(authpkg.Developer))
}

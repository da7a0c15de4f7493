package clone

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsite-dev/api/internal/middleware"
	authpkg "github.com/smartsite-dev/api/pkg/auth"
)

// RegisterRoutes registers clone routes on the blueprint group
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.POST("/clone", handler.StartClone, middleware.RequireRole(authpkg.Developer))
	g.GET("/clone-operations", handler.ListOperations)
	g.GET("/clone-operations/:requestId", handler.GetOperation)
}

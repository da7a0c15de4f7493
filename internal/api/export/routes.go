package export

import (
	"github.com/labstack/echo/v4"

	"github.com/smartsite-dev/api/internal/middleware"
	authpkg "github.com/smartsite-dev/api/pkg/auth"
)

// RegisterRoutes registers extraction and publish routes on the
// blueprint group
func RegisterRoutes(g *echo.Group, handler *Handler) {
	g.GET("/exports", handler.ListExports)
	g.GET("/default-version", handler.GetDefaultVersion)

	g.POST("/extract/:templateId", handler.Extract, middleware.RequireRole(authpkg.Developer))
	g.POST("/export/:templateId", handler.ExportPackage, middleware.RequireRole(authpkg.Developer))
	g.POST("/publish/:templateId", handler.PublishDefault, middleware.RequireRole(authpkg.Developer))
}

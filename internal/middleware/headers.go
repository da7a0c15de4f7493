package middleware

import (
	"github.com/labstack/echo/v4"
)

// APIIDMiddleware adds the X-SmartSite-API-ID header to all responses
// so clients can verify they are talking to the expected API instance.
func APIIDMiddleware(instanceID string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-SmartSite-API-ID", instanceID)
			return next(c)
		}
	}
}

// VersionMiddleware adds the X-SmartSite-API-Version header to all
// responses for client compatibility checks.
func VersionMiddleware(version string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Response().Header().Set("X-SmartSite-API-Version", version)
			return next(c)
		}
	}
}

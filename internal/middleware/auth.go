package middleware

import (
	"github.com/labstack/echo/v4"

	authpkg "github.com/smartsite-dev/api/pkg/auth"
	"github.com/smartsite-dev/api/pkg/config"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

// User represents an authenticated user
type User struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Role authpkg.Role `json:"role"`
}

// APIKeyMiddleware validates the X-API-Key header and stores the
// resolved user in the request context.
func APIKeyMiddleware(apiKeys []config.APIKey) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get("X-API-Key")
			if apiKey == "" {
				logging.LogDenied("missing api key", "", c.Path())
				return response.Unauthorized(c, "API key required")
			}

			keyData, found := config.FindAPIKeyByKey(apiKeys, apiKey)
			if !found {
				logging.LogDenied("invalid api key", "", c.Path())
				return response.Unauthorized(c, "Invalid API key")
			}

			user := &User{
				ID:   keyData.Name,
				Name: keyData.Name,
				Role: authpkg.ParseRole(keyData.Role),
			}
			c.Set("user", user)

			return next(c)
		}
	}
}

// RequireRole middleware checks if user has sufficient role permissions
func RequireRole(requiredRole authpkg.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := c.Get("user")
			if user == nil {
				return response.Unauthorized(c, "User not authenticated")
			}

			userData := user.(*User)
			if !userData.Role.HasPermission(requiredRole) {
				logging.LogDenied("insufficient role", userData.Name, c.Path())
				return response.Forbidden(c, "Insufficient permissions. Required: "+requiredRole.String())
			}

			return next(c)
		}
	}
}

// GetUserFromContext extracts user from Echo context
func GetUserFromContext(c echo.Context) (*User, bool) {
	user := c.Get("user")
	if user == nil {
		return nil, false
	}
	return user.(*User), true
}

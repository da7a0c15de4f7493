package modulestatus

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/api/common"
	"github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/modules"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

// Handler handles module registry and status HTTP requests
type Handler struct {
	registry *modules.Registry
}

// NewHandler creates a new module status handler
func NewHandler(r *modules.Registry) *Handler {
	return &Handler{registry: r}
}

// GetStatus handles GET /modules/status?instanceId=...
// Read-only: computes the per-module checklist for the instance's
// declared blueprint version.
func (h *Handler) GetStatus(c echo.Context) error {
	instanceID := c.QueryParam("instanceId")
	if instanceID == "" {
		return response.BadRequest(c, "instanceId query parameter is required")
	}

	report, err := h.registry.Status(c.Request().Context(), instanceID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(200, report)
}

// RegisterModule handles POST /modules/register
// Registers the module and bumps the owning template's blueprint
// version when the module belongs to a newer declared module set.
func (h *Handler) RegisterModule(c echo.Context) error {
	var req common.RegisterModuleRequest
	user, _ := middleware.GetUserFromContext(c)

	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	mod, tmpl, err := h.registry.Register(c.Request().Context(), modules.RegisterRequest{
		ModuleID:   req.ModuleID,
		Name:       req.Name,
		Category:   req.Category,
		Type:       req.Type,
		Version:    req.Version,
		TemplateID: req.TemplateID,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	logging.Logger.Info("Module registered",
		zap.String("module", mod.ID),
		zap.String("template", tmpl.ID),
		zap.String("user", user.Name))

	return response.OK(c, "Module registered", map[string]interface{}{
		"module":           mod,
		"blueprintVersion": tmpl.BlueprintVersion,
	})
}

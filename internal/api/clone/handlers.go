package clone

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/api/common"
	cloneengine "github.com/smartsite-dev/api/internal/clone"
	"github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

// Handler handles clone operation HTTP requests
type Handler struct {
	orchestrator *cloneengine.Orchestrator
}

// NewHandler creates a new clone handler
func NewHandler(o *cloneengine.Orchestrator) *Handler {
	return &Handler{orchestrator: o}
}

// StartClone handles POST /blueprint/clone
// Returns 202 with the pending operation; callers poll for completion.
func (h *Handler) StartClone(c echo.Context) error {
	var req common.StartCloneRequest
	user, _ := middleware.GetUserFromContext(c)

	if err := c.Bind(&req); err != nil {
		logging.Logger.Error("Failed to bind request", zap.Error(err))
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		logging.Logger.Error("Request validation failed", zap.Error(err))
		return response.BadRequest(c, err.Error())
	}

	logging.Logger.Info("Clone requested",
		zap.String("user", user.Name),
		zap.String("template", req.TemplateID),
		zap.String("instanceName", req.InstanceName),
		zap.String("ip", c.RealIP()))

	op, err := h.orchestrator.StartClone(c.Request().Context(), cloneengine.StartCloneRequest{
		TemplateID:    req.TemplateID,
		InstanceName:  req.InstanceName,
		AdminEmail:    req.AdminEmail,
		AdminPassword: req.AdminPassword,
		RequestedBy:   user.Name,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Accepted(c, "Cloning process started", map[string]interface{}{
		"cloneOperation": op,
	})
}

// GetOperation handles GET /blueprint/clone-operations/:requestId
func (h *Handler) GetOperation(c echo.Context) error {
	requestID := c.Param("requestId")

	op, err := h.orchestrator.GetOperation(c.Request().Context(), requestID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(200, op)
}

// ListOperations handles GET /blueprint/clone-operations
// Supports ?templateId= to filter by owning template.
func (h *Handler) ListOperations(c echo.Context) error {
	templateID := c.QueryParam("templateId")

	ops, err := h.orchestrator.ListOperations(c.Request().Context(), templateID)
	if err != nil {
		return response.FromError(c, err)
	}
	if ops == nil {
		ops = []store.CloneOperation{}
	}
	return c.JSON(200, ops)
}

package template

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/api/common"
	"github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

// Handler handles blueprint template HTTP requests
type Handler struct {
	store store.Store
}

// NewHandler creates a new template handler
func NewHandler(s store.Store) *Handler {
	return &Handler{store: s}
}

// ListTemplates handles GET /blueprint/templates
// Archived templates are excluded unless ?all=true is passed.
func (h *Handler) ListTemplates(c echo.Context) error {
	includeArchived := c.QueryParam("all") == "true"

	templates, err := h.store.ListTemplates(c.Request().Context(), includeArchived)
	if err != nil {
		logging.Logger.Error("Failed to list templates", zap.Error(err))
		return response.InternalServerError(c, "Failed to list templates")
	}
	if templates == nil {
		templates = []store.BlueprintTemplate{}
	}
	return c.JSON(200, templates)
}

// GetTemplate handles GET /blueprint/templates/:id
func (h *Handler) GetTemplate(c echo.Context) error {
	id := c.Param("id")

	tmpl, err := h.store.GetTemplate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template '"+id+"' not found")
		}
		logging.Logger.Error("Failed to load template", zap.String("id", id), zap.Error(err))
		return response.InternalServerError(c, "Failed to load template")
	}
	return c.JSON(200, tmpl)
}

// CreateTemplate handles POST /blueprint/templates
func (h *Handler) CreateTemplate(c echo.Context) error {
	var req common.CreateTemplateRequest
	user, _ := middleware.GetUserFromContext(c)

	if err := c.Bind(&req); err != nil {
		logging.Logger.Error("Failed to bind request", zap.Error(err))
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		logging.Logger.Error("Request validation failed", zap.Error(err))
		return response.BadRequest(c, err.Error())
	}

	instanceID := req.InstanceID
	if instanceID == "" {
		instanceID = uuid.New().String()
	}

	now := time.Now().UTC()
	tmpl := &store.BlueprintTemplate{
		ID:               uuid.New().String(),
		Name:             req.Name,
		Description:      req.Description,
		InstanceID:       instanceID,
		BlueprintVersion: req.BlueprintVersion,
		IsCloneable:      req.IsCloneable,
		Status:           store.TemplateStatusActive,
		HandoffStatus:    store.HandoffInProgress,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := h.store.CreateTemplate(c.Request().Context(), tmpl); err != nil {
		logging.Logger.Error("Failed to create template",
			zap.String("name", req.Name),
			zap.Error(err))
		return response.InternalServerError(c, "Failed to create template")
	}

	logging.Logger.Info("Template created",
		zap.String("id", tmpl.ID),
		zap.String("name", tmpl.Name),
		zap.String("user", user.Name),
		zap.String("ip", c.RealIP()))

	return c.JSON(201, tmpl)
}

// ArchiveTemplate handles POST /blueprint/templates/:id/archive
// Templates are never hard-deleted so the clone audit history survives.
func (h *Handler) ArchiveTemplate(c echo.Context) error {
	id := c.Param("id")

	tmpl, err := h.store.GetTemplate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template '"+id+"' not found")
		}
		return response.InternalServerError(c, "Failed to load template")
	}

	tmpl.Status = store.TemplateStatusArchived
	if err := h.store.UpdateTemplate(c.Request().Context(), tmpl); err != nil {
		logging.Logger.Error("Failed to archive template", zap.String("id", id), zap.Error(err))
		return response.InternalServerError(c, "Failed to archive template")
	}

	logging.Logger.Info("Template archived", zap.String("id", id))
	return c.JSON(200, tmpl)
}

// UpdateHandoff handles PUT /blueprint/templates/:id/handoff
func (h *Handler) UpdateHandoff(c echo.Context) error {
	id := c.Param("id")

	var req common.UpdateHandoffRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	tmpl, err := h.store.GetTemplate(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template '"+id+"' not found")
		}
		return response.InternalServerError(c, "Failed to load template")
	}

	tmpl.HandoffStatus = req.Status
	if err := h.store.UpdateTemplate(c.Request().Context(), tmpl); err != nil {
		logging.Logger.Error("Failed to update handoff status", zap.String("id", id), zap.Error(err))
		return response.InternalServerError(c, "Failed to update handoff status")
	}

	logging.Logger.Info("Handoff status updated",
		zap.String("id", id),
		zap.String("status", req.Status))
	return c.JSON(200, tmpl)
}

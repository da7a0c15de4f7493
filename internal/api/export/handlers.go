package export

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/api/common"
	"github.com/smartsite-dev/api/internal/blueprint"
	"github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/modules"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/cache"
	"github.com/smartsite-dev/api/pkg/logging"
	"github.com/smartsite-dev/api/pkg/response"
)

const defaultVersionCacheKey = "default-blueprint-version"

// Handler handles extraction, export and publish HTTP requests
type Handler struct {
	store     store.Store
	extractor *blueprint.Extractor
	registry  *modules.Registry
	cache     cache.Cache
}

// NewHandler creates a new export handler
func NewHandler(s store.Store, e *blueprint.Extractor, r *modules.Registry, c cache.Cache) *Handler {
	return &Handler{store: s, extractor: e, registry: r, cache: c}
}

// Extract handles POST /blueprint/extract/:templateId
// Always records a new export; the snapshot is returned to the caller.
func (h *Handler) Extract(c echo.Context) error {
	templateID := c.Param("templateId")
	user, _ := middleware.GetUserFromContext(c)

	var req common.ExtractRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request")
	}

	snapshot, exp, err := h.extractor.Extract(c.Request().Context(), templateID, blueprint.ExtractOptions{
		MakeTenantAgnostic: req.MakeTenantAgnostic,
		ExtractedBy:        user.Name,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Created(c, "Blueprint extracted", map[string]interface{}{
		"blueprintData": snapshot,
		"export":        exp,
	})
}

// ListExports handles GET /blueprint/exports
// Supports ?instanceId= to filter by source instance.
func (h *Handler) ListExports(c echo.Context) error {
	instanceID := c.QueryParam("instanceId")

	exports, err := h.store.ListExports(c.Request().Context(), instanceID)
	if err != nil {
		logging.Logger.Error("Failed to list exports", zap.Error(err))
		return response.InternalServerError(c, "Failed to list exports")
	}
	if exports == nil {
		exports = []store.BlueprintExport{}
	}
	return c.JSON(200, exports)
}

// ExportPackage handles POST /blueprint/export/:templateId
// Packages a tenant-agnostic extraction as a versioned export artifact.
func (h *Handler) ExportPackage(c echo.Context) error {
	templateID := c.Param("templateId")
	user, _ := middleware.GetUserFromContext(c)

	_, exp, err := h.extractor.Extract(c.Request().Context(), templateID, blueprint.ExtractOptions{
		MakeTenantAgnostic: true,
		ExtractedBy:        user.Name,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	logging.Logger.Info("Blueprint packaged",
		zap.String("template", templateID),
		zap.String("export", exp.ID),
		zap.String("version", exp.BlueprintVersion))

	return response.Created(c, "Blueprint packaged", exp)
}

// PublishDefault handles POST /blueprint/publish/:templateId
// Marks the template's current blueprint version as the default for
// new-tenant onboarding. The requested version must match the
// template's current version, the version must already be exported, and
// all required modules for it must be enabled.
func (h *Handler) PublishDefault(c echo.Context) error {
	templateID := c.Param("templateId")
	ctx := c.Request().Context()

	var req common.PublishRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "Invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, err.Error())
	}

	tmpl, err := h.store.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Template '"+templateID+"' not found")
		}
		return response.InternalServerError(c, "Failed to load template")
	}

	if tmpl.BlueprintVersion != req.BlueprintVersion {
		return response.Conflict(c,
			"template is at version "+tmpl.BlueprintVersion+", cannot publish "+req.BlueprintVersion)
	}

	latest, err := h.store.LatestExport(ctx, tmpl.InstanceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.Conflict(c, "version "+req.BlueprintVersion+" has not been exported")
		}
		return response.InternalServerError(c, "Failed to check exports")
	}
	if latest.BlueprintVersion != req.BlueprintVersion {
		return response.Conflict(c, "latest export is version "+latest.BlueprintVersion+", re-export before publishing")
	}

	ready, err := h.registry.Ready(ctx, tmpl.InstanceID, req.BlueprintVersion)
	if err != nil {
		return response.FromError(c, err)
	}
	if !ready {
		return response.Conflict(c, "required modules for version "+req.BlueprintVersion+" are not all enabled")
	}

	if err := h.store.SetSetting(ctx, store.SettingDefaultBlueprintVersion, req.BlueprintVersion); err != nil {
		logging.Logger.Error("Failed to publish default version", zap.Error(err))
		return response.InternalServerError(c, "Failed to publish default version")
	}
	_ = h.cache.Set(ctx, defaultVersionCacheKey, req.BlueprintVersion, time.Hour)

	logging.Logger.Info("Default blueprint version published",
		zap.String("template", templateID),
		zap.String("version", req.BlueprintVersion))

	return response.OK(c, "Version published as onboarding default", map[string]interface{}{
		"published":        true,
		"blueprintVersion": req.BlueprintVersion,
	})
}

// GetDefaultVersion handles GET /blueprint/default-version
func (h *Handler) GetDefaultVersion(c echo.Context) error {
	ctx := c.Request().Context()

	var version string
	if err := h.cache.Get(ctx, defaultVersionCacheKey, &version); err == nil {
		return c.JSON(200, map[string]string{"blueprintVersion": version})
	}

	version, err := h.store.GetSetting(ctx, store.SettingDefaultBlueprintVersion)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "No default blueprint version published")
		}
		return response.InternalServerError(c, "Failed to load default version")
	}
	_ = h.cache.Set(ctx, defaultVersionCacheKey, version, time.Hour)

	return c.JSON(200, map[string]string{"blueprintVersion": version})
}

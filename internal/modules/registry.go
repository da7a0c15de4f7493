package modules

import (
	"context"
	"errors"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/apperrors"
	"github.com/smartsite-dev/api/pkg/cache"
	"github.com/smartsite-dev/api/pkg/config"
	"github.com/smartsite-dev/api/pkg/logging"
)

// v111 is the blueprint version whose module set the status read-model
// flags explicitly for the upgrade checklist UI.
const v111 = "1.1.1"

const statusCacheTTL = 30 * time.Second

// ModuleStatus is the per-module line of the status read-model.
// Computed per request; never persisted.
type ModuleStatus struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Enabled      bool   `json:"enabled"`
	Optional     bool   `json:"optional"`
	Status       string `json:"status"`
	Type         string `json:"type"`
	Version      string `json:"version"`
	Category     string `json:"category"`
	IsV111Module bool   `json:"isV111Module"`
}

// StatusReport summarizes module readiness for one instance
type StatusReport struct {
	BlueprintVersion string         `json:"blueprintVersion"`
	TotalModules     int            `json:"totalModules"`
	V111ModulesCount int            `json:"v111ModulesCount"`
	Ready            bool           `json:"ready"`
	ModuleStatus     []ModuleStatus `json:"moduleStatus"`
}

// RegisterRequest registers a module and associates it with a template
type RegisterRequest struct {
	ModuleID   string
	Name       string
	Category   string
	Type       string
	Version    string
	TemplateID string
}

// Registry manages registered modules and computes per-version status.
// Required-module sets per blueprint version come from configuration
// data, so new versions ship without code changes.
type Registry struct {
	store store.Store
	cfg   *config.BlueprintConfig
	cache cache.Cache
}

// NewRegistry creates a module registry
func NewRegistry(s store.Store, cfg *config.BlueprintConfig, c cache.Cache) *Registry {
	return &Registry{store: s, cfg: cfg, cache: c}
}

func statusCacheKey(instanceID string) string {
	return "module-status:" + instanceID
}

// Status computes the module checklist for the given instance. The
// result is cached briefly; registering a module invalidates the owning
// instance's entry, any other instance refreshes when the TTL lapses.
func (r *Registry) Status(ctx context.Context, instanceID string) (*StatusReport, error) {
	if r.cache != nil {
		var cached StatusReport
		if err := r.cache.Get(ctx, statusCacheKey(instanceID), &cached); err == nil {
			return &cached, nil
		}
	}

	tmpl, err := r.store.GetTemplateByInstanceID(ctx, instanceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("instance", instanceID)
		}
		return nil, apperrors.Upstream("failed to resolve instance", err)
	}

	registered, err := r.store.ListModules(ctx)
	if err != nil {
		return nil, apperrors.Upstream("failed to list modules", err)
	}

	v111Set := r.moduleSet(v111)
	expected := r.moduleSet(tmpl.BlueprintVersion)

	report := &StatusReport{
		BlueprintVersion: tmpl.BlueprintVersion,
		TotalModules:     len(registered),
		ModuleStatus:     make([]ModuleStatus, 0, len(registered)),
	}

	enabledByID := make(map[string]bool, len(registered))
	for _, m := range registered {
		enabledByID[m.ID] = m.Enabled

		_, isV111 := v111Set[m.ID]
		exp, isExpected := expected[m.ID]
		ms := ModuleStatus{
			ID:           m.ID,
			Name:         m.Name,
			Enabled:      m.Enabled,
			Optional:     !isExpected || exp.Optional,
			Status:       m.Status,
			Type:         m.Type,
			Version:      m.Version,
			Category:     m.Category,
			IsV111Module: isV111,
		}
		if isV111 {
			report.V111ModulesCount++
		}
		report.ModuleStatus = append(report.ModuleStatus, ms)
	}

	report.Ready = ready(expected, enabledByID)

	if r.cache != nil {
		_ = r.cache.Set(ctx, statusCacheKey(instanceID), report, statusCacheTTL)
	}
	return report, nil
}

// Ready reports whether all required modules for the given blueprint
// version are enabled. Used to gate publish-as-default server-side.
func (r *Registry) Ready(ctx context.Context, instanceID, version string) (bool, error) {
	registered, err := r.store.ListModules(ctx)
	if err != nil {
		return false, apperrors.Upstream("failed to list modules", err)
	}
	enabledByID := make(map[string]bool, len(registered))
	for _, m := range registered {
		enabledByID[m.ID] = m.Enabled
	}
	return ready(r.moduleSet(version), enabledByID), nil
}

// Register upserts a module as active/enabled and bumps the owning
// template's blueprint version to the version that introduced the
// module, when the config declares one. The version only ever moves
// forward: registering a module from an older set leaves the template
// where it is.
//
// Only the owning instance's cached status report is invalidated here;
// other instances keep their cached report until the TTL expires.
func (r *Registry) Register(ctx context.Context, req RegisterRequest) (*store.Module, *store.BlueprintTemplate, error) {
	if req.ModuleID == "" {
		return nil, nil, apperrors.Validation("moduleId", "is required")
	}
	if req.Name == "" {
		req.Name = req.ModuleID
	}
	if req.Category == "" {
		req.Category = "custom"
	}
	if req.Type == "" {
		req.Type = req.Category
	}
	if req.Version == "" {
		req.Version = "1.0.0"
	}

	tmpl, err := r.store.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperrors.NotFound("template", req.TemplateID)
		}
		return nil, nil, apperrors.Upstream("failed to load template", err)
	}

	now := time.Now().UTC()
	mod := &store.Module{
		ID:        req.ModuleID,
		Name:      req.Name,
		Category:  req.Category,
		Type:      req.Type,
		Version:   req.Version,
		Status:    store.ModuleStatusActive,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.store.UpsertModule(ctx, mod); err != nil {
		return nil, nil, apperrors.Upstream("failed to register module", err)
	}

	if introduced, ok := r.cfg.VersionIntroducing(req.ModuleID); ok && newerVersion(introduced, tmpl.BlueprintVersion) {
		tmpl.BlueprintVersion = introduced
		if err := r.store.UpdateTemplate(ctx, tmpl); err != nil {
			return nil, nil, apperrors.Upstream("failed to bump template version", err)
		}
		logging.Logger.Info("Template blueprint version bumped",
			zap.String("template", tmpl.ID),
			zap.String("module", req.ModuleID),
			zap.String("version", introduced))
	}

	if r.cache != nil {
		_ = r.cache.Delete(ctx, statusCacheKey(tmpl.InstanceID))
	}

	return mod, tmpl, nil
}

// newerVersion reports whether candidate is a strictly newer semantic
// version than current. Versions that do not parse never trigger a bump.
func newerVersion(candidate, current string) bool {
	cand, err := semver.NewVersion(candidate)
	if err != nil {
		return false
	}
	cur, err := semver.NewVersion(current)
	if err != nil {
		return false
	}
	return cand.GreaterThan(cur)
}

// moduleSet returns the config-declared module set for a version,
// keyed by module id. Unknown versions yield an empty set.
func (r *Registry) moduleSet(version string) map[string]config.RequiredModule {
	set := make(map[string]config.RequiredModule)
	mods, ok := r.cfg.ModulesForVersion(version)
	if !ok {
		return set
	}
	for _, m := range mods {
		set[m.ID] = m
	}
	return set
}

func ready(expected map[string]config.RequiredModule, enabledByID map[string]bool) bool {
	for id, m := range expected {
		if m.Optional {
			continue
		}
		if !enabledByID[id] {
			return false
		}
	}
	return true
}

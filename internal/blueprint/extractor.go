package blueprint

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/apperrors"
	"github.com/smartsite-dev/api/pkg/logging"
)

// settingsKey is the settings row holding an instance's live site
// configuration as JSON.
func settingsKey(instanceID string) string {
	return "instance:" + instanceID + ":settings"
}

// Extractor produces tenant-portable snapshots of a template's live
// configuration. Extraction never mutates the source template; every
// extraction persists a new BlueprintExport record.
type Extractor struct {
	store store.Store
	now   func() time.Time
}

// NewExtractor creates an extraction engine over the given store
func NewExtractor(s store.Store) *Extractor {
	return &Extractor{store: s, now: time.Now}
}

// Extract builds a snapshot for the template and records it as a new
// export with validation status "unvalidated". Validation is a separate
// concern and never runs here.
func (e *Extractor) Extract(ctx context.Context, templateID string, opts ExtractOptions) (*Snapshot, *store.BlueprintExport, error) {
	tmpl, err := e.store.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperrors.NotFound("template", templateID)
		}
		return nil, nil, apperrors.Upstream("failed to load template", err)
	}

	modules, err := e.store.ListModules(ctx)
	if err != nil {
		return nil, nil, apperrors.Upstream("failed to load modules", err)
	}

	settings, err := e.loadSettings(ctx, tmpl.InstanceID)
	if err != nil {
		return nil, nil, err
	}

	snapshot := &Snapshot{
		SchemaVersion:    SchemaVersion,
		BlueprintVersion: tmpl.BlueprintVersion,
		ExtractedAt:      e.now().UTC(),
		Source: SourceInfo{
			InstanceID:  tmpl.InstanceID,
			ExtractedBy: opts.ExtractedBy,
		},
		Modules:  make([]ModuleSnapshot, 0, len(modules)),
		Settings: settings,
		Metadata: map[string]string{
			"templateName": tmpl.Name,
		},
	}
	for _, m := range modules {
		snapshot.Modules = append(snapshot.Modules, ModuleSnapshot{
			ID:       m.ID,
			Name:     m.Name,
			Category: m.Category,
			Version:  m.Version,
			Enabled:  m.Enabled,
		})
	}

	if opts.MakeTenantAgnostic {
		redact(snapshot)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, nil, apperrors.Upstream("failed to encode snapshot", err)
	}

	export := &store.BlueprintExport{
		ID:               uuid.New().String(),
		InstanceID:       tmpl.InstanceID,
		TemplateID:       tmpl.ID,
		BlueprintVersion: tmpl.BlueprintVersion,
		ExportedBy:       opts.ExtractedBy,
		ExportedAt:       snapshot.ExtractedAt,
		IsTenantAgnostic: opts.MakeTenantAgnostic,
		BlueprintData:    data,
		ValidationStatus: store.ValidationUnvalidated,
	}
	if !opts.MakeTenantAgnostic {
		tenantID := settings.TenantID
		if tenantID != "" {
			export.TenantID = &tenantID
		}
	}

	if err := e.store.CreateExport(ctx, export); err != nil {
		return nil, nil, apperrors.Upstream("failed to record export", err)
	}

	logging.Logger.Info("Blueprint extracted",
		zap.String("template", tmpl.ID),
		zap.String("export", export.ID),
		zap.Bool("tenantAgnostic", opts.MakeTenantAgnostic),
		zap.Int("modules", len(snapshot.Modules)))

	return snapshot, export, nil
}

// loadSettings reads the instance's live site settings row. A missing
// row yields empty settings rather than an error: freshly provisioned
// instances have nothing configured yet.
func (e *Extractor) loadSettings(ctx context.Context, instanceID string) (SiteSettings, error) {
	var settings SiteSettings
	raw, err := e.store.GetSetting(ctx, settingsKey(instanceID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return settings, nil
		}
		return settings, apperrors.Upstream("failed to load instance settings", err)
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return settings, apperrors.Upstream("corrupt instance settings", err)
	}
	return settings, nil
}

// redact strips tenant-identifying values so the snapshot can seed any
// new tenant: tenant id, source instance id, credentials, and
// tenant-specific branding. The site name goes too; provisioning seeds
// it from the requested instance name.
func redact(s *Snapshot) {
	s.TenantAgnostic = true
	s.Source.InstanceID = ""
	s.Settings.TenantID = ""
	s.Settings.SiteName = ""
	s.Settings.Domain = ""
	s.Settings.SMTPUser = ""
	s.Settings.SMTPPassword = ""
	s.Settings.CloudinaryAPIKey = ""
	s.Settings.BrandingLogoURL = ""
	delete(s.Metadata, "tenantId")
	delete(s.Metadata, "domain")
}

// SaveInstanceSettings writes an instance's live site settings row.
// Used by provisioning when seeding a cloned instance.
func SaveInstanceSettings(ctx context.Context, s store.Store, instanceID string, settings SiteSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	return s.SetSetting(ctx, settingsKey(instanceID), string(data))
}

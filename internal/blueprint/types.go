package blueprint

import "time"

// SchemaVersion identifies the snapshot structure version
const SchemaVersion = "1.0.0"

// SourceInfo identifies where a snapshot was extracted from
type SourceInfo struct {
	InstanceID  string `json:"instanceId,omitempty"`
	ExtractedBy string `json:"extractedBy"`
}

// ModuleSnapshot captures one module's configuration at extraction time
type ModuleSnapshot struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Version  string `json:"version"`
	Enabled  bool   `json:"enabled"`
}

// SiteSettings is the per-instance configuration carried in a snapshot.
// The credential and identity fields are what tenant-agnostic redaction
// strips.
type SiteSettings struct {
	TenantID         string `json:"tenantId,omitempty"`
	SiteName         string `json:"siteName,omitempty"`
	Domain           string `json:"domain,omitempty"`
	SMTPUser         string `json:"smtpUser,omitempty"`
	SMTPPassword     string `json:"smtpPassword,omitempty"`
	CloudinaryAPIKey string `json:"cloudinaryApiKey,omitempty"`
	BrandingLogoURL  string `json:"brandingLogoUrl,omitempty"`
	ThemeColor       string `json:"themeColor,omitempty"`
}

// Snapshot is the tenant-portable blueprint data structure
type Snapshot struct {
	SchemaVersion    string            `json:"schemaVersion"`
	BlueprintVersion string            `json:"blueprintVersion"`
	ExtractedAt      time.Time         `json:"extractedAt"`
	TenantAgnostic   bool              `json:"tenantAgnostic"`
	Source           SourceInfo        `json:"source"`
	Modules          []ModuleSnapshot  `json:"modules"`
	Settings         SiteSettings      `json:"settings"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// ExtractOptions controls extraction behavior
type ExtractOptions struct {
	MakeTenantAgnostic bool
	ExtractedBy        string
}

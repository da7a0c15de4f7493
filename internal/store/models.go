package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Template status values
const (
	TemplateStatusActive   = "active"
	TemplateStatusArchived = "archived"
	TemplateStatusDraft    = "draft"
)

// Handoff status values
const (
	HandoffInProgress = "in_progress"
	HandoffCompleted  = "completed"
)

// Clone operation states. Completed and failed are terminal.
const (
	CloneStatusPending    = "pending"
	CloneStatusInProgress = "in_progress"
	CloneStatusCompleted  = "completed"
	CloneStatusFailed     = "failed"
)

// Export validation states
const (
	ValidationUnvalidated = "unvalidated"
	ValidationValid       = "valid"
	ValidationInvalid     = "invalid"
)

// Ticket states. Resolved is terminal.
const (
	TicketStatusNew           = "new"
	TicketStatusAutoSuggested = "auto_suggested"
	TicketStatusEscalated     = "escalated"
	TicketStatusResolved      = "resolved"
)

// Module states
const (
	ModuleStatusActive   = "active"
	ModuleStatusInactive = "inactive"
)

// JSONMap is a string map persisted as a jsonb column
type JSONMap map[string]string

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("unsupported jsonb source type")
	}
	return json.Unmarshal(data, m)
}

// BlueprintTemplate is a cloneable source-instance registration.
// Templates are never hard-deleted; archiving preserves the audit
// history of past clones.
type BlueprintTemplate struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string    `gorm:"not null" json:"name"`
	Description      string    `json:"description,omitempty"`
	InstanceID       string    `gorm:"type:uuid;index;not null" json:"instanceId"`
	BlueprintVersion string    `gorm:"not null" json:"blueprintVersion"`
	IsCloneable      bool      `gorm:"not null" json:"isCloneable"`
	Status           string    `gorm:"not null" json:"status"`
	HandoffStatus    string    `gorm:"not null" json:"handoffStatus"`
	CreatedAt        time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt        time.Time `gorm:"not null" json:"updatedAt"`
}

func (BlueprintTemplate) TableName() string {
	return "blueprint_templates"
}

// CloneOperation is an append-only audit record of one clone attempt
type CloneOperation struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID     string     `gorm:"type:uuid;uniqueIndex;not null" json:"requestId"`
	TemplateID    string     `gorm:"type:uuid;index;not null" json:"templateId"`
	InstanceName  string     `gorm:"not null" json:"instanceName"`
	AdminEmail    string     `gorm:"not null" json:"adminEmail"`
	Status        string     `gorm:"index;not null" json:"status"`
	NewInstanceID *string    `gorm:"type:uuid" json:"newInstanceId"`
	ErrorMessage  *string    `json:"errorMessage"`
	Metadata      JSONMap    `gorm:"type:jsonb" json:"metadata"`
	StartedAt     time.Time  `gorm:"not null" json:"startedAt"`
	CompletedAt   *time.Time `json:"completedAt"`
}

func (CloneOperation) TableName() string {
	return "clone_operations"
}

// Terminal reports whether the operation reached a final state
func (op *CloneOperation) Terminal() bool {
	return op.Status == CloneStatusCompleted || op.Status == CloneStatusFailed
}

// BlueprintExport captures one extraction result. Immutable once
// written; re-extraction creates a new record.
type BlueprintExport struct {
	ID                string          `gorm:"type:uuid;primaryKey" json:"id"`
	InstanceID        string          `gorm:"type:uuid;index;not null" json:"instanceId"`
	TemplateID        string          `gorm:"type:uuid;index;not null" json:"templateId"`
	BlueprintVersion  string          `gorm:"not null" json:"blueprintVersion"`
	TenantID          *string         `json:"tenantId"`
	ExportedBy        string          `gorm:"not null" json:"exportedBy"`
	ExportedAt        time.Time       `gorm:"not null" json:"exportedAt"`
	IsTenantAgnostic  bool            `gorm:"not null" json:"isTenantAgnostic"`
	BlueprintData     json.RawMessage `gorm:"type:jsonb;not null" json:"blueprintData"`
	ValidationStatus  string          `gorm:"not null" json:"validationStatus"`
	ValidationDetails *string         `json:"validationDetails"`
}

func (BlueprintExport) TableName() string {
	return "blueprint_exports"
}

// Module is a registered site module
type Module struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Category  string    `gorm:"not null" json:"category"`
	Type      string    `gorm:"not null" json:"type"`
	Version   string    `gorm:"not null" json:"version"`
	Status    string    `gorm:"not null" json:"status"`
	Enabled   bool      `gorm:"not null" json:"enabled"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Module) TableName() string {
	return "modules"
}

// SupportTicket tracks one customer support request through the
// suggestion/escalation flow
type SupportTicket struct {
	ID         string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email      string    `gorm:"not null" json:"email"`
	Subject    string    `gorm:"not null" json:"subject"`
	Message    string    `gorm:"not null" json:"message"`
	Status     string    `gorm:"index;not null" json:"status"`
	Suggestion *string   `json:"suggestion"`
	Resolution *string   `json:"resolution"`
	CreatedAt  time.Time `gorm:"not null" json:"createdAt"`
	UpdatedAt  time.Time `gorm:"not null" json:"updatedAt"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}

// Setting is a single key/value service setting, e.g. the published
// default blueprint version for new-tenant onboarding.
type Setting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"not null" json:"updatedAt"`
}

func (Setting) TableName() string {
	return "settings"
}

// Well-known setting keys
const (
	SettingDefaultBlueprintVersion = "default_blueprint_version"
	SettingInstanceID              = "api_instance_id"
)

package common

// CreateTemplateRequest registers a source instance as a blueprint
// template
type CreateTemplateRequest struct {
	Name             string `json:"name" validate:"required,min=2"`
	Description      string `json:"description,omitempty"`
	InstanceID       string `json:"instanceId,omitempty"`
	BlueprintVersion string `json:"blueprintVersion" validate:"required"`
	IsCloneable      bool   `json:"isCloneable"`
}

// UpdateHandoffRequest updates a template's handoff status
type UpdateHandoffRequest struct {
	Status string `json:"status" validate:"required,oneof=in_progress completed"`
}

// StartCloneRequest starts a clone operation from a template
type StartCloneRequest struct {
	TemplateID    string `json:"templateId" validate:"required"`
	InstanceName  string `json:"instanceName" validate:"required,min=3"`
	AdminEmail    string `json:"adminEmail" validate:"required,email"`
	AdminPassword string `json:"adminPassword" validate:"required,min=8"`
}

// ExtractRequest controls blueprint extraction
type ExtractRequest struct {
	MakeTenantAgnostic bool `json:"makeTenantAgnostic"`
}

// PublishRequest publishes a template version as the onboarding default
type PublishRequest struct {
	BlueprintVersion string `json:"blueprintVersion" validate:"required"`
}

// RegisterModuleRequest registers a module against a template
type RegisterModuleRequest struct {
	ModuleID   string `json:"moduleId" validate:"required"`
	Name       string `json:"name,omitempty"`
	Category   string `json:"category,omitempty"`
	Type       string `json:"type,omitempty"`
	Version    string `json:"version,omitempty"`
	TemplateID string `json:"templateId" validate:"required"`
}

// CreateTicketRequest opens a support ticket
type CreateTicketRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// ResolveTicketRequest closes a support ticket
type ResolveTicketRequest struct {
	Resolution string `json:"resolution" validate:"required"`
}

// GenerateContentRequest asks the AI gateway for generated content
type GenerateContentRequest struct {
	Prompt      string                 `json:"prompt" validate:"required"`
	TaskType    string                 `json:"taskType" validate:"required"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Temperature *float64               `json:"temperature,omitempty"`
	MaxTokens   *int                   `json:"maxTokens,omitempty"`
}

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a referenced record does not exist
var ErrNotFound = errors.New("record not found")

// ErrTerminal is returned on attempts to update a clone operation that
// has already reached a terminal state.
var ErrTerminal = errors.New("clone operation already terminal")

// Store is the persistence surface consumed by the API and the clone
// orchestrator. Each entity is written by exactly one component.
type Store interface {
	// Templates (written by the template registry)
	CreateTemplate(ctx context.Context, t *BlueprintTemplate) error
	GetTemplate(ctx context.Context, id string) (*BlueprintTemplate, error)
	GetTemplateByInstanceID(ctx context.Context, instanceID string) (*BlueprintTemplate, error)
	ListTemplates(ctx context.Context, includeArchived bool) ([]BlueprintTemplate, error)
	UpdateTemplate(ctx context.Context, t *BlueprintTemplate) error

	// Clone operations (written by the clone orchestrator)
	CreateCloneOperation(ctx context.Context, op *CloneOperation) error
	GetCloneOperation(ctx context.Context, requestID string) (*CloneOperation, error)
	ListCloneOperations(ctx context.Context, templateID string) ([]CloneOperation, error)
	UpdateCloneOperation(ctx context.Context, op *CloneOperation) error

	// Exports (written by the export gateway)
	CreateExport(ctx context.Context, e *BlueprintExport) error
	ListExports(ctx context.Context, instanceID string) ([]BlueprintExport, error)
	LatestExport(ctx context.Context, instanceID string) (*BlueprintExport, error)

	// Modules
	UpsertModule(ctx context.Context, m *Module) error
	GetModule(ctx context.Context, id string) (*Module, error)
	ListModules(ctx context.Context) ([]Module, error)

	// Support tickets
	CreateTicket(ctx context.Context, t *SupportTicket) error
	GetTicket(ctx context.Context, id string) (*SupportTicket, error)
	UpdateTicket(ctx context.Context, t *SupportTicket) error

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

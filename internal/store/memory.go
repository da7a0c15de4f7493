package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation used by tests and as
// a development fallback when no database is configured.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]BlueprintTemplate
	ops       map[string]CloneOperation // keyed by request id
	exports   map[string]BlueprintExport
	modules   map[string]Module
	tickets   map[string]SupportTicket
	settings  map[string]string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]BlueprintTemplate),
		ops:       make(map[string]CloneOperation),
		exports:   make(map[string]BlueprintExport),
		modules:   make(map[string]Module),
		tickets:   make(map[string]SupportTicket),
		settings:  make(map[string]string),
	}
}

func (m *MemoryStore) CreateTemplate(ctx context.Context, t *BlueprintTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetTemplate(ctx context.Context, id string) (*BlueprintTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) GetTemplateByInstanceID(ctx context.Context, instanceID string) (*BlueprintTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.templates {
		if t.InstanceID == instanceID {
			out := t
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListTemplates(ctx context.Context, includeArchived bool) ([]BlueprintTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []BlueprintTemplate
	for _, t := range m.templates {
		if !includeArchived && t.Status == TemplateStatusArchived {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateTemplate(ctx context.Context, t *BlueprintTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	m.templates[t.ID] = *t
	return nil
}

func (m *MemoryStore) CreateCloneOperation(ctx context.Context, op *CloneOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops[op.RequestID] = *op
	return nil
}

func (m *MemoryStore) GetCloneOperation(ctx context.Context, requestID string) (*CloneOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.ops[requestID]
	if !ok {
		return nil, ErrNotFound
	}
	return &op, nil
}

func (m *MemoryStore) ListCloneOperations(ctx context.Context, templateID string) ([]CloneOperation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []CloneOperation
	for _, op := range m.ops {
		if templateID != "" && op.TemplateID != templateID {
			continue
		}
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, nil
}

func (m *MemoryStore) UpdateCloneOperation(ctx context.Context, op *CloneOperation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.ops[op.RequestID]
	if !ok {
		return ErrNotFound
	}
	if existing.Terminal() {
		return ErrTerminal
	}
	existing.Status = op.Status
	existing.NewInstanceID = op.NewInstanceID
	existing.ErrorMessage = op.ErrorMessage
	existing.Metadata = op.Metadata
	existing.CompletedAt = op.CompletedAt
	m.ops[op.RequestID] = existing
	return nil
}

func (m *MemoryStore) CreateExport(ctx context.Context, e *BlueprintExport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports[e.ID] = *e
	return nil
}

func (m *MemoryStore) ListExports(ctx context.Context, instanceID string) ([]BlueprintExport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []BlueprintExport
	for _, e := range m.exports {
		if instanceID != "" && e.InstanceID != instanceID {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExportedAt.After(out[j].ExportedAt) })
	return out, nil
}

func (m *MemoryStore) LatestExport(ctx context.Context, instanceID string) (*BlueprintExport, error) {
	exports, err := m.ListExports(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if len(exports) == 0 {
		return nil, ErrNotFound
	}
	return &exports[0], nil
}

func (m *MemoryStore) UpsertModule(ctx context.Context, mod *Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.modules[mod.ID]; ok {
		mod.CreatedAt = existing.CreatedAt
	}
	m.modules[mod.ID] = *mod
	return nil
}

func (m *MemoryStore) GetModule(ctx context.Context, id string) (*Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &mod, nil
}

func (m *MemoryStore) ListModules(ctx context.Context) ([]Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Module, 0, len(m.modules))
	for _, mod := range m.modules {
		out = append(out, mod)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) CreateTicket(ctx context.Context, t *SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickets[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetTicket(ctx context.Context, id string) (*SupportTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryStore) UpdateTicket(ctx context.Context, t *SupportTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; !ok {
		return ErrNotFound
	}
	t.UpdatedAt = time.Now().UTC()
	m.tickets[t.ID] = *t
	return nil
}

func (m *MemoryStore) GetSetting(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.settings[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStore) SetSetting(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = value
	return nil
}

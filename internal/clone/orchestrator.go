package clone

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/smartsite-dev/api/internal/blueprint"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/apperrors"
	"github.com/smartsite-dev/api/pkg/logging"
)

const (
	defaultQueueSize   = 64
	defaultStepTimeout = 30 * time.Second

	minInstanceNameLen = 3
	minPasswordLen     = 8
)

// StartCloneRequest carries the parameters for a new clone operation
type StartCloneRequest struct {
	TemplateID    string
	InstanceName  string
	AdminEmail    string
	AdminPassword string
	RequestedBy   string
}

// Orchestrator owns the clone operation lifecycle. Operations are
// created pending, picked up by a worker goroutine, moved to
// in_progress while provisioning runs, and finish completed or failed.
// Terminal operations are never rewritten.
type Orchestrator struct {
	store       store.Store
	extractor   *blueprint.Extractor
	provisioner Provisioner
	stepTimeout time.Duration

	queue   chan string // request ids
	stop    chan struct{}
	wg      sync.WaitGroup
	pending pendingSecrets
}

// pendingSecrets holds hashed admin passwords for queued operations.
// Kept in memory only; secrets never touch the operation row.
type pendingSecrets struct {
	mu sync.Mutex
	m  map[string]string
}

func (p *pendingSecrets) store(requestID, passwordHash string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = make(map[string]string)
	}
	p.m[requestID] = passwordHash
}

func (p *pendingSecrets) take(requestID string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hash, ok := p.m[requestID]
	delete(p.m, requestID)
	return hash, ok
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithStepTimeout bounds each provisioning step. A step that exceeds
// the timeout fails the operation, so no row can stay in_progress
// forever.
func WithStepTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.stepTimeout = d }
}

// NewOrchestrator creates a clone orchestrator
func NewOrchestrator(s store.Store, extractor *blueprint.Extractor, p Provisioner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       s,
		extractor:   extractor,
		provisioner: p,
		stepTimeout: defaultStepTimeout,
		queue:       make(chan string, defaultQueueSize),
		stop:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the provisioning worker
func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go o.worker()
}

// Stop shuts the worker down after the current operation finishes
func (o *Orchestrator) Stop() {
	close(o.stop)
	o.wg.Wait()
}

// StartClone validates the request, records a pending operation and
// enqueues it for provisioning. Validation failures never create an
// operation record.
func (o *Orchestrator) StartClone(ctx context.Context, req StartCloneRequest) (*store.CloneOperation, error) {
	if len(req.InstanceName) < minInstanceNameLen {
		return nil, apperrors.Validation("instanceName",
			fmt.Sprintf("must be at least %d characters", minInstanceNameLen))
	}
	if _, err := mail.ParseAddress(req.AdminEmail); err != nil {
		return nil, apperrors.Validation("adminEmail", "must be a valid email address")
	}
	if len(req.AdminPassword) < minPasswordLen {
		return nil, apperrors.Validation("adminPassword",
			fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}

	tmpl, err := o.store.GetTemplate(ctx, req.TemplateID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("template", req.TemplateID)
		}
		return nil, apperrors.Upstream("failed to load template", err)
	}
	if !tmpl.IsCloneable {
		return nil, apperrors.Validation("templateId", "template is not cloneable")
	}
	if tmpl.Status == store.TemplateStatusArchived {
		return nil, apperrors.Validation("templateId", "template is archived")
	}

	op := &store.CloneOperation{
		ID:           uuid.New().String(),
		RequestID:    uuid.New().String(),
		TemplateID:   tmpl.ID,
		InstanceName: req.InstanceName,
		AdminEmail:   req.AdminEmail,
		Status:       store.CloneStatusPending,
		Metadata: store.JSONMap{
			"originalTemplate": tmpl.Name,
			"requestedBy":      req.RequestedBy,
		},
		StartedAt: time.Now().UTC(),
	}
	if err := o.store.CreateCloneOperation(ctx, op); err != nil {
		return nil, apperrors.Upstream("failed to record clone operation", err)
	}

	// Password is handed to the worker hashed; it is never persisted on
	// the operation row.
	o.pending.store(op.RequestID, HashPassword(req.AdminPassword))

	select {
	case o.queue <- op.RequestID:
	default:
		o.pending.take(op.RequestID)
		o.failOperation(context.Background(), op, "clone queue is full")
		return nil, apperrors.Upstream("clone queue is full", nil)
	}

	logging.Logger.Info("Clone operation queued",
		zap.String("requestId", op.RequestID),
		zap.String("template", tmpl.ID),
		zap.String("instanceName", req.InstanceName))

	return op, nil
}

// GetOperation returns the operation with the given request id
func (o *Orchestrator) GetOperation(ctx context.Context, requestID string) (*store.CloneOperation, error) {
	op, err := o.store.GetCloneOperation(ctx, requestID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.NotFound("clone operation", requestID)
		}
		return nil, apperrors.Upstream("failed to load clone operation", err)
	}
	return op, nil
}

// ListOperations returns all operations, optionally filtered by template
func (o *Orchestrator) ListOperations(ctx context.Context, templateID string) ([]store.CloneOperation, error) {
	ops, err := o.store.ListCloneOperations(ctx, templateID)
	if err != nil {
		return nil, apperrors.Upstream("failed to list clone operations", err)
	}
	return ops, nil
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for {
		select {
		case <-o.stop:
			return
		case requestID := <-o.queue:
			o.process(requestID)
		}
	}
}

// process runs the provisioning pipeline for one queued operation
func (o *Orchestrator) process(requestID string) {
	ctx := context.Background()

	// Taken up front so abandoned operations never leave an entry behind
	passwordHash, _ := o.pending.take(requestID)

	op, err := o.store.GetCloneOperation(ctx, requestID)
	if err != nil {
		logging.Logger.Error("Queued clone operation missing",
			zap.String("requestId", requestID),
			zap.Error(err))
		return
	}
	if op.Terminal() {
		return
	}

	op.Status = store.CloneStatusInProgress
	if err := o.store.UpdateCloneOperation(ctx, op); err != nil {
		logging.Logger.Error("Failed to mark clone in progress",
			zap.String("requestId", requestID),
			zap.Error(err))
		return
	}

	instanceID, err := o.provision(ctx, op, passwordHash)
	if err != nil {
		o.failOperation(ctx, op, err.Error())
		return
	}

	now := time.Now().UTC()
	op.Status = store.CloneStatusCompleted
	op.NewInstanceID = &instanceID
	op.CompletedAt = &now
	if err := o.store.UpdateCloneOperation(ctx, op); err != nil {
		logging.Logger.Error("Failed to record clone completion",
			zap.String("requestId", requestID),
			zap.Error(err))
		return
	}

	logging.Logger.Info("Clone operation completed",
		zap.String("requestId", op.RequestID),
		zap.String("newInstanceId", instanceID))
}

// step is one reversible provisioning action
type step struct {
	name string
	run  func(ctx context.Context) error
	undo func(ctx context.Context) error
}

// provision runs the ordered provisioning steps. On failure the undo of
// every completed step runs in reverse order before the error is
// returned, so a failed clone leaves no partial resources behind.
func (o *Orchestrator) provision(ctx context.Context, op *store.CloneOperation, passwordHash string) (string, error) {
	snapshot, _, err := o.extractor.Extract(ctx, op.TemplateID, blueprint.ExtractOptions{
		MakeTenantAgnostic: true,
		ExtractedBy:        "clone-orchestrator",
	})
	if err != nil {
		return "", fmt.Errorf("extract template configuration: %w", err)
	}

	var instanceID string
	steps := []step{
		{
			name: "create instance",
			run: func(ctx context.Context) error {
				id, err := o.provisioner.CreateInstance(ctx, op.InstanceName)
				if err == nil {
					instanceID = id
				}
				return err
			},
			undo: func(ctx context.Context) error {
				return o.provisioner.DeleteInstance(ctx, instanceID)
			},
		},
		{
			name: "create admin account",
			run: func(ctx context.Context) error {
				return o.provisioner.CreateAdminAccount(ctx, instanceID, op.AdminEmail, passwordHash)
			},
			undo: func(ctx context.Context) error {
				return o.provisioner.DeleteAdminAccount(ctx, instanceID)
			},
		},
		{
			name: "apply template configuration",
			run: func(ctx context.Context) error {
				return o.provisioner.ApplyConfiguration(ctx, instanceID, op.InstanceName, snapshot)
			},
			undo: func(ctx context.Context) error {
				return o.provisioner.RemoveConfiguration(ctx, instanceID)
			},
		},
	}

	var completed []step
	for _, s := range steps {
		stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
		err := s.run(stepCtx)
		cancel()
		if err != nil {
			o.unwind(ctx, op, completed)
			return "", fmt.Errorf("%s: %w", s.name, err)
		}
		completed = append(completed, s)
	}

	return instanceID, nil
}

// unwind runs undo for completed steps in reverse order
func (o *Orchestrator) unwind(ctx context.Context, op *store.CloneOperation, completed []step) {
	for i := len(completed) - 1; i >= 0; i-- {
		s := completed[i]
		undoCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
		if err := s.undo(undoCtx); err != nil {
			logging.Logger.Error("Clone rollback step failed",
				zap.String("requestId", op.RequestID),
				zap.String("step", s.name),
				zap.Error(err))
		}
		cancel()
	}
	if op.Metadata == nil {
		op.Metadata = store.JSONMap{}
	}
	op.Metadata["rolled_back"] = "true"
}

// failOperation records a provisioning failure on the operation row so
// the cause stays queryable after the fact.
func (o *Orchestrator) failOperation(ctx context.Context, op *store.CloneOperation, message string) {
	now := time.Now().UTC()
	op.Status = store.CloneStatusFailed
	op.ErrorMessage = &message
	op.CompletedAt = &now
	if err := o.store.UpdateCloneOperation(ctx, op); err != nil {
		logging.Logger.Error("Failed to record clone failure",
			zap.String("requestId", op.RequestID),
			zap.Error(err))
		return
	}
	logging.Logger.Warn("Clone operation failed",
		zap.String("requestId", op.RequestID),
		zap.String("error", message))
}

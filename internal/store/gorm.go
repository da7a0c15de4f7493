package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// GormStore is the postgres-backed Store implementation
type GormStore struct {
	db *gorm.DB
}

// Open connects to postgres and migrates the schema
func Open(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&BlueprintTemplate{},
		&CloneOperation{},
		&BlueprintExport{},
		&Module{},
		&SupportTicket{},
		&Setting{},
	); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// NewGormStore wraps an existing gorm connection
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (g *GormStore) CreateTemplate(ctx context.Context, t *BlueprintTemplate) error {
	return g.db.WithContext(ctx).Create(t).Error
}

func (g *GormStore) GetTemplate(ctx context.Context, id string) (*BlueprintTemplate, error) {
	var t BlueprintTemplate
	err := g.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (g *GormStore) GetTemplateByInstanceID(ctx context.Context, instanceID string) (*BlueprintTemplate, error) {
	var t BlueprintTemplate
	err := g.db.WithContext(ctx).First(&t, "instance_id = ?", instanceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (g *GormStore) ListTemplates(ctx context.Context, includeArchived bool) ([]BlueprintTemplate, error) {
	var templates []BlueprintTemplate
	q := g.db.WithContext(ctx).Order("created_at DESC")
	if !includeArchived {
		q = q.Where("status <> ?", TemplateStatusArchived)
	}
	if err := q.Find(&templates).Error; err != nil {
		return nil, err
	}
	return templates, nil
}

func (g *GormStore) UpdateTemplate(ctx context.Context, t *BlueprintTemplate) error {
	t.UpdatedAt = time.Now().UTC()
	res := g.db.WithContext(ctx).Model(&BlueprintTemplate{}).
		Where("id = ?", t.ID).
		Select("Name", "Description", "BlueprintVersion", "IsCloneable", "Status", "HandoffStatus", "UpdatedAt").
		Updates(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) CreateCloneOperation(ctx context.Context, op *CloneOperation) error {
	return g.db.WithContext(ctx).Create(op).Error
}

func (g *GormStore) GetCloneOperation(ctx context.Context, requestID string) (*CloneOperation, error) {
	var op CloneOperation
	err := g.db.WithContext(ctx).First(&op, "request_id = ?", requestID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &op, nil
}

func (g *GormStore) ListCloneOperations(ctx context.Context, templateID string) ([]CloneOperation, error) {
	var ops []CloneOperation
	q := g.db.WithContext(ctx).Order("started_at DESC")
	if templateID != "" {
		q = q.Where("template_id = ?", templateID)
	}
	if err := q.Find(&ops).Error; err != nil {
		return nil, err
	}
	return ops, nil
}

// UpdateCloneOperation writes the operation state, guarded so that rows
// already in a terminal state are never rewritten.
func (g *GormStore) UpdateCloneOperation(ctx context.Context, op *CloneOperation) error {
	res := g.db.WithContext(ctx).Model(&CloneOperation{}).
		Where("request_id = ? AND status NOT IN ?", op.RequestID,
			[]string{CloneStatusCompleted, CloneStatusFailed}).
		Select("Status", "NewInstanceID", "ErrorMessage", "Metadata", "CompletedAt").
		Updates(op)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := g.GetCloneOperation(ctx, op.RequestID); err != nil {
			return err
		}
		return ErrTerminal
	}
	return nil
}

func (g *GormStore) CreateExport(ctx context.Context, e *BlueprintExport) error {
	return g.db.WithContext(ctx).Create(e).Error
}

func (g *GormStore) ListExports(ctx context.Context, instanceID string) ([]BlueprintExport, error) {
	var exports []BlueprintExport
	q := g.db.WithContext(ctx).Order("exported_at DESC")
	if instanceID != "" {
		q = q.Where("instance_id = ?", instanceID)
	}
	if err := q.Find(&exports).Error; err != nil {
		return nil, err
	}
	return exports, nil
}

func (g *GormStore) LatestExport(ctx context.Context, instanceID string) (*BlueprintExport, error) {
	var e BlueprintExport
	err := g.db.WithContext(ctx).
		Where("instance_id = ?", instanceID).
		Order("exported_at DESC").
		First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (g *GormStore) UpsertModule(ctx context.Context, m *Module) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "category", "type", "version", "status", "enabled", "updated_at"}),
	}).Create(m).Error
}

func (g *GormStore) GetModule(ctx context.Context, id string) (*Module, error) {
	var m Module
	err := g.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (g *GormStore) ListModules(ctx context.Context) ([]Module, error) {
	var modules []Module
	if err := g.db.WithContext(ctx).Order("id").Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (g *GormStore) CreateTicket(ctx context.Context, t *SupportTicket) error {
	return g.db.WithContext(ctx).Create(t).Error
}

func (g *GormStore) GetTicket(ctx context.Context, id string) (*SupportTicket, error) {
	var t SupportTicket
	err := g.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (g *GormStore) UpdateTicket(ctx context.Context, t *SupportTicket) error {
	t.UpdatedAt = time.Now().UTC()
	res := g.db.WithContext(ctx).Model(&SupportTicket{}).
		Where("id = ?", t.ID).
		Select("Status", "Suggestion", "Resolution", "UpdatedAt").
		Updates(t)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormStore) GetSetting(ctx context.Context, key string) (string, error) {
	var s Setting
	err := g.db.WithContext(ctx).First(&s, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return s.Value, nil
}

func (g *GormStore) SetSetting(ctx context.Context, key, value string) error {
	s := Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&s).Error
}

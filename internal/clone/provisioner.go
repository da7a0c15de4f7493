package clone

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/smartsite-dev/api/internal/blueprint"
	"github.com/smartsite-dev/api/internal/store"
)

// Provisioner performs the individual provisioning steps of a clone.
// Every create has a matching delete so the orchestrator can unwind a
// partially provisioned instance.
type Provisioner interface {
	CreateInstance(ctx context.Context, name string) (instanceID string, err error)
	DeleteInstance(ctx context.Context, instanceID string) error

	CreateAdminAccount(ctx context.Context, instanceID, email, passwordHash string) error
	DeleteAdminAccount(ctx context.Context, instanceID string) error

	ApplyConfiguration(ctx context.Context, instanceID, instanceName string, snapshot *blueprint.Snapshot) error
	RemoveConfiguration(ctx context.Context, instanceID string) error
}

// StoreProvisioner provisions tenant instances as store records: an
// instance settings row seeded from the snapshot plus an admin account
// row. A deployment targeting real infrastructure swaps this out behind
// the same interface.
type StoreProvisioner struct {
	store store.Store
}

// NewStoreProvisioner creates a store-backed provisioner
func NewStoreProvisioner(s store.Store) *StoreProvisioner {
	return &StoreProvisioner{store: s}
}

func instanceKey(instanceID string) string {
	return "instance:" + instanceID + ":name"
}

func adminKey(instanceID string) string {
	return "instance:" + instanceID + ":admin"
}

func (p *StoreProvisioner) CreateInstance(ctx context.Context, name string) (string, error) {
	instanceID := uuid.New().String()
	if err := p.store.SetSetting(ctx, instanceKey(instanceID), name); err != nil {
		return "", fmt.Errorf("create instance: %w", err)
	}
	return instanceID, nil
}

func (p *StoreProvisioner) DeleteInstance(ctx context.Context, instanceID string) error {
	return p.store.SetSetting(ctx, instanceKey(instanceID), "")
}

func (p *StoreProvisioner) CreateAdminAccount(ctx context.Context, instanceID, email, passwordHash string) error {
	record := email + ":" + passwordHash
	if err := p.store.SetSetting(ctx, adminKey(instanceID), record); err != nil {
		return fmt.Errorf("create admin account: %w", err)
	}
	return nil
}

func (p *StoreProvisioner) DeleteAdminAccount(ctx context.Context, instanceID string) error {
	return p.store.SetSetting(ctx, adminKey(instanceID), "")
}

func (p *StoreProvisioner) ApplyConfiguration(ctx context.Context, instanceID, instanceName string, snapshot *blueprint.Snapshot) error {
	settings := snapshot.Settings
	settings.TenantID = instanceID
	settings.SiteName = instanceName
	if err := blueprint.SaveInstanceSettings(ctx, p.store, instanceID, settings); err != nil {
		return fmt.Errorf("apply configuration: %w", err)
	}
	return nil
}

func (p *StoreProvisioner) RemoveConfiguration(ctx context.Context, instanceID string) error {
	return blueprint.SaveInstanceSettings(ctx, p.store, instanceID, blueprint.SiteSettings{})
}

// HashPassword hashes an admin password for storage
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

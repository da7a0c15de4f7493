package clone_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartsite-dev/api/internal/blueprint"
	"github.com/smartsite-dev/api/internal/clone"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/apperrors"
)

// fakeProvisioner records calls and fails on demand so rollback
// behavior can be asserted.
type fakeProvisioner struct {
	mu    sync.Mutex
	calls []string

	failCreateInstance bool
	failAdminAccount   bool
	failConfiguration  bool

	adminEmail string
	adminHash  string
}

func (f *fakeProvisioner) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProvisioner) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeProvisioner) CreateInstance(ctx context.Context, name string) (string, error) {
	f.record("create-instance")
	if f.failCreateInstance {
		return "", errors.New("hosting quota exceeded")
	}
	return "new-instance-id", nil
}

func (f *fakeProvisioner) DeleteInstance(ctx context.Context, instanceID string) error {
	f.record("delete-instance")
	return nil
}

func (f *fakeProvisioner) CreateAdminAccount(ctx context.Context, instanceID, email, passwordHash string) error {
	f.record("create-admin")
	f.mu.Lock()
	f.adminEmail = email
	f.adminHash = passwordHash
	f.mu.Unlock()
	if f.failAdminAccount {
		return errors.New("identity service rejected account")
	}
	return nil
}

func (f *fakeProvisioner) DeleteAdminAccount(ctx context.Context, instanceID string) error {
	f.record("delete-admin")
	return nil
}

func (f *fakeProvisioner) ApplyConfiguration(ctx context.Context, instanceID, instanceName string, snapshot *blueprint.Snapshot) error {
	f.record("apply-config")
	if f.failConfiguration {
		return errors.New("configuration import failed")
	}
	return nil
}

func (f *fakeProvisioner) RemoveConfiguration(ctx context.Context, instanceID string) error {
	f.record("remove-config")
	return nil
}

var _ = Describe("Orchestrator", func() {
	var (
		ctx          context.Context
		st           *store.MemoryStore
		provisioner  *fakeProvisioner
		orchestrator *clone.Orchestrator
		templateID   string
	)

	validRequest := func() clone.StartCloneRequest {
		return clone.StartCloneRequest{
			TemplateID:    templateID,
			InstanceName:  "new-accountants-site",
			AdminEmail:    "admin@example.com",
			AdminPassword: "long-enough-secret",
			RequestedBy:   "daniel",
		}
	}

	waitTerminal := func(requestID string) *store.CloneOperation {
		var op *store.CloneOperation
		Eventually(func() bool {
			var err error
			op, err = st.GetCloneOperation(ctx, requestID)
			return err == nil && op.Terminal()
		}, 5*time.Second, 10*time.Millisecond).Should(BeTrue())
		return op
	}

	BeforeEach(func() {
		ctx = context.Background()
		st = store.NewMemoryStore()
		provisioner = &fakeProvisioner{}

		templateID = "9a0d4c5e-0000-4000-8000-000000000001"
		Expect(st.CreateTemplate(ctx, &store.BlueprintTemplate{
			ID:               templateID,
			Name:             "Accountancy Starter",
			InstanceID:       "9a0d4c5e-0000-4000-8000-000000000002",
			BlueprintVersion: "1.1.1",
			IsCloneable:      true,
			Status:           store.TemplateStatusActive,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		})).To(Succeed())

		orchestrator = clone.NewOrchestrator(st, blueprint.NewExtractor(st), provisioner)
		orchestrator.Start()
	})

	AfterEach(func() {
		orchestrator.Stop()
	})

	Describe("StartClone", func() {
		Context("with an invalid request", func() {
			It("should reject a short instance name without creating a record", func() {
				req := validRequest()
				req.InstanceName = "ab"

				_, err := orchestrator.StartClone(ctx, req)
				Expect(apperrors.IsValidation(err)).To(BeTrue())

				ops, err := st.ListCloneOperations(ctx, "")
				Expect(err).ToNot(HaveOccurred())
				Expect(ops).To(BeEmpty())
			})

			It("should reject a malformed admin email", func() {
				req := validRequest()
				req.AdminEmail = "not-an-email"

				_, err := orchestrator.StartClone(ctx, req)
				Expect(apperrors.IsValidation(err)).To(BeTrue())
			})

			It("should reject a short password", func() {
				req := validRequest()
				req.AdminPassword = "short"

				_, err := orchestrator.StartClone(ctx, req)
				Expect(apperrors.IsValidation(err)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("8"))
			})

			It("should reject a non-cloneable template", func() {
				tmpl, err := st.GetTemplate(ctx, templateID)
				Expect(err).ToNot(HaveOccurred())
				tmpl.IsCloneable = false
				Expect(st.UpdateTemplate(ctx, tmpl)).To(Succeed())

				_, err = orchestrator.StartClone(ctx, validRequest())
				Expect(apperrors.IsValidation(err)).To(BeTrue())

				ops, err := st.ListCloneOperations(ctx, "")
				Expect(err).ToNot(HaveOccurred())
				Expect(ops).To(BeEmpty())
			})

			It("should reject an archived template", func() {
				tmpl, err := st.GetTemplate(ctx, templateID)
				Expect(err).ToNot(HaveOccurred())
				tmpl.Status = store.TemplateStatusArchived
				Expect(st.UpdateTemplate(ctx, tmpl)).To(Succeed())

				_, err = orchestrator.StartClone(ctx, validRequest())
				Expect(apperrors.IsValidation(err)).To(BeTrue())
			})

			It("should return not found for an unknown template", func() {
				req := validRequest()
				req.TemplateID = "missing"

				_, err := orchestrator.StartClone(ctx, req)
				Expect(apperrors.IsNotFound(err)).To(BeTrue())
			})
		})

		Context("with a valid request", func() {
			It("should return a pending operation immediately", func() {
				op, err := orchestrator.StartClone(ctx, validRequest())
				Expect(err).ToNot(HaveOccurred())
				Expect(op.RequestID).ToNot(BeEmpty())
				Expect(op.Metadata["originalTemplate"]).To(Equal("Accountancy Starter"))
				Expect(op.Metadata["requestedBy"]).To(Equal("daniel"))
			})

			It("should complete the operation and record the new instance id", func() {
				op, err := orchestrator.StartClone(ctx, validRequest())
				Expect(err).ToNot(HaveOccurred())

				final := waitTerminal(op.RequestID)
				Expect(final.Status).To(Equal(store.CloneStatusCompleted))
				Expect(final.NewInstanceID).ToNot(BeNil())
				Expect(*final.NewInstanceID).To(Equal("new-instance-id"))
				Expect(final.ErrorMessage).To(BeNil())
				Expect(final.CompletedAt).ToNot(BeNil())
			})

			It("should hand the admin password to the provisioner hashed", func() {
				op, err := orchestrator.StartClone(ctx, validRequest())
				Expect(err).ToNot(HaveOccurred())
				waitTerminal(op.RequestID)

				provisioner.mu.Lock()
				defer provisioner.mu.Unlock()
				Expect(provisioner.adminEmail).To(Equal("admin@example.com"))
				Expect(provisioner.adminHash).To(Equal(clone.HashPassword("long-enough-secret")))
				Expect(provisioner.adminHash).ToNot(Equal("long-enough-secret"))
			})
		})

		Context("when a provisioning step fails", func() {
			It("should fail the operation and record the cause", func() {
				provisioner.failCreateInstance = true

				op, err := orchestrator.StartClone(ctx, validRequest())
				Expect(err).ToNot(HaveOccurred())

				final := waitTerminal(op.RequestID)
				Expect(final.Status).To(Equal(store.CloneStatusFailed))
				Expect(final.NewInstanceID).To(BeNil())
				Expect(final.ErrorMessage).ToNot(BeNil())
				Expect(*final.ErrorMessage).To(ContainSubstring("hosting quota exceeded"))
			})

			It("should unwind completed steps in reverse order", func() {
				provisioner.failConfiguration = true

				op, err := orchestrator.StartClone(ctx, validRequest())
				Expect(err).ToNot(HaveOccurred())

				final := waitTerminal(op.RequestID)
				Expect(final.Status).To(Equal(store.CloneStatusFailed))

				Expect(provisioner.callLog()).To(Equal([]string{
					"create-instance",
					"create-admin",
					"apply-config",
					"delete-admin",
					"delete-instance",
				}))
			})

			It("should not roll back when the first step fails", func() {
				provisioner.failCreateInstance = true

				op, err := orchestrator.StartClone(ctx, validRequest())
				Expect(err).ToNot(HaveOccurred())
				waitTerminal(op.RequestID)

				Expect(provisioner.callLog()).To(Equal([]string{"create-instance"}))
			})
		})
	})

	Describe("terminal operations", func() {
		It("should refuse to rewrite a completed operation", func() {
			op, err := orchestrator.StartClone(ctx, validRequest())
			Expect(err).ToNot(HaveOccurred())
			final := waitTerminal(op.RequestID)

			final.Status = store.CloneStatusFailed
			err = st.UpdateCloneOperation(ctx, final)
			Expect(errors.Is(err, store.ErrTerminal)).To(BeTrue())

			reloaded, err := st.GetCloneOperation(ctx, op.RequestID)
			Expect(err).ToNot(HaveOccurred())
			Expect(reloaded.Status).To(Equal(store.CloneStatusCompleted))
		})
	})

	Describe("ListOperations", func() {
		It("should filter by template id", func() {
			otherTemplate := "9a0d4c5e-0000-4000-8000-000000000003"
			Expect(st.CreateTemplate(ctx, &store.BlueprintTemplate{
				ID:               otherTemplate,
				Name:             "Other",
				InstanceID:       "9a0d4c5e-0000-4000-8000-000000000004",
				BlueprintVersion: "1.0.0",
				IsCloneable:      true,
				Status:           store.TemplateStatusActive,
				CreatedAt:        time.Now().UTC(),
				UpdatedAt:        time.Now().UTC(),
			})).To(Succeed())

			first, err := orchestrator.StartClone(ctx, validRequest())
			Expect(err).ToNot(HaveOccurred())

			req := validRequest()
			req.TemplateID = otherTemplate
			_, err = orchestrator.StartClone(ctx, req)
			Expect(err).ToNot(HaveOccurred())

			ops, err := orchestrator.ListOperations(ctx, templateID)
			Expect(err).ToNot(HaveOccurred())
			Expect(ops).To(HaveLen(1))
			Expect(ops[0].RequestID).To(Equal(first.RequestID))
		})
	})
})

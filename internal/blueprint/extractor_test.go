package blueprint_test

import (
	"context"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartsite-dev/api/internal/blueprint"
	"github.com/smartsite-dev/api/internal/store"
)

var _ = Describe("Extractor", func() {
	var (
		ctx        context.Context
		st         *store.MemoryStore
		extractor  *blueprint.Extractor
		templateID string
		instanceID string
	)

	BeforeEach(func() {
		ctx = context.Background()
		st = store.NewMemoryStore()
		extractor = blueprint.NewExtractor(st)

		templateID = "7f3c1b2a-0000-4000-8000-000000000001"
		instanceID = "7f3c1b2a-0000-4000-8000-000000000002"

		Expect(st.CreateTemplate(ctx, &store.BlueprintTemplate{
			ID:               templateID,
			Name:             "Accountancy Starter",
			InstanceID:       instanceID,
			BlueprintVersion: "1.1.1",
			IsCloneable:      true,
			Status:           store.TemplateStatusActive,
			HandoffStatus:    store.HandoffInProgress,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		})).To(Succeed())

		Expect(st.UpsertModule(ctx, &store.Module{
			ID:       "CompanionConsole",
			Name:     "Companion Console",
			Category: "ai",
			Type:     "ai",
			Version:  "1.1.1",
			Status:   store.ModuleStatusActive,
			Enabled:  true,
		})).To(Succeed())

		Expect(blueprint.SaveInstanceSettings(ctx, st, instanceID, blueprint.SiteSettings{
			TenantID:         "progress-accountants",
			SiteName:         "Progress Accountants",
			Domain:           "progressaccountants.com",
			SMTPUser:         "mailer@progressaccountants.com",
			SMTPPassword:     "smtp-secret",
			CloudinaryAPIKey: "cloudinary-key",
			BrandingLogoURL:  "https://cdn.example.com/progress/logo.png",
			ThemeColor:       "#123456",
		})).To(Succeed())
	})

	Describe("Extract", func() {
		Context("without tenant-agnostic mode", func() {
			It("should carry tenant settings and record the source instance", func() {
				snapshot, export, err := extractor.Extract(ctx, templateID, blueprint.ExtractOptions{
					ExtractedBy: "daniel",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(snapshot.SchemaVersion).To(Equal(blueprint.SchemaVersion))
				Expect(snapshot.BlueprintVersion).To(Equal("1.1.1"))
				Expect(snapshot.TenantAgnostic).To(BeFalse())
				Expect(snapshot.Source.InstanceID).To(Equal(instanceID))
				Expect(snapshot.Source.ExtractedBy).To(Equal("daniel"))
				Expect(snapshot.Settings.TenantID).To(Equal("progress-accountants"))
				Expect(snapshot.Settings.SMTPPassword).To(Equal("smtp-secret"))
				Expect(snapshot.Metadata["templateName"]).To(Equal("Accountancy Starter"))

				Expect(export.IsTenantAgnostic).To(BeFalse())
				Expect(export.TenantID).ToNot(BeNil())
				Expect(*export.TenantID).To(Equal("progress-accountants"))
			})
		})

		Context("with tenant-agnostic mode", func() {
			It("should strip tenant identity, name, credentials and branding", func() {
				snapshot, export, err := extractor.Extract(ctx, templateID, blueprint.ExtractOptions{
					MakeTenantAgnostic: true,
					ExtractedBy:        "daniel",
				})

				Expect(err).ToNot(HaveOccurred())
				Expect(snapshot.TenantAgnostic).To(BeTrue())
				Expect(snapshot.Source.InstanceID).To(BeEmpty())
				Expect(snapshot.Settings.TenantID).To(BeEmpty())
				Expect(snapshot.Settings.SiteName).To(BeEmpty())
				Expect(snapshot.Settings.Domain).To(BeEmpty())
				Expect(snapshot.Settings.SMTPUser).To(BeEmpty())
				Expect(snapshot.Settings.SMTPPassword).To(BeEmpty())
				Expect(snapshot.Settings.CloudinaryAPIKey).To(BeEmpty())
				Expect(snapshot.Settings.BrandingLogoURL).To(BeEmpty())

				// Non-identifying settings survive redaction
				Expect(snapshot.Settings.ThemeColor).To(Equal("#123456"))

				Expect(export.IsTenantAgnostic).To(BeTrue())
				Expect(export.TenantID).To(BeNil())
			})
		})

		Context("when extracting twice", func() {
			It("should record a new export per extraction without mutating the template", func() {
				_, first, err := extractor.Extract(ctx, templateID, blueprint.ExtractOptions{ExtractedBy: "daniel"})
				Expect(err).ToNot(HaveOccurred())

				_, second, err := extractor.Extract(ctx, templateID, blueprint.ExtractOptions{ExtractedBy: "daniel"})
				Expect(err).ToNot(HaveOccurred())
				Expect(second.ID).ToNot(Equal(first.ID))

				exports, err := st.ListExports(ctx, instanceID)
				Expect(err).ToNot(HaveOccurred())
				Expect(exports).To(HaveLen(2))

				tmpl, err := st.GetTemplate(ctx, templateID)
				Expect(err).ToNot(HaveOccurred())
				Expect(tmpl.BlueprintVersion).To(Equal("1.1.1"))
				Expect(tmpl.Status).To(Equal(store.TemplateStatusActive))
			})

			It("should produce identical snapshots for unchanged source state", func() {
				first, _, err := extractor.Extract(ctx, templateID, blueprint.ExtractOptions{
					MakeTenantAgnostic: true,
					ExtractedBy:        "daniel",
				})
				Expect(err).ToNot(HaveOccurred())

				second, _, err := extractor.Extract(ctx, templateID, blueprint.ExtractOptions{
					MakeTenantAgnostic: true,
					ExtractedBy:        "daniel",
				})
				Expect(err).ToNot(HaveOccurred())

				// Timestamps differ between runs; everything else must not
				first.ExtractedAt = time.Time{}
				second.ExtractedAt = time.Time{}
				a, err := json.Marshal(first)
				Expect(err).ToNot(HaveOccurred())
				b, err := json.Marshal(second)
				Expect(err).ToNot(HaveOccurred())
				Expect(string(a)).To(Equal(string(b)))
			})
		})

		Context("with an unknown template", func() {
			It("should return not found and record no export", func() {
				_, _, err := extractor.Extract(ctx, "missing", blueprint.ExtractOptions{ExtractedBy: "daniel"})
				Expect(err).To(HaveOccurred())

				exports, err := st.ListExports(ctx, "")
				Expect(err).ToNot(HaveOccurred())
				Expect(exports).To(BeEmpty())
			})
		})

		Context("when the instance has no settings row", func() {
			It("should extract with empty settings", func() {
				bareTemplate := "7f3c1b2a-0000-4000-8000-000000000003"
				Expect(st.CreateTemplate(ctx, &store.BlueprintTemplate{
					ID:               bareTemplate,
					Name:             "Bare",
					InstanceID:       "7f3c1b2a-0000-4000-8000-000000000004",
					BlueprintVersion: "1.0.0",
					IsCloneable:      true,
					Status:           store.TemplateStatusActive,
					CreatedAt:        time.Now().UTC(),
					UpdatedAt:        time.Now().UTC(),
				})).To(Succeed())

				snapshot, _, err := extractor.Extract(ctx, bareTemplate, blueprint.ExtractOptions{ExtractedBy: "daniel"})
				Expect(err).ToNot(HaveOccurred())
				Expect(snapshot.Settings).To(Equal(blueprint.SiteSettings{}))
			})
		})
	})
})

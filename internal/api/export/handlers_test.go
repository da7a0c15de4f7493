package export_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartsite-dev/api/internal/api/export"
	"github.com/smartsite-dev/api/internal/blueprint"
	"github.com/smartsite-dev/api/internal/middleware"
	"github.com/smartsite-dev/api/internal/modules"
	"github.com/smartsite-dev/api/internal/store"
	"github.com/smartsite-dev/api/pkg/cache"
	"github.com/smartsite-dev/api/pkg/config"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

var _ = Describe("Handler", func() {
	var (
		e          *echo.Echo
		st         *store.MemoryStore
		templateID string
		instanceID string
	)

	const adminKey = "test-admin-key"

	do := func(method, path, body string) *httptest.ResponseRecorder {
		var reader *strings.Reader
		if body == "" {
			reader = strings.NewReader("{}")
		} else {
			reader = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, path, reader)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("X-API-Key", adminKey)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	enableModule := func(id string) {
		now := time.Now().UTC()
		Expect(st.UpsertModule(context.Background(), &store.Module{
			ID: id, Name: id, Category: "core", Type: "core",
			Version: "1.1.1", Status: store.ModuleStatusActive,
			Enabled: true, CreatedAt: now, UpdatedAt: now,
		})).To(Succeed())
	}

	BeforeEach(func() {
		st = store.NewMemoryStore()
		c := cache.NewMemoryCache()
		extractor := blueprint.NewExtractor(st)
		registry := modules.NewRegistry(st, &config.BlueprintConfig{
			ModuleSets: []config.ModuleSet{
				{
					Version: "1.1.1",
					Modules: []config.RequiredModule{
						{ID: "CompanionConsole", Name: "Companion Console", Category: "ai"},
					},
				},
			},
		}, c)

		e = echo.New()
		e.Validator = &testValidator{validator: validator.New()}

		group := e.Group("/api/v1/blueprint")
		group.Use(middleware.APIKeyMiddleware([]config.APIKey{
			{Role: "admin", APIKey: adminKey, Name: "daniel"},
		}))
		export.RegisterRoutes(group, export.NewHandler(st, extractor, registry, c))

		templateID = "3c9f8e10-0000-4000-8000-000000000001"
		instanceID = "3c9f8e10-0000-4000-8000-000000000002"
		Expect(st.CreateTemplate(context.Background(), &store.BlueprintTemplate{
			ID:               templateID,
			Name:             "Accountancy Starter",
			InstanceID:       instanceID,
			BlueprintVersion: "1.1.1",
			IsCloneable:      true,
			Status:           store.TemplateStatusActive,
			CreatedAt:        time.Now().UTC(),
			UpdatedAt:        time.Now().UTC(),
		})).To(Succeed())
	})

	Describe("POST /blueprint/extract/:templateId", func() {
		It("should record an export and return the snapshot", func() {
			rec := do(http.MethodPost, "/api/v1/blueprint/extract/"+templateID, `{"makeTenantAgnostic":true}`)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			exports, err := st.ListExports(context.Background(), instanceID)
			Expect(err).ToNot(HaveOccurred())
			Expect(exports).To(HaveLen(1))
			Expect(exports[0].IsTenantAgnostic).To(BeTrue())
			Expect(exports[0].ExportedBy).To(Equal("daniel"))
		})

		It("should return 404 for an unknown template", func() {
			rec := do(http.MethodPost, "/api/v1/blueprint/extract/missing", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should reject unauthenticated requests", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/blueprint/extract/"+templateID, strings.NewReader("{}"))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /blueprint/publish/:templateId", func() {
		publish := func(version string) *httptest.ResponseRecorder {
			return do(http.MethodPost, "/api/v1/blueprint/publish/"+templateID,
				`{"blueprintVersion":"`+version+`"}`)
		}

		It("should reject a version the template is not at", func() {
			rec := publish("2.0.0")
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("should reject publishing before any export exists", func() {
			rec := publish("1.1.1")
			Expect(rec.Code).To(Equal(http.StatusConflict))

			var body map[string]interface{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]).To(ContainSubstring("not been exported"))
		})

		It("should reject publishing while required modules are disabled", func() {
			rec := do(http.MethodPost, "/api/v1/blueprint/export/"+templateID, "")
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = publish("1.1.1")
			Expect(rec.Code).To(Equal(http.StatusConflict))
		})

		It("should publish once every precondition holds", func() {
			enableModule("CompanionConsole")

			rec := do(http.MethodPost, "/api/v1/blueprint/export/"+templateID, "")
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = publish("1.1.1")
			Expect(rec.Code).To(Equal(http.StatusOK))

			version, err := st.GetSetting(context.Background(), store.SettingDefaultBlueprintVersion)
			Expect(err).ToNot(HaveOccurred())
			Expect(version).To(Equal("1.1.1"))
		})

		It("should require a blueprint version in the body", func() {
			rec := do(http.MethodPost, "/api/v1/blueprint/publish/"+templateID, "{}")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GET /blueprint/default-version", func() {
		It("should return 404 before anything is published", func() {
			rec := do(http.MethodGet, "/api/v1/blueprint/default-version", "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should return the published version", func() {
			enableModule("CompanionConsole")
			rec := do(http.MethodPost, "/api/v1/blueprint/export/"+templateID, "")
			Expect(rec.Code).To(Equal(http.StatusCreated))
			rec = do(http.MethodPost, "/api/v1/blueprint/publish/"+templateID, `{"blueprintVersion":"1.1.1"}`)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = do(http.MethodGet, "/api/v1/blueprint/default-version", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body map[string]string
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["blueprintVersion"]).To(Equal("1.1.1"))
		})
	})
})

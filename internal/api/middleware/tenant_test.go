package middleware

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	apiContext "pagehook/internal/api/context"
	"pagehook/internal/platform/auth"
	"pagehook/internal/platform/config"
	"pagehook/internal/platform/database"
	"pagehook/internal/platform/repositories"
)

func TestTenantMiddleware(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	orgRepo := repositories.NewOrganizationRepository(db)

	cfg := config.TenantDBConfig{BasePath: "/tmp", MaxConnectionsPerOrg: 1}
	pool := database.NewTenantDBPool(cfg)

	middleware := NewTenantMiddleware(orgRepo, pool)

	t.Run("Valid Tenant", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)

		claims := &auth.Claims{
			OrganizationID: "org_123",
		}
		ctx := context.WithValue(req.Context(), apiContext.Claims, claims)
		req = req.WithContext(ctx)

		rows := sqlmock.NewRows([]string{"id", "slug", "name", "domain", "db_file_path", "plan_tier", "member_quota", "created_at", "updated_at", "deleted_at"}).
			AddRow("org_123", "test-org", "Test Org", "test.com", ":memory:", "enterprise", 10, 1234567890, 1234567890, nil)

		mock.ExpectQuery("SELECT (.+) FROM organizations WHERE id = ?").
			WithArgs("org_123").
			WillReturnRows(rows)

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			tenant := r.Context().Value(apiContext.Tenant).(*TenantContext)
			if tenant.OrgID != "org_123" {
				t.Errorf("Expected OrgID org_123, got %s", tenant.OrgID)
			}
			if tenant.DB == nil {
				t.Error("Expected DB connection, got nil")
			}
			w.WriteHeader(http.StatusOK)
		})

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusOK)
		}
	})

	t.Run("Invalid Tenant", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/", nil)

		claims := &auth.Claims{
			OrganizationID: "org_999",
		}
		ctx := context.WithValue(req.Context(), apiContext.Claims, claims)
		req = req.WithContext(ctx)

		mock.ExpectQuery("SELECT (.+) FROM organizations WHERE id = ?").
			WithArgs("org_999").
			WillReturnError(sql.ErrNoRows)

		rr := httptest.NewRecorder()
		handler := middleware.Handle(func(w http.ResponseWriter, r *http.Request) {
			t.Error("Handler should not be called")
		})

		handler.ServeHTTP(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("handler returned wrong status code: got %v want %v", rr.Code, http.StatusForbidden)
		}
	})
}

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/SlpAus/qa-raffle-backend/internal/platform/config"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/database"
	"github.com/SlpAus/qa-raffle-backend/internal/platform/ratelimit"
	"github.com/SlpAus/qa-raffle-backend/internal/project"
	"github.com/SlpAus/qa-raffle-backend/internal/user"
	"github.com/gin-gonic/gin"
)

// staticVerifier 把固定令牌映射为管理者身份
type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, credential string) (user.Identity, error) {
	if credential != "manager-token" {
		return user.Identity{}, user.ErrMissingCredential
	}
	return user.Identity{ID: 1, ManagePermission: true}, nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Sqlite: config.SqliteConfig{Path: "file::memory:"}, MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := project.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	r := gin.New()
	SetupRoutes(r, Handlers{
		Projects: project.NewHandler(project.NewService(project.NewRepository(db), nil, 3)),
		Verifier: staticVerifier{},
		Limiter:  ratelimit.New(nil, config.RateLimitConfig{}, nil),
	})
	return r
}

func send(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestQAAliasCreatesProject(t *testing.T) {
	r := newTestRouter(t)
	body := `{"name":"Quiz","deadline":"2099-01-01 08:00:00"}`

	if w := send(r, http.MethodPost, "/api/qa", "", body); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous /qa status = %d", w.Code)
	}

	w := send(r, http.MethodPost, "/api/qa", "manager-token", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("/qa status = %d, body = %s", w.Code, w.Body)
	}
	var created project.ProjectView
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode project: %v", err)
	}
	if created.Name != "Quiz" || created.Status != project.StatusDraft || created.CreaterID != 1 {
		t.Fatalf("created = %+v", created)
	}

	w = send(r, http.MethodGet, "/api/project/me", "manager-token", "")
	var page project.Page[project.ProjectView]
	if err := json.Unmarshal(w.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || page.Items[0].ID != created.ID {
		t.Fatalf("my projects = %+v", page)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/guillefidelio/replybot2025-sub002/internal/api/errors"
	"github.com/guillefidelio/replybot2025-sub002/internal/api/generated"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/model"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/ratelimit"
	"github.com/guillefidelio/replybot2025-sub002/internal/domain/rbac"
	"github.com/guillefidelio/replybot2025-sub002/internal/repository"
	"github.com/guillefidelio/replybot2025-sub002/internal/service"
)

const (
	adminID   = "0b7c6f3e-8a11-4a55-9a5d-1f0e1d2c3b4a"
	supportID = "1c8d7a4f-9b22-4b66-8b6e-2a1f2e3d4c5b"
	userID    = "2d9e8b5a-ac33-4c77-9c7f-3b2a3f4e5d6c"
	ghostID   = "3eaf9c6b-bd44-4d88-8d8a-4c3b4a5f6e7d"
)

// fakeDirectory - in-memory справочник пользователей.
type fakeDirectory struct {
	mu        sync.Mutex
	users     map[string]*model.UserRecord
	updateErr error
}

func (d *fakeDirectory) GetUser(_ context.Context, id string) (*model.UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *fakeDirectory) UpdateRole(_ context.Context, id string, role rbac.Role) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.updateErr != nil {
		return d.updateErr
	}
	u, ok := d.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.Role = role
	return nil
}

// fakeIdP - in-memory custom claims.
type fakeIdP struct {
	mu     sync.Mutex
	claims map[string]map[string]string
	setErr error
}

func (p *fakeIdP) GetCustomClaims(_ context.Context, id string) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := map[string]string{}
	for k, v := range p.claims[id] {
		out[k] = v
	}
	return out, nil
}

func (p *fakeIdP) SetCustomClaims(_ context.Context, id string, claims map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.setErr != nil {
		return p.setErr
	}
	if p.claims[id] == nil {
		p.claims[id] = map[string]string{}
	}
	for k, v := range claims {
		p.claims[id][k] = v
	}
	return nil
}

type testEnv struct {
	router http.Handler
	dir    *fakeDirectory
	idp    *fakeIdP
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := &fakeDirectory{users: map[string]*model.UserRecord{
		adminID:   {ID: adminID, Email: "admin@replybot.test", Role: rbac.RoleAdmin, Plan: ratelimit.PlanEnterprise},
		supportID: {ID: supportID, Role: rbac.RoleSupport, Plan: ratelimit.PlanPremium},
		userID:    {ID: userID, Email: "user@replybot.test", Role: rbac.RoleUser, Plan: ratelimit.PlanBasic},
	}}
	idp := &fakeIdP{claims: map[string]map[string]string{}}

	access := service.NewAccessService(dir, idp, "X-Service-Account", logger)
	h := NewAPIHandler(NewHealthHandler(nil, nil, nil), access, logger)

	router := generated.HandlerWithOptions(h, generated.ChiServerOptions{
		BaseRouter: chi.NewRouter(),
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			apierrors.ValidationError(w, err.Error())
		},
	})

	return &testEnv{router: router, dir: dir, idp: idp}
}

// do выполняет запрос от имени uid (пустой uid - анонимно).
func (e *testEnv) do(method, path, uid string, body string, header http.Header) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	for k, v := range header {
		req.Header[k] = v
	}
	if uid != "" {
		req = req.WithContext(model.WithAuth(req.Context(), &model.AuthInfo{UID: uid, Username: "tester"}))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body generated.Error
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("тело ошибки не JSON: %v", err)
	}
	return string(body.Error.Code)
}

func TestRefreshToken(t *testing.T) {
	env := newTestEnv(t)

	t.Run("без личности", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/v1/auth/refresh-token", "", "", nil)
		if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != apierrors.CodeUnauthenticated {
			t.Errorf("status = %d", rec.Code)
		}
	})

	t.Run("успех", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/api/v1/auth/refresh-token", userID, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, тело: %s", rec.Code, rec.Body.String())
		}
		var resp generated.RefreshTokenResponse
		_ = json.NewDecoder(rec.Body).Decode(&resp)
		if !resp.Success || resp.Message != "Token refreshed" {
			t.Errorf("ответ = %+v", resp)
		}
		if env.idp.claims[userID][service.ClaimTokenRefreshedAt] == "" {
			t.Error("отметка обновления не записана")
		}
	})

	t.Run("сбой IdP скрыт", func(t *testing.T) {
		env.idp.setErr = errors.New("keycloak: dial tcp 10.0.0.5:8443: connection refused")
		defer func() { env.idp.setErr = nil }()

		rec := env.do(http.MethodPost, "/api/v1/auth/refresh-token", userID, "", nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "10.0.0.5") {
			t.Errorf("причина сбоя раскрыта клиенту: %s", rec.Body.String())
		}
	})
}

func TestGetCurrentUser(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(http.MethodGet, "/api/v1/auth/me", "", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("аноним: status = %d, хотели 401", rec.Code)
	}

	rec := env.do(http.MethodGet, "/api/v1/auth/me", adminID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp generated.UserAccess
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Id != adminID || resp.Role != "admin" || resp.Plan != "enterprise" {
		t.Errorf("профиль = %+v", resp)
	}
	if resp.RateLimit.Requests != 500 || resp.RateLimit.WindowMs != 60000 {
		t.Errorf("rateLimit = %+v", resp.RateLimit)
	}
	if resp.Email == nil || string(*resp.Email) != "admin@replybot.test" {
		t.Errorf("email = %v", resp.Email)
	}
}

func TestGetCurrentRateLimit(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		uid  string
		want generated.RateLimit
	}{
		{name: "аноним", want: generated.RateLimit{Requests: 10, WindowMs: 60000}},
		{name: "basic", uid: userID, want: generated.RateLimit{Requests: 30, WindowMs: 60000}},
		{name: "premium", uid: supportID, want: generated.RateLimit{Requests: 100, WindowMs: 60000}},
		{name: "нет записи", uid: ghostID, want: generated.RateLimit{Requests: 10, WindowMs: 60000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, "/api/v1/auth/rate-limit", tt.uid, "", nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d", rec.Code)
			}
			var got generated.RateLimit
			_ = json.NewDecoder(rec.Body).Decode(&got)
			if got != tt.want {
				t.Errorf("лимит = %+v, хотели %+v", got, tt.want)
			}
		})
	}
}

func TestGetUserAccess(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/v1/admin/users/" + userID

	tests := []struct {
		name       string
		caller     string
		path       string
		wantStatus int
		wantCode   string
	}{
		{name: "аноним", path: path, wantStatus: http.StatusUnauthorized, wantCode: apierrors.CodeUnauthenticated},
		{name: "user", caller: userID, path: path, wantStatus: http.StatusForbidden, wantCode: apierrors.CodeForbidden},
		{name: "support", caller: supportID, path: path, wantStatus: http.StatusOK},
		{name: "admin", caller: adminID, path: path, wantStatus: http.StatusOK},
		{name: "нет записи", caller: adminID, path: "/api/v1/admin/users/" + ghostID, wantStatus: http.StatusNotFound, wantCode: apierrors.CodeNotFound},
		{name: "не UUID", caller: adminID, path: "/api/v1/admin/users/not-a-uuid", wantStatus: http.StatusBadRequest, wantCode: apierrors.CodeValidationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, tt.path, tt.caller, "", nil)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, хотели %d, тело: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if code := errorCode(t, rec); code != tt.wantCode {
					t.Errorf("code = %q, хотели %q", code, tt.wantCode)
				}
				return
			}
			var resp generated.UserAccess
			_ = json.NewDecoder(rec.Body).Decode(&resp)
			if resp.Id != userID || resp.Plan != "basic" || resp.RateLimit.Requests != 30 {
				t.Errorf("ответ = %+v", resp)
			}
		})
	}
}

func TestSetUserRole(t *testing.T) {
	path := "/api/v1/admin/users/" + userID + "/role"

	t.Run("права", func(t *testing.T) {
		env := newTestEnv(t)
		for _, caller := range []string{supportID, userID} {
			rec := env.do(http.MethodPut, path, caller, `{"role":"admin"}`, nil)
			if rec.Code != http.StatusForbidden {
				t.Errorf("%s: status = %d, хотели 403", caller, rec.Code)
			}
		}
		if env.dir.users[userID].Role != rbac.RoleUser {
			t.Error("роль не должна меняться без прав admin")
		}
		if rec := env.do(http.MethodPut, path, "", `{"role":"admin"}`, nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("аноним: status = %d, хотели 401", rec.Code)
		}
	})

	t.Run("admin назначает роль", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPut, path, adminID, `{"role":"support"}`, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, тело: %s", rec.Code, rec.Body.String())
		}
		if env.dir.users[userID].Role != rbac.RoleSupport {
			t.Errorf("роль в справочнике = %q", env.dir.users[userID].Role)
		}
		if env.idp.claims[userID][service.ClaimRole] != "support" {
			t.Errorf("claim role = %q", env.idp.claims[userID][service.ClaimRole])
		}
	})

	t.Run("недопустимая роль", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPut, path, adminID, `{"role":"superuser"}`, nil)
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != apierrors.CodeValidationError {
			t.Errorf("status = %d", rec.Code)
		}
		if len(env.idp.claims[userID]) != 0 {
			t.Error("claims не должны записываться при недопустимой роли")
		}
	})

	t.Run("некорректный JSON", func(t *testing.T) {
		env := newTestEnv(t)
		if rec := env.do(http.MethodPut, path, adminID, `{role`, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, хотели 400", rec.Code)
		}
	})

	t.Run("нет пользователя", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPut, "/api/v1/admin/users/"+ghostID+"/role", adminID, `{"role":"user"}`, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, хотели 404", rec.Code)
		}
	})

	t.Run("сбой справочника", func(t *testing.T) {
		env := newTestEnv(t)
		env.dir.updateErr = errors.New("deadlock detected")
		rec := env.do(http.MethodPut, path, adminID, `{"role":"support"}`, nil)
		if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != apierrors.CodeInternal {
			t.Errorf("status = %d", rec.Code)
		}
	})
}

func TestInternalUserRateLimit(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/v1/internal/users/" + supportID + "/rate-limit"
	marker := http.Header{"X-Service-Account": {"true"}}

	tests := []struct {
		name       string
		caller     string
		header     http.Header
		wantStatus int
	}{
		{name: "служебный вызов", header: marker, wantStatus: http.StatusOK},
		{name: "без заголовка", wantStatus: http.StatusForbidden},
		{name: "заголовок не true", header: http.Header{"X-Service-Account": {"yes"}}, wantStatus: http.StatusForbidden},
		{name: "с личностью", caller: adminID, header: marker, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodGet, path, tt.caller, "", tt.header)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, хотели %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got generated.RateLimit
			_ = json.NewDecoder(rec.Body).Decode(&got)
			if got.Requests != 100 {
				t.Errorf("requests = %d, хотели 100", got.Requests)
			}
		})
	}
}

func TestGetOpenAPISpec(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/v1/openapi.json", "", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !json.Valid(rec.Body.Bytes()) {
		t.Error("ответ не JSON")
	}
}

package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// setupMockKeycloak создаёт mock HTTP-сервер Keycloak.
// tokenHandler обрабатывает запросы на получение токена.
// adminHandler обрабатывает запросы к Admin REST API.
func setupMockKeycloak(t *testing.T, tokenHandler, adminHandler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/realms/replybot/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		if tokenHandler != nil {
			tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenResponse{
			AccessToken: "test-access-token",
			TokenType:   "Bearer",
			ExpiresIn:   300,
		})
	})

	mux.HandleFunc("/admin/realms/replybot", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/admin/realms/replybot/", func(w http.ResponseWriter, r *http.Request) {
		if adminHandler != nil {
			adminHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client := New(server.URL, "replybot", "access-module", "test-secret", server.Client(), testLogger())
	return server, client
}

// fakeUsers - in-memory хранилище пользователей для mock Admin API.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*KeycloakUser
	puts  int
}

func (f *fakeUsers) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-access-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		id := strings.TrimPrefix(r.URL.Path, "/admin/realms/replybot/users/")

		f.mu.Lock()
		defer f.mu.Unlock()

		user, ok := f.users[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(user)
		case http.MethodPut:
			var updated KeycloakUser
			if err := json.NewDecoder(r.Body).Decode(&updated); err != nil {
				t.Errorf("некорректное тело PUT: %v", err)
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.puts++
			f.users[id] = &updated
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

func TestClient_TokenCaching(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			if got := r.FormValue("grant_type"); got != "client_credentials" {
				t.Errorf("grant_type = %q, ожидается client_credentials", got)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{
				AccessToken: "cached-token",
				TokenType:   "Bearer",
				ExpiresIn:   300,
			})
		},
		nil,
	)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		token, err := client.getToken(ctx)
		if err != nil {
			t.Fatalf("Ошибка получения токена: %v", err)
		}
		if token != "cached-token" {
			t.Errorf("ожидался cached-token, получен %s", token)
		}
	}

	if tokenRequests != 1 {
		t.Errorf("ожидался 1 запрос токена, было %d", tokenRequests)
	}
}

func TestClient_TokenRefresh(t *testing.T) {
	tokenRequests := 0

	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			tokenRequests++
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(TokenResponse{
				AccessToken: "refreshed-token",
				TokenType:   "Bearer",
				ExpiresIn:   300,
			})
		},
		nil,
	)

	// Токен, истекающий через 10 секунд, уже считается устаревшим.
	client.accessToken = "old-token"
	client.tokenExpiry = time.Now().Add(10 * time.Second)

	token, err := client.getToken(context.Background())
	if err != nil {
		t.Fatalf("Ошибка обновления токена: %v", err)
	}
	if token != "refreshed-token" {
		t.Errorf("ожидался refreshed-token, получен %s", token)
	}
	if tokenRequests != 1 {
		t.Errorf("ожидался 1 запрос токена, было %d", tokenRequests)
	}
}

func TestClient_TokenError(t *testing.T) {
	_, client := setupMockKeycloak(t,
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		},
		nil,
	)

	_, err := client.GetUser(context.Background(), "u1")
	if err == nil {
		t.Fatal("ожидалась ошибка при невалидных credentials")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("ошибка должна содержать статус 401: %v", err)
	}
}

func TestClient_GetCustomClaims(t *testing.T) {
	store := &fakeUsers{users: map[string]*KeycloakUser{
		"u1": {
			ID:       "u1",
			Username: "alice",
			Email:    "alice@example.com",
			Enabled:  true,
			Attributes: map[string][]string{
				"role":   {"support"},
				"locale": {"ru", "en"},
				"empty":  {},
			},
		},
	}}
	_, client := setupMockKeycloak(t, nil, store.handler(t))

	claims, err := client.GetCustomClaims(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetCustomClaims: %v", err)
	}

	if claims["role"] != "support" {
		t.Errorf("role = %q, ожидается support", claims["role"])
	}
	if claims["locale"] != "ru" {
		t.Errorf("locale = %q, ожидается первое значение ru", claims["locale"])
	}
	if _, ok := claims["empty"]; ok {
		t.Error("пустой атрибут не должен попадать в claims")
	}
}

func TestClient_GetUser_NotFound(t *testing.T) {
	store := &fakeUsers{users: map[string]*KeycloakUser{}}
	_, client := setupMockKeycloak(t, nil, store.handler(t))

	_, err := client.GetUser(context.Background(), "missing")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("ожидалась ErrUserNotFound, получено %v", err)
	}
}

func TestClient_SetCustomClaims_Merge(t *testing.T) {
	store := &fakeUsers{users: map[string]*KeycloakUser{
		"u1": {
			ID:       "u1",
			Username: "alice",
			Email:    "alice@example.com",
			Enabled:  true,
			Attributes: map[string][]string{
				"role":   {"user"},
				"locale": {"ru"},
			},
		},
		"u2": {ID: "u2", Username: "bob", Enabled: true},
	}}
	_, client := setupMockKeycloak(t, nil, store.handler(t))
	ctx := context.Background()

	t.Run("существующие атрибуты сохраняются", func(t *testing.T) {
		if err := client.SetCustomClaims(ctx, "u1", map[string]string{"role": "admin"}); err != nil {
			t.Fatalf("SetCustomClaims: %v", err)
		}

		u := store.users["u1"]
		if got := u.Attributes["role"]; len(got) != 1 || got[0] != "admin" {
			t.Errorf("role = %v, ожидается [admin]", got)
		}
		if got := u.Attributes["locale"]; len(got) != 1 || got[0] != "ru" {
			t.Errorf("locale = %v, ожидается [ru]", got)
		}
		if u.Email != "alice@example.com" || u.Username != "alice" {
			t.Errorf("профиль пользователя не должен меняться: %+v", u)
		}
	})

	t.Run("пользователь без атрибутов", func(t *testing.T) {
		if err := client.SetCustomClaims(ctx, "u2", map[string]string{"token_refreshed_at": "42"}); err != nil {
			t.Fatalf("SetCustomClaims: %v", err)
		}
		if got := store.users["u2"].Attributes["token_refreshed_at"]; len(got) != 1 || got[0] != "42" {
			t.Errorf("token_refreshed_at = %v, ожидается [42]", got)
		}
	})

	t.Run("несуществующий пользователь", func(t *testing.T) {
		before := store.puts
		err := client.SetCustomClaims(ctx, "missing", map[string]string{"role": "admin"})
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("ожидалась ErrUserNotFound, получено %v", err)
		}
		if store.puts != before {
			t.Error("PUT не должен выполняться для отсутствующего пользователя")
		}
	})
}

func TestClient_SetCustomClaims_KeepsUnmodelledFields(t *testing.T) {
	var putBody map[string]any

	_, client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"id": "u1",
				"username": "alice",
				"email": "a@x",
				"firstName": "Alice",
				"lastName": "Smith",
				"enabled": true,
				"requiredActions": ["VERIFY_EMAIL"],
				"federationLink": "ldap-1",
				"attributes": {"plan": ["basic"], "role": ["user"]}
			}`))
		case http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&putBody); err != nil {
				t.Errorf("некорректное тело PUT: %v", err)
			}
			w.WriteHeader(http.StatusNoContent)
		}
	})

	if err := client.SetCustomClaims(context.Background(), "u1", map[string]string{"role": "admin"}); err != nil {
		t.Fatalf("SetCustomClaims: %v", err)
	}
	if putBody == nil {
		t.Fatal("PUT не выполнен")
	}

	if putBody["firstName"] != "Alice" || putBody["lastName"] != "Smith" {
		t.Errorf("имя пользователя потеряно: firstName=%v lastName=%v", putBody["firstName"], putBody["lastName"])
	}
	if putBody["federationLink"] != "ldap-1" {
		t.Errorf("federationLink = %v, ожидается ldap-1", putBody["federationLink"])
	}
	actions, _ := putBody["requiredActions"].([]any)
	if len(actions) != 1 || actions[0] != "VERIFY_EMAIL" {
		t.Errorf("requiredActions = %v, ожидается [VERIFY_EMAIL]", putBody["requiredActions"])
	}

	attrs, _ := putBody["attributes"].(map[string]any)
	role, _ := attrs["role"].([]any)
	plan, _ := attrs["plan"].([]any)
	if len(role) != 1 || role[0] != "admin" {
		t.Errorf("role = %v, ожидается [admin]", attrs["role"])
	}
	if len(plan) != 1 || plan[0] != "basic" {
		t.Errorf("plan = %v, ожидается [basic]", attrs["plan"])
	}
}

func TestClient_SetCustomClaims_PutFailure(t *testing.T) {
	_, client := setupMockKeycloak(t, nil, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(KeycloakUser{ID: "u1", Enabled: true})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.SetCustomClaims(context.Background(), "u1", map[string]string{"role": "admin"})
	if err == nil {
		t.Fatal("ожидалась ошибка при 500 от Keycloak")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Error("500 не должен превращаться в ErrUserNotFound")
	}
}

func TestClient_CheckReady(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus string
	}{
		{
			name: "realm доступен",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "replybot", Enabled: true})
			},
			wantStatus: "ok",
		},
		{
			name: "realm отключён",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(RealmRepresentation{Realm: "replybot", Enabled: false})
			},
			wantStatus: "degraded",
		},
		{
			name: "ошибка Keycloak",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
			wantStatus: "fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, client := setupMockKeycloak(t, nil, tt.handler)

			status, msg := client.CheckReady()
			if status != tt.wantStatus {
				t.Errorf("CheckReady() = %q (%s), хотели %q", status, msg, tt.wantStatus)
			}
		})
	}
}

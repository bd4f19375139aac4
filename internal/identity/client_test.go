package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "anon-key", 5*time.Second)
}

func TestClient_GetUser_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			t.Errorf("path = %q, want /auth/v1/user", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"user-1","email":"maria@fazenda.com","email_confirmed_at":"2024-06-01T10:00:00Z","user_metadata":{"name":"Maria","role":"gerente","farm_id":"farm-1"}}`))
	})

	user, err := client.GetUser(context.Background(), "token-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" || user.Email != "maria@fazenda.com" {
		t.Errorf("user = %+v", user)
	}
	if user.Metadata.FarmID != "farm-1" || user.Metadata.Role != "gerente" {
		t.Errorf("metadata = %+v", user.Metadata)
	}
	if user.EmailConfirmedAt == nil {
		t.Error("EmailConfirmedAt should be set")
	}
}

func TestClient_GetUser_Unauthorized(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
	})

	_, err := client.GetUser(context.Background(), "expired")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClient_GetUser_EmptyToken(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", "anon-key", time.Second)

	_, err := client.GetUser(context.Background(), "")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestClient_GetUser_ServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"msg":"database down"}`))
	})

	_, err := client.GetUser(context.Background(), "token")
	if err == nil || errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestClient_SignInWithPassword_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/v1/token" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "maria@fazenda.com" || body["password"] != "segredo" {
			t.Errorf("body = %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"bearer","expires_in":3600,"refresh_token":"rt","user":{"id":"user-1","email":"maria@fazenda.com"}}`))
	})

	token, err := client.SignInWithPassword(context.Background(), "maria@fazenda.com", "segredo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token.AccessToken != "at" || token.User.ID != "user-1" {
		t.Errorf("token = %+v", token)
	}
}

func TestClient_SignInWithPassword_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{
			name:   "legacy email not confirmed",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant","error_description":"Email not confirmed"}`,
			want:   ErrEmailNotConfirmed,
		},
		{
			name:   "error code email not confirmed",
			status: http.StatusBadRequest,
			body:   `{"code":400,"error_code":"email_not_confirmed","msg":"Email not confirmed"}`,
			want:   ErrEmailNotConfirmed,
		},
		{
			name:   "wrong password",
			status: http.StatusBadRequest,
			body:   `{"error":"invalid_grant","error_description":"Invalid login credentials"}`,
			want:   ErrInvalidCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := client.SignInWithPassword(context.Background(), "maria@fazenda.com", "x")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestClient_SignInWithPassword_Unavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.SignInWithPassword(context.Background(), "maria@fazenda.com", "x")
	if err == nil || errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrEmailNotConfirmed) {
		t.Fatalf("expected generic provider error, got %v", err)
	}
}

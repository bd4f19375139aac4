package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/lactech/internal/auth"
	"github.com/hitoshi/lactech/internal/metrics"
	"github.com/hitoshi/lactech/internal/middleware"
	"github.com/hitoshi/lactech/internal/model"
	"github.com/hitoshi/lactech/internal/production"
)

const testOrigin = "http://localhost:3000"

// newTestRouter はセッション"sid-abc"を持つリクエストだけを認証するルーターを返す。
func newTestRouter(t *testing.T, deps *RouterDeps) http.Handler {
	t.Helper()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	base := &RouterDeps{
		Logger:        slog.New(slog.NewJSONHandler(io.Discard, nil)),
		StatusMetrics: collector,
		PrincipalResolver: &mockResolver{
			resolveFn: func(ctx context.Context, sid, accessToken string) (*model.Principal, error) {
				if sid == "sid-abc" {
					return testPrincipal(), nil
				}
				return nil, auth.ErrNotAuthenticated
			},
		},
		CORSAllowedOrigin: testOrigin,
		RateLimiter:       rl,
		HealthChecks: map[string]HealthCheck{
			"database": func(ctx context.Context) error { return nil },
		},
		MetricsHandler:    metrics.Handler(reg),
		AuthService:       &mockAuthService{},
		LoginMetrics:      collector,
		DashboardService:  &mockDashboardService{},
		HistoryReader:     &mockDashboardService{},
		ProductionService: &mockProductionService{},
		ProfileService:    &mockProfileService{},
		SecondaryService:  &mockSecondaryService{},
		AccountSwitcher:   &mockSwitcher{},
	}
	if deps != nil {
		if deps.HealthChecks != nil {
			base.HealthChecks = deps.HealthChecks
		}
		if deps.ProductionService != nil {
			base.ProductionService = deps.ProductionService
		}
		if deps.AuthService != nil {
			base.AuthService = deps.AuthService
		}
	}
	return NewRouter(base)
}

func authenticated(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: "sid-abc"})
	return req
}

func withCSRF(req *http.Request, token string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: token})
	req.Header.Set("X-CSRF-Token", token)
	return req
}

func TestRouter_ProtectedRoutes_RequireSession(t *testing.T) {
	router := newTestRouter(t, nil)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodGet, "/api/dashboard/indicators"},
		{http.MethodGet, "/api/dashboard/activity"},
		{http.MethodGet, "/api/dashboard/chart"},
		{http.MethodGet, "/api/production/history"},
		{http.MethodGet, "/api/production/export"},
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/account/secondary"},
	}

	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(rt.method, rt.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
		})
	}
}

func TestRouter_ProtectedRoutes_WithSession(t *testing.T) {
	router := newTestRouter(t, nil)

	for _, path := range []string{
		"/auth/me",
		"/api/dashboard/indicators",
		"/api/dashboard/activity",
		"/api/dashboard/chart",
		"/api/production/history",
		"/api/profile",
		"/api/account/secondary",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, authenticated(httptest.NewRequest(http.MethodGet, path, nil)))
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestRouter_StateChanging_RequiresCSRF(t *testing.T) {
	created := 0
	router := newTestRouter(t, &RouterDeps{
		ProductionService: &mockProductionService{
			createFn: func(ctx context.Context, principal *model.Principal, input production.CreateInput) (*model.ProductionRecord, error) {
				created++
				return &model.ProductionRecord{ID: "rec-1", FarmID: principal.FarmID, Shift: input.Shift}, nil
			},
		},
	})
	body := `{"volume":10,"production_date":"2024-06-02","shift":"manha"}`

	// トークンなし
	w := httptest.NewRecorder()
	router.ServeHTTP(w, authenticated(httptest.NewRequest(http.MethodPost, "/api/production", strings.NewReader(body))))
	if w.Code != http.StatusForbidden {
		t.Errorf("without token: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// Cookieとヘッダーが一致
	w = httptest.NewRecorder()
	req := withCSRF(authenticated(httptest.NewRequest(http.MethodPost, "/api/production", strings.NewReader(body))), "tok-1")
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Errorf("with token: status = %d, want %d", w.Code, http.StatusCreated)
	}

	if created != 1 {
		t.Errorf("Create called %d times, want 1", created)
	}
}

func TestRouter_SessionCheckedBeforeCSRF(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/production/rec-1", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRouter_DeleteProduction(t *testing.T) {
	var gotID string
	router := newTestRouter(t, &RouterDeps{
		ProductionService: &mockProductionService{
			deleteFn: func(ctx context.Context, principal *model.Principal, id string) error {
				gotID = id
				return nil
			},
		},
	})

	w := httptest.NewRecorder()
	req := withCSRF(authenticated(httptest.NewRequest(http.MethodDelete, "/api/production/3f1c2a9e-0000-4000-8000-000000000001", nil)), "tok-1")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if gotID != "3f1c2a9e-0000-4000-8000-000000000001" {
		t.Errorf("id = %q", gotID)
	}
}

func TestRouter_Login_OutsideSession(t *testing.T) {
	router := newTestRouter(t, &RouterDeps{
		AuthService: &mockAuthService{loginFn: successfulLogin(true)},
	})

	w := httptest.NewRecorder()
	req := withCSRF(httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"joao@fazenda.com","password":"secret"}`)), "tok-1")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if findCookie(w.Result(), middleware.SessionCookieName) == nil {
		t.Error("expected session cookie to be set")
	}
}

func TestRouter_CSRFTokenEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if findCookie(w.Result(), "csrf_token") == nil {
		t.Error("expected csrf_token cookie to be issued")
	}
}

func TestRouter_Health(t *testing.T) {
	tests := []struct {
		name       string
		check      HealthCheck
		wantStatus int
		wantBody   string
	}{
		{"healthy", func(ctx context.Context) error { return nil }, http.StatusOK, `"status":"ok"`},
		{"database down", func(ctx context.Context) error { return errors.New("dial tcp: refused") }, http.StatusServiceUnavailable, `"database":"unavailable"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &RouterDeps{
				HealthChecks: map[string]HealthCheck{"database": tt.check},
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("body = %s, want to contain %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRouter_MetricsExposeHTTPStatus(t *testing.T) {
	router := newTestRouter(t, nil)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/profile", nil))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "lactech_") {
		t.Errorf("metrics body does not contain lactech_ metrics:\n%s", w.Body.String())
	}
}

func TestRouter_SecurityHeadersAndCORS(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", testOrigin)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != testOrigin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, testOrigin)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
	}
}

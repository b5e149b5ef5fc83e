package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/identity"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/services"
)

type fakeGate struct {
	actor models.Actor
	err   error
}

func (g fakeGate) Authenticate(*http.Request) (models.Actor, error) { return g.actor, g.err }

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		kind   string
	}{
		{services.NotFound("call-out not found"), http.StatusNotFound, "Not Found"},
		{services.Forbidden("no"), http.StatusForbidden, "Forbidden"},
		{services.Validation("title is required"), http.StatusBadRequest, "ValidationError"},
		{&services.Error{Kind: services.KindCallOutClosed, Message: "closed"}, http.StatusConflict, "CallOutClosed"},
		{&services.Error{Kind: services.KindMissionClosed, Message: "closed"}, http.StatusConflict, "MissionClosed"},
		{services.InvalidTransition("bad move"), http.StatusConflict, "InvalidTransition"},
		{identity.ErrInvalidCredentials, http.StatusUnauthorized, "Unauthorized"},
		{errors.New("boom"), http.StatusInternalServerError, "Internal"},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		WriteError(rr, tt.err)
		assert.Equal(t, tt.status, rr.Code, tt.kind)
		assert.Equal(t, tt.kind, decodeEnvelope(t, rr)["error"])
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"id": "abc"})
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"abc"}`, rr.Body.String())
}

func TestAuthAndRequireRole(t *testing.T) {
	var seen models.Actor
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ActorFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	member := models.Actor{UserID: "u1", Name: "Sam", Role: models.RoleMember}
	officer := models.Actor{UserID: "u2", Name: "Lee", Role: models.RoleOfficer}

	h := Auth(fakeGate{err: identity.ErrUnauthorized})(RequireRole(models.RoleOfficer)(final))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	h = Auth(fakeGate{actor: member})(RequireRole(models.RoleOfficer)(final))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Forbidden", decodeEnvelope(t, rr)["error"])

	h = Auth(fakeGate{actor: officer})(RequireRole(models.RoleOfficer)(final))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, officer, seen)
}

func TestRequireRoleWithoutAuth(t *testing.T) {
	h := RequireRole(models.RoleMember)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, false)
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:5000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.3"))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, call("10.0.0.1:5000"))

	now = now.Add(time.Hour)
	assert.Equal(t, 3, rl.Sweep())
}

func TestRateLimiterIgnoresBearerHeader(t *testing.T) {
	rl := NewRateLimiter(1, 1, false)
	now := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("Authorization", fmt.Sprintf("Bearer junk-%d", i))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 49, limited)
	assert.Len(t, rl.limiters, 1)
}

func TestRateLimiterForwardedFor(t *testing.T) {
	call := func(rl *RateLimiter, fwd string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:443"
		req.Header.Set("X-Forwarded-For", fwd)
		rr := httptest.NewRecorder()
		rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(rr, req)
		return rr.Code
	}

	direct := NewRateLimiter(1, 1, false)
	assert.Equal(t, http.StatusOK, call(direct, "198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, call(direct, "198.51.100.2"))

	proxied := NewRateLimiter(1, 1, true)
	assert.Equal(t, http.StatusOK, call(proxied, "198.51.100.1, 192.0.2.1"))
	assert.Equal(t, http.StatusOK, call(proxied, "198.51.100.2"))
	assert.Equal(t, http.StatusTooManyRequests, call(proxied, "198.51.100.1"))
}

func TestTimeoutMiddleware(t *testing.T) {
	slow := TimeoutMiddleware(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	slow.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusRequestTimeout, rr.Code)

	fast := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	}))
	rr = httptest.NewRecorder()
	fast.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "yes", rr.Header().Get("X-Test"))
	assert.Equal(t, `{}`, rr.Body.String())
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(MetricsMiddleware)
	var route string
	r.HandleFunc("/api/things/{id}", func(w http.ResponseWriter, req *http.Request) {
		route = routeTemplate(req)
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/things/42", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "/api/things/{id}", route)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestOriginChecker(t *testing.T) {
	check := OriginChecker([]string{"https://apsar.org"})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://apsar.org")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example")
	assert.False(t, check(req))
	assert.True(t, OriginChecker([]string{"*"})(req))
}

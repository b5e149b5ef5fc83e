package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/api/handlers"
	"github.com/geijin5/apsar-emergency-api/config"
	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/databases/memdb"
	"github.com/geijin5/apsar-emergency-api/identity"
	"github.com/geijin5/apsar-emergency-api/models"
	"github.com/geijin5/apsar-emergency-api/notify"
	"github.com/geijin5/apsar-emergency-api/notify/notifytest"
	"github.com/geijin5/apsar-emergency-api/services"
)

const testPassword = "correct horse battery"

type testApp struct {
	*handlers.App
	gate     *identity.GuardianGate
	store    *databases.Store
	recorder *notifytest.Recorder
	tokens   map[models.Role]string
	users    map[models.Role]*models.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	store := memdb.New()
	gate := identity.NewGuardianGate(context.Background(), store.Users, store.RevokedTokens, "test-secret", time.Hour)
	recorder := &notifytest.Recorder{}
	conf := config.Config{
		AllowedOrigins: []string{"*"},
		RequestTimeout: 5 * time.Second,
	}
	ta := &testApp{
		App:      handlers.NewApp(conf, store, gate, services.New(store, recorder), notify.NewHub(nil)),
		gate:     gate,
		store:    store,
		recorder: recorder,
		tokens:   map[models.Role]string{},
		users:    map[models.Role]*models.User{},
	}
	for _, role := range []models.Role{models.RoleMember, models.RoleOfficer, models.RoleAdmin} {
		u := ta.seedUser(t, string(role)+"@apsar.test", role)
		session, err := gate.IssueToken(u)
		require.NoError(t, err)
		ta.tokens[role] = session.Token
		ta.users[role] = u
	}
	return ta
}

func (ta *testApp) seedUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	hash, err := identity.HashPassword(testPassword)
	require.NoError(t, err)
	now := time.Now().UTC()
	u := &models.User{
		ID:           databases.NewID(),
		Name:         "Test "+string(role),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, ta.store.Users.InsertOne(context.Background(), u))
	return u
}

func (ta *testApp) do(method, path string, role models.Role, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token, ok := ta.tokens[role]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ta.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func errorKind(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decodeBody(t, rr, &body)
	return body["error"]
}

func TestUnknownRoute(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/asdf", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthCheckRoute(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "alive")
}

func TestMetricsRoute(t *testing.T) {
	ta := newTestApp(t)
	ta.do("GET", "/api/public/sar/missions", "", nil)
	rr := ta.do("GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "apsar_http_requests_total")
}

func TestRoutesRequireToken(t *testing.T) {
	ta := newTestApp(t)
	for _, path := range []string{"/api/personnel/call-outs", "/api/notifications", "/api/users/me", "/api/chat/rooms"} {
		rr := ta.do("GET", path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code, path)
		assert.Equal(t, "Unauthorized", errorKind(t, rr), path)
	}
}

func TestOfficerRoutesRejectMembers(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("POST", "/api/admin/call-outs", models.RoleMember, services.CallOutInput{Title: "t", Message: "m"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "Forbidden", errorKind(t, rr))

	rr = ta.do("GET", "/api/admin/users", models.RoleMember, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ta.do("POST", "/api/admin/users", models.RoleOfficer, services.UserInput{})
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestCallOutLifecycle(t *testing.T) {
	ta := newTestApp(t)

	rr := ta.do("POST", "/api/admin/call-outs", models.RoleOfficer, services.CallOutInput{Title: "Search Needed", Message: "Lost hiker"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var callOut models.CallOut
	decodeBody(t, rr, &callOut)
	assert.Equal(t, models.CallOutActive, callOut.Status)
	assert.Len(t, ta.recorder.OfType(models.NotificationCallOut), 1)

	rr = ta.do("POST", "/api/personnel/call-outs/"+callOut.ID+"/respond", models.RoleMember, services.ResponseInput{Status: models.ResponseEnRoute})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = ta.do("GET", "/api/personnel/call-outs/"+callOut.ID, models.RoleMember, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &callOut)
	assert.Equal(t, 1, callOut.ResponseCount)

	rr = ta.do("GET", "/api/admin/call-outs/"+callOut.ID+"/responses", models.RoleOfficer, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var responses []models.CallOutResponse
	decodeBody(t, rr, &responses)
	require.Len(t, responses, 1)
	assert.Equal(t, ta.users[models.RoleMember].ID, responses[0].UserID)

	// an empty body closes as completed
	rr = ta.do("POST", "/api/admin/call-outs/"+callOut.ID+"/close", models.RoleOfficer, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	decodeBody(t, rr, &callOut)
	assert.Equal(t, models.CallOutCompleted, callOut.Status)

	rr = ta.do("POST", "/api/personnel/call-outs/"+callOut.ID+"/respond", models.RoleMember, services.ResponseInput{Status: models.ResponseAvailable})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "CallOutClosed", errorKind(t, rr))
}

func TestNotFoundEnvelope(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/api/personnel/call-outs/missing", models.RoleMember, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Not Found", errorKind(t, rr))
}

func TestInvalidBody(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest("POST", "/api/admin/call-outs", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+ta.tokens[models.RoleOfficer])
	rr := httptest.NewRecorder()
	ta.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "ValidationError", errorKind(t, rr))
}

func TestEmptyListsEncodeAsArrays(t *testing.T) {
	ta := newTestApp(t)
	for _, path := range []string{
		"/api/personnel/call-outs",
		"/api/personnel/incidents",
		"/api/personnel/sar/missions",
		"/api/callout-reports",
		"/api/checklists",
		"/api/vehicles",
		"/api/equipment",
		"/api/notifications",
	} {
		rr := ta.do("GET", path, models.RoleOfficer, nil)
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()), path)
	}
}

func TestPublicMissionsNeedNoToken(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.do("GET", "/api/public/sar/missions", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]", strings.TrimSpace(rr.Body.String()))
}

func TestCORSPreflight(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest("OPTIONS", "/api/personnel/call-outs", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	ta.Handler().ServeHTTP(rr, req)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

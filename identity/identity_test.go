package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/databases/memdb"
	"github.com/geijin5/apsar-emergency-api/models"
)

func newGate(t *testing.T) (*GuardianGate, *databases.Store) {
	t.Helper()
	store := memdb.New()
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	require.NoError(t, store.Users.InsertOne(context.Background(), &models.User{
		ID:           "u-1",
		Name:         "Avery Officer",
		Email:        "avery@apsar.org",
		PasswordHash: hash,
		Role:         models.RoleOfficer,
		IsActive:     true,
	}))
	return NewGuardianGate(context.Background(), store.Users, store.RevokedTokens, "test-secret", time.Hour), store
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestLoginAndAuthenticate(t *testing.T) {
	gate, _ := newGate(t)

	session, err := gate.Login(context.Background(), "Avery@apsar.org", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, "u-1", session.User.ID)

	actor, err := gate.Authenticate(bearerRequest(session.Token))
	require.NoError(t, err)
	assert.Equal(t, models.Actor{UserID: "u-1", Name: "Avery Officer", Role: models.RoleOfficer}, actor)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	gate, _ := newGate(t)

	_, err := gate.Login(context.Background(), "avery@apsar.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = gate.Login(context.Background(), "nobody@apsar.org", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	gate, store := newGate(t)

	_, err := gate.Authenticate(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = gate.Authenticate(bearerRequest("not-a-jwt"))
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewGuardianGate(context.Background(), store.Users, store.RevokedTokens, "other-secret", time.Hour)
	user, err := store.Users.FindByID(context.Background(), "u-1")
	require.NoError(t, err)
	forged, err := other.IssueToken(user)
	require.NoError(t, err)
	_, err = gate.Authenticate(bearerRequest(forged.Token))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestExpiredTokenRejected(t *testing.T) {
	gate, store := newGate(t)
	user, err := store.Users.FindByID(context.Background(), "u-1")
	require.NoError(t, err)

	gate.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	session, err := gate.IssueToken(user)
	require.NoError(t, err)
	gate.now = time.Now

	_, err = gate.Authenticate(bearerRequest(session.Token))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	gate, _ := newGate(t)
	session, err := gate.Login(context.Background(), "avery@apsar.org", "hunter22")
	require.NoError(t, err)

	_, err = gate.Authenticate(bearerRequest(session.Token))
	require.NoError(t, err)

	require.NoError(t, gate.Logout(bearerRequest(session.Token)))

	_, err = gate.Authenticate(bearerRequest(session.Token))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRefreshIssuesNewTokenAndRevokesOld(t *testing.T) {
	gate, _ := newGate(t)
	session, err := gate.Login(context.Background(), "avery@apsar.org", "hunter22")
	require.NoError(t, err)

	fresh, err := gate.Refresh(bearerRequest(session.Token))
	require.NoError(t, err)
	assert.NotEqual(t, session.Token, fresh.Token)

	_, err = gate.Authenticate(bearerRequest(fresh.Token))
	assert.NoError(t, err)
	_, err = gate.Authenticate(bearerRequest(session.Token))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDeactivatedUserCannotLogin(t *testing.T) {
	gate, store := newGate(t)
	_, err := store.Users.Deactivate(context.Background(), "u-1", time.Now())
	require.NoError(t, err)

	_, err = gate.Login(context.Background(), "avery@apsar.org", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSeedAdminIsIdempotent(t *testing.T) {
	store := memdb.New()
	ctx := context.Background()

	require.NoError(t, SeedAdmin(ctx, store.Users, "admin@apsar.org", "changeme", "Admin"))
	require.NoError(t, SeedAdmin(ctx, store.Users, "admin@apsar.org", "changeme", "Admin"))

	users, err := store.Users.Find(ctx, databases.UserFilter{}, databases.Page{})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.True(t, users[0].IsActive)
}

func TestLogoutOnOneInstanceRevokesEverywhere(t *testing.T) {
	gate, store := newGate(t)
	peer := NewGuardianGate(context.Background(), store.Users, store.RevokedTokens, "test-secret", time.Hour)
	session, err := gate.Login(context.Background(), "avery@apsar.org", "hunter22")
	require.NoError(t, err)

	// both instances have the token cached
	_, err = gate.Authenticate(bearerRequest(session.Token))
	require.NoError(t, err)
	_, err = peer.Authenticate(bearerRequest(session.Token))
	require.NoError(t, err)

	require.NoError(t, gate.Logout(bearerRequest(session.Token)))

	_, err = peer.Authenticate(bearerRequest(session.Token))
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = peer.AuthenticateToken(context.Background(), session.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

// Package identity validates bearer tokens and issues them on login.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/geijin5/apsar-emergency-api/databases"
	"github.com/geijin5/apsar-emergency-api/models"
)

// cacheTTL bounds how long a validated token skips the user lookup, so role changes and
// deactivation take effect within it. Revocation is checked on every request.
const cacheTTL = 5 * time.Minute

var (
	// ErrUnauthorized is returned for missing, malformed, expired or revoked credentials
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidCredentials is returned when login fails
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Gate turns a request's bearer credential into the calling actor
type Gate interface {
	Authenticate(r *http.Request) (models.Actor, error)
}

// Session is the result of a successful login or refresh
type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type claims struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// GuardianGate validates HS256 tokens through a cached go-guardian bearer strategy
type GuardianGate struct {
	users         databases.UserDatabase
	revoked       databases.RevokedTokenDatabase
	secret        []byte
	ttl           time.Duration
	authenticator auth.Authenticator
	strategy      auth.Strategy
	now           func() time.Time
}

// NewGuardianGate builds a gate that signs and checks tokens with secret. Tokens live for ttl.
func NewGuardianGate(ctx context.Context, users databases.UserDatabase, revoked databases.RevokedTokenDatabase, secret string, ttl time.Duration) *GuardianGate {
	g := &GuardianGate{
		users:   users,
		revoked: revoked,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
	}
	cache := store.NewFIFO(ctx, cacheTTL)
	g.strategy = bearer.New(g.validate, cache)
	g.authenticator = auth.New()
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, g.strategy)
	return g
}

// Authenticate returns the actor behind the request's bearer token. The revocation list is
// consulted even when the token is cached, so a logout on any instance takes effect everywhere.
func (g *GuardianGate) Authenticate(r *http.Request) (models.Actor, error) {
	info, err := g.authenticator.Authenticate(r)
	if err != nil {
		return models.Actor{}, ErrUnauthorized
	}
	jti := info.Extensions()["jti"]
	if len(jti) == 0 {
		return models.Actor{}, ErrUnauthorized
	}
	revoked, err := g.revoked.IsRevoked(r.Context(), jti[0])
	if err != nil {
		return models.Actor{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		if err := auth.Revoke(g.strategy, bearerToken(r), r); err != nil {
			zap.S().Debugw("token was not cached", "error", err)
		}
		return models.Actor{}, ErrUnauthorized
	}
	return actorFromInfo(info)
}

// AuthenticateToken validates a raw token, for transports that cannot send headers
func (g *GuardianGate) AuthenticateToken(ctx context.Context, token string) (models.Actor, error) {
	r, err := http.NewRequestWithContext(ctx, http.MethodGet, "/", nil)
	if err != nil {
		return models.Actor{}, err
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return g.Authenticate(r)
}

func actorFromInfo(info auth.Info) (models.Actor, error) {
	groups := info.Groups()
	if len(groups) == 0 {
		return models.Actor{}, ErrUnauthorized
	}
	role, ok := models.ParseRole(groups[0])
	if !ok {
		return models.Actor{}, ErrUnauthorized
	}
	return models.Actor{UserID: info.ID(), Name: info.UserName(), Role: role}, nil
}

// validate runs on a cache miss: the token must be well signed, unexpired and belong to an
// active user
func (g *GuardianGate) validate(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	c, err := g.parse(token)
	if err != nil {
		return nil, err
	}
	user, err := g.users.FindByID(ctx, c.Subject)
	if err != nil || !user.IsActive {
		return nil, ErrUnauthorized
	}
	return auth.NewDefaultUser(user.Name, user.ID, []string{string(user.Role)}, map[string][]string{
		"jti": {c.ID},
	}), nil
}

func (g *GuardianGate) parse(token string) (*claims, error) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, ErrUnauthorized
	}
	if c.Subject == "" || c.ID == "" {
		return nil, ErrUnauthorized
	}
	return c, nil
}

// IssueToken signs a token for user
func (g *GuardianGate) IssueToken(user *models.User) (*Session, error) {
	now := g.now()
	exp := now.Add(g.ttl)
	c := claims{
		Name: user.Name,
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(g.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: signed, ExpiresAt: exp, User: user}, nil
}

// Login checks email and password and issues a token
func (g *GuardianGate) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := g.users.FindByEmail(ctx, email)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return g.IssueToken(user)
}

// Refresh exchanges the request's valid token for a new one and revokes the old one
func (g *GuardianGate) Refresh(r *http.Request) (*Session, error) {
	actor, err := g.Authenticate(r)
	if err != nil {
		return nil, err
	}
	user, err := g.users.FindByID(r.Context(), actor.UserID)
	if err != nil {
		return nil, err
	}
	session, err := g.IssueToken(user)
	if err != nil {
		return nil, err
	}
	if err := g.Logout(r); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the request's token until it would have expired
func (g *GuardianGate) Logout(r *http.Request) error {
	token := bearerToken(r)
	c, err := g.parse(token)
	if err != nil {
		return err
	}
	err = g.revoked.Revoke(r.Context(), models.RevokedToken{
		TokenID:   c.ID,
		UserID:    c.Subject,
		ExpiresAt: c.ExpiresAt.Time,
	})
	if err != nil {
		return err
	}
	if err := auth.Revoke(g.strategy, token, r); err != nil {
		zap.S().Debugw("token was not cached", "error", err)
	}
	return nil
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}

// HashPassword returns the bcrypt hash stored for a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// SeedAdmin creates an active admin with email unless a user with that email exists
func SeedAdmin(ctx context.Context, users databases.UserDatabase, email, password, name string) error {
	if email == "" || password == "" {
		return nil
	}
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, databases.ErrNotFound) {
		return err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now()
	err = users.InsertOne(ctx, &models.User{
		ID:           databases.NewID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, databases.ErrDuplicate) {
		return nil
	}
	if err == nil {
		zap.S().Infow("seeded admin user", "email", email)
	}
	return err
}

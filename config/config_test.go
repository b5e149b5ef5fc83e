package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TOKEN_TTL", "2h")
	conf, err := New()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, conf.AllowedOrigins)
	assert.Equal(t, 2*time.Hour, conf.TokenTTL)
	assert.Equal(t, "8080", conf.Port)
	assert.Equal(t, 100, conf.FanoutBatchSize)
}

func TestNewRequiresSecretInProduction(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := New()
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestErrorStatus(t *testing.T) {
	production = false
	rr := httptest.NewRecorder()
	ErrorStatus("ValidationError", "title is required", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ValidationError", body["error"])
	assert.Equal(t, "title is required", body["message"])
}

func TestErrorStatusHidesInternalDetailInProduction(t *testing.T) {
	production = true
	defer func() { production = false }()
	rr := httptest.NewRecorder()
	ErrorStatus("Internal", "failed to load call-out", http.StatusInternalServerError, rr, errors.New("connection refused"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["message"])
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1))
	assert.True(t, l.Core().Enabled(0))
}

func TestSetLoggerSetsLocalLogger(t *testing.T) {
	l, err := setLogger("local")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(0))
}

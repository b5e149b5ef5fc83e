package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/geijin5/apsar-emergency-api/logging"
)

// Config holds the project config values
type Config struct {
	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	Env            string   `env:"NODE_ENV" envDefault:"development"`

	URL          string `env:"DB_URI"`
	DatabaseName string `env:"DB_NAME" envDefault:"apsar"`
	BaseURL      string `env:"BASE_URL"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	RabbitMQURL     string `env:"RABBITMQ_URL"`
	NotifyQueue     string `env:"NOTIFY_QUEUE" envDefault:"notifications"`
	ExpoPushURL     string `env:"EXPO_PUSH_URL" envDefault:"https://exp.host/--/api/v2/push/send"`
	ExpoAccessToken string `env:"EXPO_ACCESS_TOKEN"`
	NotifyWorkers   int    `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyBuffer    int    `env:"NOTIFY_BUFFER" envDefault:"1000"`
	FanoutBatchSize int    `env:"FANOUT_BATCH_SIZE" envDefault:"100"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"40"`
	TrustProxy     bool          `env:"TRUST_PROXY" envDefault:"false"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
	AdminName     string `env:"ADMIN_NAME" envDefault:"Administrator"`

	NotificationRetention time.Duration `env:"NOTIFICATION_RETENTION" envDefault:"720h"`
}

// ErrMissingSecret is returned when production runs without a token signing secret
var ErrMissingSecret = errors.New("JWT_SECRET is required when NODE_ENV=production")

var production bool

// New sets up all config related services. A .env file in the working directory is loaded
// first when present; real environment variables win over it.
func New() (*Config, error) {
	_ = godotenv.Load()

	conf := &Config{}
	if err := env.Parse(conf); err != nil {
		return nil, err
	}

	logger, err := setLogger(conf.Env)
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)
	production = conf.IsProduction()

	if conf.IsProduction() && conf.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if conf.NotifyWorkers < 1 {
		conf.NotifyWorkers = 1
	}
	if conf.FanoutBatchSize < 1 {
		conf.FanoutBatchSize = 100
	}
	return conf, nil
}

// IsProduction reports whether NODE_ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

// ErrorStatus is a useful function that will log, write http headers and the error envelope
// for a given kind, message, status code and err. Server errors never expose err in production.
func ErrorStatus(kind, message string, httpStatusCode int, w http.ResponseWriter, err error) {
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().Errorw(message, "kind", kind, "error", err)
		if production {
			message = "internal server error"
		} else if err != nil {
			message = message + ": " + err.Error()
		}
	} else {
		zap.S().Debugw(message, "kind", kind, "status", httpStatusCode, "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": kind, "message": message})
}

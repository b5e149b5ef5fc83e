// Package logging builds the zap logger for a deployment environment.
package logging

import "go.uber.org/zap"

// New creates a zap logger suited to env. production logs json at info, development logs
// human readable output at debug, anything else uses the example logger used by tests.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	}
	return zap.NewExample(), nil
}

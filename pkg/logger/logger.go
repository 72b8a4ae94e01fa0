// Package logger builds the zap logger used across the project.
package logger

import "go.uber.org/zap"

// New returns a production-configured logger named for the service.
// Callers pass the logger explicitly; there is no package-level instance.
func New(service string) (*zap.Logger, error) {
	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return log.Named(service), nil
}

package system

import (
	"fmt"

	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	ctrllog "sigs.k8s.io/controller-runtime/pkg/log"
)

// NewLogger returns a development logger when debug is set and a production
// (JSON, info level) logger otherwise. controller-runtime is pointed at the
// same logger so Kubernetes client messages share the output format.
func NewLogger(debug bool) (*zap.SugaredLogger, error) {
	var zlog *zap.Logger
	var err error
	if debug {
		zlog, err = zap.NewDevelopment()
	} else {
		zlog, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	ctrllog.SetLogger(zapr.NewLogger(zlog))
	return zlog.Sugar(), nil
}

// NewTestLogger returns a sugared logger configured for tests. It mirrors the
// development logger but disables automatic stacktraces so normal test logs
// don't include stack frames.
func NewTestLogger() *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	cfg.DisableStacktrace = true
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar()
	}
	return logger.Sugar()
}

// EmailFields returns key/value pairs identifying a declared email, suitable
// for SugaredLogger.With or Infow/Errorw calls. subject is omitted when empty.
func EmailFields(name, subject string) []interface{} {
	if subject == "" {
		return []interface{}{"name", name}
	}
	return []interface{}{"name", name, "subject", subject}
}

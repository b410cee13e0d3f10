// Package logging configures the logrus default logger and the field sets
// shared by every package that logs about an export task.
package logging

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

var defaultLogger = logrus.NewEntry(logrus.StandardLogger())

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// GetLogger returns the logger stored in ctx, or the default one.
func GetLogger(ctx context.Context) *logrus.Entry {
	if logger, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok && logger != nil {
		return logger
	}
	return defaultLogger
}

func Default() *logrus.Entry {
	return defaultLogger
}

func ConfigureDefaultLogger(level string) error {
	switch level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "", "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	default:
		return errors.Errorf("invalid log level %q, should be one of: debug, info, warn, error, fatal or panic", level)
	}
	return nil
}

func TaskFields(id, selector string) logrus.Fields {
	return logrus.Fields{
		"task.id":   id,
		"task.type": selector,
	}
}

package logging

import (
	"context"
	"sync/atomic"
)

// LoggerFactory lets an embedding application route session and provider logs
// into its own logger instead of the package logrus root.
type LoggerFactory interface {
	CreateLogger(ctx context.Context) Logger
}

type factoryBox struct {
	factory LoggerFactory
}

var currentFactory atomic.Pointer[factoryBox]

// SetLoggerFactory installs factory; nil restores the logrus root logger.
func SetLoggerFactory(factory LoggerFactory) {
	if factory == nil {
		currentFactory.Store(nil)
		return
	}
	currentFactory.Store(&factoryBox{factory: factory})
}

func GetLoggerFactory() LoggerFactory {
	if box := currentFactory.Load(); box != nil {
		return box.factory
	}
	return nil
}

type Fields map[string]any

type fieldsKey struct{}

// WithFields returns a context whose loggers carry fields in addition to any
// already attached. Later values replace earlier ones with the same key.
func WithFields(ctx context.Context, fields Fields) context.Context {
	merged := make(Fields, len(fields))
	for k, v := range FieldsFromContext(ctx) {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return context.WithValue(ctx, fieldsKey{}, merged)
}

func FieldsFromContext(ctx context.Context) Fields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).(Fields)
	return fields
}

package restfire

import (
	"log"
)

type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type defaultLoggerImpl struct {
}

func (*defaultLoggerImpl) Debugf(string, ...any) {
}

func (*defaultLoggerImpl) Infof(format string, args ...any) {
	log.Printf("[INFO] [RESTFIRE] "+format, args...)
}

func (*defaultLoggerImpl) Warnf(format string, args ...any) {
	log.Printf("[WARN] [RESTFIRE] "+format, args...)
}

// NewNopLogger returns a Logger discarding everything.
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct {
}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}

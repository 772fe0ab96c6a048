// Package glogger writes restfire logs to github.com/golang/glog.
package glogger

import (
	"github.com/golang/glog"

	"github.com/QuangTung97/restfire"
)

// DebugLevel is the glog verbosity enabling debug logs (-v=2).
const DebugLevel glog.Level = 2

type gLogger struct {
	prefix string
}

// New returns a restfire.Logger over glog, every line starts with prefix.
func New(prefix string) restfire.Logger {
	return &gLogger{
		prefix: prefix,
	}
}

func (l *gLogger) Debugf(format string, args ...any) {
	if !glog.V(DebugLevel) {
		return
	}
	glog.InfoDepthf(1, l.prefix+format, args...)
}

func (l *gLogger) Infof(format string, args ...any) {
	glog.InfoDepthf(1, l.prefix+format, args...)
}

func (l *gLogger) Warnf(format string, args ...any) {
	glog.WarningDepthf(1, l.prefix+format, args...)
}

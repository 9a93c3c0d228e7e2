package sim

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NopLogger returns a logger that discards everything. Components use it
// when no logger is configured.
func NopLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

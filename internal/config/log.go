package config

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/san-kum/neutronsim/internal/sim"
)

// NamedLogger creates a logger writing text lines tagged with name to stderr.
func NamedLogger(name, level string) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return &logrus.Logger{
		Out: os.Stderr,
		Formatter: &namedFormatter{
			TextFormatter: logrus.TextFormatter{DisableTimestamp: true},
			name:          name,
		},
		Hooks: make(logrus.LevelHooks),
		Level: lvl,
	}, nil
}

// ParseLevel accepts the logrus level names. An empty level means info.
func ParseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, sim.Invalid("log level %q", level)
	}
	return lvl, nil
}

type namedFormatter struct {
	logrus.TextFormatter
	name string
}

func (f *namedFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	entry.Message = "[" + f.name + "] " + entry.Message
	return f.TextFormatter.Format(entry)
}

package logger

import (
	"strings"

	"github.com/Scalingo/popular-repos/config"
	"github.com/sirupsen/logrus"
)

// ServiceHook add the service name to every log entry
// so lines can be told apart once shipped next to other services
type ServiceHook struct {
	Service string
}

func (h ServiceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h ServiceHook) Fire(entry *logrus.Entry) error {
	if _, found := entry.Data["service"]; !found {
		entry.Data["service"] = h.Service
	}

	return nil
}

// Setup will configure logrus logger
// hooks are replaced, so calling it again doesn't stack service hooks
func Setup(cfg config.Config) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if cfg.Logs.OutputLogsAsJSON {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	logrus.SetLevel(StringToLogrusLogType(cfg.Logs.Level))

	hooks := make(logrus.LevelHooks)
	if cfg.Logs.ServiceName != "" {
		hooks.Add(ServiceHook{Service: cfg.Logs.ServiceName})
	}

	logrus.StandardLogger().ReplaceHooks(hooks)
}

// StringToLogrusLogType will convert string to the right logrus level
// unknown levels fall back to error, so a typo never makes the service verbose
func StringToLogrusLogType(logLevel string) logrus.Level {
	level, err := logrus.ParseLevel(strings.TrimSpace(logLevel))
	if err != nil {
		return logrus.ErrorLevel
	}

	return level
}

// Package logger holds the process-wide logrus logger and the field helpers
// used to tag entries with run, formation and component context.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// Options configure Init. Empty Level falls back to LOG_LEVEL, then to debug
// in development and info otherwise. Nil Output means stdout.
type Options struct {
	Level       string
	Development bool
	Output      io.Writer
}

// Init builds the global logger. Production logs are JSON; development logs
// are text unless LOG_FORMAT=json.
func Init(opts Options) *logrus.Logger {
	log := logrus.New()

	level := opts.Level
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "info"
		if opts.Development {
			level = "debug"
		}
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)

	if opts.Development && !strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	log.SetOutput(out)

	if err != nil {
		log.WithField("invalid_level", level).Warn("Invalid log level, using INFO")
	}

	Logger = log
	return log
}

// InitLogger is Init for the common server case.
func InitLogger(logLevel string, isDevelopment bool) *logrus.Logger {
	return Init(Options{Level: logLevel, Development: isDevelopment})
}

// GetLogger returns the global logger, creating a production one on first use.
func GetLogger() *logrus.Logger {
	if Logger == nil {
		return Init(Options{Level: "info"})
	}
	return Logger
}

func SetOutput(w io.Writer) {
	GetLogger().SetOutput(w)
}

func WithService(serviceName string) *logrus.Entry {
	return GetLogger().WithField("service", serviceName)
}

func WithComponent(component string) *logrus.Entry {
	return GetLogger().WithField("component", component)
}

// WithRunContext tags entries belonging to one optimization run.
func WithRunContext(runID, mode string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"run_id": runID,
		"mode":   mode,
	})
}

// WithFormation adds the formation shape to entry; a nil entry starts from
// the global logger.
func WithFormation(entry *logrus.Entry, formation string) *logrus.Entry {
	if entry == nil {
		entry = logrus.NewEntry(GetLogger())
	}
	return entry.WithField("formation", formation)
}

func WithHTTPContext(method, path, userAgent string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"http_method":     method,
		"http_path":       path,
		"http_user_agent": userAgent,
	})
}

package daemon

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SetupLogging configures the global logrus logger.
// An unknown level falls back to info with a warning.
func SetupLogging(cfg LoggingConfig) {
	log.SetOutput(os.Stderr)

	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&log.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		log.SetLevel(log.InfoLevel)
		log.WithField("level", cfg.Level).Warn("unknown log level, using info")
		return
	}
	log.SetLevel(level)
}

package logger

import (
	"os"

	log "github.com/sirupsen/logrus"
)

// Init configures the global logrus logger.
// The level comes from LOG_LEVEL (debug/info/warn/error), defaulting to info.
// Safe to call multiple times; later calls overwrite previous settings.
func Init() {
	log.SetOutput(os.Stdout)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	levelStr := os.Getenv("LOG_LEVEL")
	if levelStr == "" {
		levelStr = "info"
	}
	lvl, err := log.ParseLevel(levelStr)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// L returns the global logger for convenience.
func L() *log.Logger { return log.StandardLogger() }

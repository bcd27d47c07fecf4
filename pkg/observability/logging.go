package observability

import (
	"github.com/rs/zerolog"
)

// SetLoggingLevel sets the global log level.
func SetLoggingLevel(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)
}

// ParseLevel maps a level name ("debug", "info", "warn", "error") to a
// zerolog level, defaulting to info for unknown names.
func ParseLevel(name string) zerolog.Level {
	level, err := zerolog.ParseLevel(name)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

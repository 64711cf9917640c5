// internal/logging/logging.go

package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New creates the application logger. Development environments get a
// human-readable console writer; everything else emits JSON.
func New(environment, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if environment == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	return logger.Level(lvl).With().Timestamp().Logger()
}

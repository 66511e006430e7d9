package logging

import (
	"github.com/rs/zerolog"
)

// Component creates a child logger tagged with a component identifier.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

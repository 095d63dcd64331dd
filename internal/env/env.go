package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/toolvision/internal/envvar"
)

// Environment is the runtime environment the CLI is running in.
type Environment string

const (
	// Development logs human readable output at debug level.
	Development Environment = "development"

	// Production logs JSON at info level.
	Production Environment = "production"
)

// FromEnv reads the environment from TOOLVISION_ENV, defaulting to Development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.ToolvisionEnv))
}

// Parse converts a raw value into an Environment. Unknown values map to Development.
func Parse(value string) Environment {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "prod", "production":
		return Production
	default:
		return Development
	}
}

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool {
	return e == Production
}

package config

import (
	"github.com/caarlos0/env/v11"
)

// parseEnv overlays AUTH_* environment variables onto config. Variables that
// are not set leave the current value untouched. A malformed value panics,
// like a malformed JSON file does.
func parseEnv(config *Config) {
	if err := env.Parse(config); err != nil {
		panic(err)
	}
}

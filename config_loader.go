package securecore

import (
	"time"

	"github.com/allisson/go-env"
	"github.com/joho/godotenv"
)

// LoadConfigFromEnv loads configuration from environment variables, reading
// an optional .env file first. A missing .env file is not an error; real
// environment variables always win over file contents.
//
// See the Env* constants for the variable names. The returned config has
// already been validated and defaulted.
func LoadConfigFromEnv() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		BaseURL:        env.GetString(EnvBaseURL, ""),
		DefaultLocale:  env.GetString(EnvDefaultLocale, DefaultLocale),
		FrontendKey:    env.GetString(EnvFrontendKey, ""),
		RequestTimeout: env.GetDuration(EnvRequestTimeout, DefaultRequestTimeout.Milliseconds(), time.Millisecond),
		Development:    env.GetBool(EnvDevelopment, false),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

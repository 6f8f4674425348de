package securecore

import "time"

// Environment variable names read by LoadConfigFromEnv.
const (
	// EnvBaseURL is the fully-qualified API base URL, including any path
	// prefix. Example: "https://api.readleaf.app/api"
	EnvBaseURL = "SECURECORE_BASE_URL"

	// EnvDefaultLocale is the BCP 47 language tag sent on every request
	// until the locale provider overrides it. Default: en
	EnvDefaultLocale = "SECURECORE_DEFAULT_LOCALE"

	// EnvFrontendKey is the static frontend-identification token sent in
	// the X-Frontend-Key header. Optional.
	EnvFrontendKey = "SECURECORE_FRONTEND_KEY"

	// EnvRequestTimeout is the default per-request deadline in
	// milliseconds. Default: 15000
	EnvRequestTimeout = "SECURECORE_REQUEST_TIMEOUT_MS"

	// EnvDevelopment toggles development mode: HTTPS enforcement is
	// relaxed for loopback hosts and pinning becomes opt-in per call.
	// Default: false
	EnvDevelopment = "SECURECORE_DEVELOPMENT"

	// EnvPinConfigPath points at a YAML file with certificate pin
	// entries. Optional; pins can also be supplied in code.
	EnvPinConfigPath = "SECURECORE_PIN_CONFIG"
)

// Default values
const (
	// DefaultRequestTimeout bounds every request unless overridden per
	// call or per session.
	DefaultRequestTimeout = 15 * time.Second

	// DefaultLocale is used until the localization subsystem sets one.
	DefaultLocale = "en"

	// MaxKeyAge is how old the current encryption key may grow before the
	// field cipher rotates it on the next use.
	MaxKeyAge = 90 * 24 * time.Hour
)

package securecore

import (
	"fmt"
	"net/url"
	"time"

	"github.com/hengadev/errsx"
)

// Config holds the process-start configuration for the secure request client.
//
// This struct contains only data, no behavior. Configuration can be loaded
// from any source (environment variables, files, code) and passed explicitly
// to NewClient.
type Config struct {
	// BaseURL is the API origin plus optional path prefix. A trailing
	// slash is tolerated and trimmed during URL construction.
	// Required. Must be an absolute URL.
	BaseURL string

	// DefaultLocale seeds the session's Accept-Language / X-App-Locale
	// headers. Optional. Default: "en".
	DefaultLocale string

	// FrontendKey is a static frontend-identification token. When set it
	// is sent as X-Frontend-Key on every request. Optional.
	FrontendKey string

	// RequestTimeout is the default deadline applied to every request.
	// Optional. Default: 15s.
	RequestTimeout time.Duration

	// Development relaxes the HTTPS gate for loopback and private-range
	// hosts and makes pinning opt-in per call instead of mandatory.
	Development bool
}

// Validate checks that the configuration is usable and applies defaults to
// optional fields. All problems are reported at once.
func (c *Config) Validate() error {
	var errs errsx.Map

	if c.BaseURL == "" {
		errs.Set("base URL", "required")
	} else if u, err := url.Parse(c.BaseURL); err != nil || !u.IsAbs() || u.Host == "" {
		errs.Set("base URL", fmt.Sprintf("%q is not an absolute URL", c.BaseURL))
	}

	if c.RequestTimeout < 0 {
		errs.Set("request timeout", "must not be negative")
	}

	if !errs.IsEmpty() {
		return fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs.AsError())
	}

	if c.DefaultLocale == "" {
		c.DefaultLocale = DefaultLocale
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return nil
}

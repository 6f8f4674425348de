package securecore

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/hengadev/errsx"
	"gopkg.in/yaml.v3"

	"github.com/readleaf/securecore/internal/hostmatch"
)

// PinEntry maps a hostname pattern to the certificate pins trusted for it.
// The pattern is either an exact hostname or a leading-wildcard form
// "*.suffix". Pins are base64-encoded SHA-256 digests of the certificate's
// SubjectPublicKeyInfo; a "sha256/" prefix is accepted and stripped.
type PinEntry struct {
	Pattern string   `yaml:"pattern"`
	Pins    []string `yaml:"pins"`
}

func (e PinEntry) normalized() PinEntry {
	out := PinEntry{Pattern: hostmatch.Normalize(e.Pattern), Pins: make([]string, 0, len(e.Pins))}
	for _, p := range e.Pins {
		out.Pins = append(out.Pins, strings.TrimPrefix(strings.TrimSpace(p), "sha256/"))
	}
	return out
}

// matchesPin reports whether the given SPKI digest is in this entry's pin set.
func (e PinEntry) matchesPin(pin string) bool {
	pin = strings.TrimPrefix(pin, "sha256/")
	for _, p := range e.Pins {
		if p == pin {
			return true
		}
	}
	return false
}

// PinDecision is the outcome of the per-request pinning policy.
type PinDecision int

const (
	// PinNotRequired dispatches through the standard transport.
	PinNotRequired PinDecision = iota
	// PinRequired dispatches through the pinned transport.
	PinRequired
	// PinUnavailable means pinning is mandatory but no entry resolves for
	// the host. The request must fail closed before any I/O.
	PinUnavailable
)

// PinResolver maps hostnames to trusted certificate pins and decides, per
// environment, whether pinning is mandatory for a host.
//
// The resolver runs a one-time readiness check at construction. If any entry
// carries an empty or undecodable pin set, pinning is force-disabled for the
// remainder of the process lifetime: a silently broken pin list must not look
// like a configuration success, and a half-applied one would brick a subset
// of hosts. The diagnostic is loud (error level) in production and quieter
// (warn level) in development.
type PinResolver struct {
	mu          sync.RWMutex
	enabled     bool
	broken      bool
	development bool
	entries     []PinEntry
	logger      *slog.Logger
}

// PinResolverOption customizes a PinResolver.
type PinResolverOption func(*PinResolver)

// WithPinLogger sets the logger used for readiness diagnostics.
func WithPinLogger(l *slog.Logger) PinResolverOption {
	return func(r *PinResolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewPinResolver builds a resolver over the given entries. Pinning starts
// enabled in production and disabled in development; SetEnabled toggles it
// unless the readiness check failed.
func NewPinResolver(entries []PinEntry, development bool, opts ...PinResolverOption) *PinResolver {
	r := &PinResolver{
		enabled:     !development,
		development: development,
		logger:      slog.Default(),
	}
	for _, e := range entries {
		r.entries = append(r.entries, e.normalized())
	}
	for _, opt := range opts {
		opt(r)
	}
	r.verifyReadiness()
	return r
}

// LoadPinEntries reads pin entries from a YAML file. The file is a list of
// {pattern, pins} objects.
func LoadPinEntries(path string) ([]PinEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pin config: %w", err)
	}
	var entries []PinEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: parse pin config %s: %w", ErrInvalidConfiguration, path, err)
	}
	return entries, nil
}

// verifyReadiness validates every configured entry exactly once. Misconfigured
// entries disable pinning globally so a partial pin list cannot masquerade as
// a working one.
func (r *PinResolver) verifyReadiness() {
	var errs errsx.Map
	for _, e := range r.entries {
		if e.Pattern == "" {
			errs.Set("pin entry", "empty hostname pattern")
			continue
		}
		if len(e.Pins) == 0 {
			errs.Set(e.Pattern, "entry has no certificate pins")
			continue
		}
		for _, p := range e.Pins {
			raw, err := base64.StdEncoding.DecodeString(p)
			if err != nil || len(raw) != 32 {
				errs.Set(e.Pattern, fmt.Sprintf("pin %q is not a base64 SHA-256 digest", p))
			}
		}
	}
	if errs.IsEmpty() {
		return
	}

	r.enabled = false
	r.broken = true
	if r.development {
		r.logger.Warn("certificate pinning disabled: pin configuration is invalid",
			"detail", errs.AsError().Error())
	} else {
		r.logger.Error("certificate pinning FORCE-DISABLED for process lifetime: requests will not be pinned",
			"detail", errs.AsError().Error())
	}
}

// Enabled reports whether pinning is currently active.
func (r *PinResolver) Enabled() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabled
}

// SetEnabled toggles pinning. Once the readiness check has force-disabled the
// resolver the toggle is inert for the rest of the process.
func (r *PinResolver) SetEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.broken {
		if enabled {
			r.logger.Warn("ignoring attempt to re-enable pinning after readiness failure")
		}
		return
	}
	r.enabled = enabled
}

// Resolve returns the pin entry for hostname, preferring an exact pattern
// match over a wildcard one, or nil when pinning is disabled or nothing
// matches. Matching is case-insensitive.
func (r *PinResolver) Resolve(hostname string) *PinEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.enabled {
		return nil
	}
	h := hostmatch.Normalize(hostname)
	for i := range r.entries {
		if !strings.HasPrefix(r.entries[i].Pattern, "*.") && r.entries[i].Pattern == h {
			entry := r.entries[i]
			return &entry
		}
	}
	for i := range r.entries {
		if strings.HasPrefix(r.entries[i].Pattern, "*.") && hostmatch.Matches(h, r.entries[i].Pattern) {
			entry := r.entries[i]
			return &entry
		}
	}
	return nil
}

// Decide applies the pinning policy for one request. Loopback hosts never
// pin. In production pinning is mandatory for every other host regardless of
// the per-call flag; in development the per-call requireSSL flag governs it.
// When pinning is mandatory and no entry resolves, the decision is
// PinUnavailable and the caller must fail closed.
func (r *PinResolver) Decide(hostname string, requireSSL bool) PinDecision {
	if hostmatch.IsLocal(hostname) {
		return PinNotRequired
	}
	if !r.Enabled() {
		return PinNotRequired
	}
	if r.development && !requireSSL {
		return PinNotRequired
	}
	if r.Resolve(hostname) == nil {
		return PinUnavailable
	}
	return PinRequired
}

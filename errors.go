package securecore

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// Policy violations. These fail before any network I/O and are never
	// downgraded to an unpinned or insecure call.
	ErrInsecureConnection = errors.New("insecure connection refused")
	ErrPinningUnavailable = errors.New("certificate pinning required but not configured")
	ErrPinMismatch        = errors.New("server certificate matches no configured pin")

	// Transport errors
	ErrTimeout = errors.New("request timed out")

	// Cryptographic errors. Messages stay generic: no key material or
	// plaintext ever appears in error text.
	ErrEncryptionFailed  = errors.New("encryption failed")
	ErrDecryptionFailed  = errors.New("decryption failed")
	ErrKeyNotFound       = errors.New("encryption key not found")
	ErrMalformedEnvelope = errors.New("malformed ciphertext envelope")

	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// HTTPError is returned for any response with a status outside the 2xx range.
// Errors carries the server's field-validation map when the payload has one,
// keyed by field name.
type HTTPError struct {
	Status  int
	Message string
	Errors  map[string][]string
}

func (e *HTTPError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if len(e.Errors) == 0 {
		return fmt.Sprintf("http %d: %s", e.Status, msg)
	}
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fmt.Sprintf("http %d: %s (invalid fields: %s)", e.Status, msg, strings.Join(fields, ", "))
}

// FieldErrors returns the validation messages for a single field, or nil.
func (e *HTTPError) FieldErrors(field string) []string {
	return e.Errors[field]
}

// IsPolicyError returns true if the error represents a transport-security
// policy violation (insecure scheme, missing or mismatched pins).
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrInsecureConnection) ||
		errors.Is(err, ErrPinningUnavailable) ||
		errors.Is(err, ErrPinMismatch)
}

// IsTimeout returns true if the error is the request deadline expiring.
// Timeouts are safe for the caller to retry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCryptoError returns true if the error comes from the field cipher or its
// key store.
func IsCryptoError(err error) bool {
	return errors.Is(err, ErrEncryptionFailed) ||
		errors.Is(err, ErrDecryptionFailed) ||
		errors.Is(err, ErrKeyNotFound) ||
		errors.Is(err, ErrMalformedEnvelope)
}

// IsConfigurationError returns true if the error represents a configuration
// problem rather than a runtime failure.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// AsHTTPError unwraps err into an *HTTPError if it is one.
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

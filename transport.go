package securecore

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"net/http"
)

// SPKIPin computes the HPKP-style pin for a certificate: the base64-encoded
// SHA-256 digest of its SubjectPublicKeyInfo. Pinning the public key instead
// of the whole certificate keeps pins stable across reissues that retain the
// key pair.
func SPKIPin(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return base64.StdEncoding.EncodeToString(sum[:])
}

// verifyPinnedConnection checks a completed TLS handshake against the
// resolver's pin set for the server name. The handshake has already passed
// standard chain verification at this point; the pin check narrows the
// accepted certificates to the pre-declared set. Any certificate in the
// presented chain may satisfy a pin (leaf or intermediate), which is the
// usual operational escape hatch for leaf reissues.
func verifyPinnedConnection(resolver *PinResolver) func(tls.ConnectionState) error {
	return func(cs tls.ConnectionState) error {
		entry := resolver.Resolve(cs.ServerName)
		if entry == nil {
			return fmt.Errorf("%w: host %q", ErrPinningUnavailable, cs.ServerName)
		}
		for _, cert := range cs.PeerCertificates {
			if entry.matchesPin(SPKIPin(cert)) {
				return nil
			}
		}
		return fmt.Errorf("%w: host %q presented %d certificate(s)",
			ErrPinMismatch, cs.ServerName, len(cs.PeerCertificates))
	}
}

// newPinnedClient builds the HTTP client used for pin-mandatory dispatch. The
// pin check runs inside the TLS handshake via VerifyConnection, so a
// mismatched certificate never completes a connection, let alone a request.
// rootCAs may add roots beyond the system pool for backends with private CAs.
func newPinnedClient(resolver *PinResolver, rootCAs *x509.CertPool) *http.Client {
	tlsConf := &tls.Config{
		MinVersion:       tls.VersionTLS12,
		RootCAs:          rootCAs,
		VerifyConnection: verifyPinnedConnection(resolver),
	}
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   tlsConf,
			ForceAttemptHTTP2: true,
			Proxy:             http.ProxyFromEnvironment,
		},
	}
}

// newStandardClient builds the HTTP client for unpinned dispatch: loopback
// hosts and development-mode calls that did not ask for pinning.
func newStandardClient(rootCAs *x509.CertPool) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
				RootCAs:    rootCAs,
			},
			ForceAttemptHTTP2: true,
			Proxy:             http.ProxyFromEnvironment,
		},
	}
}

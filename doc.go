// Package securecore is the transport-security and key-management core of the
// Readleaf mobile backend client.
//
// It provides three components, composed bottom-up:
//
//   - PinResolver maps hostnames to trusted certificate pins (SPKI SHA-256)
//     and decides per environment whether pinning is mandatory for a host.
//   - Client is a secure request client: it builds parameterized URLs,
//     attaches session and security headers, enforces HTTPS, dispatches
//     through a pinned or standard transport per the resolver's decision,
//     bounds every call with a deadline, and normalizes responses into a
//     decoded payload or a typed error.
//   - FieldCipher encrypts locally cached strings under versioned symmetric
//     keys with automatic age-based rotation; retired keys are kept so old
//     ciphertext stays readable.
//
// # Quick start
//
//	cfg, err := securecore.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resolver := securecore.NewPinResolver(pins, cfg.Development)
//	client, err := securecore.NewClient(cfg, nil, resolver)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	client.Session().SetToken(token)
//	payload, err := client.Get(ctx, "/articles", &securecore.RequestOptions{
//	    Params: map[string]any{"page": 2},
//	})
//
// For at-rest protection of local strings:
//
//	st, err := store.Open(ctx, store.Options{SQLitePath: "securecore.db"})
//	cipher := securecore.NewFieldCipher(st)
//	envelope, err := cipher.Encrypt(ctx, "sensitive value")
//
// The client never retries and never downgrades a pinned call; timeouts,
// policy violations, HTTP failures, and cryptographic failures all surface as
// typed errors (see errors.go).
package securecore

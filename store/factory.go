package store

import (
	"context"
	"log/slog"
)

// Options configures Open.
type Options struct {
	// VaultPath is the KV v2 data path for the blob. Vault is attempted
	// only when this is set and VAULT_ADDR is configured.
	VaultPath string

	// SQLitePath is the fallback database file. Required.
	SQLitePath string

	// SealSecret, when set, seals the blob in the fallback store.
	SealSecret string

	// Logger receives the one-time fallback diagnostic. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Open selects the key-store backend once at startup: the secure location
// (Vault) when it is configured and reachable, otherwise the plain SQLite
// key-value store. The downgrade is logged exactly once, here, so an insecure
// fallback never looks like a configuration success.
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if opts.VaultPath != "" {
		vault, err := NewVaultFromEnv(opts.VaultPath)
		if err == nil {
			if err = vault.Available(ctx); err == nil {
				return vault, nil
			}
		}
		logger.Warn("secure key-store location unavailable, falling back to local store",
			"error", err)
	}

	var sqliteOpts []SQLiteOption
	if opts.SealSecret != "" {
		sqliteOpts = append(sqliteOpts, WithSealSecret(opts.SealSecret))
	}
	return OpenSQLite(opts.SQLitePath, sqliteOpts...)
}

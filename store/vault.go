package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/hashicorp/vault/api"
)

// Vault persists the key-store blob in HashiCorp Vault's KV v2 engine, the
// platform-backed secure location of choice for server-side deployments.
// The blob is kept base64-encoded under a single field of one secret.
type Vault struct {
	client *api.Client
	path   string
}

// NewVault wraps an already-configured Vault client. path is the KV v2 data
// path, e.g. "secret/data/securecore/keystore".
func NewVault(client *api.Client, path string) *Vault {
	return &Vault{client: client, path: path}
}

// NewVaultFromEnv builds a Vault store from the standard VAULT_* environment
// variables. Token auth is tried first, then AppRole via VAULT_ROLE_ID and
// VAULT_SECRET_ID.
func NewVaultFromEnv(path string) (*Vault, error) {
	config := api.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	if config.Address == "" {
		return nil, fmt.Errorf("%w: VAULT_ADDR is not set", ErrUnavailable)
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("%w: create vault client: %w", ErrUnavailable, err)
	}
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}

	if token := os.Getenv("VAULT_TOKEN"); token != "" {
		client.SetToken(token)
		return NewVault(client, path), nil
	}

	roleID, secretID := os.Getenv("VAULT_ROLE_ID"), os.Getenv("VAULT_SECRET_ID")
	if roleID == "" || secretID == "" {
		return nil, fmt.Errorf("%w: no vault auth configured (set VAULT_TOKEN or VAULT_ROLE_ID+VAULT_SECRET_ID)", ErrUnavailable)
	}
	resp, err := client.Logical().Write("auth/approle/login", map[string]any{
		"role_id":   roleID,
		"secret_id": secretID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: approle login: %w", ErrUnavailable, err)
	}
	if resp == nil || resp.Auth == nil {
		return nil, fmt.Errorf("%w: approle login returned no auth info", ErrUnavailable)
	}
	client.SetToken(resp.Auth.ClientToken)
	return NewVault(client, path), nil
}

// Available probes the Vault server once at startup so callers can fall back
// to a local store instead of failing on every operation later.
func (v *Vault) Available(ctx context.Context) error {
	if _, err := v.client.Sys().HealthWithContext(ctx); err != nil {
		return fmt.Errorf("%w: vault health check: %w", ErrUnavailable, err)
	}
	return nil
}

func (v *Vault) Load(ctx context.Context) ([]byte, error) {
	secret, err := v.client.Logical().ReadWithContext(ctx, v.path)
	if err != nil {
		return nil, fmt.Errorf("%w: vault read: %w", ErrUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, ErrNotFound
	}
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, ErrNotFound
	}
	encoded, ok := data[BlobName].(string)
	if !ok || encoded == "" {
		return nil, ErrNotFound
	}
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode vault blob: %w", err)
	}
	return blob, nil
}

func (v *Vault) Save(ctx context.Context, blob []byte) error {
	_, err := v.client.Logical().WriteWithContext(ctx, v.path, map[string]any{
		"data": map[string]any{
			BlobName: base64.StdEncoding.EncodeToString(blob),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: vault write: %w", ErrUnavailable, err)
	}
	return nil
}

package securecore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid minimal",
			cfg:  Config{BaseURL: "https://api.example.com"},
		},
		{
			name: "valid with path prefix",
			cfg:  Config{BaseURL: "https://api.example.com/api/"},
		},
		{
			name:    "missing base URL",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "relative base URL",
			cfg:     Config{BaseURL: "/api"},
			wantErr: true,
		},
		{
			name:    "garbage base URL",
			cfg:     Config{BaseURL: "://nope"},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			cfg:     Config{BaseURL: "https://api.example.com", RequestTimeout: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfigValidateAppliesDefaults(t *testing.T) {
	cfg := Config{BaseURL: "https://api.example.com"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultLocale, cfg.DefaultLocale)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestConfigValidateReportsAllProblems(t *testing.T) {
	cfg := Config{RequestTimeout: -1}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
	assert.Contains(t, err.Error(), "request timeout")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv(EnvBaseURL, "https://api.example.com/api")
	t.Setenv(EnvDefaultLocale, "el")
	t.Setenv(EnvFrontendKey, "fk-1")
	t.Setenv(EnvRequestTimeout, "3000")
	t.Setenv(EnvDevelopment, "true")

	cfg, err := LoadConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/api", cfg.BaseURL)
	assert.Equal(t, "el", cfg.DefaultLocale)
	assert.Equal(t, "fk-1", cfg.FrontendKey)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.Development)
}

func TestLoadConfigFromEnvMissingBaseURL(t *testing.T) {
	t.Setenv(EnvBaseURL, "")
	_, err := LoadConfigFromEnv()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

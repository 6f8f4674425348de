package hostmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLocal(t *testing.T) {
	tests := []struct {
		host string
		want bool
	}{
		{"localhost", true},
		{"LOCALHOST", true},
		{"app.localhost", true},
		{"127.0.0.1", true},
		{"127.0.1.5", true},
		{"::1", true},
		{"0.0.0.0", true},
		{"10.0.0.7", true},
		{"192.168.1.20", true},
		{"172.16.0.1", true},
		{"172.31.255.255", true},
		{"169.254.10.10", true},
		{"172.32.0.1", false},
		{"8.8.8.8", false},
		{"api.example.com", false},
		{"localhost.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLocal(tt.host))
		})
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		host    string
		pattern string
		want    bool
	}{
		{"api.example.com", "api.example.com", true},
		{"API.example.com", "api.EXAMPLE.com", true},
		{"api.example.com", "example.com", false},
		{"sub.api.example.com", "*.example.com", true},
		{"api.example.com", "*.example.com", true},
		{"example.com", "*.example.com", true},
		{"badexample.com", "*.example.com", false},
		{"example.com.evil.org", "*.example.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Matches(tt.host, tt.pattern), "%s vs %s", tt.host, tt.pattern)
	}
}

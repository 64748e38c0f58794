package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare ipv4", "203.0.113.5", "203.0.113.5"},
		{"ipv4 with port", "203.0.113.5:54321", "203.0.113.5"},
		{"bracketed ipv6", "[2001:db8::1]", "2001:db8::1"},
		{"bracketed ipv6 with port", "[2001:db8::1]:443", "2001:db8::1"},
		{"bare ipv6 no brackets", "2001:db8::1", "2001:db8::1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeIP(tt.in))
		})
	}
}

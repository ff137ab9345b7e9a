package main

import (
	"testing"

	"modetex/backend/internal/config"
)

func TestValidateSecurityConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"dev defaults", config.Config{}, false},
		{"database without secret", config.Config{DatabaseURL: "postgres://x"}, true},
		{"short secret", config.Config{AuthSecret: "too-short"}, true},
		{"long secret", config.Config{AuthSecret: "0123456789abcdef0123456789abcdef"}, false},
		{"long secret with database", config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", DatabaseURL: "postgres://x"}, false},
	}

	for _, tc := range cases {
		err := validateSecurityConfig(tc.cfg)
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Context.Location() != time.UTC {
		t.Errorf("default location = %v, want UTC", cfg.Context.Location())
	}
}

func TestContextConfig_Timezone(t *testing.T) {
	cfg := ContextConfig{DefaultUser: "u", DefaultFolder: "/", Timezone: "Europe/Berlin"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid timezone rejected: %v", err)
	}
	if cfg.Location().String() != "Europe/Berlin" {
		t.Errorf("location = %v", cfg.Location())
	}

	cfg.Timezone = "Mars/Olympus"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("unknown timezone should fail")
	}
	if !strings.Contains(err.Error(), "IANA") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestContextConfig_RequiresDefaults(t *testing.T) {
	cfg := ContextConfig{Timezone: "UTC"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("empty defaults should fail")
	}
}

func TestInboxConfig(t *testing.T) {
	cfg := InboxConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled inbox without path should fail")
	}

	cfg = InboxConfig{Enabled: false}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled inbox needs no path: %v", err)
	}

	cfg = InboxConfig{Enabled: true, Path: "in"}
	if cfg.Results() != "in" {
		t.Errorf("results = %q, want in", cfg.Results())
	}
	cfg.ResultsPath = "out"
	if cfg.Results() != "out" {
		t.Errorf("results = %q, want out", cfg.Results())
	}
}

func TestEventsConfig_NegativeThrottle(t *testing.T) {
	cfg := EventsConfig{HistoryThrottle: -time.Second}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative throttle should fail")
	}
}

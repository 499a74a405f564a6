package app

import (
	"testing"
	"time"
)

func TestGetenv(t *testing.T) {
	tests := []struct {
		name string
		set  string
		def  string
		want string
	}{
		{name: "set value wins", set: "custom", def: "fallback", want: "custom"},
		{name: "empty falls back", set: "", def: "fallback", want: "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LINGUA_TEST_VAR", tt.set)
			if got := getenv("LINGUA_TEST_VAR", tt.def); got != tt.want {
				t.Errorf("getenv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name string
		set  string
		def  time.Duration
		want time.Duration
	}{
		{name: "parses duration", set: "45s", def: time.Minute, want: 45 * time.Second},
		{name: "empty falls back", set: "", def: time.Minute, want: time.Minute},
		{name: "garbage falls back", set: "soon", def: time.Minute, want: time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LINGUA_TEST_DURATION", tt.set)
			if got := getenvDuration("LINGUA_TEST_DURATION", tt.def); got != tt.want {
				t.Errorf("getenvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	for _, k := range []string{
		"HTTP_ADDR", "DATABASE_URL", "TYPHOON_ASR_MODEL", "GEMINI_MODEL",
		"ASR_TIMEOUT", "LLM_TIMEOUT", "SESSION_TTL", "JWT_SECRET",
	} {
		t.Setenv(k, "")
	}

	cfg := LoadConfigFromEnv()
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.TyphoonModel != "typhoon-asr-large-v1" {
		t.Errorf("TyphoonModel = %q", cfg.TyphoonModel)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("GeminiModel = %q", cfg.GeminiModel)
	}
	if cfg.ASRTimeout != 90*time.Second {
		t.Errorf("ASRTimeout = %v", cfg.ASRTimeout)
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Errorf("LLMTimeout = %v", cfg.LLMTimeout)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
	if cfg.JWTSecret != "" {
		t.Errorf("JWTSecret = %q, want empty without env", cfg.JWTSecret)
	}
}

func TestNewRequiresJWTSecret(t *testing.T) {
	cfg := LoadConfigFromEnv()
	cfg.JWTSecret = ""
	cfg.DatabaseURL = ""

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("New() must fail without a JWT secret")
	}
}

package app

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr    string
	DatabaseURL string // optional; history and event log are disabled without it
	SentryDSN   string
	LogLevel    string

	// Speech-to-text provider (primary)
	TyphoonAPIKey  string
	TyphoonBaseURL string
	TyphoonModel   string

	// Text generation and fallback transcription
	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	// Provider timeouts
	ASRTimeout time.Duration // audio uploads are large
	LLMTimeout time.Duration

	// Session handling
	JWTSecret  string
	SessionTTL time.Duration

	// History listing cap
	HistoryLimit int
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DatabaseURL: getenv("DATABASE_URL", ""),
		SentryDSN:   getenv("SENTRY_DSN", ""),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		TyphoonAPIKey:  getenv("TYPHOON_API_KEY", ""),
		TyphoonBaseURL: getenv("TYPHOON_BASE_URL", ""),
		TyphoonModel:   getenv("TYPHOON_ASR_MODEL", "typhoon-asr-large-v1"),

		GeminiAPIKey:  getenv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getenv("GEMINI_BASE_URL", ""),
		GeminiModel:   getenv("GEMINI_MODEL", "gemini-2.5-flash"),

		ASRTimeout: getenvDuration("ASR_TIMEOUT", 90*time.Second),
		LLMTimeout: getenvDuration("LLM_TIMEOUT", 60*time.Second),

		JWTSecret:  os.Getenv("JWT_SECRET"), // Required - no fallback for security
		SessionTTL: getenvDuration("SESSION_TTL", time.Hour),

		HistoryLimit: 50,
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

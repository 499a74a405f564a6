package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mbeda/lingua/internal/asr"
	"github.com/mbeda/lingua/internal/coach"
	"github.com/mbeda/lingua/internal/eventlog"
	"github.com/mbeda/lingua/internal/history"
	"github.com/mbeda/lingua/internal/httpapi"
	"github.com/mbeda/lingua/internal/judge"
	"github.com/mbeda/lingua/internal/llm"
	"github.com/mbeda/lingua/internal/scenario"
	"github.com/mbeda/lingua/internal/session"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	db       *pgxpool.Pool // nil when no DATABASE_URL is set
	history  *history.Store
	eventLog *eventlog.Logger
	registry *session.Registry
	orch     *session.Orchestrator
	catalog  *scenario.Catalog
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	// The database is optional: without it the API runs fully in-memory and
	// only history and the event log are disabled.
	var db *pgxpool.Pool
	var hist *history.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		var err error
		db, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(ctx); err != nil {
			db.Close()
			return nil, err
		}
		if err := ensureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		hist = history.New(db)
	}

	el := eventlog.New(db)

	primary := asr.NewTyphoonClient(asr.TyphoonConfig{
		APIKey:  cfg.TyphoonAPIKey,
		Model:   cfg.TyphoonModel,
		BaseURL: cfg.TyphoonBaseURL,
		Timeout: cfg.ASRTimeout,
	})
	fallback := asr.NewGeminiTranscriber(asr.GeminiTranscriberConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.ASRTimeout,
	})
	transcriber := asr.NewFallback(primary, fallback, logger)

	gemini := llm.NewGeminiClient(llm.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		BaseURL: cfg.GeminiBaseURL,
		Timeout: cfg.LLMTimeout,
	})

	catalog := scenario.NewCatalog()
	registry := session.NewRegistry(cfg.SessionTTL, el, logger)
	orch := session.NewOrchestrator(catalog, transcriber, coach.New(gemini), judge.New(gemini), el, logger)

	return &App{
		cfg:      cfg,
		logger:   logger,
		db:       db,
		history:  hist,
		eventLog: el,
		registry: registry,
		orch:     orch,
		catalog:  catalog,
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		JWTSecret:    a.cfg.JWTSecret,
		SessionTTL:   a.cfg.SessionTTL,
		HistoryLimit: a.cfg.HistoryLimit,
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.catalog, a.orch, a.registry, a.history)
}

func (a *App) Close() error {
	a.registry.Close()
	if a.db != nil {
		a.db.Close()
	}
	return nil
}

// ensureSchema creates the tables this service owns.
func ensureSchema(ctx context.Context, db *pgxpool.Pool) error {
	_, err := db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS completed_sessions (
			id TEXT PRIMARY KEY,
			scenario_id TEXT NOT NULL,
			opening TEXT NOT NULL DEFAULT '',
			turns JSONB NOT NULL,
			evaluation TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_completed_sessions_created ON completed_sessions(created_at DESC);

		CREATE TABLE IF NOT EXISTS session_events (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			event_data JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
	`)
	return err
}

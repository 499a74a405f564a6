package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/mbeda/lingua/internal/history"
	"github.com/mbeda/lingua/internal/scenario"
	"github.com/mbeda/lingua/internal/session"
)

type RouterConfig struct {
	// JWT session-handle tokens
	JWTSecret  string
	SessionTTL time.Duration

	// History listing cap
	HistoryLimit int
}

type Router struct {
	cfg       RouterConfig
	logger    *log.Logger
	scenarios *scenario.Catalog
	orch      *session.Orchestrator
	registry  *session.Registry
	history   *history.Store // nil when no database is configured
	mux       *http.ServeMux
}

func NewRouter(cfg RouterConfig, logger *log.Logger, scenarios *scenario.Catalog, orch *session.Orchestrator, registry *session.Registry, hist *history.Store) http.Handler {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}

	r := &Router{
		cfg:       cfg,
		logger:    logger,
		scenarios: scenarios,
		orch:      orch,
		registry:  registry,
		history:   hist,
		mux:       http.NewServeMux(),
	}

	r.routes()
	return withSentryRecovery(withCORS(r.mux))
}

func (r *Router) routes() {
	// Health check
	r.mux.HandleFunc("GET /healthz", r.handleHealthz)

	// Scenario catalog
	r.mux.HandleFunc("GET /api/scenarios", r.handleListScenarios)

	// Conversation flow
	r.mux.HandleFunc("POST /api/conversation/start", r.handleStartConversation)
	r.mux.HandleFunc("POST /api/conversation/turn", r.handleSubmitTurn)
	r.mux.HandleFunc("GET /api/conversation/live", r.handleLiveWS)

	// Final evaluation (independently callable for retry)
	r.mux.HandleFunc("POST /api/evaluation/final", r.handleFinalEvaluation)

	// Completed-session history
	r.mux.HandleFunc("GET /api/history", r.handleListHistory)
	r.mux.HandleFunc("GET /api/history/{id}", r.handleGetHistory)
	r.mux.HandleFunc("DELETE /api/history/{id}", r.handleDeleteHistory)
	r.mux.HandleFunc("DELETE /api/history", r.handleClearHistory)
}

func (r *Router) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}

func withSentryRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				hub := sentry.CurrentHub().Clone()
				hub.Scope().SetRequest(req)
				hub.RecoverWithContext(req.Context(), err)
				hub.Flush(2 * time.Second)
				http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, req)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if req.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, req)
	})
}

// captureError sends an error to Sentry with request context
func captureError(req *http.Request, err error, msg string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(req)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}

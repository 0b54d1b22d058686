// Command server runs the Session Orchestrator as a long-lived HTTP
// service: a chi router exposing the Orchestrator contract (spec.md
// §6.1) over REST, with a gorilla/websocket endpoint streaming each
// session's event feed (§6.3). This is the always-on counterpart to
// the teacher's per-request Lambda handlers, for local runs and any
// deployment target that isn't API Gateway.
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innerworld-backend/internal/config"
	"innerworld-backend/internal/embeddings"
	"innerworld-backend/internal/events"
	"innerworld-backend/internal/llm"
	"innerworld-backend/internal/memory"
	"innerworld-backend/internal/orchestrator"
	"innerworld-backend/internal/persona"
	"innerworld-backend/internal/resilience"
	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	orch, hub, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to wire orchestrator: %v", err)
	}

	router := newRouter(orch, hub)

	addr := ":" + getEnvOrDefault("PORT", "8080")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("server: listening on %s (environment=%s)", addr, cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: ListenAndServe failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: graceful shutdown failed: %v", err)
	}
}

// buildOrchestrator wires the Orchestrator and its event Hub from
// Config, choosing the in-memory or DynamoDB-backed repositories per
// Config.DynamoDB.InMemory and the OpenRouter or OpenAI LLM backend
// per Config.Backend(), both wrapped in the shared resilience tuning.
func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, *events.Hub, error) {
	retryCfg := llm.ResilienceConfigToRetryConfig(
		cfg.Resilience.MaxAttempts,
		cfg.Resilience.InitialDelaySeconds,
		cfg.Resilience.MaxDelaySeconds,
		cfg.Resilience.BackoffMultiplier,
	)

	var repos *storage.Repositories
	if cfg.DynamoDB.InMemory {
		repos = storage.NewInMemoryRepositories()
		log.Println("server: using in-memory repositories")
	} else {
		client, err := storage.NewDynamoDBClient(ctx, cfg.DynamoDB.Region)
		if err != nil {
			return nil, nil, err
		}
		resilient := storage.NewResilientDynamoDBClient(client, retryCfg)
		repos = storage.NewRepositories(resilient, cfg.DynamoDB)
		log.Printf("server: using DynamoDB repositories in region %s", cfg.DynamoDB.Region)
	}

	var baseClient llm.Client
	switch cfg.Backend() {
	case config.BackendOpenRouter:
		baseClient = llm.NewOpenRouterClientWithBaseURL(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL)
		log.Println("server: using OpenRouter LLM backend")
	default:
		baseClient = llm.NewOpenAIChatClient(cfg.OpenAI.APIKey)
		log.Println("server: using OpenAI LLM backend")
	}
	breaker := resilience.NewCircuitBreaker(cfg.Resilience.CircuitMaxFailures, time.Duration(cfg.Resilience.CircuitResetSeconds*float64(time.Second)))
	llmClient := llm.NewResilientClient(baseClient, retryCfg, breaker)

	var embeddingsClient memory.EmbeddingsClient
	if cfg.OpenAI.APIKey != "" {
		embeddingsClient = embeddings.NewOpenAIEmbeddingsClient(cfg.OpenAI.APIKey)
	}
	memoryStore := memory.New(repos.Memories, embeddingsClient)

	loader, err := persona.New(ctx, repos.PersonaConfig)
	if err != nil {
		return nil, nil, err
	}
	engine := persona.New(llmClient, memoryStore)

	hub := events.NewHub()
	registry := orchestrator.NewRegistry()
	orch := orchestrator.New(repos, memoryStore, loader, engine, hub, registry, cfg.Orchestrator)

	return orch, hub, nil
}

func newRouter(orch *orchestrator.Orchestrator, hub *events.Hub) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", handleHealthz)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", handleInitialize(orch))

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", handleGetSession(orch))
			r.Get("/messages", handleListMessages(orch))
			r.Post("/clarify", handleClarify(orch))
			r.Post("/resume", handleResume(orch))
			r.Post("/cancel", handleCancel(orch))
			r.Get("/events", handleEvents(hub))
		})
	})

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type initializeRequest struct {
	Problem string `json:"problem"`
}

func handleInitialize(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initializeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, types.NewError(types.ErrInvalidInput, "invalid request body", err))
			return
		}

		session, err := orch.Initialize(r.Context(), req.Problem)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, types.NewSessionSummary(session))
	}
}

func handleGetSession(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		session, err := orch.GetSession(r.Context(), sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewSessionSummary(session))
	}
}

func handleListMessages(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		messages, err := orch.ListMessages(r.Context(), sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		views := make([]types.MessageView, len(messages))
		for i := range messages {
			views[i] = types.NewMessageView(&messages[i])
		}
		writeJSON(w, http.StatusOK, views)
	}
}

type clarifyRequest struct {
	Response string `json:"response"`
}

func handleClarify(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		var req clarifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, types.NewError(types.ErrInvalidInput, "invalid request body", err))
			return
		}

		msg, err := orch.HandleUserClarification(r.Context(), sessionID, req.Response)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewMessageView(msg))
	}
}

func handleResume(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		session, err := orch.Resume(r.Context(), sessionID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewSessionSummary(session))
	}
}

func handleCancel(orch *orchestrator.Orchestrator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		if err := orch.Cancel(r.Context(), sessionID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleEvents(hub *events.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")
		hub.ServeSession(sessionID, w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("server: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if types.IsKind(err, types.ErrInvalidInput) {
		status = http.StatusBadRequest
	} else if types.IsKind(err, types.ErrNotFound) {
		status = http.StatusNotFound
	} else if types.IsKind(err, types.ErrInvalidState) {
		status = http.StatusConflict
	} else if types.IsKind(err, types.ErrTransientBackend) {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"innerworld-backend/internal/config"
	"innerworld-backend/internal/embeddings"
	sessionevents "innerworld-backend/internal/events"
	"innerworld-backend/internal/llm"
	"innerworld-backend/internal/memory"
	"innerworld-backend/internal/orchestrator"
	"innerworld-backend/internal/persona"
	"innerworld-backend/internal/resilience"
	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
)

// InitializeRequest is the API Gateway request body for starting a
// new session.
type InitializeRequest struct {
	Problem string `json:"problem"`
}

// Global variables for connection reuse across invocations, the same
// pattern cmd/conversation-handler uses.
var (
	cfg  *config.Config
	orch *orchestrator.Orchestrator
)

func init() {
	var err error
	cfg, err = config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	orch, err = buildOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to wire orchestrator: %v", err)
	}
}

func buildOrchestrator(ctx context.Context, cfg *config.Config) (*orchestrator.Orchestrator, error) {
	retryCfg := llm.ResilienceConfigToRetryConfig(
		cfg.Resilience.MaxAttempts,
		cfg.Resilience.InitialDelaySeconds,
		cfg.Resilience.MaxDelaySeconds,
		cfg.Resilience.BackoffMultiplier,
	)

	var repos *storage.Repositories
	if cfg.DynamoDB.InMemory {
		repos = storage.NewInMemoryRepositories()
	} else {
		client, err := storage.NewDynamoDBClient(ctx, cfg.DynamoDB.Region)
		if err != nil {
			return nil, err
		}
		resilient := storage.NewResilientDynamoDBClient(client, retryCfg)
		repos = storage.NewRepositories(resilient, cfg.DynamoDB)
	}

	var baseClient llm.Client
	switch cfg.Backend() {
	case config.BackendOpenRouter:
		baseClient = llm.NewOpenRouterClientWithBaseURL(cfg.OpenRouter.APIKey, cfg.OpenRouter.BaseURL)
	default:
		baseClient = llm.NewOpenAIChatClient(cfg.OpenAI.APIKey)
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
		return nil, err
	}
	engine := persona.New(llmClient, memoryStore)

	registry := orchestrator.NewRegistry()
	return orchestrator.New(repos, memoryStore, loader, engine, sessionevents.NoopBroadcaster{}, registry, cfg.Orchestrator), nil
}

// handleInitialize starts a new session from a free-form problem
// statement and returns its SessionSummary, the Lambda counterpart to
// POST /sessions on cmd/server. Event subscribers wishing to watch the
// session's progress connect to cmd/server's websocket endpoint or the
// equivalent API Gateway WebSocket integration separately; this
// handler's job ends once the session is created and its dispatch
// loop is launched.
func handleInitialize(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req InitializeRequest
	if err := json.Unmarshal([]byte(request.Body), &req); err != nil {
		log.Printf("Failed to parse request: %v", err)
		return events.APIGatewayProxyResponse{StatusCode: 400, Body: `{"error":"invalid request body"}`}, nil
	}

	session, err := orch.Initialize(ctx, req.Problem)
	if err != nil {
		return errorResponse(err), nil
	}

	body, err := json.Marshal(types.NewSessionSummary(session))
	if err != nil {
		return events.APIGatewayProxyResponse{StatusCode: 500, Body: `{"error":"failed to encode response"}`}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: 202,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}, nil
}

func errorResponse(err error) events.APIGatewayProxyResponse {
	status := 500
	if types.IsKind(err, types.ErrInvalidInput) {
		status = 400
	}
	body, _ := json.Marshal(map[string]string{"error": err.Error()})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func handleDirectInvocation(ctx context.Context, payload json.RawMessage) (interface{}, error) {
	var req InitializeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("invalid initialize request: %w", err)
	}

	session, err := orch.Initialize(ctx, req.Problem)
	if err != nil {
		return nil, err
	}
	return types.NewSessionSummary(session), nil
}

func main() {
	lambda.Start(func(ctx context.Context, event json.RawMessage) (interface{}, error) {
		var apiEvent events.APIGatewayProxyRequest
		if err := json.Unmarshal(event, &apiEvent); err == nil && apiEvent.RequestContext.RequestID != "" {
			return handleInitialize(ctx, apiEvent)
		}
		return handleDirectInvocation(ctx, event)
	})
}

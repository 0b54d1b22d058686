// Package config loads application configuration from environment
// variables, following the teacher's flat getEnvOrDefault/getEnvAsInt/
// getEnvAsBool convention.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds application configuration.
type Config struct {
	// Environment
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`

	// External APIs
	OpenRouter OpenRouterConfig `json:"openrouter"`
	OpenAI     OpenAIConfig     `json:"openai"`

	// Persistence
	DynamoDB DynamoDBConfig `json:"dynamodb"`

	// Orchestrator tunables (spec.md §6.5)
	Orchestrator OrchestratorConfig `json:"orchestrator"`

	// Resilience tuning shared by LLM and repository calls
	Resilience ResilienceConfig `json:"resilience"`
}

// OpenRouterConfig holds OpenRouter API configuration.
type OpenRouterConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
}

// OpenAIConfig holds OpenAI API configuration, used both for the
// alternate LLMClient backend and for the embeddings-assisted memory
// recall.
type OpenAIConfig struct {
	APIKey          string `json:"api_key"`
	Model           string `json:"model"`
	EmbeddingsModel string `json:"embeddings_model"`
}

// DynamoDBConfig holds the repository backend configuration. When
// InMemory is true (the default in every environment unless
// DYNAMODB_IN_MEMORY says otherwise), repositories run
// entirely in-process — useful for local runs and tests.
type DynamoDBConfig struct {
	InMemory            bool   `json:"in_memory"`
	Region              string `json:"region"`
	SessionsTable       string `json:"sessions_table"`
	MessagesTable       string `json:"messages_table"`
	MemoriesTable       string `json:"memories_table"`
	PersonaConfigsTable string `json:"persona_configs_table"`
}

// OrchestratorConfig holds the tunables enumerated in spec.md §6.5.
type OrchestratorConfig struct {
	MaxDepth                  int     `json:"max_depth"`
	StuckStreakLimit          int     `json:"stuck_streak_limit"`
	ConversationWindow        int     `json:"conversation_window"`
	RecentMemoriesWindow      int     `json:"recent_memories_window"`
	MaxMemoryContentTokens    int     `json:"max_memory_content_tokens"`
	MaxMemoryIdentifierTokens int     `json:"max_memory_identifier_tokens"`
	LLMTimeoutSeconds         int     `json:"llm_timeout_seconds"`
	AnswerRouteCharLimit      int     `json:"answer_route_char_limit"`
	CycleWindowTurns          int     `json:"cycle_window_turns"`
	CycleSimilarityRatio      float64 `json:"cycle_similarity_ratio"`
}

// ResilienceConfig tunes the retry/backoff and circuit-breaker
// behavior wrapped around LLM and repository calls.
type ResilienceConfig struct {
	MaxAttempts         int     `json:"max_attempts"`
	InitialDelaySeconds float64 `json:"initial_delay_seconds"`
	MaxDelaySeconds     float64 `json:"max_delay_seconds"`
	BackoffMultiplier   float64 `json:"backoff_multiplier"`
	CircuitMaxFailures  int     `json:"circuit_max_failures"`
	CircuitResetSeconds float64 `json:"circuit_reset_seconds"`
}

// LLMBackend selects which LLMClient implementation is wired up.
type LLMBackend string

const (
	BackendOpenRouter LLMBackend = "openrouter"
	BackendOpenAI     LLMBackend = "openai"
)

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Debug:       getEnvAsBool("DEBUG", false),

		OpenRouter: OpenRouterConfig{
			APIKey:  getEnvOrDefault("OPENROUTER_API_KEY", ""),
			BaseURL: getEnvOrDefault("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:   getEnvOrDefault("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
		},

		OpenAI: OpenAIConfig{
			APIKey:          getEnvOrDefault("OPENAI_API_KEY", ""),
			Model:           getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			EmbeddingsModel: getEnvOrDefault("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),
		},

		DynamoDB: DynamoDBConfig{
			InMemory:            getEnvAsBool("DYNAMODB_IN_MEMORY", true),
			Region:              getEnvOrDefault("AWS_REGION", "us-west-2"),
			SessionsTable:       getEnvOrDefault("SESSIONS_TABLE", "orchestrator-sessions"),
			MessagesTable:       getEnvOrDefault("MESSAGES_TABLE", "orchestrator-messages"),
			MemoriesTable:       getEnvOrDefault("MEMORIES_TABLE", "orchestrator-memories"),
			PersonaConfigsTable: getEnvOrDefault("PERSONA_CONFIGS_TABLE", "orchestrator-persona-configs"),
		},

		Orchestrator: OrchestratorConfig{
			MaxDepth:                  getEnvAsInt("MAX_DEPTH", 50),
			StuckStreakLimit:          getEnvAsInt("STUCK_STREAK_LIMIT", 5),
			ConversationWindow:        getEnvAsInt("CONVERSATION_WINDOW", 20),
			RecentMemoriesWindow:      getEnvAsInt("RECENT_MEMORIES_WINDOW", 10),
			MaxMemoryContentTokens:    getEnvAsInt("MAX_MEMORY_CONTENT_TOKENS", 2000),
			MaxMemoryIdentifierTokens: getEnvAsInt("MAX_MEMORY_IDENTIFIER_TOKENS", 10),
			LLMTimeoutSeconds:         getEnvAsInt("LLM_TIMEOUT_SECONDS", 120),
			AnswerRouteCharLimit:      getEnvAsInt("ANSWER_ROUTE_CHAR_LIMIT", 100),
			CycleWindowTurns:          getEnvAsInt("CYCLE_WINDOW_TURNS", 3),
			CycleSimilarityRatio:      getEnvAsFloat("CYCLE_SIMILARITY_RATIO", 0.9),
		},

		Resilience: ResilienceConfig{
			MaxAttempts:         getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			InitialDelaySeconds: getEnvAsFloat("RETRY_INITIAL_DELAY_SECONDS", 1),
			MaxDelaySeconds:     getEnvAsFloat("RETRY_MAX_DELAY_SECONDS", 30),
			BackoffMultiplier:   getEnvAsFloat("RETRY_BACKOFF_MULTIPLIER", 2),
			CircuitMaxFailures:  getEnvAsInt("CIRCUIT_MAX_FAILURES", 5),
			CircuitResetSeconds: getEnvAsFloat("CIRCUIT_RESET_SECONDS", 30),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Backend reports which LLMClient implementation should be wired,
// preferring OpenRouter (the teacher's default) when both are
// configured.
func (c *Config) Backend() LLMBackend {
	if c.OpenRouter.APIKey != "" {
		return BackendOpenRouter
	}
	return BackendOpenAI
}

// validateConfig ensures configuration is internally consistent.
func validateConfig(config *Config) error {
	var errs []string

	if config.Environment == "production" {
		if config.OpenRouter.APIKey == "" && config.OpenAI.APIKey == "" {
			errs = append(errs, "one of OPENROUTER_API_KEY or OPENAI_API_KEY is required in production")
		}
	}

	if config.Orchestrator.MaxDepth <= 0 {
		errs = append(errs, "MAX_DEPTH must be a positive integer")
	}
	if config.Orchestrator.StuckStreakLimit <= 0 {
		errs = append(errs, "STUCK_STREAK_LIMIT must be a positive integer")
	}
	if config.Orchestrator.MaxMemoryContentTokens <= 0 {
		errs = append(errs, "MAX_MEMORY_CONTENT_TOKENS must be a positive integer")
	}
	if config.Orchestrator.MaxMemoryIdentifierTokens <= 0 {
		errs = append(errs, "MAX_MEMORY_IDENTIFIER_TOKENS must be a positive integer")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n%s", strings.Join(errs, "\n"))
	}

	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Utility functions for environment variable parsing

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

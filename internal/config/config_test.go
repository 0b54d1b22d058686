package config

import (
	"os"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected Environment to be 'development', got '%s'", cfg.Environment)
	}

	if cfg.Debug != false {
		t.Errorf("Expected Debug to be false, got %v", cfg.Debug)
	}

	if cfg.OpenRouter.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("Expected OpenRouter BaseURL to be 'https://openrouter.ai/api/v1', got '%s'", cfg.OpenRouter.BaseURL)
	}

	if cfg.Orchestrator.MaxDepth != 50 {
		t.Errorf("Expected MaxDepth to be 50, got %d", cfg.Orchestrator.MaxDepth)
	}

	if cfg.Orchestrator.StuckStreakLimit != 5 {
		t.Errorf("Expected StuckStreakLimit to be 5, got %d", cfg.Orchestrator.StuckStreakLimit)
	}

	if cfg.Orchestrator.ConversationWindow != 20 {
		t.Errorf("Expected ConversationWindow to be 20, got %d", cfg.Orchestrator.ConversationWindow)
	}

	if cfg.Orchestrator.MaxMemoryContentTokens != 2000 {
		t.Errorf("Expected MaxMemoryContentTokens to be 2000, got %d", cfg.Orchestrator.MaxMemoryContentTokens)
	}

	if !cfg.DynamoDB.InMemory {
		t.Error("Expected DynamoDB.InMemory to default to true")
	}
}

func TestLoadConfigWithEnvironmentVariables(t *testing.T) {
	_ = os.Setenv("ENVIRONMENT", "test")
	_ = os.Setenv("DEBUG", "true")
	_ = os.Setenv("OPENROUTER_API_KEY", "test-key")
	_ = os.Setenv("MAX_DEPTH", "75")
	_ = os.Setenv("CYCLE_SIMILARITY_RATIO", "0.95")

	defer func() {
		_ = os.Unsetenv("ENVIRONMENT")
		_ = os.Unsetenv("DEBUG")
		_ = os.Unsetenv("OPENROUTER_API_KEY")
		_ = os.Unsetenv("MAX_DEPTH")
		_ = os.Unsetenv("CYCLE_SIMILARITY_RATIO")
	}()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.Debug != true {
		t.Errorf("Expected Debug to be true, got %v", cfg.Debug)
	}

	if cfg.OpenRouter.APIKey != "test-key" {
		t.Errorf("Expected OpenRouter APIKey to be 'test-key', got '%s'", cfg.OpenRouter.APIKey)
	}

	if cfg.Orchestrator.MaxDepth != 75 {
		t.Errorf("Expected MaxDepth to be 75, got %d", cfg.Orchestrator.MaxDepth)
	}

	if cfg.Orchestrator.CycleSimilarityRatio != 0.95 {
		t.Errorf("Expected CycleSimilarityRatio to be 0.95, got %v", cfg.Orchestrator.CycleSimilarityRatio)
	}

	if cfg.Backend() != BackendOpenRouter {
		t.Errorf("Expected Backend() to be openrouter when OPENROUTER_API_KEY is set, got %s", cfg.Backend())
	}
}

func TestValidateConfigProduction(t *testing.T) {
	cfg := &Config{
		Environment:  "production",
		Orchestrator: OrchestratorConfig{MaxDepth: 50, StuckStreakLimit: 5, MaxMemoryContentTokens: 2000, MaxMemoryIdentifierTokens: 10},
	}

	err := validateConfig(cfg)
	if err == nil {
		t.Error("Expected validation to fail for production without any API key")
	}
}

func TestValidateConfigDevelopment(t *testing.T) {
	cfg := &Config{
		Environment:  "development",
		Orchestrator: OrchestratorConfig{MaxDepth: 50, StuckStreakLimit: 5, MaxMemoryContentTokens: 2000, MaxMemoryIdentifierTokens: 10},
	}

	err := validateConfig(cfg)
	if err != nil {
		t.Errorf("Expected development validation to pass without API keys, got error: %v", err)
	}
}

func TestValidateConfigInvalidTunables(t *testing.T) {
	cfg := &Config{
		Environment:  "development",
		Orchestrator: OrchestratorConfig{MaxDepth: 0, StuckStreakLimit: -1, MaxMemoryContentTokens: 0, MaxMemoryIdentifierTokens: 0},
	}

	err := validateConfig(cfg)
	if err == nil {
		t.Error("Expected validation to fail for non-positive orchestrator tunables")
	}
}

func TestConfigMethods(t *testing.T) {
	prodConfig := &Config{Environment: "production"}
	devConfig := &Config{Environment: "development"}

	if !prodConfig.IsProduction() {
		t.Error("Expected IsProduction() to return true for production config")
	}

	if prodConfig.IsDevelopment() {
		t.Error("Expected IsDevelopment() to return false for production config")
	}

	if devConfig.IsProduction() {
		t.Error("Expected IsProduction() to return false for development config")
	}

	if !devConfig.IsDevelopment() {
		t.Error("Expected IsDevelopment() to return true for development config")
	}
}

func TestBackendSelection(t *testing.T) {
	withOpenRouter := &Config{OpenRouter: OpenRouterConfig{APIKey: "key"}}
	if withOpenRouter.Backend() != BackendOpenRouter {
		t.Errorf("Expected openrouter backend, got %s", withOpenRouter.Backend())
	}

	withOpenAI := &Config{OpenAI: OpenAIConfig{APIKey: "key"}}
	if withOpenAI.Backend() != BackendOpenAI {
		t.Errorf("Expected openai backend, got %s", withOpenAI.Backend())
	}
}

func TestUtilityFunctions(t *testing.T) {
	_ = os.Setenv("TEST_VAR", "test_value")
	defer func() { _ = os.Unsetenv("TEST_VAR") }()

	result := getEnvOrDefault("TEST_VAR", "default")
	if result != "test_value" {
		t.Errorf("Expected 'test_value', got '%s'", result)
	}

	result = getEnvOrDefault("NON_EXISTENT_VAR", "default")
	if result != "default" {
		t.Errorf("Expected 'default', got '%s'", result)
	}

	_ = os.Setenv("TEST_INT", "42")
	defer func() { _ = os.Unsetenv("TEST_INT") }()

	intResult := getEnvAsInt("TEST_INT", 0)
	if intResult != 42 {
		t.Errorf("Expected 42, got %d", intResult)
	}

	intResult = getEnvAsInt("NON_EXISTENT_INT", 100)
	if intResult != 100 {
		t.Errorf("Expected 100, got %d", intResult)
	}

	_ = os.Setenv("TEST_BOOL", "true")
	defer func() { _ = os.Unsetenv("TEST_BOOL") }()

	boolResult := getEnvAsBool("TEST_BOOL", false)
	if boolResult != true {
		t.Errorf("Expected true, got %v", boolResult)
	}

	boolResult = getEnvAsBool("NON_EXISTENT_BOOL", false)
	if boolResult != false {
		t.Errorf("Expected false, got %v", boolResult)
	}

	_ = os.Setenv("TEST_FLOAT", "0.75")
	defer func() { _ = os.Unsetenv("TEST_FLOAT") }()

	floatResult := getEnvAsFloat("TEST_FLOAT", 0)
	if floatResult != 0.75 {
		t.Errorf("Expected 0.75, got %v", floatResult)
	}

	floatResult = getEnvAsFloat("NON_EXISTENT_FLOAT", 0.5)
	if floatResult != 0.5 {
		t.Errorf("Expected 0.5, got %v", floatResult)
	}
}

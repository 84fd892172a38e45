package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// OpenAI-compatible provider (OpenAI, DashScope compatible mode, ...).
	LLMAPIKey      string `envconfig:"LLM_API_KEY"`
	LLMBaseURL     string `envconfig:"LLM_BASE_URL"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"qwen-plus"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// Retrieval and composition knobs.
	TopK          int     `envconfig:"TOP_K" default:"5"`
	MinSimilarity float64 `envconfig:"MIN_SIMILARITY" default:"0.35"`
	PromptBudget  int     `envconfig:"PROMPT_BUDGET" default:"1600"`

	// Retrieval and composition are local index operations; generation may
	// legitimately run for tens of seconds.
	RetrievalTimeout  time.Duration `envconfig:"RETRIEVAL_TIMEOUT" default:"5s"`
	GenerationTimeout time.Duration `envconfig:"GENERATION_TIMEOUT" default:"120s"`

	// Static bearer token for the API. Empty disables auth (local dev).
	APIToken string `envconfig:"API_TOKEN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("TUTOR", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasLLM() bool {
	return c.LLMAPIKey != ""
}

func (c *Config) HasAuth() bool {
	return c.APIToken != ""
}

// Package openai wraps the OpenAI-compatible chat and embedding APIs used by
// the query engine. DashScope's compatible mode works through the same client
// by pointing BaseURL at its endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for answer generation
	DefaultChatModel = "qwen-plus"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrWrongDimensions is returned when embedding has wrong dimensions
	ErrWrongDimensions = errors.New("embedding has wrong dimensions, expected 1536")
	// ErrNoAPIKey is returned when the LLM API key is not set
	ErrNoAPIKey = errors.New("TUTOR_LLM_API_KEY environment variable not set")
	// ErrEmptyCompletion is returned when the model yields no choices
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// ChatAPI defines the interface for chat completion, both synchronous and
// streamed.
type ChatAPI interface {
	CreateCompletion(ctx context.Context, messages []Message) (string, error)
	CreateCompletionStream(ctx context.Context, messages []Message) (TokenStream, error)
}

// Message is a single chat turn sent to the model.
type Message struct {
	Role    string
	Content string
}

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TokenStream yields answer fragments as the model produces them. Recv
// returns io.EOF once the model signals completion. Close releases the
// underlying connection and is safe to call more than once.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// Client wraps the OpenAI-compatible API client
type Client struct {
	embeddings EmbeddingAPI
	chat       ChatAPI
	dimensions int
}

type apiAdapter struct {
	client         *openai.Client
	embeddingModel openai.EmbeddingModel
	chatModel      string
}

func newAPIAdapter(cfg Config) *apiAdapter {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}

	return &apiAdapter{
		client:         openai.NewClientWithConfig(clientCfg),
		embeddingModel: embeddingModel,
		chatModel:      chatModel,
	}
}

// CreateEmbeddings calls the embeddings API for a single input text
func (a *apiAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: a.embeddingModel,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

func toChatMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// CreateCompletion requests a full completion in one call
func (a *apiAdapter) CreateCompletion(ctx context.Context, messages []Message) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.chatModel,
		Messages: toChatMessages(messages),
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateCompletionStream opens a streamed completion
func (a *apiAdapter) CreateCompletionStream(ctx context.Context, messages []Message) (TokenStream, error) {
	stream, err := a.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    a.chatModel,
		Messages: toChatMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return nil, err
	}

	return &chatTokenStream{stream: stream}, nil
}

// chatTokenStream adapts *openai.ChatCompletionStream to TokenStream,
// skipping keep-alive chunks that carry no delta.
type chatTokenStream struct {
	stream *openai.ChatCompletionStream
	closed bool
}

func (s *chatTokenStream) Recv() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" && resp.Choices[0].FinishReason == "" {
			continue
		}
		return delta, nil
	}
}

func (s *chatTokenStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.stream.Close()
}

type Config struct {
	APIKey              string
	BaseURL             string
	ChatModel           string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
}

// EmbeddingModelFromString maps a configured model name onto the provider's
// model type, falling back to the default when unset.
func EmbeddingModelFromString(name string) openai.EmbeddingModel {
	if name == "" {
		return DefaultEmbeddingModel
	}
	return openai.EmbeddingModel(name)
}

// NewClient creates a new client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	adapter := newAPIAdapter(cfg)
	return &Client{
		embeddings: adapter,
		chat:       adapter,
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new client using the TUTOR_LLM_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("TUTOR_LLM_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// GenerateEmbedding generates an embedding for the given text
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	embedding, err := c.embeddings.CreateEmbeddings(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}

	expected := c.dimensions
	if expected <= 0 {
		expected = DefaultEmbeddingDimensions
	}
	if len(embedding) != expected {
		return nil, ErrWrongDimensions
	}

	return embedding, nil
}

// Complete runs a full synchronous completion for the given prompt.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	answer, err := c.chat.CreateCompletion(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}

	return answer, nil
}

// StreamCompletion opens a streamed completion for the given prompt. The
// returned stream yields fragments until io.EOF; callers own Close.
func (c *Client) StreamCompletion(ctx context.Context, prompt string) (TokenStream, error) {
	if prompt == "" {
		return nil, ErrEmptyText
	}

	stream, err := c.chat.CreateCompletionStream(ctx, []Message{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return nil, fmt.Errorf("failed to open completion stream: %w", err)
	}

	return stream, nil
}

// DrainStream reads a token stream to completion and concatenates the
// fragments. Used by callers that need a full answer from a streaming-only
// provider.
func DrainStream(stream TokenStream) (string, error) {
	defer stream.Close()

	var out []byte
	for {
		fragment, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, fragment...)
	}
}

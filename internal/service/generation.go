package service

import (
	"context"
	"errors"
	"io"

	"github.com/lumistudy/tutorai/internal/domain"
)

// TokenStream yields answer fragments from the model. Recv returns io.EOF
// once generation completes normally.
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// GenerationClientInterface defines the interface for the LLM provider
type GenerationClientInterface interface {
	Complete(ctx context.Context, prompt string) (string, error)
	StreamCompletion(ctx context.Context, prompt string) (TokenStream, error)
}

// Generator adapts the provider's streaming API to the failure taxonomy the
// session controller needs: a failure before the first fragment is a start
// failure, anything after is a mid-stream failure.
type Generator struct {
	client GenerationClientInterface
}

func NewGenerator(client GenerationClientInterface) *Generator {
	return &Generator{client: client}
}

// Complete runs a full synchronous generation. Failures are reported as
// start failures since no fragment was ever delivered.
func (g *Generator) Complete(ctx context.Context, prompt string) (string, error) {
	answer, err := g.client.Complete(ctx, prompt)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeGenerationStart, "generation failed", err)
	}
	if answer == "" {
		return "", domain.ErrEmptyAnswer
	}
	return answer, nil
}

// Stream opens a streamed generation. The provider call itself failing is a
// start failure; so is the stream erroring before it yields anything.
func (g *Generator) Stream(ctx context.Context, prompt string) (*GenerationStream, error) {
	stream, err := g.client.StreamCompletion(ctx, prompt)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationStart, "generation failed to start", err)
	}
	return &GenerationStream{stream: stream}, nil
}

// GenerationStream wraps a provider token stream, counting delivered
// fragments to classify failures. Not safe for concurrent use.
type GenerationStream struct {
	stream  TokenStream
	yielded int
}

// Next returns the next non-empty fragment. It returns io.EOF when the model
// finishes, ErrGenerationStart if the stream failed before producing
// anything, and ErrGenerationStream on later failures.
func (s *GenerationStream) Next() (string, error) {
	for {
		fragment, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			if s.yielded == 0 {
				return "", domain.NewDomainErrorWithCause(domain.ErrCodeGenerationStart, "generation failed to start", err)
			}
			return "", domain.NewDomainErrorWithCause(domain.ErrCodeGenerationStream, "generation failed mid-stream", err)
		}
		if fragment == "" {
			continue
		}
		s.yielded++
		return fragment, nil
	}
}

// Yielded reports how many fragments Next has returned.
func (s *GenerationStream) Yielded() int {
	return s.yielded
}

// Close releases the underlying stream.
func (s *GenerationStream) Close() error {
	return s.stream.Close()
}

package service

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumistudy/tutorai/internal/domain"
	"github.com/lumistudy/tutorai/internal/telemetry"
)

// QuestionLogRepositoryInterface defines the repository interface for question analytics
type QuestionLogRepositoryInterface interface {
	Create(ctx context.Context, log *domain.QuestionLog) error
}

// AskInput represents a question from a student
type AskInput struct {
	Question  string
	CourseID  int64
	History   []domain.Turn
	SessionID string
}

// AskOutput represents a complete synchronous answer
type AskOutput struct {
	Answer     string
	Sources    []domain.Source
	Confidence float64
	HasContext bool
}

// QueryConfig controls session behavior.
type QueryConfig struct {
	GenerationTimeout time.Duration
}

// QueryService runs the full question pipeline: retrieve, compose, generate,
// attribute, log. It serves both the synchronous and the streaming paths.
type QueryService struct {
	retriever  *Retriever
	composer   *PromptComposer
	generator  *Generator
	attributor *Attributor
	logs       QuestionLogRepositoryInterface
	cfg        QueryConfig
}

// NewQueryService creates a new QueryService. logs may be nil to disable
// question analytics.
func NewQueryService(
	retriever *Retriever,
	composer *PromptComposer,
	generator *Generator,
	attributor *Attributor,
	logs QuestionLogRepositoryInterface,
	cfg QueryConfig,
) *QueryService {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 120 * time.Second
	}
	return &QueryService{
		retriever:  retriever,
		composer:   composer,
		generator:  generator,
		attributor: attributor,
		logs:       logs,
		cfg:        cfg,
	}
}

// prepare runs retrieval and composition. Retrieval being unavailable is not
// an error here: the question proceeds without context.
func (s *QueryService) prepare(ctx context.Context, input AskInput) (*domain.PromptContext, error) {
	results, err := s.retriever.Retrieve(ctx, input.Question, input.CourseID)
	if err != nil {
		if !errors.Is(err, domain.ErrRetrievalUnavailable) {
			return nil, err
		}
		telemetry.CaptureError(ctx, err)
		log.Printf("retrieval unavailable, answering without context: %v", err)
		results = nil
	}

	return s.composer.Compose(input.Question, results, input.History), nil
}

// Ask answers a question synchronously.
func (s *QueryService) Ask(ctx context.Context, input AskInput) (*AskOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "QueryService.Ask", telemetry.SpanAttributes{
		CourseID:  input.CourseID,
		SessionID: input.SessionID,
		Operation: "ask",
	})
	defer span.End()

	started := time.Now()

	pc, err := s.prepare(ctx, input)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	answer, err := s.generator.Complete(genCtx, pc.Prompt)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	sources := s.attributor.Attribute(answer, pc.Accepted)
	out := &AskOutput{
		Answer:     answer,
		Sources:    sources,
		Confidence: confidence(pc.Accepted),
		HasContext: pc.HasContext,
	}

	s.logQuestion(ctx, input, pc, answer, time.Since(started))

	return out, nil
}

// Stream answers a question as a sequence of events on the returned channel.
// The order is fixed: one metadata event, zero or more content events, then
// exactly one done or error event. The channel is closed when the session
// ends. Cancelling ctx stops the session; nothing more is sent.
func (s *QueryService) Stream(ctx context.Context, input AskInput) <-chan domain.StreamEvent {
	events := make(chan domain.StreamEvent, 16)
	go s.stream(ctx, input, events)
	return events
}

func (s *QueryService) stream(ctx context.Context, input AskInput, events chan<- domain.StreamEvent) {
	defer close(events)

	ctx, span := telemetry.StartSpan(ctx, "QueryService.Stream", telemetry.SpanAttributes{
		CourseID:  input.CourseID,
		SessionID: input.SessionID,
		Operation: "ask_stream",
	})
	defer span.End()

	started := time.Now()

	if strings.TrimSpace(input.Question) == "" {
		s.send(ctx, events, domain.ErrorEvent{Message: "question is required"})
		return
	}

	pc, err := s.prepare(ctx, input)
	if err != nil {
		span.SetError(err)
		s.send(ctx, events, domain.ErrorEvent{Message: "failed to process question"})
		return
	}

	if !s.send(ctx, events, domain.MetadataEvent{Sources: pc.Sources(), HasContext: pc.HasContext}) {
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
	defer cancel()

	var answer strings.Builder
	delivered := false

	streamErr := func() error {
		stream, err := s.generator.Stream(genCtx, pc.Prompt)
		if err != nil {
			return err
		}
		defer stream.Close()

		for {
			fragment, err := stream.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if !s.send(ctx, events, domain.ContentEvent{Text: fragment}) {
				return ctx.Err()
			}
			delivered = true
			answer.WriteString(fragment)
		}
	}()

	if streamErr != nil {
		if ctx.Err() != nil {
			// Client went away; there is nobody left to tell.
			return
		}
		span.SetError(streamErr)

		if delivered {
			// Content already reached the client, so a silent retry would
			// splice two answers together. Surface the failure instead.
			s.send(ctx, events, domain.ErrorEvent{Message: "answer generation failed"})
			return
		}

		// The streaming attempt may have spent the whole generation timeout
		// (a model that stalls before its first fragment), so the fallback
		// needs a fresh deadline of its own.
		fbCtx, fbCancel := context.WithTimeout(ctx, s.cfg.GenerationTimeout)
		defer fbCancel()

		fallback, err := s.generator.Complete(fbCtx, pc.Prompt)
		if err != nil {
			s.send(ctx, events, domain.ErrorEvent{Message: "answer generation failed"})
			return
		}
		if !s.send(ctx, events, domain.ContentEvent{Text: fallback}) {
			return
		}
		answer.Reset()
		answer.WriteString(fallback)
	}

	if !s.send(ctx, events, domain.DoneEvent{}) {
		return
	}

	s.logQuestion(ctx, input, pc, answer.String(), time.Since(started))
}

func (s *QueryService) send(ctx context.Context, events chan<- domain.StreamEvent, event domain.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

// logQuestion records the answered question for analytics. Failures are
// logged and swallowed; analytics must never break an answer.
func (s *QueryService) logQuestion(ctx context.Context, input AskInput, pc *domain.PromptContext, answer string, duration time.Duration) {
	if s.logs == nil {
		return
	}

	entry := &domain.QuestionLog{
		ID:          uuid.NewString(),
		CourseID:    input.CourseID,
		Question:    input.Question,
		AnswerChars: len(answer),
		HasContext:  pc.HasContext,
		Sources:     s.attributor.Attribute(answer, pc.Accepted),
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		log.Printf("failed to log question: %v", err)
	}
}

// confidence is the mean similarity of the chunks that made it into the
// prompt. No context means no grounding, so confidence is zero.
func confidence(accepted []domain.RetrievalResult) float64 {
	if len(accepted) == 0 {
		return 0
	}
	var sum float64
	for _, result := range accepted {
		sum += result.Similarity
	}
	return sum / float64(len(accepted))
}

package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pithecene-io/studio/adapter"
	"github.com/pithecene-io/studio/archive"
	"github.com/pithecene-io/studio/backend"
	"github.com/pithecene-io/studio/log"
	"github.com/pithecene-io/studio/store"
	"github.com/pithecene-io/studio/stream"
	"github.com/pithecene-io/studio/types"
)

var (
	// ErrEmptyMessage is returned by Send for empty or whitespace-only input.
	ErrEmptyMessage = errors.New("chat: message is empty")
	// ErrStreaming is returned by Send while a reply is still streaming.
	ErrStreaming = errors.New("chat: a reply is already streaming")
)

// SessionConfig configures a Session.
type SessionConfig struct {
	// Client is the backend client (required).
	Client *backend.Client
	// Driver drives the stream. Defaults to a driver over Client's HTTP client.
	Driver *stream.Driver
	// State is the observable conversation. Defaults to a fresh conversation.
	State *store.Store[types.ConversationState]
	// Recorder archives completed turns (optional).
	Recorder archive.Recorder
	// Notifier publishes completion events (optional).
	Notifier *adapter.Notifier
	// Logger (optional).
	Logger *log.Logger
}

// Session sends chat turns and applies the streamed reply to its state.
// At most one turn streams at a time.
type Session struct {
	client   *backend.Client
	driver   *stream.Driver
	state    *store.Store[types.ConversationState]
	recorder archive.Recorder
	notifier *adapter.Notifier
	logger   *log.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewSession creates a session.
func NewSession(cfg SessionConfig) (*Session, error) {
	if cfg.Client == nil {
		return nil, errors.New("chat: backend client is required")
	}
	driver := cfg.Driver
	if driver == nil {
		driver = stream.NewDriver(
			stream.WithHTTPClient(cfg.Client.HTTPClient()),
			stream.WithLogger(cfg.Logger),
		)
	}
	state := cfg.State
	if state == nil {
		state = store.New(types.NewConversation(""))
	}
	return &Session{
		client:   cfg.Client,
		driver:   driver,
		state:    state,
		recorder: cfg.Recorder,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// State returns the observable conversation.
func (s *Session) State() *store.Store[types.ConversationState] {
	return s.state
}

// Reset clears the transcript.
func (s *Session) Reset() {
	s.state.Update(Reset)
}

// SetModel sets the model for subsequent turns.
func (s *Session) SetModel(model string) {
	s.state.Update(func(c types.ConversationState) types.ConversationState {
		return SetModel(c, model)
	})
}

// SetSystemPrompt sets the system prompt for subsequent turns.
func (s *Session) SetSystemPrompt(prompt string) {
	s.state.Update(func(c types.ConversationState) types.ConversationState {
		return SetSystemPrompt(c, prompt)
	})
}

// Send submits content and streams the assistant reply into the state.
//
// The returned error covers only failures before the stream opens; how
// the stream ended is reported by the Result. A failed stream keeps the
// partial reply. Nothing is retried.
func (s *Session) Send(ctx context.Context, content string) (stream.Result, error) {
	if strings.TrimSpace(content) == "" {
		return stream.Result{}, ErrEmptyMessage
	}
	if !s.mu.TryLock() {
		return stream.Result{}, ErrStreaming
	}
	defer s.mu.Unlock()

	current := s.state.Get()
	if current.Streaming {
		return stream.Result{}, ErrStreaming
	}
	req, err := s.client.ChatStreamRequest(ctx, Request(current, content))
	if err != nil {
		return stream.Result{}, fmt.Errorf("chat: build request: %w", err)
	}

	s.state.Update(func(c types.ConversationState) types.ConversationState {
		next, _ := Submit(c, content)
		return next
	})

	logger := s.logger.With("stream_id", current.SessionID)
	logger.Info("chat turn started", map[string]any{"model": current.Model})

	res := s.driver.Drive(ctx, req, stream.SinkFuncs{
		Payload: func(delta string) {
			s.state.Update(func(c types.ConversationState) types.ConversationState {
				return AppendDelta(c, delta)
			})
		},
		Error: func(err error) {
			logger.Warn("chat stream failed", map[string]any{"error": err.Error()})
		},
		Done: func(stream.Result) {
			s.state.Update(Finish)
		},
	})

	logger.Info("chat turn finished", map[string]any{
		"outcome":  res.Outcome.String(),
		"payloads": res.Payloads,
	})
	s.complete(ctx, current, content, res)
	return res, nil
}

// complete archives the turn and publishes its completion event.
func (s *Session) complete(ctx context.Context, before types.ConversationState, content string, res stream.Result) {
	after := s.state.Get()
	reply, _ := after.Last()

	if s.recorder != nil {
		rec := archive.TurnRecord{
			SessionID:    before.SessionID,
			Model:        before.Model,
			SystemPrompt: before.SystemPrompt,
			User:         content,
			Assistant:    reply.Content,
			Outcome:      res.Outcome.String(),
			Payloads:     res.Payloads,
			DurationMs:   res.Duration.Milliseconds(),
			CompletedAt:  s.now(),
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if err := s.recorder.RecordTurn(context.WithoutCancel(ctx), rec); err != nil {
			s.logger.Warn("chat turn archive failed", map[string]any{
				"stream_id": before.SessionID,
				"error":     err.Error(),
			})
		}
	}
	s.notifier.Notify(ctx, adapter.FeatureChat, before.SessionID, res)
}

// Package chat implements the assistant widget's conversation: a transcript,
// an initialization step gated on the credential, and one streaming
// exchange at a time against a completion Provider.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"valles-rodes/internal/metrics"
	"valles-rodes/internal/models"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateIdle
	StateAwaitingResponse
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateIdle:
		return "idle"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateUnavailable:
		return "unavailable"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Submission errors. None of them touch the transcript.
var (
	ErrNotOpen      = errors.New("chat: session not opened")
	ErrUnavailable  = errors.New("chat: assistant unavailable")
	ErrBusy         = errors.New("chat: a response is already pending")
	ErrEmptyMessage = errors.New("chat: message is empty")
)

// Rejected reports whether err means a submission was refused before
// anything was appended to the transcript.
func Rejected(err error) bool {
	return errors.Is(err, ErrNotOpen) || errors.Is(err, ErrUnavailable) ||
		errors.Is(err, ErrBusy) || errors.Is(err, ErrEmptyMessage)
}

// Config is fixed at session construction. A nil Credential means the
// assistant is not configured and the session opens as unavailable.
type Config struct {
	Credential *Credential
	Persona    models.ChatMessage
	Logger     *zap.Logger
}

type EventKind int

const (
	// EventState carries a full view after a state transition.
	EventState EventKind = iota
	// EventTrailing carries the replaced trailing message while streaming.
	EventTrailing
)

type Event struct {
	Kind   EventKind
	View   models.ChatSessionView
	Update models.TranscriptUpdate
}

// Listener is invoked with the session lock held, in transition order. It
// must not call back into the session.
type Listener func(Event)

type Session struct {
	mu         sync.Mutex
	cfg        Config
	provider   Provider
	logger     *zap.Logger
	state      State
	transcript Transcript
	errMsg     string
	listener   Listener
}

func NewSession(cfg Config, provider Provider) *Session {
	if cfg.Persona.Content == "" {
		cfg.Persona = DefaultPersona
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:      cfg,
		provider: provider,
		logger:   logger,
		state:    StateUninitialized,
	}
}

// OnChange registers the listener. Set it before Open.
func (s *Session) OnChange(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = l
}

// Open runs initialization on the first call and is a no-op afterwards.
func (s *Session) Open() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return s.state
	}
	s.state = StateInitializing

	if !s.credentialed() {
		s.logger.Error("chat assistant credential not configured")
		s.errMsg = UnavailableError
		s.transcript.Append(models.ChatMessage{Role: models.RoleAssistant, Content: UnavailableMessage})
		s.state = StateUnavailable
	} else {
		s.transcript.Append(models.ChatMessage{Role: models.RoleAssistant, Content: WelcomeMessage})
		s.state = StateIdle
	}

	metrics.ChatSessionsTotal.WithLabelValues(s.state.String()).Inc()
	s.emitState()
	return s.state
}

func (s *Session) credentialed() bool {
	return s.cfg.Credential != nil && s.cfg.Credential.APIKey != "" && s.provider != nil
}

// Exchange is one accepted user message whose reply has not been streamed yet.
type Exchange struct {
	session  *Session
	outbound []models.ChatMessage
}

// Submit accepts a user message: it is appended right away together with an
// empty assistant placeholder, and the session waits for the reply. The
// returned Exchange must be Run to resolve it.
func (s *Session) Submit(text string) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUninitialized, StateInitializing:
		return nil, ErrNotOpen
	case StateUnavailable:
		return nil, ErrUnavailable
	case StateAwaitingResponse:
		return nil, ErrBusy
	}
	if !s.credentialed() {
		return nil, ErrUnavailable
	}

	s.transcript.Append(models.ChatMessage{Role: models.RoleUser, Content: text})

	outbound := make([]models.ChatMessage, 0, s.transcript.Len()+1)
	outbound = append(outbound, s.cfg.Persona)
	outbound = append(outbound, s.transcript.Messages()...)

	s.transcript.Append(models.ChatMessage{Role: models.RoleAssistant})
	s.state = StateAwaitingResponse
	s.emitState()

	return &Exchange{session: s, outbound: outbound}, nil
}

// Outbound is the request payload: persona first, then the conversation up
// to and including the new user message.
func (e *Exchange) Outbound() []models.ChatMessage {
	out := make([]models.ChatMessage, len(e.outbound))
	copy(out, e.outbound)
	return out
}

// Run streams the reply into the trailing transcript message. It returns
// when the stream ends or fails; either way the session is idle again. A
// failure is also returned so callers can record it.
func (e *Exchange) Run(ctx context.Context) error {
	s := e.session
	err := e.stream(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Error("chat exchange failed", zap.Error(err))
		s.transcript.ReplaceLast(models.ChatMessage{Role: models.RoleAssistant, Content: ExchangeApology})
		metrics.ChatExchangesTotal.WithLabelValues("error").Inc()
	} else {
		metrics.ChatExchangesTotal.WithLabelValues("ok").Inc()
	}
	s.state = StateIdle
	s.emitState()
	return err
}

func (e *Exchange) stream(ctx context.Context) error {
	s := e.session

	st, err := s.provider.Stream(ctx, *s.cfg.Credential, e.outbound)
	if err != nil {
		return fmt.Errorf("open completion stream: %w", err)
	}
	defer st.Close()

	var acc strings.Builder
	for {
		delta, err := st.Next()
		if errors.Is(err, ErrEndOfStream) {
			return nil
		}
		var malformed *MalformedFragmentError
		if errors.As(err, &malformed) {
			s.logger.Warn("skipping malformed stream fragment", zap.Error(err))
			metrics.ChatFragmentsSkipped.Inc()
			continue
		}
		if err != nil {
			return fmt.Errorf("read completion stream: %w", err)
		}
		if delta == "" {
			continue
		}

		acc.WriteString(delta)
		s.replaceTrailing(acc.String())
	}
}

func (s *Session) replaceTrailing(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.ChatMessage{Role: models.RoleAssistant, Content: content}
	if err := s.transcript.ReplaceLast(msg); err != nil {
		return
	}
	if s.listener != nil {
		s.listener(Event{
			Kind:   EventTrailing,
			Update: models.TranscriptUpdate{Index: s.transcript.Len() - 1, Message: msg},
		})
	}
}

// Send is Submit followed by Run.
func (s *Session) Send(ctx context.Context, text string) error {
	ex, err := s.Submit(text)
	if err != nil {
		return err
	}
	return ex.Run(ctx)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Transcript() []models.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Messages()
}

func (s *Session) View() models.ChatSessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// InputEnabled mirrors the widget's text box: usable only while idle.
func (s *Session) InputEnabled() bool {
	return s.State() == StateIdle
}

func (s *Session) view() models.ChatSessionView {
	return models.ChatSessionView{
		State:        s.state.String(),
		Transcript:   s.transcript.Messages(),
		InputEnabled: s.state == StateIdle,
		Pending:      s.state == StateAwaitingResponse,
		Error:        s.errMsg,
	}
}

func (s *Session) emitState() {
	if s.listener != nil {
		s.listener(Event{Kind: EventState, View: s.view()})
	}
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/secret-keeper/backend/internal/analysis/reveal"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
)

// Session owns one wizard conversation: its lifecycle, transcript and banner.
// Submissions are strictly sequential; a second Submit while one is in
// flight is rejected rather than queued.
type Session struct {
	id        string
	persona   persona.Persona
	createdAt time.Time
	log       *zap.Logger

	mu         sync.Mutex
	st         state
	transcript chat.Transcript
	banner     string
	tracker    *reveal.Tracker
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithID overrides the generated identifier.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// New returns an uninitialized session for p.
func New(p persona.Persona, opts ...Option) *Session {
	s := &Session{
		id:        uuid.NewString(),
		persona:   p,
		createdAt: time.Now().UTC(),
		log:       zap.NewNop(),
		st:        uninitialized{},
		tracker:   reveal.NewTracker(p.Secret()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("module", "wizard"), zap.String("session", s.id))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Initialize opens the provider conversation. A blank credential fails with
// *ConfigurationError before the provider is contacted; a provider failure
// yields *InitializationError. Either way the session ends up failed with the
// init banner set.
func (s *Session) Initialize(ctx context.Context, provider ai.Provider, credential string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.(uninitialized); !ok {
		return ErrAlreadyInitialized
	}

	if strings.TrimSpace(credential) == "" {
		return s.failLocked(&ConfigurationError{Err: ErrMissingCredential})
	}

	conv, err := provider.Start(ctx, credential, s.persona)
	if err == nil && conv == nil {
		err = errors.New("provider returned no conversation")
	}
	if err != nil {
		return s.failLocked(&InitializationError{Err: err})
	}

	s.st = ready{conv: conv}
	s.log.Info("session ready", zap.String("persona", s.persona.ID), zap.String("model", s.persona.Model))
	return nil
}

func (s *Session) failLocked(err error) error {
	s.st = failed{err: err}
	s.banner = Banner(err)
	s.log.Error("session initialization failed", zap.Error(err))
	return err
}

// Result describes an accepted submission.
type Result struct {
	User     chat.Message
	Reply    *chat.Message
	Unlocked bool
}

// SubmitOption configures one Submit call.
type SubmitOption func(*submitOptions)

type submitOptions struct {
	onAccepted func(chat.Message)
}

// OnAccepted registers fn to run once the user message is in the transcript
// and before the provider is called. fn runs without the session lock held.
func OnAccepted(fn func(chat.Message)) SubmitOption {
	return func(o *submitOptions) { o.onAccepted = fn }
}

// Submit relays text to the model. Blank text and submissions outside the
// ready phase are no-ops that return ErrEmptyInput, ErrBusy or ErrNotReady.
// On a provider failure the user message stays in the transcript, the relay
// banner is set and a *RelayError is returned. The session is ready again
// on every exit path.
func (s *Session) Submit(ctx context.Context, text string, opts ...SubmitOption) (Result, error) {
	var o submitOptions
	for _, opt := range opts {
		opt(&o)
	}

	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyInput
	}

	s.mu.Lock()
	cur, ok := s.st.(ready)
	if !ok {
		_, inFlight := s.st.(busy)
		s.mu.Unlock()
		if inFlight {
			return Result{}, ErrBusy
		}
		return Result{}, ErrNotReady
	}
	s.st = busy{conv: cur.conv}
	userMsg := s.transcript.Append(chat.RoleUser, text)
	s.tracker.ObserveUser(text)
	s.mu.Unlock()

	if o.onAccepted != nil {
		o.onAccepted(userMsg)
	}

	start := time.Now()
	reply, err := send(ctx, cur.conv, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settleLocked(cur.conv)

	result := Result{User: userMsg}
	if err != nil {
		relayErr := &RelayError{Err: err}
		s.banner = relayErr.Banner()
		s.log.Warn("relay failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return result, relayErr
	}

	msg := s.transcript.Append(chat.RoleAssistant, reply)
	result.Reply = &msg
	result.Unlocked = s.tracker.ObserveAssistant(reply)
	s.log.Debug("relay completed",
		zap.Int("reply_length", len(reply)),
		zap.Duration("elapsed", time.Since(start)),
	)
	if result.Unlocked {
		s.log.Info("password revealed", zap.Int("probes", s.tracker.Probes()))
	}
	return result, nil
}

// settleLocked leaves the busy phase, honouring a Close that arrived while
// the request was in flight.
func (s *Session) settleLocked(conv ai.Conversation) {
	if b, ok := s.st.(busy); ok && b.closing {
		s.st = closed{}
		if err := conv.Close(); err != nil {
			s.log.Warn("close conversation", zap.Error(err))
		}
		return
	}
	s.st = ready{conv: conv}
}

// send calls the provider and turns a panic into an error so the busy phase
// is always released.
func send(ctx context.Context, conv ai.Conversation, text string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()
	return conv.Send(ctx, text)
}

// Snapshot returns a consistent copy of the session's visible state.
func (s *Session) Snapshot() chat.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	phase := s.st.phase()
	return chat.Session{
		ID:         s.id,
		PersonaID:  s.persona.ID,
		Phase:      phase,
		Transcript: s.transcript.Messages(),
		Banner:     s.banner,
		CanSubmit:  phase == chat.PhaseReady,
		Reveal: chat.Reveal{
			Probes:   s.tracker.Probes(),
			HintDue:  s.tracker.HintDue(),
			Unlocked: s.tracker.Unlocked(),
		},
		CreatedAt: s.createdAt,
	}
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() chat.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.phase()
}

// Err returns why the session cannot accept messages: the initialization
// error of a failed session, ErrClosed after Close, nil otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cur := s.st.(type) {
	case failed:
		return cur.err
	case closed:
		return ErrClosed
	default:
		return nil
	}
}

// Close releases the conversation. A session closed mid-request releases it
// once the reply settles.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch cur := s.st.(type) {
	case ready:
		s.st = closed{}
		return cur.conv.Close()
	case busy:
		cur.closing = true
		s.st = cur
		return nil
	case closed:
		return nil
	default:
		s.st = closed{}
		return nil
	}
}

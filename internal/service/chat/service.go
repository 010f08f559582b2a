package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/zhouzirui/secret-keeper/backend/internal/config"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/wizard"
)

var (
	ErrPersonaNotFound = errors.New("persona not found")
	ErrSessionNotFound = errors.New("session not found")
)

// Service keeps live wizard sessions in memory. Idle sessions expire after
// the configured TTL and their conversations are released on eviction.
type Service struct {
	provider   ai.Provider
	personas   persona.Store
	credential string
	sessions   *cache.Cache
	log        *zap.Logger
}

// NewService bootstraps the session registry.
func NewService(provider ai.Provider, personas persona.Store, credential string, cfg config.SessionConfig, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		provider:   provider,
		personas:   personas,
		credential: credential,
		sessions:   cache.New(cfg.TTL, cfg.CleanupInterval),
		log:        log.With(zap.String("module", "chat")),
	}
	s.sessions.OnEvicted(s.evicted)
	return s
}

func (s *Service) evicted(id string, value interface{}) {
	sess, ok := value.(*wizard.Session)
	if !ok {
		return
	}
	if err := sess.Close(); err != nil {
		s.log.Warn("close evicted session", zap.String("session", id), zap.Error(err))
		return
	}
	s.log.Debug("session evicted", zap.String("session", id))
}

// CreateSession provisions and initializes a session bound to a persona. An
// empty personaID selects the wizard. Initialization failures do not fail the
// call: the session is stored in the failed phase so the client can render
// its banner.
func (s *Service) CreateSession(ctx context.Context, personaID string) (*wizard.Session, error) {
	personaID = strings.TrimSpace(personaID)
	if personaID == "" {
		personaID = persona.WizardID
	}
	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return nil, ErrPersonaNotFound
	}

	sess := wizard.New(p, wizard.WithLogger(s.log))
	if err := sess.Initialize(ctx, s.provider, s.credential); err != nil {
		s.log.Warn("session created in failed phase", zap.String("session", sess.ID()), zap.Error(err))
	}

	s.sessions.SetDefault(sess.ID(), sess)
	return sess, nil
}

// GetSession retrieves a session by identifier and extends its lifetime.
func (s *Service) GetSession(sessionID string) (*wizard.Session, error) {
	value, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	sess := value.(*wizard.Session)
	if errors.Is(sess.Err(), wizard.ErrClosed) {
		return nil, ErrSessionNotFound
	}
	// Replace 只续期仍在缓存中的条目，不会把并发关闭或过期的会话重新放回。
	if err := s.sessions.Replace(sessionID, sess, cache.DefaultExpiration); err != nil {
		return nil, ErrSessionNotFound
	}
	if errors.Is(sess.Err(), wizard.ErrClosed) {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// CloseSession removes a session and releases its conversation.
func (s *Service) CloseSession(sessionID string) error {
	if _, ok := s.sessions.Get(sessionID); !ok {
		return ErrSessionNotFound
	}
	s.sessions.Delete(sessionID)
	return nil
}

// Count returns the number of live sessions, expired ones included until the
// next cleanup.
func (s *Service) Count() int {
	return s.sessions.ItemCount()
}

// Personas lists the personas sessions can be created for.
func (s *Service) Personas() []persona.Persona {
	return s.personas.List()
}

// Close releases every session. The registry stays usable afterwards.
func (s *Service) Close() {
	for id := range s.sessions.Items() {
		s.sessions.Delete(id)
	}
}

// DeleteExpired evicts sessions whose TTL has passed. The background janitor
// does this periodically; exposed for shutdown and tests.
func (s *Service) DeleteExpired() {
	s.sessions.DeleteExpired()
}

// ExpiresAt reports when the session will expire if left idle.
func (s *Service) ExpiresAt(sessionID string) (time.Time, bool) {
	_, exp, ok := s.sessions.GetWithExpiration(sessionID)
	return exp, ok
}

package stream

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/secret-keeper/backend/internal/handler/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/wizard"
	"github.com/zhouzirui/secret-keeper/backend/pkg/utils"
)

// Sessions resolves live sessions.
type Sessions interface {
	GetSession(sessionID string) (*wizard.Session, error)
}

// Handler relays one message per request and reports progress as
// Server-Sent Events: user, then assistant or error, then end.
type Handler struct {
	sessions Sessions
	log      *zap.Logger
}

// New creates a new stream handler
func New(sessions Sessions, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{sessions: sessions, log: log.With(zap.String("module", "handler.stream"))}
}

// RegisterRoutes 注册SSE路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/stream", h.handleStream)
}

// Event is the payload of every SSE event.
type Event struct {
	Session  chat.Session  `json:"session"`
	Message  *chat.Message `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Unlocked bool          `json:"unlocked,omitempty"`
}

func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	text := r.URL.Query().Get("message")

	sess, err := h.sessions.GetSession(sessionID)
	if err != nil {
		utils.RespondError(w, chatHandler.Status(err), err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}
	if utf8.RuneCountInString(text) > chatHandler.MaxMessageRunes {
		utils.RespondError(w, http.StatusBadRequest, "message exceeds 4000 characters")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	// 流打开之后只能通过事件报告错误，所以状态冲突在这里直接返回 409。
	if sess.Phase() != chat.PhaseReady {
		utils.RespondError(w, http.StatusConflict, wizard.ErrNotReady.Error())
		return
	}

	utils.SetupSSEHeaders(w)
	w.WriteHeader(http.StatusOK)

	send := func(event string, payload Event) {
		if err := utils.SendSSEEvent(w, flusher, event, payload); err != nil {
			h.log.Debug("sse write failed", zap.String("event", event), zap.Error(err))
		}
	}

	result, err := sess.Submit(context.WithoutCancel(r.Context()), text, wizard.OnAccepted(func(m chat.Message) {
		send("user", Event{Session: sess.Snapshot(), Message: &m})
	}))

	var relayErr *wizard.RelayError
	switch {
	case err == nil:
		send("assistant", Event{Session: sess.Snapshot(), Message: result.Reply, Unlocked: result.Unlocked})
	case errors.As(err, &relayErr):
		h.log.Warn("relay failed", zap.String("session", sessionID), zap.Error(err))
		send("error", Event{Session: sess.Snapshot(), Error: relayErr.Banner()})
	default:
		// 预检查与 Submit 之间被其他请求抢占。
		send("error", Event{Session: sess.Snapshot(), Error: err.Error()})
	}
	send("end", Event{Session: sess.Snapshot()})
}

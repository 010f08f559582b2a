package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	chatHandler "github.com/zhouzirui/secret-keeper/backend/internal/handler/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/wizard"
	"github.com/zhouzirui/secret-keeper/backend/pkg/utils"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = 54 * time.Second
	writeWait    = 10 * time.Second
)

// Sessions resolves live sessions.
type Sessions interface {
	GetSession(sessionID string) (*wizard.Session, error)
}

// Handler WebSocket 会话处理器
type Handler struct {
	sessions     Sessions
	upgrader     websocket.Upgrader
	log          *zap.Logger
	pongWait     time.Duration
	pingInterval time.Duration
}

// New 创建WebSocket处理器
func New(sessions Sessions, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log:          log.With(zap.String("module", "handler.ws")),
		pongWait:     pongWait,
		pingInterval: pingInterval,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/session/{sessionID}/ws", h.handleWebSocket)
}

// Inbound is a client frame.
type Inbound struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Outbound is a server frame. Type is "state" or "error".
type Outbound struct {
	Type      string       `json:"type"`
	Session   chat.Session `json:"session"`
	Error     string       `json:"error,omitempty"`
	Unlocked  bool         `json:"unlocked,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.GetSession(sessionID)
	if err != nil {
		utils.RespondError(w, chatHandler.Status(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.log.With(zap.String("session", sessionID))
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.pongWait))
	})

	go h.pingLoop(ctx, conn)

	h.write(conn, log, Outbound{Type: "state", Session: sess.Snapshot()})

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("read error", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))

		if msg.Type != "message" {
			h.write(conn, log, Outbound{Type: "error", Session: sess.Snapshot(), Error: "unsupported message type"})
			continue
		}
		h.relay(ctx, conn, log, sess, msg.Text)
		// relay 期间不读取，pong 无法续期；模型回复可能比 pongWait 更久。
		_ = conn.SetReadDeadline(time.Now().Add(h.pongWait))
	}
}

// relay 同步处理一条消息；读循环在此期间阻塞，所以同一连接上的消息天然串行。
func (h *Handler) relay(ctx context.Context, conn *websocket.Conn, log *zap.Logger, sess *wizard.Session, text string) {
	if strings.TrimSpace(text) == "" {
		h.write(conn, log, Outbound{Type: "state", Session: sess.Snapshot()})
		return
	}
	if utf8.RuneCountInString(text) > chatHandler.MaxMessageRunes {
		h.write(conn, log, Outbound{Type: "error", Session: sess.Snapshot(), Error: "message exceeds 4000 characters"})
		return
	}

	result, err := sess.Submit(ctx, text, wizard.OnAccepted(func(chat.Message) {
		h.write(conn, log, Outbound{Type: "state", Session: sess.Snapshot()})
	}))

	var relayErr *wizard.RelayError
	switch {
	case err == nil:
		h.write(conn, log, Outbound{Type: "state", Session: sess.Snapshot(), Unlocked: result.Unlocked})
	case errors.As(err, &relayErr):
		log.Warn("relay failed", zap.Error(err))
		h.write(conn, log, Outbound{Type: "error", Session: sess.Snapshot(), Error: relayErr.Banner()})
	default:
		h.write(conn, log, Outbound{Type: "error", Session: sess.Snapshot(), Error: err.Error()})
	}
}

func (h *Handler) write(conn *websocket.Conn, log *zap.Logger, msg Outbound) {
	msg.Timestamp = time.Now().Unix()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(msg); err != nil {
		log.Debug("write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

// pingLoop 定期发送ping消息；WriteControl 可与 WriteJSON 并发调用。
func (h *Handler) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zhouzirui/secret-keeper/backend/internal/model/chat"
	chatService "github.com/zhouzirui/secret-keeper/backend/internal/service/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/wizard"
	"github.com/zhouzirui/secret-keeper/backend/pkg/utils"
)

// MaxMessageRunes 单条消息的最大字符数。
const MaxMessageRunes = 4000

// Sessions is the registry the handler drives.
type Sessions interface {
	CreateSession(ctx context.Context, personaID string) (*wizard.Session, error)
	GetSession(sessionID string) (*wizard.Session, error)
	CloseSession(sessionID string) error
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	sessions Sessions
	validate *validator.Validate
	log      *zap.Logger
}

// New 创建聊天处理器
func New(sessions Sessions, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		validate: validator.New(),
		log:      log.With(zap.String("module", "handler.chat")),
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Get("/session/{sessionID}", h.handleGetSession)
	r.Delete("/session/{sessionID}", h.handleCloseSession)
	r.Post("/session/{sessionID}/messages", h.handleSendMessage)
}

type createSessionRequest struct {
	PersonaID string `json:"personaId" validate:"max=64"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"max=4000"`
}

// MessageResponse is the session snapshot plus the outcome of one submission.
type MessageResponse struct {
	chat.Session
	Accepted bool   `json:"accepted"`
	Unlocked bool   `json:"unlocked,omitempty"`
	Error    string `json:"error,omitempty"`
}

// handleCreateSession 创建并初始化会话；初始化失败时仍返回 201，由快照中的 banner 告知前端。
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid personaId")
		return
	}

	sess, err := h.sessions.CreateSession(r.Context(), payload.PersonaID)
	if err != nil {
		utils.RespondError(w, Status(err), err.Error())
		return
	}

	utils.RespondJSON(w, http.StatusCreated, sess.Snapshot())
}

// handleGetSession 返回会话快照
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, Status(err), err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, sess.Snapshot())
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.CloseSession(chi.URLParam(r, "sessionID")); err != nil {
		utils.RespondError(w, Status(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSendMessage 同步转发一条消息并返回更新后的快照
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.GetSession(chi.URLParam(r, "sessionID"))
	if err != nil {
		utils.RespondError(w, Status(err), err.Error())
		return
	}

	var payload sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "text exceeds 4000 characters")
		return
	}

	// 客户端断开不应中断已提交的交换。
	result, err := sess.Submit(context.WithoutCancel(r.Context()), payload.Text)
	resp := MessageResponse{Accepted: err == nil, Unlocked: result.Unlocked}

	var relayErr *wizard.RelayError
	switch {
	case err == nil:
	case errors.Is(err, wizard.ErrEmptyInput):
	case errors.As(err, &relayErr):
		resp.Accepted = true
		resp.Error = relayErr.Banner()
		h.log.Warn("relay failed", zap.String("session", sess.ID()), zap.Error(err))
	default:
		utils.RespondError(w, Status(err), err.Error())
		return
	}

	resp.Session = sess.Snapshot()
	status := http.StatusOK
	if relayErr != nil {
		status = http.StatusBadGateway
	}
	utils.RespondJSON(w, status, resp)
}

// Status maps registry and session errors to HTTP status codes.
func Status(err error) int {
	var relayErr *wizard.RelayError
	switch {
	case errors.Is(err, chatService.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, chatService.ErrPersonaNotFound):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrBusy), errors.Is(err, wizard.ErrNotReady):
		return http.StatusConflict
	case errors.As(err, &relayErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

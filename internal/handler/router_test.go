package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/secret-keeper/backend/internal/config"
	"github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
	"github.com/zhouzirui/secret-keeper/backend/internal/service/ai"
	chatService "github.com/zhouzirui/secret-keeper/backend/internal/service/chat"
)

type echoConversation struct{}

func (echoConversation) Send(_ context.Context, text string) (string, error) { return "echo " + text, nil }
func (echoConversation) Close() error                                        { return nil }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := persona.NewMemoryStore(persona.Seed())
	provider := ai.ProviderFunc(func(context.Context, string, persona.Persona) (ai.Conversation, error) {
		return echoConversation{}, nil
	})
	svc := chatService.NewService(provider, store, "key",
		config.SessionConfig{TTL: time.Hour, CleanupInterval: time.Hour}, nil)
	t.Cleanup(svc.Close)
	return NewRouter(store, svc, nil)
}

func TestRouterRoutes(t *testing.T) {
	r := newTestRouter(t)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/", http.StatusOK},
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/api/personas", http.StatusOK},
		{http.MethodPost, "/api/session", http.StatusCreated},
		{http.MethodGet, "/api/session/missing", http.StatusNotFound},
		{http.MethodGet, "/api/session/missing/stream?message=hi", http.StatusNotFound},
		{http.MethodGet, "/api/session/missing/ws", http.StatusNotFound},
		{http.MethodOptions, "/api/session", http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(""))
			resp := httptest.NewRecorder()
			r.ServeHTTP(resp, req)
			assert.Equal(t, tc.want, resp.Code)
		})
	}
}

func TestRouterHealthz(t *testing.T) {
	r := newTestRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok"}`, resp.Body.String())
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

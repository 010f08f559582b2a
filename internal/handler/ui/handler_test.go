package ui

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexServesChatPage(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "text/html")
	body := resp.Body.String()
	assert.Contains(t, body, "Secret Keeper 2.0")
	assert.Contains(t, body, "Type your message to the wizard...")
	assert.Contains(t, body, "Sending...")
}

func TestIndexRollsBackRejectedMessage(t *testing.T) {
	r := chi.NewRouter()
	RegisterRoutes(r)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)

	// 非记录响应（如 409）之后从 GET api/session/{id} 重绘。
	body := resp.Body.String()
	assert.Contains(t, body, "function refresh()")
	assert.Contains(t, body, "fetch('api/session/' + sessionId)")
	assert.Contains(t, body, "return refresh();")
}

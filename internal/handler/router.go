package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/secret-keeper/backend/internal/handler/chat"
	"github.com/zhouzirui/secret-keeper/backend/internal/handler/persona"
	"github.com/zhouzirui/secret-keeper/backend/internal/handler/stream"
	"github.com/zhouzirui/secret-keeper/backend/internal/handler/ui"
	"github.com/zhouzirui/secret-keeper/backend/internal/handler/ws"
	middlewarePkg "github.com/zhouzirui/secret-keeper/backend/internal/middleware"
	personaModel "github.com/zhouzirui/secret-keeper/backend/internal/model/persona"
	chatService "github.com/zhouzirui/secret-keeper/backend/internal/service/chat"
	"github.com/zhouzirui/secret-keeper/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(personas personaModel.Store, chatSvc *chatService.Service, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	ui.RegisterRoutes(r)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(api chi.Router) {
		persona.New(personas).RegisterRoutes(api)
		chat.New(chatSvc, log).RegisterRoutes(api)
		stream.New(chatSvc, log).RegisterRoutes(api)
		ws.New(chatSvc, log).RegisterRoutes(api)
	})

	return r
}

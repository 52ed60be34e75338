package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/helpchat/internal/handler/assistant"
	middlewarePkg "github.com/zhouzirui/helpchat/internal/middleware"
)

// NewRouter 将 HTTP 路由绑定到助手服务。
func NewRouter(assistantHandler *assistant.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Pong!"))
	})

	assistantHandler.RegisterRoutes(r)

	return r
}

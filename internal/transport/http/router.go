package http

import (
	"net/http"
	"time"

	httpmw "github.com/cwrk-planet/canvas-service/internal/transport/http/middleware"
	"github.com/cwrk-planet/canvas-service/internal/transport/ws"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h *Handler, wsServer *ws.Server, createRoomLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareChi.RequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS", "PUT", "PATCH", "DELETE"},
		AllowedHeaders: []string{"X-Requested-With", "Content-Type"},
	}))

	// WS endpoint; roomId и password — query-параметры
	r.Get("/ws", wsServer.HandleWS)

	r.Get("/wakeup", h.Wakeup)

	r.Group(func(pr chi.Router) {
		pr.Use(middlewareChi.Timeout(30 * time.Second))
		pr.Use(httpmw.Logging)

		pr.With(createRoomLimit).Post("/room", h.CreateRoom)

		pr.Route("/rooms/{id}", func(rr chi.Router) {
			rr.Delete("/", h.DeleteRoom)
			rr.Get("/chat", h.GetChatHistory)
		})
	})

	// health
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

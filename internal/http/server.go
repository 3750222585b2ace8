package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/auctions", func(r chi.Router) {
		r.Post("/", handler.CreateAuction)
		r.Get("/{assetKey}", handler.GetAuction)
		r.Get("/{assetKey}/price", handler.GetCurrentPrice)
		r.Post("/{assetKey}/bids", handler.PlaceBid)
		r.Post("/{assetKey}/signed-bids", handler.EnqueueSignedBid)
		r.Post("/{assetKey}/cancel", handler.CancelAuction)
	})

	if handler.Hub != nil {
		r.Get("/ws", handler.Hub.ServeWS)
	}

	return &Server{Router: r}
}

package main

import (
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/config"
	"timeauction/backend/internal/gateway"
	"timeauction/backend/internal/handler"
)

func setupServer(cfg *config.Config, registry *auction.Registry, matchmaker *auction.Matchmaker, manager *gateway.ConnectionManager) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	rooms := handler.NewRoomHandler(registry, matchmaker)
	mux.Handle("/api/time-auction/", http.StripPrefix("/api/time-auction", rooms.Routes()))

	ws := gateway.NewWebSocketHandler(manager)
	ws.RegisterRoutes(mux)

	setupHealthCheck(mux)

	return &http.Server{
		Addr:    cfg.Addr,
		Handler: h2c.NewHandler(c.Handler(mux), &http2.Server{}),
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

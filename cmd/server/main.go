package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/contextchat/backend/internal/auth"
	"github.com/contextchat/backend/internal/chat"
	"github.com/contextchat/backend/internal/config"
	"github.com/contextchat/backend/internal/handlers"
	"github.com/contextchat/backend/internal/realtime"
	"github.com/contextchat/backend/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	// Load configuration from environment
	cfg := config.Load()

	// Open the embedded store
	db, err := store.Open(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to open store at %s: %v", cfg.DataDir, err)
	}
	defer db.Close()

	contexts := store.NewContextStore(db)
	messages := store.NewMessageStore(db)

	// Credential verifier and membership oracle
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.TokenDuration)
	oracle := chat.NewMembershipOracle(contexts)

	// Room registry; it doubles as the coordinator's broadcast port
	hub := realtime.NewHub()
	go hub.Run()

	coordinator := chat.NewCoordinator(oracle, messages, hub)

	// Initialize handlers
	wsHandler := realtime.NewHandler(hub, verifier, coordinator, oracle)
	messageHandler := handlers.NewMessageHandler(coordinator)

	// Set up router with middleware
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	log.Printf("CORS allowed origins: %v", cfg.CORSOrigins)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Live channel endpoint. Mounted outside the request logger because
	// browser clients carry the bearer token in the handshake URL, and
	// access logs must never record it.
	r.Get("/ws", wsHandler.ServeWS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Logger)

		// Health check endpoint
		r.Get("/health", handlers.HealthCheck)

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Route("/messages", func(r chi.Router) {
				r.Use(verifier.Middleware)
				r.Post("/", messageHandler.SendMessage)
				r.Get("/{contextId}", messageHandler.GetHistory)
			})
		})
	})

	// Start server
	addr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("ContextChat backend starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}

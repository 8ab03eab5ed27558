// ./cmd/main.go

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doctorAppointment/chatbot"
	"doctorAppointment/config"
	"doctorAppointment/controllers"
	"doctorAppointment/fallback"
	"doctorAppointment/models"
	"doctorAppointment/routes"
	"doctorAppointment/utils"

	"github.com/gorilla/mux"
)

func main() {
	cfg := config.LoadConfig()

	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open data store: %v", err)
	}
	defer store.Close()

	bot, err := newChatbot(cfg)
	if err != nil {
		log.Fatalf("Failed to create chatbot: %v", err)
	}

	// Index the project description without delaying startup; /chat
	// answers 503 until it is ready.
	initCtx, cancelInit := context.WithCancel(context.Background())
	defer cancelInit()
	go func() {
		if err := bot.Initialize(initCtx, cfg.ChatbotDocsPath); err != nil {
			log.Printf("Chatbot initialization failed: %v", err)
		}
	}()

	proxies, err := utils.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	h := controllers.NewHandler(store, utils.NewAuthenticator(cfg.JWTSecret), bot, proxies, cfg.FrontendURL, cfg.IsDevelopment())
	go h.Hub.Run()

	router := mux.NewRouter()
	handler := routes.SetupRoutes(router, h, cfg.FrontendURL)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second, // model calls can be slow
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on http://localhost:%s (%s mode)", cfg.Port, store.Mode())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	cancelInit()
	h.Hub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// openStore connects to MySQL and falls back to the JSON fixture when no
// database is configured or reachable.
func openStore(cfg config.Config) (models.Store, error) {
	db, err := config.ConnectDB(context.Background(), cfg)
	if err == nil {
		return models.NewMySQLStore(db), nil
	}
	if errors.Is(err, config.ErrNoDatabase) {
		log.Println("No database configured, serving demo data")
	} else {
		log.Printf("Database unavailable, serving demo data: %v", err)
	}
	demo, err := fallback.Load(cfg.FallbackDataPath)
	if err != nil {
		return nil, err
	}
	return demo, nil
}

func newChatbot(cfg config.Config) (*chatbot.Service, error) {
	if cfg.GeminiAPIKey == "" {
		log.Println("GEMINI_API_KEY not set, chatbot answers greetings only")
		return chatbot.NewService(nil, nil), nil
	}
	gemini, err := chatbot.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiChatModel, cfg.GeminiEmbedModel)
	if err != nil {
		return nil, err
	}
	return chatbot.NewService(gemini, gemini), nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"valles-rodes/internal/chat"
	"valles-rodes/internal/config"
	"valles-rodes/internal/content"
	"valles-rodes/internal/database"
	"valles-rodes/internal/handlers"
	"valles-rodes/internal/logger"
	"valles-rodes/internal/router"
	"valles-rodes/internal/services"
	"valles-rodes/internal/websocket"
	"valles-rodes/internal/worker"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("starting Vallès Rodes", zap.String("env", cfg.Env))

	// ──── Step 2: Site Content & Templates ────
	site, err := content.Load()
	if err != nil {
		log.Fatal("site content invalid", zap.Error(err))
	}
	templates := handlers.NewTemplateCache(log)
	if err := templates.Load(cfg.TemplatesDir); err != nil {
		log.Fatal("templates failed to load", zap.Error(err), zap.String("dir", cfg.TemplatesDir))
	}
	log.Info("templates loaded", zap.String("dir", cfg.TemplatesDir))

	// ──── Step 3: Booking Relay (Redis, optional) ────
	var (
		relay      services.Enqueuer
		workerPool *worker.Pool
	)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClient.Close()

		relay = services.NewBookingRelay(redisClient, log)
		emailService := services.NewEmailService(
			cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.WorkshopEmail, log,
		)

		workerPool = worker.NewPool(redisClient, emailService, cfg.WorkerCount, log)
		workerPool.Start()
		log.Info("booking relay enabled", zap.Int("workers", cfg.WorkerCount))
	} else {
		log.Warn("REDIS_URL not set, bookings are confirmed but not relayed")
	}
	bookingService := services.NewBookingService(relay, log)

	// ──── Step 4: Chat Assistant ────
	geminiService := services.NewGeminiService(cfg.GeminiModel, cfg.GeminiConcurrentReqs, log)
	defer geminiService.Close()

	var credential *chat.Credential
	if cfg.GeminiAPIKey != "" {
		credential = &chat.Credential{APIKey: cfg.GeminiAPIKey}
		log.Info("chat assistant configured", zap.String("model", cfg.GeminiModel))
	} else {
		log.Warn("GEMINI_API_KEY not set, chat assistant will report itself unavailable")
	}
	chatGateway := websocket.NewGateway(websocket.Config{
		Credential:        credential,
		MessagesPerMinute: cfg.ChatMessagesPerMinute,
	}, geminiService, log)

	// ──── Step 5: Handlers ────
	store := sessions.NewCookieStore(cfg.SessionKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	siteHandler := handlers.NewSiteHandler(
		templates,
		site,
		bookingService,
		store,
		handlers.NewLinks(cfg.PhoneNumber, cfg.WhatsAppText),
		log,
	)
	bookingAPI := handlers.NewBookingAPIHandler(bookingService)

	bookingLimiter := router.BookingLimiter(cfg.BookingsPerMinute)
	defer bookingLimiter.Stop()

	// ──── Step 6: Start HTTP Server ────
	r := router.New(router.Options{
		CSRFKey:      cfg.CSRFKey,
		CookieSecure: cfg.CookieSecure,
		TrustedOrigins: []string{
			"localhost:" + cfg.Port,
			"127.0.0.1:" + cfg.Port,
			"vallesrodes.com",
			"www.vallesrodes.com",
		},
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
	}, siteHandler, bookingAPI, chatGateway, bookingLimiter, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("http shutdown", zap.Error(err))
		}
		if workerPool != nil {
			if err := workerPool.Stop(ctx); err != nil {
				log.Error("worker pool shutdown", zap.Error(err))
			}
		}
	}()

	log.Info("Vallès Rodes ready",
		zap.String("url", "http://localhost:"+cfg.Port),
		zap.String("chat_ws", "ws://localhost:"+cfg.Port+"/api/v1/chat/ws"),
	)

	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server error", zap.Error(err))
	}
	<-shutdownDone
}

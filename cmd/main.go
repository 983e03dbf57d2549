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

	"placegrad/internal/auth"
	"placegrad/internal/config"
	"placegrad/internal/database"
	"placegrad/internal/handlers"
	"placegrad/internal/mail"
	"placegrad/internal/ratelimit"

	gorillahandlers "github.com/gorilla/handlers"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Create a context for initialization.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := database.ConnectMongoDB(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from DB: %v", err)
		}
	}()

	users := database.NewUserStore(database.GetUserCollection(client, cfg.MongoDB))
	if err := users.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Initialization error: %v", err)
	}

	// Rate limit counters are shared through Redis when it is reachable.
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	if rdb := database.InitRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB); rdb != nil {
		defer rdb.Close()
		limitStore = ratelimit.NewRedisStore(rdb)
	}
	authRule, otpRule := ratelimit.Rules(cfg.AuthRateMax, cfg.AuthRateWindow, cfg.OTPRateMax, cfg.OTPRateWindow)

	tokens, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret))
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	mailer := mail.NewSender(newTransport(cfg), cfg.FrontendURL, auth.OTPTTL, auth.ResetTokenTTL)
	svc := auth.NewService(users, mailer, tokens, auth.WithHasher(auth.NewBcryptHasher(cfg.BcryptCost)))

	router := handlers.NewRouter(handlers.NewAuthHandler(svc), handlers.Options{
		AuthLimiter: ratelimit.New(limitStore, authRule),
		OTPLimiter:  ratelimit.New(limitStore, otpRule),
		HealthCheck: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
	})

	// Forwarding headers are resolved first so the limiter keys on the real
	// client address; only TRUSTED_PROXIES may set them.
	var h http.Handler = router
	h = gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(cfg.CORSOrigins),
		gorillahandlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		gorillahandlers.AllowedHeaders([]string{"Content-Type", "Authorization", handlers.RequestIDHeader}),
		gorillahandlers.AllowCredentials(),
	)(h)
	h = gorillahandlers.RecoveryHandler(gorillahandlers.PrintRecoveryStack(cfg.IsDevelopment()))(h)
	h = handlers.TrustedProxyHeaders(cfg.TrustedProxies)(h)
	h = gorillahandlers.LoggingHandler(os.Stdout, h)

	addr := ":" + cfg.Port
	srv := &http.Server{
		Handler:      h,
		Addr:         addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on http://localhost%s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for interrupt signals for graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return
	}
	log.Println("Server exiting gracefully.")
}

func newTransport(cfg *config.Config) mail.Transport {
	if cfg.EmailProvider == "smtp" {
		return mail.NewSMTPTransport(cfg.SMTPServer, cfg.SMTPUser, cfg.SMTPPassword, cfg.EmailUser)
	}
	return mail.NewBrevoTransport(cfg.BrevoAPIKey, cfg.EmailUser)
}

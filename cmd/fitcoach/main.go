package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fitcoach/config"
	"fitcoach/internal/auth"
	"fitcoach/internal/bot"
	"fitcoach/internal/coach"
	"fitcoach/internal/db"
	"fitcoach/internal/fitness"
	"fitcoach/internal/gpt"
	"fitcoach/internal/payment"
	"fitcoach/internal/server"
	"fitcoach/pkg/logger"
)

type store interface {
	fitness.Repository
	Close()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Fatalw("Failed to load config", "error", err)
	}

	l := logger.New(cfg.Log.Level)
	if cfg.Log.Development {
		l = logger.NewDevelopment()
	}
	defer func() { _ = l.Sync() }()

	l.Infow("Starting fitcoach", "db_driver", cfg.DB.Driver, "model", cfg.GPT.Model)

	if err := cfg.Validate(); err != nil {
		l.Fatalw("Invalid configuration", "error", err)
	}

	repo, err := openStore(cfg, l)
	if err != nil {
		l.Fatalw("Failed to open store", "driver", cfg.DB.Driver, "error", err)
	}
	defer repo.Close()

	gptClient := gpt.NewClientWithBaseURL(cfg.GPT.APIKey, cfg.GPT.BaseURL).
		WithModel(cfg.GPT.Model).
		WithLogger(l.Named("gpt"))

	authCfg := auth.Config{
		Secret: cfg.Auth.JWTSecret,
		Issuer: cfg.Auth.JWTIssuer,
		TTL:    cfg.Auth.TokenTTL,
	}

	svc := fitness.NewService(repo, coach.New(gptClient, l.Named("coach")), fitness.Options{
		Auth:           authCfg,
		RequirePremium: cfg.Billing.RequirePremium,
	}, l.Named("fitness"))

	var webhooks server.WebhookParser
	if cfg.BillingEnabled() {
		stripeClient := payment.NewStripeClient(payment.Config{
			SecretKey:  cfg.Stripe.SecretKey,
			PublicKey:  cfg.Stripe.PublicKey,
			WebhookKey: cfg.Stripe.WebhookKey,
			ProductID:  cfg.Stripe.ProductID,
			PriceID:    cfg.Stripe.PriceID,
			SuccessURL: cfg.Stripe.SuccessURL,
			CancelURL:  cfg.Stripe.CancelURL,
		})
		svc.WithBilling(stripeClient)
		webhooks = stripeClient
		l.Infow("Stripe billing enabled", "require_premium", cfg.Billing.RequirePremium)
	}

	handler := server.NewHandler(svc, webhooks, authCfg, cfg.Server.AllowedOrigins, l.Named("http"))
	httpServer := server.NewServer(server.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, withRequestTimeout(handler, cfg.GPT.RequestTimeout), l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var telegramBot *bot.TelegramBot
	if cfg.Telegram.Enabled {
		telegramBot, err = bot.NewTelegramBot(cfg.Telegram.Token, svc, l.Named("telegram"))
		if err != nil {
			l.Fatalw("Failed to create Telegram bot", "error", err)
		}
		if err := telegramBot.Start(ctx); err != nil {
			l.Fatalw("Failed to start Telegram bot", "error", err)
		}
	}

	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Fatalw("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Infow("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		l.Errorw("Error during HTTP server shutdown", "error", err)
	}
	if telegramBot != nil {
		if err := telegramBot.Stop(shutdownCtx); err != nil {
			l.Errorw("Error during bot shutdown", "error", err)
		}
	}

	l.Infow("Stopped")
}

func openStore(cfg *config.Config, l *logger.Logger) (store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch cfg.DB.Driver {
	case config.DriverMemory:
		l.Warnw("Using in-memory store, data is lost on restart")
		return db.NewMemoryDB(), nil

	case config.DriverMongo:
		mongoDB, err := db.NewMongoDB(ctx, cfg.DB.MongoURI, cfg.DB.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := mongoDB.EnsureIndexes(ctx); err != nil {
			mongoDB.Close()
			return nil, err
		}
		return mongoDB, nil
	}

	pgCfg := db.PostgresConfig{
		Host:         cfg.DB.Host,
		Port:         cfg.DB.Port,
		User:         cfg.DB.User,
		Password:     cfg.DB.Password,
		DBName:       cfg.DB.DBName,
		SSLMode:      cfg.DB.SSLMode,
		MaxOpenConns: cfg.DB.MaxOpenConns,
		MaxIdleConns: cfg.DB.MaxIdleConns,
		ConnLifetime: cfg.DB.ConnLifetime,
	}

	var (
		database *db.PostgresDB
		err      error
	)
	retries := cfg.DB.ConnectRetries
	if retries < 1 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		database, err = db.NewPostgresDB(pgCfg)
		if err == nil {
			break
		}
		l.Warnw("Failed to connect to database, retrying...", "attempt", i+1, "error", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		return nil, err
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

// withRequestTimeout bounds each request so a stalled provider call surfaces
// as an error instead of holding the connection until the write timeout.
func withRequestTimeout(next http.Handler, timeout time.Duration) http.Handler {
	if timeout <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

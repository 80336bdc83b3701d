package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/rotacerta/rota-certa/internal/auth"
	"github.com/rotacerta/rota-certa/internal/config"
	"github.com/rotacerta/rota-certa/internal/handlers"
	"github.com/rotacerta/rota-certa/internal/localstore"
	"github.com/rotacerta/rota-certa/internal/middleware"
	"github.com/rotacerta/rota-certa/internal/remote"
	"github.com/rotacerta/rota-certa/internal/service"
	syncer "github.com/rotacerta/rota-certa/internal/sync"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment variables")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	cfg := config.Load()

	store, err := localstore.Open(cfg.SQLitePath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open local store")
	}
	defer store.Close()
	log.WithField("path", cfg.SQLitePath).Info("Local store ready")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := remote.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	log.Info("Connected to MongoDB successfully")

	db := client.Database(cfg.MongoDB)
	remoteStore := remote.NewMongoStore(db)
	blobs, err := remote.NewGridFSBlobStore(db)
	if err != nil {
		log.WithError(err).Fatal("Failed to open receipt bucket")
	}

	svc := service.New(store)

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize auth service")
	}

	driver := syncer.NewDriver(store, remoteStore, syncer.Config{
		Interval:   cfg.SyncInterval,
		BackoffMin: cfg.BackoffMin,
		BackoffMax: cfg.BackoffMax,
	}, log.StandardLogger())

	// Hydrate the local cache before serving. Best effort: an empty or
	// stale cache still serves, and the driver catches up later.
	if err := driver.PullAll(ctx); err != nil {
		log.WithError(err).Warn("Initial hydration failed, serving local cache")
	}

	go driver.Run(ctx)
	driver.Nudge()

	if cfg.MQTTBroker != "" {
		sub, err := syncer.NewNudgeSubscriber(cfg.MQTTBroker, "rotacerta-api", cfg.MQTTTopic, driver, log.StandardLogger())
		if err != nil {
			log.WithError(err).Warn("MQTT sync hints unavailable")
		} else {
			defer sub.Close()
			log.WithField("topic", cfg.MQTTTopic).Info("Subscribed to sync hints")
		}
	}

	authHandler := handlers.NewAuthHandler(authService, svc)
	tripHandler := handlers.NewTripHandler(svc)
	recordHandler := handlers.NewRecordHandler(svc)
	receiptHandler := handlers.NewReceiptHandler(svc, blobs)
	syncHandler := handlers.NewSyncHandler(driver)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimiter := middleware.NewRateLimitMiddleware()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/profile", authHandler.GetProfile)
	mux.Handle("/api/users", authMiddleware.RequireAdmin(http.HandlerFunc(authHandler.Users)))
	mux.HandleFunc("/api/trips", tripHandler.Trips)
	mux.HandleFunc("/api/trips/finish", tripHandler.Finish)
	mux.HandleFunc("/api/trips/delete", tripHandler.Delete)
	mux.HandleFunc("/api/trips/summary", tripHandler.Summary)
	mux.HandleFunc("/api/visits", recordHandler.Visits)
	mux.HandleFunc("/api/expenses", recordHandler.Expenses)
	mux.HandleFunc("/api/fuelings", recordHandler.Fuelings)
	mux.HandleFunc("/api/vehicles", recordHandler.Vehicles)
	mux.HandleFunc("/api/types", recordHandler.CustomTypes)
	mux.HandleFunc("/api/receipts/upload", receiptHandler.Upload)
	mux.HandleFunc("/api/receipts/", receiptHandler.Download)
	mux.HandleFunc("/api/sync", syncHandler.Trigger)

	handler := rateLimiter.RateLimit(100, 60)(authMiddleware.Authenticate(mux))

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		log.Info("Shutting down")
		server.Shutdown(context.Background())
	}()

	log.WithField("port", cfg.Port).Info("HTTP server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Fatal("HTTP server failed")
	}
}

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	httpadapter "github.com/PabloGalante/flashcoach/internal/adapters/http"
	"github.com/PabloGalante/flashcoach/internal/adapters/llm"
	"github.com/PabloGalante/flashcoach/internal/adapters/notify/email"
	firestorestore "github.com/PabloGalante/flashcoach/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/flashcoach/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/flashcoach/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/flashcoach/internal/app/auth"
	"github.com/PabloGalante/flashcoach/internal/app/coaching"
	"github.com/PabloGalante/flashcoach/internal/app/counter"
	"github.com/PabloGalante/flashcoach/internal/app/escalation"
	"github.com/PabloGalante/flashcoach/internal/app/feedback"
	"github.com/PabloGalante/flashcoach/internal/config"
	"github.com/PabloGalante/flashcoach/internal/domain"
	"github.com/PabloGalante/flashcoach/internal/observability"
)

func main() {
	if err := godotenv.Load(); err != nil {
		observability.Logger().Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		observability.Logger().Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := observability.Init(cfg.LogLevel)
	ctx := context.Background()

	// LLM: mock or Vertex
	var llmClient domain.LLMClient
	if cfg.UseMockLLM {
		log.Info("using MOCK LLM client")
		llmClient = llm.NewMockLLM()
	} else {
		log.Info("using Vertex LLM client", "model", cfg.ModelName)
		llmClient, err = llm.NewVertexClient(ctx, llm.VertexConfig{
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			ModelName: cfg.ModelName,
		})
		if err != nil {
			log.Error("error initializing Vertex LLM client", "error", err)
			os.Exit(1)
		}
	}

	// Storage: Memory, SQLite or Firestore
	var (
		teacherStore domain.TeacherStore
		historyStore domain.HistoryStore
		closer       io.Closer
	)

	switch cfg.StorageBackend {
	case "firestore":
		log.Info("using Firestore storage", "project", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Error("error initializing Firestore store", "error", err)
			os.Exit(1)
		}
		// 1 store, implements 2 interfaces
		teacherStore, historyStore, closer = fsStore, fsStore, fsStore

	case "sqlite":
		log.Info("using SQLite storage", "path", cfg.SQLitePath)
		sqlStore, err := sqlitestore.NewStore(cfg.SQLitePath)
		if err != nil {
			log.Error("error initializing SQLite store", "error", err)
			os.Exit(1)
		}
		teacherStore, historyStore, closer = sqlStore, sqlStore, sqlStore

	default:
		log.Info("using in-memory storage")
		teacherStore = memstore.NewTeacherStore()
		historyStore = memstore.NewHistoryStore()
	}

	mailer := email.NewMailer(email.Config{
		Host:              cfg.Email.SMTPServer,
		Sender:            cfg.Email.Sender,
		Password:          cfg.Email.Password,
		FallbackRecipient: cfg.Email.FallbackRecipient,
		Timeout:           cfg.Email.Timeout,
	})
	if !mailer.Configured() {
		log.Warn("EMAIL_SENDER or EMAIL_PASSWORD missing, escalations are disabled")
	}

	// Services
	policy := counter.NewPolicy(teacherStore)
	trigger := escalation.NewTrigger(teacherStore, policy, mailer)

	authSvc := auth.NewService(teacherStore, cfg.JWTSecret, cfg.TokenTTL)
	coachingSvc := coaching.NewService(llmClient, historyStore)
	feedbackSvc := feedback.NewService(historyStore, policy, trigger)

	handler := httpadapter.NewServer(authSvc, coachingSvc, feedbackSvc, httpadapter.Options{
		RequireAuth: cfg.RequireAuth,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("FlashCoach API listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if closer != nil {
		if err := closer.Close(); err != nil {
			log.Error("failed to close store", "error", err)
		}
	}
}

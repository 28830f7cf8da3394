package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mailsorter/config"
	"mailsorter/internal/gmail"
	"mailsorter/internal/handler"
	"mailsorter/internal/httpserver"
	"mailsorter/internal/llm"
	"mailsorter/internal/service/auth"
	"mailsorter/internal/service/classify"
	"mailsorter/internal/service/email"
	"mailsorter/pkg/logger"
	"mailsorter/pkg/otel"
)

var version = "dev"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// 2. Init logger
	log := logger.NewLogger(cfg.Log)
	defer log.Sync()

	// 3. Init tracing
	shutdownTracing, err := otel.Init(cfg.Otel, version, log)
	if err != nil {
		log.Fatal("OpenTelemetry initialization failed", zap.Error(err))
	}
	defer shutdownTracing()

	// 4. Init provider + model clients
	var gmailOpts []gmail.Option
	if cfg.Gmail.Endpoint != "" {
		gmailOpts = append(gmailOpts, gmail.WithEndpoint(cfg.Gmail.Endpoint))
	}
	gmailClient := gmail.NewClient(log, gmailOpts...)
	modelClient := llm.NewOpenAIClient(cfg.Model)

	// 5. Init services
	emailService := email.NewService(gmailClient, cfg.Gmail.DefaultMaxResults, log)
	classifier := classify.NewClassifier(modelClient, log)
	authService := auth.NewService(cfg.Google, cfg.Session)

	// 6. Init handlers
	authHandler := handler.NewAuthHandler(authService, cfg.Session.Secure, log)
	emailHandler := handler.NewEmailHandler(emailService, authService, log)
	classifyHandler := handler.NewClassifyHandler(classifier, log)

	// 7. Router
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpserver.NewRouter(
		authHandler,
		emailHandler,
		classifyHandler,
		func(ctx context.Context) error { return cfg.OAuthConfigured() },
		log,
	)

	// 8. Run until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting mailsorter",
		zap.String("version", version),
		zap.String("port", cfg.Server.Port),
		zap.String("model", modelClient.Model()),
	)
	if err := router.Run(ctx, cfg.Server.Port, log); err != nil {
		log.Fatal("server stopped with error", zap.Error(err))
	}
}

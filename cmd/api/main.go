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

	"go.uber.org/zap"

	"github.com/retainly/retention-service/internal/config"
	"github.com/retainly/retention-service/internal/consumer"
	"github.com/retainly/retention-service/internal/domain"
	"github.com/retainly/retention-service/internal/feedback"
	"github.com/retainly/retention-service/internal/handler"
	"github.com/retainly/retention-service/internal/logger"
	"github.com/retainly/retention-service/internal/notify"
	"github.com/retainly/retention-service/internal/queue/sqs"
	"github.com/retainly/retention-service/internal/recommend"
	"github.com/retainly/retention-service/internal/repository/clickhouse"
	"github.com/retainly/retention-service/internal/scoring"
	"github.com/retainly/retention-service/internal/service"
	"github.com/retainly/retention-service/internal/store"
	"github.com/retainly/retention-service/internal/textgen"
)

// @title Retention Service API
// @version 1.0
// @description API for behavioral event ingestion, churn risk insights, and retention automation
// @host localhost:8080
// @BasePath /
// @schemes http https
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting retention service",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize SQS client
	sqsClient, err := sqs.NewClient(ctx, cfg.SQS, log)
	if err != nil {
		log.Fatal("Failed to create SQS client", zap.Error(err))
	}

	// Initialize ClickHouse client and the event archive
	clickhouseClient, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, log)
	if err != nil {
		log.Fatal("Failed to create ClickHouse client", zap.Error(err))
	}
	defer func(clickhouseClient *clickhouse.Client) {
		if err := clickhouseClient.Close(); err != nil {
			log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	}(clickhouseClient)

	archive := clickhouse.NewRepository(clickhouseClient, log)
	if err := archive.InitSchema(ctx); err != nil {
		log.Fatal("Failed to initialize archive schema", zap.Error(err))
	}

	// Stores
	states := store.NewMemoryStateStore(log)
	assessments := store.NewMemoryAssessmentStore()
	recs := store.NewMemoryRecommendationStore()
	ledger := store.NewMemoryDeliveryLedger()
	feedbackStore := store.NewMemoryFeedbackStore()

	feedbackService := feedback.NewService(feedbackStore, log)

	// The queue consumer pipeline runs in-process so the aggregates it
	// builds are the same ones scoring reads.
	pipeline := consumer.NewConsumer(cfg, sqsClient, archive, states, feedbackService, log)
	go func() {
		if err := pipeline.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Fatal("Consumer pipeline error", zap.Error(err))
		}
	}()

	// Reasoning collaborator is optional.
	var generator textgen.Generator = textgen.Noop{}
	if cfg.TextGen.Endpoint != "" {
		generator = textgen.NewClient(cfg.TextGen, log)
	}

	scoringEngine := scoring.NewEngine(cfg.Scoring, generator, log)
	recommendEngine := recommend.NewEngine(recs, cfg.Notify.CooldownWindow(), log)

	transports := map[domain.Channel]notify.Transport{
		domain.ChannelEmail: notify.NewSMTPTransport(cfg.Notify, log),
		domain.ChannelChat:  notify.NewWebhookTransport(cfg.Notify, log),
	}
	dispatcher := notify.NewDispatcher(ledger, transports, cfg.Notify.DedupeWindow(), cfg.Notify.SendTimeout(), log)

	// Services
	eventService := service.NewEventService(sqsClient, archive, log)
	insightService := service.NewInsightService(states, assessments, recs, scoringEngine, recommendEngine, feedbackService, log)
	automationService := service.NewAutomationService(insightService, dispatcher, cfg.Notify.DashboardBaseURL, log)

	h := handler.NewHandler(eventService, insightService, automationService, feedbackService, dispatcher, log)

	addr := fmt.Sprintf(":%s", cfg.Service.APIPort)
	server := &http.Server{
		Addr:    addr,
		Handler: h,
	}

	go func() {
		log.Info("API server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start API server", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down gracefully")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Service.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}
	if err := states.Close(); err != nil {
		log.Error("State store close error", zap.Error(err))
	}
}

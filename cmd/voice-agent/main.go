package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/voicedesk/support-voice-agent/internal/api"
	"github.com/voicedesk/support-voice-agent/internal/catalog"
	"github.com/voicedesk/support-voice-agent/internal/classify"
	appconfig "github.com/voicedesk/support-voice-agent/internal/config"
	"github.com/voicedesk/support-voice-agent/internal/conversation"
	"github.com/voicedesk/support-voice-agent/internal/llm"
	"github.com/voicedesk/support-voice-agent/internal/observability/metrics"
	"github.com/voicedesk/support-voice-agent/internal/speech"
	"github.com/voicedesk/support-voice-agent/internal/tickets"
	"github.com/voicedesk/support-voice-agent/internal/tools"
	"github.com/voicedesk/support-voice-agent/pkg/logging"
)

func main() {
	// Best effort; in deployed environments configuration comes from the env.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting support-voice-agent",
		"env", cfg.Env,
		"port", cfg.Port,
		"model", cfg.BedrockModelID,
	)

	ctx := context.Background()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("redis ping failed", "addr", cfg.RedisAddr, "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Postgres is optional: without it the catalog is the built-in one,
	// tickets live in memory, and turns are not persisted.
	var (
		catalogRepo catalog.Repository
		ticketRepo  tickets.Repository
		turnLog     conversation.TurnLogSink = conversation.NopTurnLogSink{}
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		catalogRepo = catalog.NewPostgresRepository(pool)
		ticketRepo = tickets.NewPostgresRepository(pool)
		turnLog = conversation.NewPostgresTurnLogSink(pool)
		logger.Info("postgres connected")
	} else {
		catalogRepo = catalog.NewStaticRepository()
		ticketRepo = tickets.NewMemoryRepository()
		logger.Warn("DATABASE_URL not set, using in-memory catalog and tickets")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}
	bedrock := bedrockruntime.NewFromConfig(awsCfg)

	breaker := llm.NewCircuitBreaker(cfg.BreakerThreshold, cfg.BreakerCooldown, cfg.BreakerHalfOpenTrials)
	retry := llm.NewRetryPolicy(cfg.LLMMaxAttempts, cfg.LLMRetryBase, cfg.LLMRetryMaxWait)

	var llmClient llm.LLMClient = llm.NewResilientClient(
		llm.NewBedrockClient(bedrock),
		retry,
		breaker,
		cfg.LLMTimeout,
		logger,
	)
	if cfg.BedrockFallbackModel != "" {
		fallback := llm.NewStaticModelClient(llm.NewBedrockClient(bedrock), cfg.BedrockFallbackModel)
		llmClient = llm.NewFallbackClient(llmClient, fallback, logger)
	}

	classifier := classify.New(catalogRepo, classify.WithHighMultiplier(cfg.ClassifierHighMultiplier))
	executor := tools.NewExecutor(classifier, catalogRepo, ticketRepo, logger)

	synthesizer := speech.NewPiperSynthesizer(cfg.PiperURL, nil)
	var transcriber speech.Transcriber
	if cfg.DeepgramAPIKey != "" {
		transcriber = speech.NewDeepgramTranscriber(cfg.DeepgramAPIKey,
			speech.WithDeepgramModel(cfg.DeepgramModel))
	} else {
		logger.Warn("DEEPGRAM_API_KEY not set, audio transcription disabled")
	}

	turnMetrics := metrics.NewTurnMetrics(nil)
	replies := api.NewLastReplyStore()

	svc := conversation.NewService(conversation.Dependencies{
		LLM:         llmClient,
		Executor:    executor,
		Classifier:  classifier,
		Catalog:     catalogRepo,
		Redis:       rdb,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		Replies:     replies,
		TurnLog:     turnLog,
		Metrics:     turnMetrics,
		CostRates: conversation.CostRates{
			LLMInputPer1K:  cfg.CostLLMInputPer1K,
			LLMOutputPer1K: cfg.CostLLMOutputPer1K,
			TTSPer1KChars:  cfg.CostTTSPer1KChars,
			STTPerMinute:   cfg.CostSTTPerMinute,
		},
		Tracer: otel.Tracer("support-voice-agent"),
		Logger: logger,
	}, conversation.Options{
		ModelID:       cfg.BedrockModelID,
		MaxTokens:     int32(cfg.LLMMaxTokens),
		Temperature:   float32(cfg.LLMTemperature),
		MaxToolRounds: cfg.MaxToolRounds,
		HistoryTTL:    cfg.HistoryTTL,
	})

	router := api.NewRouter(api.RouterConfig{
		Sessions:       api.NewSessionHandler(svc, replies, logger),
		MetricsHandler: promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"marketmotion/internal/config"
	"marketmotion/internal/logger"
	"marketmotion/internal/metrics"
	"marketmotion/internal/orchestrator/briefing"
	"marketmotion/internal/orchestrator/topic"
	"marketmotion/internal/pgmq"
	"marketmotion/internal/pubsub"
	"marketmotion/internal/repository"
	"marketmotion/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

func main() {
	// Parse mode flag
	mode := flag.String("mode", "", "Orchestrator mode: briefing|topic")
	flag.Parse()

	// Initialize logger
	logger := logger.New()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		logger.Warn().Msg("Warning: no .env file found")
	}

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Msgf("Error loading config: %v", err)
	}

	// Set up context with graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize DB pool
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Msgf("Failed to create DB pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Msgf("Failed to ping DB: %v", err)
	}
	logger.Info().Msg("Database connection established")

	// Initialize PGMQ client
	pgmqClient := pgmq.New(pool)

	// Build the generation service and its collaborators
	gen := buildGenerationService(ctx, cfg, pool, logger)

	// Expose metrics
	metrics.MustRegister(prometheus.DefaultRegisterer)
	metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	// Dispatch to the selected orchestrator
	var runErr error
	switch *mode {
	case "briefing":
		runErr = briefing.Run(ctx, logger, pgmqClient, gen, briefing.Options{
			Queue:           cfg.BriefingQueueName,
			DeadLetterQueue: cfg.BriefingDeadLetterQueueName,
			PollTimeoutSec:  cfg.BriefingPollTimeoutSec,
			PollMaxMsg:      cfg.BriefingPollMaxMsg,
			MaxRetries:      cfg.BriefingMaxRetries,
			BackoffInitial:  time.Duration(cfg.BriefingBackoffInitialSec) * time.Second,
			BackoffMax:      time.Duration(cfg.BriefingBackoffMaxSec) * time.Second,
		})
	case "topic":
		runErr = topic.Run(ctx, logger, pgmqClient, gen, topic.Options{
			Queue:           cfg.TopicQueueName,
			DeadLetterQueue: cfg.TopicDeadLetterQueueName,
			PollTimeoutSec:  cfg.TopicPollTimeoutSec,
			PollMaxMsg:      cfg.TopicPollMaxMsg,
			MaxRetries:      cfg.TopicMaxRetries,
			BackoffInitial:  time.Duration(cfg.TopicBackoffInitialSec) * time.Second,
			BackoffMax:      time.Duration(cfg.TopicBackoffMaxSec) * time.Second,
		})
	default:
		logger.Fatal().Msgf("Invalid mode: %s", *mode)
	}

	if runErr != nil {
		logger.Fatal().Msgf("%s orchestrator failed: %v", *mode, runErr)
	}

	logger.Info().Msgf("%s orchestrator stopped gracefully", *mode)
}

func buildGenerationService(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) service.GenerationService {
	s3Config, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Fatal().Msgf("Failed to load S3 config: %v", err)
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	publisher, err := pubsub.NewPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create Pub/Sub publisher: %v", err)
	}

	keySource, err := service.NewProviderKeySource(ctx, cfg)
	if err != nil {
		logger.Fatal().Msgf("Failed to create provider key source: %v", err)
	}

	providerTimeout := time.Duration(cfg.ProviderTimeoutSec) * time.Second
	newsClient := service.NewNewsClient(cfg.NewsAPIBaseURL, keySource, providerTimeout)
	summarizer := service.NewSummarizer(cfg.SummarizerBaseURL, cfg.SummarizerModel, keySource, providerTimeout)
	speechClient := service.NewSpeechClient(cfg.SpeechBaseURL, cfg.SpeechVoice, keySource, providerTimeout)
	audioStore := service.NewAudioStore(s3Client, cfg.S3Bucket, logger)

	briefingRepo := repository.NewBriefingRepo(pool, logger)
	topicRepo := repository.NewTopicRepo(pool, logger)
	usageRepo := repository.NewUsageRepo(pool)
	quotaSvc := service.NewQuotaService(usageRepo, logger)

	return service.NewGenerationService(
		briefingRepo, topicRepo, quotaSvc,
		newsClient, summarizer, speechClient, audioStore,
		publisher, cfg.BriefingEventsTopic, logger,
	)
}

// removeDisableGzip is a workaround for S3 signature errors with some
// S3-compatible services.
// See: https://github.com/supabase/storage/issues/577
func removeDisableGzip() func(*awsmiddleware.Stack) error {
	return func(stack *awsmiddleware.Stack) error {
		if _, ok := stack.Finalize.Get("DisableAcceptEncodingGzip"); ok {
			_, err := stack.Finalize.Remove("DisableAcceptEncodingGzip")
			return err
		}
		return nil
	}
}

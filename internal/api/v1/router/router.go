package router

import (
	"context"
	"net/http"
	"strings"
	"time"

	"marketmotion/internal/access"
	"marketmotion/internal/api/v1/handler"
	"marketmotion/internal/cache"
	"marketmotion/internal/config"
	"marketmotion/internal/metrics"
	"marketmotion/internal/middleware"
	"marketmotion/internal/pgmq"
	"marketmotion/internal/repository"
	"marketmotion/internal/service"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awsmiddleware "github.com/aws/smithy-go/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// New wires the API: database pool, storage, cache, broker, services and
// routes. The returned pool is handed back so main can close it on shutdown.
func New(cfg *config.Config, logger zerolog.Logger) (http.Handler, *pgxpool.Pool, error) {
	logger.Info().Str("environment", cfg.Environment).Msg("Router initializing")

	// 1. Database pool
	dsn := cfg.DatabaseURL
	// Local development runs against a plain postgres container without TLS.
	if cfg.Environment == "development" && !strings.Contains(dsn, "sslmode") {
		separator := "?"
		if strings.Contains(dsn, "?") {
			separator = "&"
		}
		dsn += separator + "sslmode=disable"
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create DB pool")
		return nil, nil, err
	}
	if err := pool.Ping(context.Background()); err != nil {
		logger.Error().Err(err).Msg("Failed to ping DB")
		return nil, nil, err
	}
	logger.Info().Msg("Database connection successful")

	// 2. S3 client
	s3Config, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")),
		awsconfig.WithAPIOptions([]func(*awsmiddleware.Stack) error{removeDisableGzip()}),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load S3 config")
		return nil, nil, err
	}
	s3Client := s3.NewFromConfig(s3Config, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3URL)
		o.UsePathStyle = true
	})

	// 3. Redis cache
	redisClient := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	catalogCache := cache.New(redisClient)

	// 4. Validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// 5. Audio store, used by the read path to presign playback URLs.
	// Generation itself runs in the orchestrators, so the API carries no
	// provider clients.
	audioStore := service.NewAudioStore(s3Client, cfg.S3Bucket, logger)

	// 6. Generation job queue
	jobQueue := pgmq.New(pool)

	// 7. Repositories, services, handlers
	userRepo := repository.NewUserRepo(pool)
	briefingRepo := repository.NewBriefingRepo(pool, logger)
	topicRepo := repository.NewTopicRepo(pool, logger)
	usageRepo := repository.NewUsageRepo(pool)

	evaluator := access.NewEvaluator(nil)

	userSvc := service.NewUserService(userRepo, logger)
	quotaSvc := service.NewQuotaService(usageRepo, logger)
	briefingSvc := service.NewBriefingService(briefingRepo, evaluator, audioStore, catalogCache, logger)
	topicSvc := service.NewTopicService(topicRepo, evaluator, audioStore, logger)

	userHandler := handler.NewUserHandler(userSvc, validate)
	briefingHandler := handler.NewBriefingHandler(briefingSvc, quotaSvc, userSvc, jobQueue, cfg.BriefingQueueName, catalogCache, validate)
	topicHandler := handler.NewTopicHandler(topicSvc, quotaSvc, userSvc, jobQueue, cfg.TopicQueueName, catalogCache, validate)

	// 8. Middleware
	authMiddleware := middleware.AuthMiddleware(cfg.JWTSecret)
	optionalAuthMiddleware := middleware.OptionalAuthMiddleware(cfg.JWTSecret)

	// 9. Routes
	metrics.MustRegister(prometheus.DefaultRegisterer)

	mux := http.NewServeMux()
	apiV1Mux := http.NewServeMux()
	userHandler.RegisterRoutes(apiV1Mux, authMiddleware)
	briefingHandler.RegisterRoutes(apiV1Mux, authMiddleware, optionalAuthMiddleware)
	topicHandler.RegisterRoutes(apiV1Mux, authMiddleware, optionalAuthMiddleware)

	mux.Handle("/v1/", http.StripPrefix("/v1", apiV1Mux))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// 10. CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return middleware.LoggerMiddleware(c.Handler(mux)), pool, nil
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

package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/clouderp-code/email-processor/adapter/out/history"
	"github.com/clouderp-code/email-processor/adapter/out/knowledge"
	"github.com/clouderp-code/email-processor/adapter/out/llm"
	"github.com/clouderp-code/email-processor/adapter/out/persistence"
	"github.com/clouderp-code/email-processor/adapter/out/provider"
	"github.com/clouderp-code/email-processor/config"
	"github.com/clouderp-code/email-processor/core/service/classify"
	"github.com/clouderp-code/email-processor/core/service/intake"
	"github.com/clouderp-code/email-processor/core/service/pipeline"
	"github.com/clouderp-code/email-processor/core/service/respond"
	"github.com/clouderp-code/email-processor/infra/database"
	"github.com/clouderp-code/email-processor/pkg/logger"
	"github.com/clouderp-code/email-processor/pkg/metrics"
	"github.com/clouderp-code/email-processor/pkg/ratelimit"
	"github.com/clouderp-code/email-processor/pkg/resilience"
)

// Dependencies holds every wired component of the service.
type Dependencies struct {
	Config *config.Config
	Log    zerolog.Logger

	DB    *pgxpool.Pool
	SQLDB *sqlx.DB
	Redis *redis.Client
	Mongo *mongo.Client

	Registry *prometheus.Registry
	Metrics  *metrics.PipelineMetrics

	Pipeline *pipeline.Pipeline
}

// NewDependencies wires the full pipeline. The returned cleanup closes
// every connection, safe to call after partial initialization.
func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	log := logger.New("email-processor", cfg.LogLevel, cfg.Environment)

	deps := &Dependencies{Config: cfg, Log: log}
	cleanup := func() {
		if deps.Mongo != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = deps.Mongo.Disconnect(ctx)
			cancel()
		}
		if deps.Redis != nil {
			_ = deps.Redis.Close()
		}
		if deps.SQLDB != nil {
			_ = deps.SQLDB.Close()
		}
		if deps.DB != nil {
			deps.DB.Close()
		}
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	deps.DB = db

	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect sqlx: %w", err)
	}
	deps.SQLDB = sqlDB

	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	deps.Redis = redisClient

	mongoClient, err := database.NewMongo(cfg.MongoDBURL)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("connect mongodb: %w", err)
	}
	deps.Mongo = mongoClient

	deps.Registry = prometheus.NewRegistry()
	deps.Metrics = metrics.NewPipelineMetrics(deps.Registry)

	// Outbound adapters
	llmClient := llm.NewClient(&llm.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.LLMModel,
	}, log)

	googleCfg := &provider.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
		CalendarID:   cfg.GoogleCalendarID,
	}
	calendarAdapter := provider.NewGoogleCalendarAdapter(googleCfg, log)
	gmailAdapter := provider.NewGmailAdapter(googleCfg, log)

	kbAdapter := knowledge.NewMongoAdapter(mongoClient, cfg.MongoDBName, cfg.KBCollection)
	historyAdapter := history.NewRedisAdapter(redisClient)
	store := persistence.NewProcessingAdapter(sqlDB)

	// Responders and router. Router construction fails unless every
	// category is covered.
	router, err := respond.NewRouter(
		respond.NewInquiryResponder(llmClient, log),
		respond.NewSupportResponder(llmClient, kbAdapter, deps.Metrics, log),
		respond.NewMeetingResponder(llmClient, calendarAdapter, log),
		respond.NewFollowUpResponder(llmClient, historyAdapter, deps.Metrics, log),
	)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build router: %w", err)
	}

	limiter := ratelimit.NewConcurrencyLimiter(map[string]int{
		"classification": cfg.ClassifyMaxInFlight,
		"generation":     cfg.GenerateMaxInFlight,
	})

	deps.Pipeline = pipeline.New(pipeline.Deps{
		Normalizer: intake.NewNormalizer(log),
		Classifier: classify.NewClassifier(llmClient, log),
		Scorer:     classify.NewPriorityScorer(),
		Router:     router,
		Publisher:  pipeline.NewPublisher(gmailAdapter, calendarAdapter, log),
		Store:      store,
		History:    historyAdapter,
		Limiter:    limiter,
		Metrics:    deps.Metrics,
		Config: &pipeline.Config{
			CallTimeout: cfg.CallTimeout,
			ClassifyRetry: &resilience.RetryPolicy{
				MaxAttempts:  cfg.ClassifyMaxRetries,
				InitialDelay: cfg.RetryInitialDelay,
				MaxDelay:     5 * time.Second,
				Multiplier:   2.0,
				Jitter:       0.2,
			},
			GenerateRetry: &resilience.RetryPolicy{
				MaxAttempts:  cfg.GenerateMaxRetries,
				InitialDelay: cfg.RetryInitialDelay,
				MaxDelay:     5 * time.Second,
				Multiplier:   2.0,
				Jitter:       0.2,
			},
		},
		Log: log,
	})

	return deps, cleanup, nil
}

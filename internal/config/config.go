package config

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	JWTSecret   string `envconfig:"JWT_SECRET" required:"true"`

	// Audio storage (S3-compatible; Supabase Storage in production)
	S3URL       string `envconfig:"S3_URL" required:"true"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"briefings"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" required:"true"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" required:"true"`

	// Redis cache
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// GCP
	GCPProjectID          string `envconfig:"GCP_PROJECT_ID"`
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE"`
	BriefingEventsTopic   string `envconfig:"BRIEFING_EVENTS_TOPIC" default:"briefing-events"`
	PubSubEmulatorHost    string `envconfig:"PUBSUB_EMULATOR_HOST"`

	// Generation providers. Keys are resolved through Secret Manager first,
	// with these env values as local fallback.
	NewsAPIBaseURL     string `envconfig:"NEWS_API_BASE_URL" default:"https://api.finlight.me/v1"`
	NewsAPIKey         string `envconfig:"NEWS_API_KEY"`
	SummarizerBaseURL  string `envconfig:"SUMMARIZER_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	SummarizerModel    string `envconfig:"SUMMARIZER_MODEL" default:"gemini-2.0-flash"`
	SummarizerAPIKey   string `envconfig:"SUMMARIZER_API_KEY"`
	SpeechBaseURL      string `envconfig:"SPEECH_BASE_URL" default:"https://api.fish.audio/v1"`
	SpeechVoice        string `envconfig:"SPEECH_VOICE" default:"broadcast-male-1"`
	SpeechAPIKey       string `envconfig:"SPEECH_API_KEY"`
	ProviderTimeoutSec int    `envconfig:"PROVIDER_TIMEOUT_SEC" default:"120"`

	// Briefing orchestrator settings
	BriefingQueueName           string `envconfig:"BRIEFING_QUEUE_NAME" default:"briefing_generation_queue"`
	BriefingPollTimeoutSec      int    `envconfig:"BRIEFING_POLL_TIMEOUT_SEC" default:"30"`
	BriefingPollMaxMsg          int    `envconfig:"BRIEFING_POLL_MAX_MSG" default:"1"`
	BriefingMaxRetries          int    `envconfig:"BRIEFING_MAX_RETRIES" default:"5"`
	BriefingBackoffInitialSec   int    `envconfig:"BRIEFING_BACKOFF_INITIAL_SEC" default:"1"`
	BriefingBackoffMaxSec       int    `envconfig:"BRIEFING_BACKOFF_MAX_SEC" default:"60"`
	BriefingDeadLetterQueueName string `envconfig:"BRIEFING_DEAD_LETTER_QUEUE_NAME" default:"briefing_generation_queue_dlq"`

	// Topic briefing orchestrator settings
	TopicQueueName           string `envconfig:"TOPIC_QUEUE_NAME" default:"topic_briefing_queue"`
	TopicPollTimeoutSec      int    `envconfig:"TOPIC_POLL_TIMEOUT_SEC" default:"30"`
	TopicPollMaxMsg          int    `envconfig:"TOPIC_POLL_MAX_MSG" default:"1"`
	TopicMaxRetries          int    `envconfig:"TOPIC_MAX_RETRIES" default:"5"`
	TopicBackoffInitialSec   int    `envconfig:"TOPIC_BACKOFF_INITIAL_SEC" default:"1"`
	TopicBackoffMaxSec       int    `envconfig:"TOPIC_BACKOFF_MAX_SEC" default:"60"`
	TopicDeadLetterQueueName string `envconfig:"TOPIC_DEAD_LETTER_QUEUE_NAME" default:"topic_briefing_queue_dlq"`

	// Orchestrator metrics endpoint
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9091"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

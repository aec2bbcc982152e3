package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Service holds process-level settings shared by both binaries.
type Service struct {
	Environment     string `envconfig:"SERVICE_ENVIRONMENT" default:"development"`
	APIPort         string `envconfig:"SERVICE_API_PORT" default:"8080"`
	Host            string `envconfig:"SERVICE_HOST" default:"localhost:8080"`
	ShutdownTimeout int    `envconfig:"SERVICE_SHUTDOWN_TIMEOUT_SEC" default:"15"`
}

// SQS configures the ingestion queue.
type SQS struct {
	Endpoint string `envconfig:"SQS_ENDPOINT"`
	QueueURL string `envconfig:"SQS_QUEUE_URL" required:"true"`
	Region   string `envconfig:"SQS_REGION" default:"eu-central-1"`
}

// ClickHouse configures the append-only event archive.
type ClickHouse struct {
	Host            string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port            string `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	Database        string `envconfig:"CLICKHOUSE_DB" default:"retention"`
	User            string `envconfig:"CLICKHOUSE_USER" default:""`
	Password        string `envconfig:"CLICKHOUSE_PASSWORD" default:""`
	UseTLS          bool   `envconfig:"CLICKHOUSE_USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"CLICKHOUSE_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"CLICKHOUSE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CLICKHOUSE_CONN_MAX_LIFETIME_SEC" default:"3600"`
}

// Consumer configures the queue consumer pipeline.
type Consumer struct {
	BatchSizeMax    int    `envconfig:"CONSUMER_BATCH_SIZE_MAX" default:"500"`
	BatchTimeoutSec int    `envconfig:"CONSUMER_BATCH_TIMEOUT_SEC" default:"10"`
	HealthCheckPort string `envconfig:"CONSUMER_HEALTH_CHECK_PORT" default:"8081"`
}

// Scoring configures the risk scoring engine. Weights are defaults and
// tunable per deployment; the riskLevel thresholds live here so tier
// derivation is named exactly once.
type Scoring struct {
	ModelVersion        string  `envconfig:"SCORING_MODEL_VERSION" default:"v1.2.0"`
	WeightLoginRecency  float64 `envconfig:"SCORING_WEIGHT_LOGIN_RECENCY" default:"0.30"`
	WeightSessionLength float64 `envconfig:"SCORING_WEIGHT_SESSION_LENGTH" default:"0.15"`
	WeightFeatureUsage  float64 `envconfig:"SCORING_WEIGHT_FEATURE_USAGE" default:"0.20"`
	WeightSupportLoad   float64 `envconfig:"SCORING_WEIGHT_SUPPORT_LOAD" default:"0.15"`
	WeightBillingHealth float64 `envconfig:"SCORING_WEIGHT_BILLING_HEALTH" default:"0.20"`
	HighThreshold       float64 `envconfig:"SCORING_HIGH_THRESHOLD" default:"0.7"`
	MediumThreshold     float64 `envconfig:"SCORING_MEDIUM_THRESHOLD" default:"0.4"`
	StaleLoginDays      int     `envconfig:"SCORING_STALE_LOGIN_DAYS" default:"7"`
}

// Notify configures the notification dispatcher and the recommendation
// cool-down window.
type Notify struct {
	DedupeWindowSec   int    `envconfig:"NOTIFY_DEDUPE_WINDOW_SEC" default:"3600"`
	SendTimeoutSec    int    `envconfig:"NOTIFY_SEND_TIMEOUT_SEC" default:"10"`
	SMTPHost          string `envconfig:"NOTIFY_SMTP_HOST" default:"localhost"`
	SMTPPort          string `envconfig:"NOTIFY_SMTP_PORT" default:"587"`
	SMTPFrom          string `envconfig:"NOTIFY_SMTP_FROM" default:"alerts@retainly.io"`
	ChatWebhookURL    string `envconfig:"NOTIFY_CHAT_WEBHOOK_URL"`
	DashboardBaseURL  string `envconfig:"NOTIFY_DASHBOARD_BASE_URL" default:"http://localhost:3000"`
	CooldownWindowSec int    `envconfig:"RECOMMEND_COOLDOWN_WINDOW_SEC" default:"86400"`
}

// TextGen configures the external text-generation collaborator used for
// qualitative reasoning. The numeric pipeline never depends on it.
type TextGen struct {
	Endpoint   string `envconfig:"TEXTGEN_ENDPOINT"`
	APIKey     string `envconfig:"TEXTGEN_API_KEY"`
	Model      string `envconfig:"TEXTGEN_MODEL" default:"gpt-4o-mini"`
	TimeoutSec int    `envconfig:"TEXTGEN_TIMEOUT_SEC" default:"8"`
}

// Config is the process configuration loaded from the environment.
type Config struct {
	Service    Service
	SQS        SQS
	ClickHouse ClickHouse
	Consumer   Consumer
	Scoring    Scoring
	Notify     Notify
	TextGen    TextGen
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

// DedupeWindow returns the dedupe window as a duration.
func (n Notify) DedupeWindow() time.Duration {
	return time.Duration(n.DedupeWindowSec) * time.Second
}

// CooldownWindow returns the recommendation cool-down as a duration.
func (n Notify) CooldownWindow() time.Duration {
	return time.Duration(n.CooldownWindowSec) * time.Second
}

// SendTimeout returns the transport delivery timeout as a duration.
func (n Notify) SendTimeout() time.Duration {
	return time.Duration(n.SendTimeoutSec) * time.Second
}

// Timeout returns the collaborator call timeout as a duration.
func (t TextGen) Timeout() time.Duration {
	return time.Duration(t.TimeoutSec) * time.Second
}

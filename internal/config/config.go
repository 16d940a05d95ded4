package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Storage      StorageConfig
	Inference    InferenceConfig
	Verification VerificationConfig
	Kafka        KafkaConfig
	Worker       WorkerConfig
	Notification NotificationConfig
	Tracing      TracingConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	BodyLimitMB           int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret           string
	AccessTokenTTLHours int
}

// StorageConfig points at the S3-compatible bucket holding uploaded images.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// InferenceConfig locates the external model and OCR endpoints.
type InferenceConfig struct {
	OCRURL          string
	DeepfakeURL     string
	EmbedderURL     string
	FaceDetectorURL string
	Timeout         time.Duration
}

// VerificationConfig carries the tunable decision policy. Production and tests
// supply their own instances.
type VerificationConfig struct {
	NameMatchThreshold        int
	DocumentDeepfakeThreshold float64
	FrameDeepfakeThreshold    float64
	FaceSimilarityFloor       float64
	FaceDistanceCeiling       float64
	FaceMarginRatio           float64
	EmbeddingInputSize        int
	DeepfakeInputSize         int
	MaxLiveFrames             int
	MaxImagePixels            int
	UploadConcurrency         int
	UserLockTTL               time.Duration
	VerificationMethod        string
}

// KafkaConfig enables the event sink when brokers are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// WorkerConfig controls background jobs.
type WorkerConfig struct {
	SweepInterval time.Duration
}

// NotificationConfig holds delivery targets for notification stubs.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// TracingConfig enables OTLP trace export when an endpoint is set.
type TracingConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

// DefaultVerification returns the policy values the service ships with.
func DefaultVerification() VerificationConfig {
	return VerificationConfig{
		NameMatchThreshold:        80,
		DocumentDeepfakeThreshold: 0.2,
		FrameDeepfakeThreshold:    0.5,
		FaceSimilarityFloor:       0.1,
		FaceDistanceCeiling:       1.5,
		FaceMarginRatio:           0.2,
		EmbeddingInputSize:        160,
		DeepfakeInputSize:         128,
		MaxLiveFrames:             10,
		MaxImagePixels:            25_000_000,
		UploadConcurrency:         4,
		UserLockTTL:               30 * time.Second,
		VerificationMethod:        "Facial Recognition & ID Verification",
	}
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	defaults := DefaultVerification()

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "elife-verification"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
			BodyLimitMB:           getEnvAsInt("HTTP_BODY_LIMIT_MB", 25),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:           getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLHours: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_HOURS", 24),
		},
		Storage: StorageConfig{
			Endpoint:      getEnv("STORAGE_ENDPOINT", "127.0.0.1:9000"),
			AccessKey:     os.Getenv("STORAGE_ACCESS_KEY"),
			SecretKey:     os.Getenv("STORAGE_SECRET_KEY"),
			Bucket:        getEnv("STORAGE_BUCKET", "elife-uploads"),
			UseSSL:        getEnvAsBool("STORAGE_USE_SSL", false),
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		},
		Inference: InferenceConfig{
			OCRURL:          getEnv("INFERENCE_OCR_URL", "http://127.0.0.1:9100"),
			DeepfakeURL:     getEnv("INFERENCE_DEEPFAKE_URL", "http://127.0.0.1:9101"),
			EmbedderURL:     getEnv("INFERENCE_EMBEDDER_URL", "http://127.0.0.1:9102"),
			FaceDetectorURL: getEnv("INFERENCE_FACE_DETECTOR_URL", "http://127.0.0.1:9103"),
			Timeout:         getEnvAsDuration("INFERENCE_TIMEOUT", 15*time.Second),
		},
		Verification: VerificationConfig{
			NameMatchThreshold:        getEnvAsInt("VERIFY_NAME_MATCH_THRESHOLD", defaults.NameMatchThreshold),
			DocumentDeepfakeThreshold: getEnvAsFloat("VERIFY_DOCUMENT_DEEPFAKE_THRESHOLD", defaults.DocumentDeepfakeThreshold),
			FrameDeepfakeThreshold:    getEnvAsFloat("VERIFY_FRAME_DEEPFAKE_THRESHOLD", defaults.FrameDeepfakeThreshold),
			FaceSimilarityFloor:       getEnvAsFloat("VERIFY_FACE_SIMILARITY_FLOOR", defaults.FaceSimilarityFloor),
			FaceDistanceCeiling:       getEnvAsFloat("VERIFY_FACE_DISTANCE_CEILING", defaults.FaceDistanceCeiling),
			FaceMarginRatio:           getEnvAsFloat("VERIFY_FACE_MARGIN_RATIO", defaults.FaceMarginRatio),
			EmbeddingInputSize:        getEnvAsInt("VERIFY_EMBEDDING_INPUT_SIZE", defaults.EmbeddingInputSize),
			DeepfakeInputSize:         getEnvAsInt("VERIFY_DEEPFAKE_INPUT_SIZE", defaults.DeepfakeInputSize),
			MaxLiveFrames:             getEnvAsInt("VERIFY_MAX_LIVE_FRAMES", defaults.MaxLiveFrames),
			MaxImagePixels:            getEnvAsInt("VERIFY_MAX_IMAGE_PIXELS", defaults.MaxImagePixels),
			UploadConcurrency:         getEnvAsInt("VERIFY_UPLOAD_CONCURRENCY", defaults.UploadConcurrency),
			UserLockTTL:               getEnvAsDuration("VERIFY_USER_LOCK_TTL", defaults.UserLockTTL),
			VerificationMethod:        getEnv("VERIFY_METHOD_LABEL", defaults.VerificationMethod),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getEnv("KAFKA_TOPIC", "elife.verification.events"),
		},
		Worker: WorkerConfig{
			SweepInterval: getEnvAsDuration("WORKER_SWEEP_INTERVAL", time.Hour),
		},
		Notification: NotificationConfig{
			EmailFrom:  os.Getenv("NOTIFY_EMAIL_FROM"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
		Tracing: TracingConfig{
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

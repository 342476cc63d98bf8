package config

import (
	"fmt"
	"log"
	"net"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix is prepended to every variable name, e.g. MIXLENS_HTTP_ADDR.
const envPrefix = "mixlens"

// Config stores the application configuration.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	WorkDir  string `envconfig:"WORK_DIR" default:"tmp"`

	// Analysis engine
	AnalysisSampleRate int           `envconfig:"ANALYSIS_SAMPLE_RATE" default:"48000"`
	Workers            int           `envconfig:"WORKERS" default:"2"`
	QueueSize          int           `envconfig:"QUEUE_SIZE" default:"64"`
	JobTTL             time.Duration `envconfig:"JOB_TTL" default:"24h"`
	FFmpegPath         string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`

	// Source separation: "demucs" or "none"
	Separator   string `envconfig:"SEPARATOR" default:"demucs"`
	DemucsPath  string `envconfig:"DEMUCS_PATH" default:"demucs"`
	DemucsModel string `envconfig:"DEMUCS_MODEL" default:"htdemucs"`

	// Job store: "memory" or "redis"
	Store string `envconfig:"STORE" default:"memory"`

	// Redis job store
	RedisHost     string `envconfig:"REDIS_HOST" default:"127.0.0.1"`
	RedisPort     string `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// MySQL history of finished analyses
	HistoryEnabled bool   `envconfig:"HISTORY_ENABLED" default:"false"`
	DBHost         string `envconfig:"DB_HOST" default:"127.0.0.1"`
	DBPort         string `envconfig:"DB_PORT" default:"3306"`
	DBUser         string `envconfig:"DB_USER" default:"root"`
	DBPassword     string `envconfig:"DB_PASSWORD"`
	DBName         string `envconfig:"DB_NAME" default:"mixlens"`

	// MinIO artifact storage
	MinioEnabled   bool   `envconfig:"MINIO_ENABLED" default:"false"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" default:"127.0.0.1:9000"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinioBucket    string `envconfig:"MINIO_BUCKET" default:"mixlens"`
	MinioRegion    string `envconfig:"MINIO_REGION" default:"us-east-1"`
	MinioUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// Empty secret disables bearer auth on the API.
	JWTSecret string `envconfig:"JWT_SECRET"`

	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile       string `envconfig:"LOG_FILE"`
	LogMaxSizeMB  int    `envconfig:"LOG_MAX_SIZE_MB" default:"100"`
	LogMaxBackups int    `envconfig:"LOG_MAX_BACKUPS" default:"5"`
	LogMaxAgeDays int    `envconfig:"LOG_MAX_AGE_DAYS" default:"30"`
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() (*Config, error) {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.AnalysisSampleRate <= 0 {
		return fmt.Errorf("analysis sample rate must be positive, got %d", c.AnalysisSampleRate)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.QueueSize)
	}
	switch c.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown job store %q (want memory or redis)", c.Store)
	}
	switch c.Separator {
	case "demucs", "none":
	default:
		return fmt.Errorf("unknown separator %q (want demucs or none)", c.Separator)
	}
	return nil
}

// RedisAddr returns host:port for the Redis client.
func (c *Config) RedisAddr() string {
	return net.JoinHostPort(c.RedisHost, c.RedisPort)
}

// MySQLDSN builds the GORM mysql DSN.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		c.DBUser, c.DBPassword, net.JoinHostPort(c.DBHost, c.DBPort), c.DBName)
}

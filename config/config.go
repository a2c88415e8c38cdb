package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"storebackend"`
	Port            string        `env:"PORT" envDefault:"5000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS" envSeparator:","`

	Mongo     MongoConfig
	Auth      AuthConfig
	Catalog   CatalogConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Razorpay  RazorpayConfig
	SendGrid  SendGridConfig
	RateLimit RateLimitConfig
	Seed      SeedConfig

	// DotEnvLoaded is set by Load when a .env file was read.
	DotEnvLoaded bool
}

type MongoConfig struct {
	URI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	Database string `env:"DATABASE_NAME" envDefault:"storebackend"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET,notEmpty"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"720h"`
}

// CatalogConfig holds the listing defaults of the public catalog.
type CatalogConfig struct {
	DefaultLimit int           `env:"CATALOG_DEFAULT_LIMIT" envDefault:"12"`
	MaxLimit     int           `env:"CATALOG_MAX_LIMIT" envDefault:"100"`
	SimilarLimit int           `env:"CATALOG_SIMILAR_LIMIT" envDefault:"4"`
	TopLimit     int           `env:"CATALOG_TOP_LIMIT" envDefault:"3"`
	CacheTTL     time.Duration `env:"CATALOG_CACHE_TTL" envDefault:"5m"`
}

// StorageConfig selects the image backend. Backend "auto" picks gcs, then
// r2, then local, depending on which credentials are present.
type StorageConfig struct {
	Backend        string `env:"STORAGE_BACKEND" envDefault:"auto"`
	MaxUploadMB    int    `env:"MAX_UPLOAD_SIZE_MB" envDefault:"10"`
	MaxImages      int    `env:"MAX_PROD_IMAGES" envDefault:"5"`
	DefaultImage   string `env:"DEFAULT_PRODUCT_IMAGE" envDefault:"/images/sample.jpg"`
	LocalDir       string `env:"UPLOAD_DIR" envDefault:"./uploads"`
	LocalURLPrefix string `env:"UPLOAD_URL_PREFIX" envDefault:"/uploads"`

	GCSBucket          string `env:"GCS_BUCKET"`
	GCSCredentialsFile string `env:"CREDENTIALS_FILE_LOCATION"`

	R2Bucket          string `env:"R2_BUCKET"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2Endpoint        string `env:"R2_ENDPOINT"`
	R2PublicDomain    string `env:"R2_PUBLIC_DOMAIN"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"store.events"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

type RazorpayConfig struct {
	KeyID     string        `env:"RAZORPAY_KEY_ID"`
	KeySecret string        `env:"RAZORPAY_KEY_SECRET"`
	BaseURL   string        `env:"RAZORPAY_BASE_URL" envDefault:"https://api.razorpay.com/v1"`
	Currency  string        `env:"RAZORPAY_CURRENCY" envDefault:"INR"`
	Timeout   time.Duration `env:"RAZORPAY_TIMEOUT" envDefault:"10s"`
}

type SendGridConfig struct {
	APIKey    string `env:"SENDGRID_API_KEY"`
	FromEmail string `env:"SENDGRID_FROM_EMAIL" envDefault:"orders@nirmalhandloom.in"`
	FromName  string `env:"SENDGRID_FROM_NAME" envDefault:"Nirmal Handloom"`
}

func (c SendGridConfig) Enabled() bool { return c.APIKey != "" }

type RateLimitConfig struct {
	AuthRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	AuthBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`
}

type SeedConfig struct {
	AdminName      string `env:"ADMIN_NAME" envDefault:"Admin"`
	AdminEmail     string `env:"ADMIN_EMAIL"`
	AdminPassword  string `env:"ADMIN_PASSWORD"`
	SeedCategories bool   `env:"SEED_CATEGORIES" envDefault:"false"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	loaded := godotenv.Load() == nil
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	cfg.DotEnvLoaded = loaded
	return cfg, nil
}

// Parse parses the current process environment without touching .env.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Catalog.DefaultLimit < 1 {
		cfg.Catalog.DefaultLimit = 12
	}
	if cfg.Catalog.MaxLimit < cfg.Catalog.DefaultLimit {
		cfg.Catalog.MaxLimit = cfg.Catalog.DefaultLimit
	}
	return &cfg, nil
}

package config

import (
	"fmt"
	"log"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string `env:"DB_HOST" env-default:"localhost"`
	DBPort     string `env:"DB_PORT" env-default:"5432"`
	DBUser     string `env:"DB_USER" env-default:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" env-default:"bookpassport"`
	DBSSLMode  string `env:"DB_SSLMODE" env-default:"require"`

	ServerPort string `env:"SERVER_PORT" env-default:"8080"`

	// JWTSecret verifies access tokens minted by the hosted auth provider.
	JWTSecret string `env:"JWT_SECRET"`

	RedisURL string `env:"REDIS_URL"`

	FirebaseProjectID   string `env:"FIREBASE_PROJECT_ID"`
	FirebaseClientEmail string `env:"FIREBASE_CLIENT_EMAIL"`
	FirebasePrivateKey  string `env:"FIREBASE_PRIVATE_KEY"`
	ExpoPushEnabled     bool   `env:"EXPO_PUSH_ENABLED" env-default:"false"`

	R2AccountID       string `env:"R2_ACCOUNT_ID"`
	R2AccessKeyID     string `env:"R2_ACCESS_KEY_ID"`
	R2SecretAccessKey string `env:"R2_SECRET_ACCESS_KEY"`
	R2BucketName      string `env:"R2_BUCKET_NAME"`
	R2PublicURL       string `env:"R2_PUBLIC_URL"`

	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" env-default:"gemini-2.5-flash"`
	AIRatePerSec float64       `env:"AI_RATE_PER_SEC" env-default:"2"`
	AIRateBurst  int           `env:"AI_RATE_BURST" env-default:"5"`
	AITimeout    time.Duration `env:"AI_REQUEST_TIMEOUT" env-default:"30s"`

	PushWorkerCount int `env:"PUSH_WORKER_COUNT" env-default:"2"`

	// AllowedOrigins is matched against the websocket Origin header. Empty allows all.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" env-separator:","`
}

// PushEnabled reports whether FCM credentials are present.
func (c *Config) PushEnabled() bool {
	return c.FirebaseProjectID != "" && c.FirebaseClientEmail != "" && c.FirebasePrivateKey != ""
}

// MediaEnabled reports whether the R2 bucket is configured.
func (c *Config) MediaEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" &&
		c.R2BucketName != "" && c.R2PublicURL != ""
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.PushWorkerCount <= 0 {
		cfg.PushWorkerCount = 2
	}

	return &cfg, nil
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	IdempotencyBackendMemory   = "memory"
	IdempotencyBackendPostgres = "postgres"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL string
	ServerPort  int
	CORSOrigin  string

	IdempotencyTTL     time.Duration
	IdempotencyBackend string

	MatchPolicy MatchPolicy

	R2 R2Config
}

// R2Config: параметры Cloudflare R2 для архива протоколов матчей.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

// Enabled reports whether any R2 variable is set. Load rejects partial configs.
func (c R2Config) Enabled() bool {
	return c.AccountID != "" || c.AccessKeyID != "" || c.SecretAccessKey != "" || c.BucketName != "" || c.PublicBaseURL != ""
}

func (c R2Config) complete() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != "" && c.PublicBaseURL != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load() // Файл .env не обязателен

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := strconv.Atoi(getEnvOrDefault("SERVER_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	ttl, err := time.ParseDuration(getEnvOrDefault("IDEMPOTENCY_TTL", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid IDEMPOTENCY_TTL environment variable: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL must be positive, got %s", ttl)
	}

	backend := getEnvOrDefault("IDEMPOTENCY_BACKEND", IdempotencyBackendMemory)
	if backend != IdempotencyBackendMemory && backend != IdempotencyBackendPostgres {
		return nil, fmt.Errorf("IDEMPOTENCY_BACKEND must be %q or %q, got %q", IdempotencyBackendMemory, IdempotencyBackendPostgres, backend)
	}

	profiles := DefaultPolicyProfiles()
	if path := os.Getenv("MATCH_POLICY_FILE"); path != "" {
		profiles, err = LoadPolicyProfiles(path)
		if err != nil {
			return nil, err
		}
	}
	policyName := getEnvOrDefault("MATCH_POLICY", DefaultPolicyName)
	policy, ok := profiles[policyName]
	if !ok {
		return nil, fmt.Errorf("MATCH_POLICY %q is not defined", policyName)
	}

	r2 := R2Config{
		AccountID:       os.Getenv("R2_ACCOUNT_ID"),
		AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
		BucketName:      os.Getenv("R2_BUCKET_NAME"),
		PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
	}
	if r2.Enabled() && !r2.complete() {
		return nil, fmt.Errorf("R2 configuration is incomplete: set all R2_* variables or none")
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		ServerPort:         port,
		CORSOrigin:         getEnvOrDefault("CORS_ORIGIN", "*"),
		IdempotencyTTL:     ttl,
		IdempotencyBackend: backend,
		MatchPolicy:        policy,
		R2:                 r2,
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

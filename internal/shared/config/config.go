package config

import (
	"fmt"
	"os"
	"strings"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string

	// StorageBackend selects where originals and variants live: "r2" for the
	// S3-compatible remote store, "local" for the filesystem.
	StorageBackend string
	LocalStoreDir  string

	R2AccountID string
	R2AccessKey string
	R2SecretKey string
	R2Bucket    string
	R2Region    string

	// RequireDigestEcho makes integrity-checked uploads fail when the backend
	// does not echo the stored digest back in object metadata.
	RequireDigestEcho bool

	QueueURL  string
	AWSRegion string

	DatabaseURL string
	Env         string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))

	return Config{
		Port:              getEnv("PORT", "8080"),
		CORSAllowOrigin:   splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		StorageBackend:    normalizeBackend(getEnv("STORAGE_BACKEND", "local")),
		LocalStoreDir:     getEnv("LOCAL_STORE_DIR", "./data"),
		R2AccountID:       getEnv("GB_R2_ACCOUNT_ID", ""),
		R2AccessKey:       getEnv("GB_R2_ACCESS_KEY", ""),
		R2SecretKey:       getEnv("GB_R2_SECRET_KEY", ""),
		R2Bucket:          getEnv("GB_R2_BUCKET_NAME", ""),
		R2Region:          getEnv("GB_R2_REGION", "auto"),
		RequireDigestEcho: getEnv("STORAGE_REQUIRE_DIGEST_ECHO", "") == "true",
		QueueURL:          getEnv("GB_SQS_QUEUE_URL", ""),
		AWSRegion:         getEnv("AWS_REGION", "us-east-1"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Env:               env,
	}
}

// Validate reports configuration that must stop startup. With the remote
// backend selected, every credential is required.
func (c Config) Validate() error {
	if c.StorageBackend != "r2" {
		return nil
	}
	missing := []string{}
	if strings.TrimSpace(c.R2AccountID) == "" {
		missing = append(missing, "GB_R2_ACCOUNT_ID")
	}
	if strings.TrimSpace(c.R2AccessKey) == "" {
		missing = append(missing, "GB_R2_ACCESS_KEY")
	}
	if strings.TrimSpace(c.R2SecretKey) == "" {
		missing = append(missing, "GB_R2_SECRET_KEY")
	}
	if strings.TrimSpace(c.R2Bucket) == "" {
		missing = append(missing, "GB_R2_BUCKET_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required R2 configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "r2", "remote", "s3":
		return "r2"
	default:
		return "local"
	}
}

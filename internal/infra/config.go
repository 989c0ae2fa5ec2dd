package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	// Google Cloud project hosting Vertex AI and the asset bucket.
	ProjectID string
	Location  string
	GCSBucket string

	// Firebase project whose ID tokens are accepted.
	FirebaseProjectID string
	AllowedEmails     []string

	// Model identifiers forwarded to Vertex AI.
	GeminiImageModel string
	GeminiTextModel  string
	VeoModel         string
	UpscaleModel     string

	// Development fallback: when set, blobs go to the local filesystem
	// instead of GCS and URLs are served from StorageBaseURL.
	StoragePath    string
	StorageBaseURL string

	CORSOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ProjectID:         os.Getenv("PROJECT_ID"),
		Location:          getEnv("LOCATION", "us-central1"),
		GCSBucket:         os.Getenv("GCS_BUCKET"),
		FirebaseProjectID: os.Getenv("FIREBASE_PROJECT_ID"),
		AllowedEmails:     getEnvList("ALLOWED_EMAILS"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-3-pro-preview"),
		VeoModel:          getEnv("VEO_MODEL", "veo-3.1-generate-preview"),
		UpscaleModel:      getEnv("UPSCALE_MODEL", "imagen-4.0-upscale-preview"),
		StoragePath:       os.Getenv("STORAGE_PATH"),
		StorageBaseURL:    getEnv("STORAGE_BASE_URL", "http://localhost:8080/static"),
		CORSOrigins:       getEnvList("CORS_ORIGINS"),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID is required")
	}

	if cfg.FirebaseProjectID == "" {
		cfg.FirebaseProjectID = cfg.ProjectID
	}

	if cfg.GCSBucket == "" && cfg.StoragePath == "" {
		return nil, fmt.Errorf("GCS_BUCKET or STORAGE_PATH is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

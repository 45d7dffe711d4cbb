package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/album-bracket/db"
	"github.com/Dosada05/album-bracket/genai"
	"github.com/Dosada05/album-bracket/selection"
	"github.com/Dosada05/album-bracket/storage"
	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL    string
	DatabaseDriver db.Driver
	JWTSecretKey   string
	ServerPort     int

	CORSAllowedOrigins []string
	// Создания турниров в минуту на пользователя; 0 отключает лимит
	CreateRateLimit int
	RequestTimeout  time.Duration

	// Gemini.APIKey пустой, если AI-выбор альбомов выключен
	Gemini genai.Config
	AI     selection.AIConfig

	// Export.BucketName пустой, если экспорт сетки выключен
	Export storage.S3UploaderConfig
}

func (c *Config) AIEnabled() bool {
	return c.Gemini.APIKey != ""
}

func (c *Config) ExportEnabled() bool {
	return c.Export.BucketName != ""
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	// Загружаем .env файл, если он есть. Ошибку не считаем фатальной.
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	driver, err := db.ParseDriver(os.Getenv("DATABASE_DRIVER"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATABASE_DRIVER environment variable: %w", err)
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		DatabaseDriver:     driver,
		JWTSecretKey:       jwtKey,
		ServerPort:         port,
		CORSAllowedOrigins: listFromEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		AI:                 selection.DefaultAIConfig(),
		Gemini: genai.Config{
			APIKey:  strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
			Model:   os.Getenv("GEMINI_MODEL"),
			BaseURL: os.Getenv("GEMINI_BASE_URL"),
		},
		Export: storage.S3UploaderConfig{
			AccountID:       os.Getenv("EXPORT_R2_ACCOUNT_ID"),
			Endpoint:        os.Getenv("EXPORT_ENDPOINT"),
			Region:          os.Getenv("EXPORT_REGION"),
			AccessKeyID:     os.Getenv("EXPORT_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("EXPORT_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("EXPORT_BUCKET"),
			PublicBaseURL:   os.Getenv("EXPORT_PUBLIC_BASE_URL"),
		},
	}

	if cfg.CreateRateLimit, err = intFromEnv("CREATE_RATE_LIMIT", 10); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationFromEnv("REQUEST_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.AI.MaxAlbums, err = intFromEnv("AI_SELECTION_MAX_ALBUMS", cfg.AI.MaxAlbums); err != nil {
		return nil, err
	}
	if cfg.AI.Attempts, err = intFromEnv("AI_SELECTION_ATTEMPTS", cfg.AI.Attempts); err != nil {
		return nil, err
	}
	if cfg.AI.AttemptTimeout, err = durationFromEnv("AI_ATTEMPT_TIMEOUT", cfg.AI.AttemptTimeout); err != nil {
		return nil, err
	}
	if cfg.Gemini.RequestsPerMinute, err = intFromEnv("AI_REQUESTS_PER_MINUTE", 0); err != nil {
		return nil, err
	}
	if cfg.AI.MaxAlbums < 1 || cfg.AI.Attempts < 1 {
		return nil, fmt.Errorf("AI_SELECTION_MAX_ALBUMS and AI_SELECTION_ATTEMPTS must be positive")
	}

	if cfg.ExportEnabled() && (cfg.Export.AccessKeyID == "" || cfg.Export.SecretAccessKey == "") {
		return nil, fmt.Errorf("EXPORT_ACCESS_KEY_ID and EXPORT_SECRET_ACCESS_KEY are required when EXPORT_BUCKET is set")
	}

	return cfg, nil
}

func intFromEnv(name string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func durationFromEnv(name string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", name, err)
	}
	return v, nil
}

func listFromEnv(name string, def []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

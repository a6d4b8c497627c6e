package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xtrinch/food-coach/internal/logger"
)

const appDirName = "food-coach"

type Config struct {
	DBPath       string
	SettingsPath string
	TokenPath    string
	AI           AIConfig
	Drive        DriveConfig
	Logger       LoggerConfig
}

type AIConfig struct {
	Provider     string // "openai" or "gemini"
	OpenAIAPIKey string
	GeminiAPIKey string
}

type DriveConfig struct {
	ClientID     string
	ClientSecret string
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// DataDir resolves the per-user directory holding the database, settings
// and cached Drive token.
func DataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, appDirName), nil
}

func Load() (*Config, error) {
	dataDir := os.Getenv("FOOD_COACH_DATA_DIR")
	if dataDir == "" {
		var err error
		dataDir, err = DataDir()
		if err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &Config{
		DBPath:       getEnvOrDefault("FOOD_COACH_DB_PATH", filepath.Join(dataDir, "food-coach.db")),
		SettingsPath: filepath.Join(dataDir, "settings.json"),
		TokenPath:    filepath.Join(dataDir, "drive-token.json"),
		AI: AIConfig{
			Provider:     getEnvOrDefault("AI_PROVIDER", "openai"),
			OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
			GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		},
		Drive: DriveConfig{
			ClientID:     os.Getenv("GOOGLE_DRIVE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_DRIVE_CLIENT_SECRET"),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "text"),
		},
	}, nil
}

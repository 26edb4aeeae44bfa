package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	GenAI   GenAIConfig
	Content ContentConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	APIToken string
}

type GenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type ContentConfig struct {
	BaseURL string
	Timeout float64 // seconds
	Retries int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		GenAI: GenAIConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-1.5-flash",
		},
		Content: ContentConfig{
			BaseURL: "http://localhost:3001/api",
			Timeout: 6,
			Retries: 3,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".edbot"
	}
	return filepath.Join(home, ".edbot")
}

// Load reads configuration from the environment, with a .env file in the
// working directory (if present) loaded first. Environment variables always
// win over .env values.
//
// GEMINI_API_KEY is the only required setting.
func Load() (Config, error) {
	// Ignore a missing .env; only real env matters then.
	_ = godotenv.Load()

	cfg := defaults()

	applyEnv(&cfg)

	if cfg.GenAI.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: GEMINI_API_KEY")
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.GenAI.APIKey, "GEMINI_API_KEY")
	setString(&cfg.GenAI.Model, "GEMINI_MODEL")
	setString(&cfg.GenAI.BaseURL, "GEMINI_BASE_URL")
	setString(&cfg.Content.BaseURL, "CONTENT_API_BASE")
	setFloat(&cfg.Content.Timeout, "CONTENT_TIMEOUT_SECS")
	setInt(&cfg.Content.Retries, "CONTENT_RETRY_TOTAL")
	setInt(&cfg.Server.Port, "EDBOT_PORT")
	setString(&cfg.Server.APIToken, "EDBOT_API_TOKEN")
	setString(&cfg.Storage.DataDir, "EDBOT_DATA_DIR")
	setString(&cfg.Log.Level, "EDBOT_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

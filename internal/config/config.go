package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	Gemini  GeminiConfig
	Ollama  OllamaConfig
	Chroma  ChromaConfig
	Weather WeatherConfig
	Redis   RedisConfig
	Auth    AuthConfig

	DocumentsDir string
	AlertLogPath string
	LogFilePath  string

	DefaultLocation string
	DefaultCrop     string
}

type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

type OllamaConfig struct {
	URL            string
	EmbeddingModel string
	Timeout        time.Duration
}

type ChromaConfig struct {
	URL        string
	Collection string
	Timeout    time.Duration
	MaxRetries int
}

type WeatherConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

type RedisConfig struct {
	URL      string
	PoolSize int
}

type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// LoadConfig reads the environment into a Config. Credentials the service
// cannot run without are checked here so startup fails before any traffic
// is accepted.
func LoadConfig() *Config {

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Gemini: GeminiConfig{
			APIKey:      os.Getenv("GEMINI_API_KEY"),
			Model:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Temperature: getEnvFloat("GEMINI_TEMPERATURE", 0.3),
			MaxTokens:   getEnvInt("GEMINI_MAX_TOKENS", 1024),
			Timeout:     getEnvDuration("GEMINI_TIMEOUT_SECONDS", 30),
			MaxRetries:  getEnvInt("GEMINI_MAX_RETRIES", 3),
			RetryDelay:  getEnvDuration("GEMINI_RETRY_DELAY_SECONDS", 2),
		},
		Ollama: OllamaConfig{
			URL:            getEnv("OLLAMA_URL", "http://localhost:11434"),
			EmbeddingModel: getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			Timeout:        getEnvDuration("OLLAMA_TIMEOUT_SECONDS", 30),
		},
		Chroma: ChromaConfig{
			URL:        getEnv("CHROMA_DB_URL", "http://localhost:8001"),
			Collection: getEnv("CHROMA_COLLECTION", "agricultural_knowledge"),
			Timeout:    getEnvDuration("CHROMA_TIMEOUT_SECONDS", 30),
			MaxRetries: getEnvInt("CHROMA_MAX_RETRIES", 3),
		},
		Weather: WeatherConfig{
			APIKey:     os.Getenv("OPENWEATHER_API_KEY"),
			BaseURL:    getEnv("OPENWEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			Timeout:    getEnvDuration("WEATHER_TIMEOUT_SECONDS", 15),
			MaxRetries: getEnvInt("WEATHER_MAX_RETRIES", 3),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PoolSize: getEnvInt("REDIS_POOL_SIZE", 10),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		},
		DocumentsDir: getEnv("DOCUMENTS_DIR", "./data/documents"),
		AlertLogPath: getEnv("ALERT_LOG_PATH", "./data/alerts.json"),
		LogFilePath:  os.Getenv("LOG_FILE_PATH"),

		DefaultLocation: getEnv("DEFAULT_LOCATION", "Central Kenya"),
		DefaultCrop:     getEnv("DEFAULT_CROP", "maize"),
	}

	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API_KEY is required")
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("Error parsing %s", key)
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Fatalf("Error parsing %s", key)
	}
	return parsed
}

func getEnvDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvInt(key, fallbackSeconds)) * time.Second
}

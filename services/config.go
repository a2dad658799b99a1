package services

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Version is the build version. Actual version can be specified in build command.
var Version = "dev"

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	AI        AIConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	Interview InterviewConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Driver       string
	URL          string
	Seed         bool
	LogLevel     string
	MaxIdleConns int
	MaxOpenConns int
}

type AIConfig struct {
	GeminiAPIKey string
	Model        string
	Temperature  float32
	Timeout      time.Duration
	MaxLogLength int
}

type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

type WebSocketConfig struct {
	AllowedOrigins string
}

type InterviewConfig struct {
	DefaultQuestions     int
	PromptsFile          string
	ResumeClassification bool
}

// LoadConfig loads configuration from environment variables and config files.
// configFile overrides the default .env lookup in the working directory.
func LoadConfig(configFile string) *Config {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
		viper.AddConfigPath(".")
	}
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("websocket.allowed_origins", "")
	viper.SetDefault("gemini.api_key", "")
	viper.SetDefault("gemini.api_key_file", "")
	viper.SetDefault("gemini.model", DefaultModel)
	viper.SetDefault("gemini.temperature", 0)
	viper.SetDefault("gemini.timeout", "60s")
	viper.SetDefault("gemini.max_log_length", 200)
	viper.SetDefault("jwt.secret", "")
	viper.SetDefault("jwt.access_ttl", "24h")
	viper.SetDefault("database.driver", "postgres")
	viper.SetDefault("database.url", "")
	viper.SetDefault("database.seed", "false")
	viper.SetDefault("database.log_level", "silent")
	viper.SetDefault("database.max_idle_conns", "10")
	viper.SetDefault("database.max_open_conns", "100")
	viper.SetDefault("interview.default_questions", 5)
	viper.SetDefault("interview.prompts_file", "")
	viper.SetDefault("interview.resume_classification", false)

	// Map environment variables to config keys
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("websocket.allowed_origins", "WEBSOCKET_ALLOWED_ORIGINS")
	viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	viper.BindEnv("gemini.api_key_file", "GEMINI_API_KEY_FILE")
	viper.BindEnv("gemini.model", "GEMINI_MODEL")
	viper.BindEnv("gemini.temperature", "GEMINI_TEMPERATURE")
	viper.BindEnv("gemini.timeout", "GEMINI_TIMEOUT")
	viper.BindEnv("gemini.max_log_length", "GEMINI_MAX_LOG_LENGTH")
	viper.BindEnv("jwt.secret", "JWT_SECRET")
	viper.BindEnv("jwt.access_ttl", "JWT_ACCESS_TTL")
	viper.BindEnv("database.driver", "DATABASE_DRIVER")
	viper.BindEnv("database.url", "DATABASE_URL")
	viper.BindEnv("database.seed", "DATABASE_SEED")
	viper.BindEnv("database.log_level", "DATABASE_LOG_LEVEL")
	viper.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	viper.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	viper.BindEnv("interview.default_questions", "INTERVIEW_DEFAULT_QUESTIONS")
	viper.BindEnv("interview.prompts_file", "INTERVIEW_PROMPTS_FILE")
	viper.BindEnv("interview.resume_classification", "INTERVIEW_RESUME_CLASSIFICATION")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (configFile == "" && os.IsNotExist(err)) {
			slog.Warn("Config file not found, using defaults and environment variables")
		} else {
			slog.Error("Error reading config file", "error", err)
		}
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
		},
		Database: DatabaseConfig{
			Driver:       viper.GetString("database.driver"),
			URL:          viper.GetString("database.url"),
			Seed:         viper.GetBool("database.seed"),
			LogLevel:     viper.GetString("database.log_level"),
			MaxIdleConns: viper.GetInt("database.max_idle_conns"),
			MaxOpenConns: viper.GetInt("database.max_open_conns"),
		},
		AI: AIConfig{
			GeminiAPIKey: geminiAPIKey(),
			Model:        viper.GetString("gemini.model"),
			Temperature:  float32(viper.GetFloat64("gemini.temperature")),
			Timeout:      viper.GetDuration("gemini.timeout"),
			MaxLogLength: viper.GetInt("gemini.max_log_length"),
		},
		JWT: JWTConfig{
			Secret:    viper.GetString("jwt.secret"),
			AccessTTL: viper.GetDuration("jwt.access_ttl"),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins: viper.GetString("websocket.allowed_origins"),
		},
		Interview: InterviewConfig{
			DefaultQuestions:     viper.GetInt("interview.default_questions"),
			PromptsFile:          viper.GetString("interview.prompts_file"),
			ResumeClassification: viper.GetBool("interview.resume_classification"),
		},
	}
}

// geminiAPIKey prefers the key file (for mounted secrets) over the plain value.
func geminiAPIKey() string {
	if path := viper.GetString("gemini.api_key_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("Failed to read Gemini API key file", "path", path, "error", err)
		} else if key := strings.TrimSpace(string(data)); key != "" {
			return key
		}
	}
	return strings.TrimSpace(viper.GetString("gemini.api_key"))
}

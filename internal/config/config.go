package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      App      `mapstructure:"app"`
	Logging  Logging  `mapstructure:"logging"`
	Server   Server   `mapstructure:"server"`
	Analysis Analysis `mapstructure:"analysis"`
	History  History  `mapstructure:"history"`
	Export   Export   `mapstructure:"export"`
	Backend  Backend  `mapstructure:"backend"`
	AI       AI       `mapstructure:"ai"`
}

// App holds general application configuration
type App struct {
	Debug      bool   `mapstructure:"debug"`
	DataDir    string `mapstructure:"data_dir"`
	DateLayout string `mapstructure:"date_layout"`
	ConfigFile string `mapstructure:"config_file"`
}

// Logging holds logging configuration
type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Server holds the review UI HTTP server configuration
type Server struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	TemplateDir     string        `mapstructure:"template_dir"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	CORS            CORS          `mapstructure:"cors"`
}

// CORS holds cross-origin settings shared by both HTTP servers
type CORS struct {
	Enabled        bool     `mapstructure:"enabled"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Analysis holds settings for the client that calls the analysis endpoint
type Analysis struct {
	Endpoint  string `mapstructure:"endpoint"`
	FieldName string `mapstructure:"field_name"`
	Timeout   string `mapstructure:"timeout"`
}

// History holds settings for the approved report history
type History struct {
	Backend string      `mapstructure:"backend"`
	Key     string      `mapstructure:"key"`
	Redis   RedisConfig `mapstructure:"redis"`
}

// RedisConfig holds Redis connection settings for the redis history backend
type RedisConfig struct {
	URL    string `mapstructure:"url"`
	Prefix string `mapstructure:"prefix"`
}

// Export holds report export settings
type Export struct {
	Filename  string `mapstructure:"filename"`
	Directory string `mapstructure:"directory"`
}

// Backend holds settings for the analysis service
type Backend struct {
	Host        string  `mapstructure:"host"`
	Port        int     `mapstructure:"port"`
	Provider    string  `mapstructure:"provider"`
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int32   `mapstructure:"max_tokens"`
	RPM         int     `mapstructure:"rpm"`
	Timeout     string  `mapstructure:"timeout"`
	MaxUploadMB int64   `mapstructure:"max_upload_mb"`
	CORS        CORS    `mapstructure:"cors"`
}

// AI holds LLM provider credentials
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
	OpenAI OpenAIConfig `mapstructure:"openai"`
}

// GeminiConfig holds Google Gemini configuration
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// OpenAIConfig holds configuration for any OpenAI-compatible endpoint (Groq by default)
type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

var globalConfig *Config

// Load loads the configuration from various sources
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".financewatch")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.SetEnvPrefix("FINANCEWATCH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	config.App.ConfigFile = viper.ConfigFileUsed()

	if err := postProcessConfig(config); err != nil {
		return nil, fmt.Errorf("error post-processing config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.data_dir", ".financewatch")
	viper.SetDefault("app.date_layout", "02/01/2006")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "console")

	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "180s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.max_upload_mb", 32)
	viper.SetDefault("server.cors.enabled", false)

	viper.SetDefault("analysis.endpoint", "http://127.0.0.1:5000/api/analyze")
	viper.SetDefault("analysis.field_name", "files")
	viper.SetDefault("analysis.timeout", "120s")

	viper.SetDefault("history.backend", "sqlite")
	viper.SetDefault("history.key", "finance-watch-history")
	viper.SetDefault("history.redis.prefix", "financewatch:")

	viper.SetDefault("export.filename", "rapport_financewatch.pdf")
	viper.SetDefault("export.directory", ".")

	viper.SetDefault("backend.host", "127.0.0.1")
	viper.SetDefault("backend.port", 5000)
	viper.SetDefault("backend.provider", "openai")
	viper.SetDefault("backend.temperature", 0.7)
	viper.SetDefault("backend.max_tokens", 1000)
	viper.SetDefault("backend.rpm", 30)
	viper.SetDefault("backend.timeout", "90s")
	viper.SetDefault("backend.max_upload_mb", 32)
	viper.SetDefault("backend.cors.enabled", true)
	viper.SetDefault("backend.cors.allowed_origins", []string{"*"})

	viper.SetDefault("ai.gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("ai.openai.model", "llama-3.3-70b-versatile")
	viper.SetDefault("ai.openai.base_url", "https://api.groq.com/openai/v1")
}

// bindEnvironmentVariables sets up flexible environment variable binding
func bindEnvironmentVariables() {
	bindEnvKeys("ai.gemini.api_key", []string{
		"GEMINI_API_KEY",
		"GOOGLE_GEMINI_API_KEY",
		"GOOGLE_AI_API_KEY",
	})

	bindEnvKeys("ai.openai.api_key", []string{
		"GROQ_API_KEY",
		"OPENAI_API_KEY",
	})

	bindEnvKeys("ai.openai.base_url", []string{
		"OPENAI_BASE_URL",
	})

	bindEnvKeys("history.redis.url", []string{
		"REDIS_URL",
	})

	bindEnvKeys("analysis.endpoint", []string{
		"ANALYSIS_ENDPOINT",
	})

	bindEnvKeys("app.debug", []string{
		"DEBUG",
		"FINANCEWATCH_DEBUG",
	})
}

// bindEnvKeys binds the first found environment variable to a viper key
func bindEnvKeys(viperKey string, envKeys []string) {
	for _, envKey := range envKeys {
		if value := os.Getenv(envKey); value != "" {
			viper.Set(viperKey, value)
			return
		}
	}
}

// postProcessConfig applies post-processing to configuration values
func postProcessConfig(config *Config) error {
	if config.App.DataDir != "" {
		config.App.DataDir = expandPath(config.App.DataDir)
	}
	if config.Export.Directory != "" {
		config.Export.Directory = expandPath(config.Export.Directory)
	}
	if config.App.Debug {
		config.Logging.Level = "debug"
	}

	durations := map[string]string{
		"analysis.timeout": config.Analysis.Timeout,
		"backend.timeout":  config.Backend.Timeout,
	}

	for key, duration := range durations {
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				return fmt.Errorf("invalid duration for %s: %s", key, duration)
			}
		}
	}

	return nil
}

// expandPath expands ~ and environment variables in paths
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

// validateConfig ensures the configuration is coherent
func validateConfig(config *Config) error {
	var errors []string

	switch config.History.Backend {
	case "sqlite", "memory":
	case "redis":
		if config.History.Redis.URL == "" {
			errors = append(errors, "Redis history backend requires history.redis.url or REDIS_URL")
		}
	default:
		errors = append(errors, fmt.Sprintf("Unknown history backend: %s. Supported: sqlite, redis, memory", config.History.Backend))
	}

	switch config.Backend.Provider {
	case "gemini", "openai":
	default:
		errors = append(errors, fmt.Sprintf("Unknown LLM provider: %s. Supported: gemini, openai", config.Backend.Provider))
	}

	if config.History.Key == "" {
		errors = append(errors, "history.key must not be empty")
	}
	if config.Analysis.Endpoint == "" {
		errors = append(errors, "analysis.endpoint must not be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateBackend checks the settings only the analysis service needs
func ValidateBackend(config *Config) error {
	switch config.Backend.Provider {
	case "gemini":
		if !isValidAPIKey(config.AI.Gemini.APIKey) {
			return fmt.Errorf("Gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
		}
	case "openai":
		if !isValidAPIKey(config.AI.OpenAI.APIKey) {
			return fmt.Errorf("OpenAI-compatible API key is required. Set GROQ_API_KEY or OPENAI_API_KEY environment variable or ai.openai.api_key in config file")
		}
	}
	return nil
}

// isValidAPIKey checks if an API key is valid (not empty and not a placeholder)
func isValidAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	placeholders := []string{
		"your-api-key", "your-groq-key", "your-gemini-key", "YOUR_API_KEY", "PLACEHOLDER", "TODO", "CHANGE_ME",
	}

	for _, placeholder := range placeholders {
		if apiKey == placeholder {
			return false
		}
	}

	return true
}

// AnalysisTimeout returns the parsed client timeout, zero meaning none.
func (c *Config) AnalysisTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Analysis.Timeout)
	return d
}

// BackendTimeout returns the parsed per-request budget of the analysis service.
func (c *Config) BackendTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Backend.Timeout)
	return d
}

// ServerAddr returns host:port for the review UI.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// BackendAddr returns host:port for the analysis service.
func (c *Config) BackendAddr() string {
	return fmt.Sprintf("%s:%d", c.Backend.Host, c.Backend.Port)
}

// Reset clears the global configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viper.Reset()
}

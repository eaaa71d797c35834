package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// DefaultSystemPrompt scopes the assistant to the portfolio. Overridable via
// chat.system_prompt.
const DefaultSystemPrompt = "You are Habib Studio Portfolio Assistant. Help visitors understand Habib's portfolio, services, process, and ways to get in touch. Be concise, friendly, and avoid making up facts."

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Chat      ChatConfig      `mapstructure:"chat"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
}

type OpenAIConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float32       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type ChatConfig struct {
	SystemPrompt       string        `mapstructure:"system_prompt"`
	MaxHistoryMessages int           `mapstructure:"max_history_messages"`
	StreamIdleTimeout  time.Duration `mapstructure:"stream_idle_timeout"`
}

type RateLimitConfig struct {
	Window        time.Duration `mapstructure:"window"`
	MaxRequests   int           `mapstructure:"max_requests"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvPrefix("CHAT")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// The config file wins; the environment fills in a missing credential.
	if cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "15s")
	// Streaming responses would be cut off by a write timeout.
	viper.SetDefault("server.write_timeout", "0s")
	viper.SetDefault("server.max_header_bytes", 1<<20)

	viper.SetDefault("openai.base_url", "https://api.openai.com/v1")
	viper.SetDefault("openai.model", "gpt-4o-mini")
	viper.SetDefault("openai.temperature", 0.5)
	// The idle watchdog bounds stalled streams instead of a whole-request
	// timeout, which would also kill healthy long completions.
	viper.SetDefault("openai.timeout", "0s")

	viper.SetDefault("chat.system_prompt", DefaultSystemPrompt)
	viper.SetDefault("chat.max_history_messages", 20)
	viper.SetDefault("chat.stream_idle_timeout", "60s")

	viper.SetDefault("rate_limit.window", "60s")
	viper.SetDefault("rate_limit.max_requests", 10)
	viper.SetDefault("rate_limit.sweep_interval", "5m")

	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{"Origin", "Content-Type", "Accept"})
	viper.SetDefault("cors.max_age", 3600)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
}

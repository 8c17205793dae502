// Package config loads runtime configuration from a YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Pacing    PacingConfig    `mapstructure:"pacing"`
	Search    SearchConfig    `mapstructure:"search"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	News      NewsConfig      `mapstructure:"news"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Meme      MemeConfig      `mapstructure:"meme"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
}

type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	UseCookieJar bool          `mapstructure:"use_cookie_jar"`
	// Fingerprint selects the TLS profile: chrome, firefox, safari,
	// random, or go.
	Fingerprint string   `mapstructure:"fingerprint"`
	UserAgents  []string `mapstructure:"user_agents"`
	ProxyFile   string   `mapstructure:"proxy_file"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Delay       time.Duration `mapstructure:"delay"`
}

type PacingConfig struct {
	Min time.Duration `mapstructure:"min"`
	Max time.Duration `mapstructure:"max"`
}

type SearchConfig struct {
	Endpoint    string `mapstructure:"endpoint"`
	MaxPerQuery int    `mapstructure:"max_per_query"`
}

type WikipediaConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

type NewsConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	TTL        time.Duration `mapstructure:"ttl"`
	DailyQuota int           `mapstructure:"daily_quota"`
}

type LLMConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type MemeConfig struct {
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

type StorageConfig struct {
	// Backend selects the history store: json, sqlite, or postgres.
	Backend     string `mapstructure:"backend"`
	DocumentDir string `mapstructure:"document_dir"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.max_redirects", 10)
	v.SetDefault("http.use_cookie_jar", true)
	v.SetDefault("http.fingerprint", "chrome")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.delay", 2*time.Second)

	v.SetDefault("pacing.min", 1*time.Second)
	v.SetDefault("pacing.max", 3*time.Second)

	v.SetDefault("search.endpoint", "https://html.duckduckgo.com/html/")
	v.SetDefault("search.max_per_query", 10)

	v.SetDefault("wikipedia.base_url", "https://en.wikipedia.org")

	v.SetDefault("news.base_url", "https://newsdata.io/api/1/latest")
	v.SetDefault("news.ttl", 30*time.Minute)
	v.SetDefault("news.daily_quota", 180)

	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2000)

	v.SetDefault("storage.backend", "json")
	v.SetDefault("storage.document_dir", "research_docs")
	v.SetDefault("storage.sqlite_path", "research_docs/history.db")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
}

// Load reads configuration from the given file (optional), falling back to
// meme-generator.yaml in the working directory, with MEMEGEN_* environment
// variables overriding file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MEMEGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("meme-generator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.meme-generator")
		if err := v.ReadInConfig(); err != nil {
			// Running on defaults and env vars alone is fine.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

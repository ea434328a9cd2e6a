package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the porsa API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Generate  GenerateConfig  `yaml:"generation"`
	Firecrawl FirecrawlConfig `yaml:"firecrawl"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	History   HistoryConfig   `yaml:"history"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds vector store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, bolt (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Path             string   `yaml:"path"` // bolt driver only
	Collection       string   `yaml:"collection"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// GenerateConfig holds text generation settings.
type GenerateConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// FirecrawlConfig holds web fetch settings.
type FirecrawlConfig struct {
	APIKey          string `yaml:"api_key"`
	BaseURL         string `yaml:"base_url"`
	ScrapeTimeout   int    `yaml:"scrape_timeout_sec"`
	CrawlPollSec    int    `yaml:"crawl_poll_sec"`
	CrawlTimeoutSec int    `yaml:"crawl_timeout_sec"`
	MaxPages        int    `yaml:"max_pages"`
}

// RetrievalConfig holds the query pipeline knobs.
//
// ScoreThreshold applies to the first local search; WebScoreThreshold is the
// deliberately lower bar used after web augmentation, where freshly ingested
// content has had no curation. Both are tunables.
type RetrievalConfig struct {
	TopK              int     `yaml:"top_k"`
	ScoreThreshold    float64 `yaml:"score_threshold"`
	WebScoreThreshold float64 `yaml:"web_score_threshold"`
	MinLocalResults   int     `yaml:"min_local_results"`
	WebMaxResults     int     `yaml:"web_max_results"`
	ContextChars      int     `yaml:"context_chars"`
	EchoResults       int     `yaml:"echo_results"`
}

// ChunkingConfig holds chunk window settings.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// HistoryConfig holds the audit store settings.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// Query responses wait on retrieval plus generation.
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.Collection == "" {
		c.Database.Collection = "documents"
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "porsa:"
	}
	if c.Database.Path == "" {
		c.Database.Path = "porsa.db"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Generate.Model == "" {
		c.Generate.Model = "gpt-4o-mini"
	}
	if c.Generate.Temperature <= 0 {
		c.Generate.Temperature = 0.3
	}
	if c.Generate.MaxTokens <= 0 {
		c.Generate.MaxTokens = 2000
	}
	if c.Firecrawl.BaseURL == "" {
		c.Firecrawl.BaseURL = "https://api.firecrawl.dev/v1"
	}
	if c.Firecrawl.ScrapeTimeout <= 0 {
		c.Firecrawl.ScrapeTimeout = 30
	}
	if c.Firecrawl.CrawlPollSec <= 0 {
		c.Firecrawl.CrawlPollSec = 2
	}
	if c.Firecrawl.CrawlTimeoutSec <= 0 {
		c.Firecrawl.CrawlTimeoutSec = 60
	}
	if c.Firecrawl.MaxPages <= 0 {
		c.Firecrawl.MaxPages = 10
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 5
	}
	if c.Retrieval.ScoreThreshold <= 0 {
		c.Retrieval.ScoreThreshold = 0.5
	}
	if c.Retrieval.WebScoreThreshold <= 0 {
		c.Retrieval.WebScoreThreshold = 0.3
	}
	if c.Retrieval.MinLocalResults <= 0 {
		c.Retrieval.MinLocalResults = 2
	}
	if c.Retrieval.WebMaxResults <= 0 {
		c.Retrieval.WebMaxResults = 3
	}
	if c.Retrieval.ContextChars <= 0 {
		c.Retrieval.ContextChars = 1000
	}
	if c.Retrieval.EchoResults <= 0 {
		c.Retrieval.EchoResults = 3
	}
	if c.Chunking.Size <= 0 {
		c.Chunking.Size = 500
		if c.Chunking.Overlap <= 0 {
			c.Chunking.Overlap = 50
		}
	}
	if c.Chunking.Overlap < 0 {
		c.Chunking.Overlap = 0
	}
	if c.History.Path == "" {
		c.History.Path = "history.db"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "bolt":
		// path defaulted above
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"bolt\", got %q", c.Database.Driver)
	}
	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf(
			"chunking.overlap (%d) must be smaller than chunking.size (%d)",
			c.Chunking.Overlap, c.Chunking.Size,
		)
	}
	if c.Retrieval.ScoreThreshold > 1 || c.Retrieval.WebScoreThreshold > 1 {
		return fmt.Errorf("retrieval score thresholds must be within (0, 1]")
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

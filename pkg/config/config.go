package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		Provider       string  `yaml:"provider"` // ollama | openai
		BaseURL        string  `yaml:"base_url"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		EmbeddingModel string  `yaml:"embedding_model"`
		MaxTokens      int     `yaml:"max_tokens"`
		Temperature    float64 `yaml:"temperature"`
		RateLimit      float64 `yaml:"rate_limit"` // requests per second
	} `yaml:"llm"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
	} `yaml:"database"`

	Search struct {
		DefaultLimit int `yaml:"default_limit"`
		MaxLimit     int `yaml:"max_limit"`
		OverFetch    int `yaml:"over_fetch"`
		MaxFetch     int `yaml:"max_fetch"`
	} `yaml:"search"`

	Stats struct {
		TTL           time.Duration `yaml:"ttl"`
		StrictRefresh bool          `yaml:"strict_refresh"`
		RecentWorks   int           `yaml:"recent_works"`
	} `yaml:"stats"`

	Recommend struct {
		RelevanceWeight float64 `yaml:"relevance_weight"`
		CategoryWeight  float64 `yaml:"category_weight"`
		QualityWeight   float64 `yaml:"quality_weight"`
		Candidates      int     `yaml:"candidates"`
		ImpactCeiling   float64 `yaml:"impact_ceiling"`
		Workers         int     `yaml:"workers"`
	} `yaml:"recommend"`

	Availability struct {
		WindowYears     int `yaml:"window_years"`
		HighThreshold   int `yaml:"high_threshold"`
		MediumThreshold int `yaml:"medium_threshold"`
	} `yaml:"availability"`

	Chat struct {
		ContextDocuments int  `yaml:"context_documents"`
		SnippetLength    int  `yaml:"snippet_length"`
		HistoryTurns     int  `yaml:"history_turns"`
		Streaming        bool `yaml:"streaming"`
	} `yaml:"chat"`

	Cache struct {
		RedisURL     string        `yaml:"redis_url"` // empty disables the embedding cache
		EmbeddingTTL time.Duration `yaml:"embedding_ttl"`
	} `yaml:"cache"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/advisor/config.yaml"),
			"/etc/advisor/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

// Default returns a configuration populated only from defaults and the environment.
func Default() *Config {
	config, _ := getDefaultConfig()
	return config
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

// loadDotEnv reads .env into the process environment without overriding
// variables that are already set. A missing file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading .env: %w", err)
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.LLM.Provider == "" {
		config.LLM.Provider = "ollama"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbeddingModel == "" {
		config.LLM.EmbeddingModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" && config.LLM.Provider == "ollama" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.RateLimit == 0 {
		config.LLM.RateLimit = 5
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "publications"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}

	if config.Cache.EmbeddingTTL == 0 {
		config.Cache.EmbeddingTTL = 24 * time.Hour
	}

	if config.Search.DefaultLimit == 0 {
		config.Search.DefaultLimit = 10
	}
	if config.Search.MaxLimit == 0 {
		config.Search.MaxLimit = 100
	}
	if config.Search.OverFetch == 0 {
		config.Search.OverFetch = 3
	}
	if config.Search.MaxFetch == 0 {
		config.Search.MaxFetch = 300
	}

	if config.Stats.TTL == 0 {
		config.Stats.TTL = 5 * time.Minute
	}
	if config.Stats.RecentWorks == 0 {
		config.Stats.RecentWorks = 10
	}

	if config.Recommend.RelevanceWeight == 0 && config.Recommend.CategoryWeight == 0 && config.Recommend.QualityWeight == 0 {
		config.Recommend.RelevanceWeight = 0.5
		config.Recommend.CategoryWeight = 0.3
		config.Recommend.QualityWeight = 0.2
	}
	if config.Recommend.Candidates == 0 {
		config.Recommend.Candidates = 100
	}
	if config.Recommend.ImpactCeiling == 0 {
		config.Recommend.ImpactCeiling = 10
	}
	if config.Recommend.Workers == 0 {
		config.Recommend.Workers = 4
	}

	if config.Availability.WindowYears == 0 {
		config.Availability.WindowYears = 3
	}
	if config.Availability.HighThreshold == 0 {
		config.Availability.HighThreshold = 5
	}
	if config.Availability.MediumThreshold == 0 {
		config.Availability.MediumThreshold = 2
	}

	if config.Chat.ContextDocuments == 0 {
		config.Chat.ContextDocuments = 10
	}
	if config.Chat.SnippetLength == 0 {
		config.Chat.SnippetLength = 300
	}
	if config.Chat.HistoryTurns == 0 {
		config.Chat.HistoryTurns = 20
	}

	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if provider := os.Getenv("LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = provider
	}
	if model := os.Getenv("MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.Cache.RedisURL = redisURL
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

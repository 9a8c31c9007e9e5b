package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config contains the complete configuration for an Engine.
//
// Example:
//
//	config := &core.Config{
//	    Store: core.StoreConfig{
//	        Provider: "sqlite",
//	        SQLitePath: "./memories.db",
//	    },
//	    LLM: core.LLMConfig{
//	        Provider: "openai",
//	        APIKey:   "sk-...",
//	        Model:    "gpt-4o-mini",
//	    },
//	}
type Config struct {
	// Store contains storage backend configuration.
	Store StoreConfig `json:"store"`

	// LLM contains LLM provider configuration. An empty provider selects
	// the rule-based extraction fallback.
	LLM LLMConfig `json:"llm"`

	// Extraction contains batching configuration.
	Extraction ExtractionConfig `json:"extraction"`

	// Retention overrides retention policy knobs.
	Retention RetentionConfig `json:"retention"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	// Provider is the backend name: sqlite, postgres, or mysql.
	Provider string `json:"provider"`

	// SQLitePath is the database file path (sqlite provider).
	SQLitePath string `json:"sqlite_path,omitempty"`

	// Host, Port, User, Password, DBName configure the server backends.
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	User     string `json:"user,omitempty"`
	Password string `json:"password,omitempty"`
	DBName   string `json:"db_name,omitempty"`

	// SSLMode applies to the postgres provider only.
	SSLMode string `json:"ssl_mode,omitempty"`
}

// LLMConfig contains configuration for the LLM provider.
type LLMConfig struct {
	// Provider is the provider name. Supported: openai, rules, "".
	Provider string `json:"provider"`

	// APIKey is the API key for the provider.
	APIKey string `json:"api_key"`

	// Model is the model name (e.g. "gpt-4o-mini").
	Model string `json:"model"`

	// BaseURL overrides the API endpoint (optional).
	BaseURL string `json:"base_url,omitempty"`
}

// ExtractionConfig contains batching knobs.
type ExtractionConfig struct {
	// BatchSize is the number of turns per extraction call (default 10).
	BatchSize int `json:"batch_size,omitempty"`
}

// RetentionConfig overrides retention policy knobs. Zero values keep the
// defaults.
type RetentionConfig struct {
	// AutoCleanup gates expiry-based eviction. Defaults to enabled;
	// set Disabled to turn it off.
	Disabled bool `json:"disabled,omitempty"`

	// MaxMemoriesPerOwner caps the collection size per owner.
	MaxMemoriesPerOwner int `json:"max_memories_per_owner,omitempty"`
}

// Validate checks the configuration for contradictions and gaps.
func (c *Config) Validate() error {
	switch c.Store.Provider {
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("%w: sqlite provider requires a database path", ErrInvalidConfig)
		}
	case "postgres", "mysql":
		if c.Store.Host == "" || c.Store.DBName == "" {
			return fmt.Errorf("%w: %s provider requires host and db name", ErrInvalidConfig, c.Store.Provider)
		}
	case "":
		return fmt.Errorf("%w: store provider is required", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, c.Store.Provider)
	}

	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return fmt.Errorf("%w: openai provider requires an API key", ErrInvalidConfig)
		}
	case "rules", "":
		// Rule-based fallback needs nothing.
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, c.LLM.Provider)
	}

	if c.Extraction.BatchSize < 0 {
		return fmt.Errorf("%w: batch size cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function searches for a .env file (up to 5 directory levels up)
// before reading the environment.
//
// Supported variables:
//   - STORE_PROVIDER (sqlite, postgres, mysql; default sqlite)
//   - SQLITE_PATH
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD,
//     POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - EXTRACTION_BATCH_SIZE
//   - RETENTION_AUTO_CLEANUP ("false" disables expiry eviction)
func LoadConfigFromEnv() (*Config, error) {
	if envPath, found := FindEnvFile(); found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{}

	provider := getEnvOrDefault("STORE_PROVIDER", "sqlite")
	cfg.Store.Provider = provider
	switch provider {
	case "sqlite":
		cfg.Store.SQLitePath = getEnvOrDefault("SQLITE_PATH", "./cortexmem.db")
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		cfg.Store.Host = getEnvOrDefault("POSTGRES_HOST", "localhost")
		cfg.Store.Port = port
		cfg.Store.User = getEnvOrDefault("POSTGRES_USER", "postgres")
		cfg.Store.Password = os.Getenv("POSTGRES_PASSWORD")
		cfg.Store.DBName = getEnvOrDefault("POSTGRES_DATABASE", "cortexmem")
		cfg.Store.SSLMode = getEnvOrDefault("POSTGRES_SSLMODE", "disable")
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		cfg.Store.Host = getEnvOrDefault("MYSQL_HOST", "localhost")
		cfg.Store.Port = port
		cfg.Store.User = getEnvOrDefault("MYSQL_USER", "root")
		cfg.Store.Password = os.Getenv("MYSQL_PASSWORD")
		cfg.Store.DBName = getEnvOrDefault("MYSQL_DATABASE", "cortexmem")
	}

	cfg.LLM.Provider = getEnvOrDefault("LLM_PROVIDER", "")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.Model = os.Getenv("LLM_MODEL")
	cfg.LLM.BaseURL = os.Getenv("LLM_BASE_URL")

	if v := os.Getenv("EXTRACTION_BATCH_SIZE"); v != "" {
		if size, err := strconv.Atoi(v); err == nil {
			cfg.Extraction.BatchSize = size
		}
	}
	if getEnvOrDefault("RETENTION_AUTO_CLEANUP", "true") == "false" {
		cfg.Retention.Disabled = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromJSON loads configuration from a JSON file.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// FindEnvFile locates a .env (or .env.example) file, searching the
// current directory and up to 5 parent directories.
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")
		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

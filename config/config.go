package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when the configured provider needs a
// credential and none is available in the environment.
var ErrMissingAPIKey = errors.New("missing API key")

// Config holds application configuration
type Config struct {
	Database struct {
		ConnectionString string `yaml:"connection_string"`
		TableName        string `yaml:"table_name"`
		VectorDim        int    `yaml:"vector_dim"`
		BatchSize        int    `yaml:"batch_size"`
	} `yaml:"database"`
	LLM struct {
		Provider       string `yaml:"provider"`
		BaseURL        string `yaml:"base_url"`
		APIKeyEnv      string `yaml:"api_key_env"`
		StandardModel  string `yaml:"standard_model"`
		PremiumModel   string `yaml:"premium_model"`
		EmbeddingModel string `yaml:"embedding_model"`
		MaxTokens      int    `yaml:"max_tokens"`
	} `yaml:"llm"`
	Processing struct {
		ChunkSize    int     `yaml:"chunk_size"`    // characters per chunk
		ChunkOverlap int     `yaml:"chunk_overlap"` // percent carried into the next chunk
		EmbedRate    float64 `yaml:"embed_rate"`    // embedding calls per second
	} `yaml:"processing"`
	Paths struct {
		WorkingDir string `yaml:"working_dir"`
		UploadDir  string `yaml:"upload_dir"`
	} `yaml:"paths"`
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load loads configuration from file or returns defaults. A .env file in the
// working directory is folded into the environment first so APIKey lookups
// and ${VAR} connection strings resolve.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	configPath := filepath.Join(os.Getenv("HOME"), ".covenantrix", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configDir := filepath.Join(os.Getenv("HOME"), ".covenantrix")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.Database.ConnectionString = "postgres://postgres@localhost/postgres?sslmode=disable"
	cfg.Database.TableName = "kb_chunks"
	cfg.Database.VectorDim = 1536
	cfg.Database.BatchSize = 32

	cfg.LLM.Provider = "openai"
	cfg.LLM.BaseURL = ""
	cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
	cfg.LLM.StandardModel = "gpt-4o-mini"
	cfg.LLM.PremiumModel = "gpt-4o"
	cfg.LLM.EmbeddingModel = "text-embedding-3-small"
	cfg.LLM.MaxTokens = 4000

	cfg.Processing.ChunkSize = 800
	cfg.Processing.ChunkOverlap = 12
	cfg.Processing.EmbedRate = 2

	homeDir := os.Getenv("HOME")
	cfg.Paths.WorkingDir = filepath.Join(homeDir, ".covenantrix", "rag_storage")
	cfg.Paths.UploadDir = filepath.Join(os.TempDir(), "covenantrix-uploads")

	return cfg
}

// APIKey resolves the provider credential from the environment. Ollama runs
// without one.
func (c *Config) APIKey() (string, error) {
	if c.LLM.Provider == "ollama" {
		return "", nil
	}
	key := os.Getenv(c.LLM.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%w: set %s", ErrMissingAPIKey, c.LLM.APIKeyEnv)
	}
	return key, nil
}

// Validate reports every invalid field rather than stopping at the first.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Database.ConnectionString == "" {
		errs = append(errs, ValidationError{"database.connection_string", "must not be empty"})
	}
	if c.Database.VectorDim <= 0 {
		errs = append(errs, ValidationError{"database.vector_dim", "must be positive"})
	}
	if c.Database.BatchSize <= 0 {
		errs = append(errs, ValidationError{"database.batch_size", "must be positive"})
	}
	if c.LLM.Provider != "openai" && c.LLM.Provider != "ollama" {
		errs = append(errs, ValidationError{"llm.provider", "must be openai or ollama"})
	}
	if c.LLM.StandardModel == "" {
		errs = append(errs, ValidationError{"llm.standard_model", "must not be empty"})
	}
	if c.LLM.EmbeddingModel == "" {
		errs = append(errs, ValidationError{"llm.embedding_model", "must not be empty"})
	}
	if c.Processing.ChunkSize <= 0 {
		errs = append(errs, ValidationError{"processing.chunk_size", "must be positive"})
	}
	if c.Processing.ChunkOverlap < 0 || c.Processing.ChunkOverlap >= 100 {
		errs = append(errs, ValidationError{"processing.chunk_overlap", "must be a percentage in [0, 100)"})
	}
	if c.Processing.EmbedRate <= 0 {
		errs = append(errs, ValidationError{"processing.embed_rate", "must be positive"})
	}
	if c.Paths.WorkingDir == "" {
		errs = append(errs, ValidationError{"paths.working_dir", "must not be empty"})
	}

	return errs
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               string   `yaml:"port"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
	APIKeys            []string `yaml:"api_keys,omitempty"`
}

// EmbeddingConfig configures the embedding service client.
type EmbeddingConfig struct {
	URL               string  `yaml:"url"`
	Dimensions        int     `yaml:"dimensions"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// MaxOutputTokens sets the generation budget per message intent.
type MaxOutputTokens struct {
	Summary  int32 `yaml:"summary"`
	Question int32 `yaml:"question"`
	General  int32 `yaml:"general"`
	Greeting int32 `yaml:"greeting"`
}

// GenerationConfig configures the Gemini generation call.
type GenerationConfig struct {
	APIKey          string          `yaml:"api_key,omitempty"`
	Model           string          `yaml:"model"`
	Temperature     float32         `yaml:"temperature"`
	TopK            float32         `yaml:"top_k"`
	TopP            float32         `yaml:"top_p"`
	MaxOutputTokens MaxOutputTokens `yaml:"max_output_tokens"`
}

// StoreConfig selects the vector store backend. Driver is "sqlite" or "postgres".
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Strategy string `yaml:"strategy"`
	Size     int    `yaml:"size"`
	Overlap  int    `yaml:"overlap"`
}

// RetrievalConfig holds the retriever's filtering thresholds.
type RetrievalConfig struct {
	MaxResults       int     `yaml:"max_results"`
	Candidates       int     `yaml:"candidates"`
	MinSimilarity    float64 `yaml:"min_similarity"`
	MinContentLength int     `yaml:"min_content_length"`
	MinCleanLength   int     `yaml:"min_clean_length"`
	MaxPerDocument   int     `yaml:"max_per_document"`
}

// WatchConfig configures the directory watcher that auto-ingests files.
type WatchConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

// PDFConfig configures PDF text extraction.
type PDFConfig struct {
	LicenseKey string `yaml:"license_key,omitempty"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Store      StoreConfig      `yaml:"store"`
	Chunker    ChunkerConfig    `yaml:"chunker"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Watch      WatchConfig      `yaml:"watch"`
	PDF        PDFConfig        `yaml:"pdf"`
}

// Load reads a .env file if present, then the YAML config at path, then
// applies environment overrides and defaults. A missing config file is not an
// error; defaults are used instead.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		}
	}
	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docchat/config.yaml.
// It returns the path that was used, or "" when only defaults apply.
func LoadDefault() (*AppConfig, string, error) {
	candidates := []string{"config.yaml"}
	if userPath, err := defaultUserConfigPath(); err == nil {
		candidates = append(candidates, userPath)
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			cfg, err := Load(p)
			return cfg, p, err
		}
	}
	cfg, err := Load("")
	return cfg, "", err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docchat", "config.yaml"), nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Port: "8080", RequestTimeoutSecs: 120},
		Embedding: EmbeddingConfig{
			URL:         "http://localhost:8000",
			Dimensions:  384,
			TimeoutSecs: 30,
		},
		Generation: GenerationConfig{
			Model:       "gemini-1.5-flash",
			Temperature: 0.8,
			TopK:        40,
			TopP:        0.95,
			MaxOutputTokens: MaxOutputTokens{
				Summary:  2000,
				Question: 1200,
				General:  1200,
				Greeting: 1200,
			},
		},
		Store:   StoreConfig{Driver: "sqlite", DSN: "docchat.db"},
		Chunker: ChunkerConfig{Strategy: "boundary", Size: 800, Overlap: 150},
		Retrieval: RetrievalConfig{
			MaxResults:       5,
			Candidates:       8,
			MinSimilarity:    0.15,
			MinContentLength: 50,
			MinCleanLength:   30,
			MaxPerDocument:   2,
		},
	}
}

func applyEnv(cfg *AppConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("API_KEYS"); v != "" {
		cfg.Server.APIKeys = splitList(v)
	}
	if v := os.Getenv("EMBEDDING_API_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("EMBEDDING_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Embedding.Dimensions = n
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("UNIDOC_LICENSE_KEY"); v != "" {
		cfg.PDF.LicenseKey = v
	}
	if v := os.Getenv("INDEX_PATH"); v != "" {
		cfg.Watch.Dir = v
		cfg.Watch.Enabled = true
	}
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Server.Port == "" {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.RequestTimeoutSecs <= 0 {
		cfg.Server.RequestTimeoutSecs = def.Server.RequestTimeoutSecs
	}
	if cfg.Embedding.TimeoutSecs <= 0 {
		cfg.Embedding.TimeoutSecs = def.Embedding.TimeoutSecs
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = def.Generation.Model
	}
	mot := &cfg.Generation.MaxOutputTokens
	if mot.Summary <= 0 {
		mot.Summary = def.Generation.MaxOutputTokens.Summary
	}
	if mot.Question <= 0 {
		mot.Question = def.Generation.MaxOutputTokens.Question
	}
	if mot.General <= 0 {
		mot.General = def.Generation.MaxOutputTokens.General
	}
	if mot.Greeting <= 0 {
		mot.Greeting = def.Generation.MaxOutputTokens.Greeting
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = def.Store.Driver
	}
	if cfg.Chunker.Strategy == "" {
		cfg.Chunker.Strategy = def.Chunker.Strategy
	}
	if cfg.Chunker.Size <= 0 {
		cfg.Chunker.Size = def.Chunker.Size
	}
	if cfg.Chunker.Overlap < 0 {
		cfg.Chunker.Overlap = 0
	}
	r := &cfg.Retrieval
	if r.MaxResults <= 0 {
		r.MaxResults = def.Retrieval.MaxResults
	}
	if r.Candidates < r.MaxResults {
		r.Candidates = max(def.Retrieval.Candidates, r.MaxResults)
	}
	if r.MaxPerDocument <= 0 {
		r.MaxPerDocument = def.Retrieval.MaxPerDocument
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

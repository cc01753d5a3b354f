package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	UploadDir   string `yaml:"upload_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// OllamaConfig contains connection details for the generation service.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChromaConfig contains connection details for a Chroma vector index.
type ChromaConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the vector index implementation.
type IndexConfig struct {
	Type      string        `yaml:"type"`
	Chroma    *ChromaConfig `yaml:"chroma,omitempty"`
	BatchSize int           `yaml:"batch_size"`
}

// ChunkerConfig configures how document pages are split into chunks.
type ChunkerConfig struct {
	MaxChunkWords int `yaml:"max_chunk_words"`
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// RetrievalConfig configures question answering.
type RetrievalConfig struct {
	TopK             int `yaml:"top_k"`
	MinQuestionRunes int `yaml:"min_question_runes"`
}

// CompareConfig bounds multi-document comparison.
type CompareConfig struct {
	MaxDocuments int `yaml:"max_documents"`
	SampleSize   int `yaml:"sample_size"`
}

// SummaryConfig configures document summarization.
type SummaryConfig struct {
	SampleSize int `yaml:"sample_size"`
}

// QualityConfig configures the upload-time quality analysis.
type QualityConfig struct {
	SampleSize int `yaml:"sample_size"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Ollama    OllamaConfig    `yaml:"ollama"`
	Index     IndexConfig     `yaml:"index"`
	Chunker   ChunkerConfig   `yaml:"chunker"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Compare   CompareConfig   `yaml:"compare"`
	Summary   SummaryConfig   `yaml:"summary"`
	Quality   QualityConfig   `yaml:"quality"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/paperdesk/config.yaml.
// If neither exists, it writes defaults to ~/.config/paperdesk/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
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
	return filepath.Join(home, ".config", "paperdesk", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Server:    ServerConfig{Addr: ":8000", UploadDir: "uploads", MaxUploadMB: 50},
		Ollama:    OllamaConfig{BaseURL: "http://localhost:11434", Model: "llama3.2", TimeoutSecs: 120},
		Index:     IndexConfig{Type: "memory", BatchSize: 100},
		Chunker:   ChunkerConfig{MaxChunkWords: 500, MinChunkChars: 50},
		Retrieval: RetrievalConfig{TopK: 8, MinQuestionRunes: 10},
		Compare:   CompareConfig{MaxDocuments: 5, SampleSize: 8},
		Summary:   SummaryConfig{SampleSize: 10},
		Quality:   QualityConfig{SampleSize: 6},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	def := defaultConfig()
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = def.Server.Addr
	}
	if cfg.Server.UploadDir == "" {
		cfg.Server.UploadDir = def.Server.UploadDir
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = def.Server.MaxUploadMB
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = def.Ollama.BaseURL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = def.Ollama.Model
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = def.Ollama.TimeoutSecs
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = def.Index.Type
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = def.Index.BatchSize
	}
	if cfg.Index.Type == "chroma" && cfg.Index.Chroma != nil {
		if cfg.Index.Chroma.URL == "" {
			cfg.Index.Chroma.URL = "http://localhost:8001"
		}
		if cfg.Index.Chroma.TimeoutSecs == 0 {
			cfg.Index.Chroma.TimeoutSecs = 30
		}
	}
	if cfg.Chunker.MaxChunkWords == 0 {
		cfg.Chunker.MaxChunkWords = def.Chunker.MaxChunkWords
	}
	if cfg.Chunker.MinChunkChars == 0 {
		cfg.Chunker.MinChunkChars = def.Chunker.MinChunkChars
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if cfg.Retrieval.MinQuestionRunes == 0 {
		cfg.Retrieval.MinQuestionRunes = def.Retrieval.MinQuestionRunes
	}
	if cfg.Compare.MaxDocuments == 0 {
		cfg.Compare.MaxDocuments = def.Compare.MaxDocuments
	}
	if cfg.Compare.SampleSize == 0 {
		cfg.Compare.SampleSize = def.Compare.SampleSize
	}
	if cfg.Summary.SampleSize == 0 {
		cfg.Summary.SampleSize = def.Summary.SampleSize
	}
	if cfg.Quality.SampleSize == 0 {
		cfg.Quality.SampleSize = def.Quality.SampleSize
	}
}

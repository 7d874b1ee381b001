package config

import "time"

// Config holds all application configuration.
type Config struct {
	Elasticsearch Elasticsearch `mapstructure:"elasticsearch"`
	Embeddings    Embeddings    `mapstructure:"embeddings"`
	LLM           LLM           `mapstructure:"llm"`
	Retrieval     Retrieval     `mapstructure:"retrieval"`
	Ingest        Ingest        `mapstructure:"ingest"`
	Server        Server        `mapstructure:"server"`
	Scraper       Scraper       `mapstructure:"scraper"`
	Storage       Storage       `mapstructure:"storage"`
	MCP           MCP           `mapstructure:"mcp"`
}

// Elasticsearch holds connection configuration for the vector index.
type Elasticsearch struct {
	Addresses  []string `mapstructure:"addresses"`
	Collection string   `mapstructure:"collection"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
}

// Embeddings holds embedding-model configuration. The same model must back
// ingestion and querying; the collection records which one built it.
type Embeddings struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// LLM holds answer-model configuration.
type LLM struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Retrieval holds query-side configuration.
type Retrieval struct {
	TopK int `mapstructure:"top_k"`
}

// Ingest holds ingestion configuration.
type Ingest struct {
	Dir       string `mapstructure:"dir"`
	BatchSize int    `mapstructure:"batch_size"`
}

// Server holds HTTP server configuration.
type Server struct {
	Addr string `mapstructure:"addr"`
}

// Scraper holds catalog scraping configuration.
type Scraper struct {
	Delay     time.Duration `mapstructure:"delay"`
	MaxDepth  int           `mapstructure:"max_depth"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Source    string        `mapstructure:"source"`
}

// Storage holds S3/MinIO corpus archive configuration.
type Storage struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// MCP holds MCP server configuration.
type MCP struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Elasticsearch: Elasticsearch{
			Addresses:  []string{"http://localhost:9200"},
			Collection: "compliance-standards",
		},
		Embeddings: Embeddings{
			BaseURL:    "https://api.openai.com/v1",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
			Timeout:    30 * time.Second,
		},
		LLM: LLM{
			BaseURL:   "https://api.openai.com/v1",
			Model:     "gpt-4o-mini",
			MaxTokens: 1024,
			Timeout:   60 * time.Second,
		},
		Retrieval: Retrieval{
			TopK: 5,
		},
		Ingest: Ingest{
			Dir:       "./data/standards",
			BatchSize: 100,
		},
		Server: Server{
			Addr: ":8080",
		},
		Scraper: Scraper{
			Delay:     1 * time.Second,
			MaxDepth:  3,
			UserAgent: "standards-rag/1.0",
			Timeout:   30 * time.Second,
			Source:    "catalog",
		},
		Storage: Storage{
			Enabled:         false,
			Endpoint:        "localhost:9002",
			Bucket:          "standards-rag",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
		},
		MCP: MCP{
			Name:    "standards-rag",
			Version: "1.0.0",
		},
	}
}

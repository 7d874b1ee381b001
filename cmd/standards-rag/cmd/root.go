package cmd

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mfenderov/standards-rag/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
	cfg     config.Config
)

// GetConfig returns the loaded configuration.
func GetConfig() config.Config {
	return cfg
}

var rootCmd = &cobra.Command{
	Use:   "standards-rag",
	Short: "Compliance question answering over regulatory standards",
	Long: `standards-rag ingests scraped regulatory standards into an
Elasticsearch vector collection and answers natural-language compliance
questions grounded in the retrieved standards.

Commands:
  scrape  Scrape a standards catalog into JSON corpus files
  ingest  Load corpus files into the vector collection (full replace)
  ask     Answer a single compliance question
  serve   Start the HTTP server (POST /ask)
  mcp     Start the MCP server for agent clients`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogger)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func initLogger() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

func initConfig() {
	// Start with defaults
	cfg = config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/standards-rag")
		viper.AddConfigPath(".")
	}

	// Environment variable overrides
	// STDRAG_ELASTICSEARCH_ADDRESSES -> elasticsearch.addresses
	viper.SetEnvPrefix("STDRAG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Explicitly bind nested env vars
	viper.BindEnv("elasticsearch.addresses", "STDRAG_ELASTICSEARCH_ADDRESSES")
	viper.BindEnv("elasticsearch.collection", "STDRAG_ELASTICSEARCH_COLLECTION")
	viper.BindEnv("elasticsearch.username", "STDRAG_ELASTICSEARCH_USERNAME")
	viper.BindEnv("elasticsearch.password", "STDRAG_ELASTICSEARCH_PASSWORD")
	viper.BindEnv("embeddings.base_url", "STDRAG_EMBEDDINGS_BASE_URL")
	viper.BindEnv("embeddings.api_key", "STDRAG_EMBEDDINGS_API_KEY")
	viper.BindEnv("embeddings.model", "STDRAG_EMBEDDINGS_MODEL")
	viper.BindEnv("embeddings.dimensions", "STDRAG_EMBEDDINGS_DIMENSIONS")
	viper.BindEnv("llm.base_url", "STDRAG_LLM_BASE_URL")
	viper.BindEnv("llm.api_key", "STDRAG_LLM_API_KEY")
	viper.BindEnv("llm.model", "STDRAG_LLM_MODEL")
	viper.BindEnv("llm.max_tokens", "STDRAG_LLM_MAX_TOKENS")
	viper.BindEnv("retrieval.top_k", "STDRAG_RETRIEVAL_TOP_K")
	viper.BindEnv("ingest.dir", "STDRAG_INGEST_DIR")
	viper.BindEnv("ingest.batch_size", "STDRAG_INGEST_BATCH_SIZE")
	viper.BindEnv("server.addr", "STDRAG_SERVER_ADDR")
	viper.BindEnv("scraper.delay", "STDRAG_SCRAPER_DELAY")
	viper.BindEnv("scraper.max_depth", "STDRAG_SCRAPER_MAX_DEPTH")
	viper.BindEnv("scraper.source", "STDRAG_SCRAPER_SOURCE")
	viper.BindEnv("storage.enabled", "STDRAG_STORAGE_ENABLED")
	viper.BindEnv("storage.endpoint", "STDRAG_STORAGE_ENDPOINT")
	viper.BindEnv("storage.bucket", "STDRAG_STORAGE_BUCKET")
	viper.BindEnv("storage.access_key_id", "STDRAG_STORAGE_ACCESS_KEY_ID")
	viper.BindEnv("storage.secret_access_key", "STDRAG_STORAGE_SECRET_ACCESS_KEY")
	viper.BindEnv("mcp.name", "STDRAG_MCP_NAME")
	viper.BindEnv("mcp.version", "STDRAG_MCP_VERSION")

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("config file error", "error", err)
		}
		// No config file - use defaults + env vars
	}

	// Unmarshal into struct (merges config file with defaults)
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Warn("failed to parse config", "error", err)
	}

	// Handle special case: addresses as comma-separated string from env
	if addrs := os.Getenv("STDRAG_ELASTICSEARCH_ADDRESSES"); addrs != "" {
		cfg.Elasticsearch.Addresses = strings.Split(addrs, ",")
	}
}

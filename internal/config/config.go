// Package config loads application configuration from file and environment
// and initializes the global logger. A single immutable *Config is built at
// startup and passed into component constructors.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Fetch         FetchConfig         `yaml:"fetch" mapstructure:"fetch"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	ObjectStore   ObjectStoreConfig   `yaml:"object_store" mapstructure:"object_store"`
	Camara        CamaraConfig        `yaml:"camara" mapstructure:"camara"`
	Transparencia TransparenciaConfig `yaml:"transparencia" mapstructure:"transparencia"`
	Resolve       ResolveConfig       `yaml:"resolve" mapstructure:"resolve"`
	Collect       CollectConfig       `yaml:"collect" mapstructure:"collect"`
	Insight       InsightConfig       `yaml:"insight" mapstructure:"insight"`
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// FetchConfig configures the rate-limited HTTP fetcher.
type FetchConfig struct {
	UserAgent        string        `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs      int           `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries       int           `yaml:"max_retries" mapstructure:"max_retries"`
	MinInterval      time.Duration `yaml:"min_interval" mapstructure:"min_interval"`
	RateLimitCooloff time.Duration `yaml:"rate_limit_cooloff" mapstructure:"rate_limit_cooloff"`
}

// CacheConfig configures the local TTL response cache.
type CacheConfig struct {
	Dir        string        `yaml:"dir" mapstructure:"dir"`
	DefaultTTL time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	// BulkTTL is the reuse window for downloaded bulk files. They are
	// kept as files in the collect temp dir rather than in the response
	// cache.
	BulkTTL      time.Duration `yaml:"bulk_ttl" mapstructure:"bulk_ttl"`
	WriteThrough bool          `yaml:"write_through" mapstructure:"write_through"`
	// MaxPayloadBytes caps the size of responses the cache will store.
	MaxPayloadBytes int64 `yaml:"max_payload_bytes" mapstructure:"max_payload_bytes"`
}

// ObjectStoreConfig configures the remote object-storage collaborator.
type ObjectStoreConfig struct {
	RootDir  string `yaml:"root_dir" mapstructure:"root_dir"`
	Compress bool   `yaml:"compress" mapstructure:"compress"`
}

// CamaraConfig configures the Dados Abertos da Câmara API client. The
// API is unauthenticated; there is no key to configure.
type CamaraConfig struct {
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	ArchiveURL   string `yaml:"archive_url" mapstructure:"archive_url"`
	ItemsPerPage int    `yaml:"items_per_page" mapstructure:"items_per_page"`
}

// TransparenciaConfig configures the Portal da Transparência bulk downloads.
type TransparenciaConfig struct {
	DownloadURL string `yaml:"download_url" mapstructure:"download_url"`
	APIURL      string `yaml:"api_url" mapstructure:"api_url"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
}

// ResolveConfig configures the entity-resolution cascade. The similarity
// threshold and token window are empirically chosen in the upstream data;
// treat them as tunable, not contractual.
type ResolveConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	TokenWindow         int     `yaml:"token_window" mapstructure:"token_window"`
}

// CollectConfig configures collection runs.
type CollectConfig struct {
	Year          int      `yaml:"year" mapstructure:"year"`
	Months        []int    `yaml:"months" mapstructure:"months"`
	MaxPages      int      `yaml:"max_pages" mapstructure:"max_pages"`
	MaxItems      int      `yaml:"max_items" mapstructure:"max_items"`
	Workers       int      `yaml:"workers" mapstructure:"workers"`
	BillTypes     []string `yaml:"bill_types" mapstructure:"bill_types"`
	TempDir       string   `yaml:"temp_dir" mapstructure:"temp_dir"`
	DateStart     string   `yaml:"date_start" mapstructure:"date_start"`
	DateEnd       string   `yaml:"date_end" mapstructure:"date_end"`
	UploadObjects bool     `yaml:"upload_objects" mapstructure:"upload_objects"`
}

// InsightConfig configures the AI text collaborator.
type InsightConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and KRITIKOS_*
// environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("KRITIKOS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fetch.user_agent", "kritikos-etl/1.0")
	v.SetDefault("fetch.timeout_secs", 30)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.min_interval", 300*time.Millisecond)
	v.SetDefault("fetch.rate_limit_cooloff", 5*time.Second)
	v.SetDefault("cache.dir", "cache")
	v.SetDefault("cache.default_ttl", 2*time.Hour)
	v.SetDefault("cache.bulk_ttl", 6*time.Hour)
	v.SetDefault("cache.max_payload_bytes", int64(16<<20))
	v.SetDefault("camara.base_url", "https://dadosabertos.camara.leg.br/api/v2")
	v.SetDefault("camara.archive_url", "https://dadosabertos.camara.leg.br/arquivos")
	v.SetDefault("camara.items_per_page", 100)
	v.SetDefault("transparencia.download_url", "https://portaldatransparencia.gov.br/download-de-dados/emendas-parlamentares")
	v.SetDefault("transparencia.api_url", "https://api.portaldatransparencia.gov.br/api-de-dados")
	v.SetDefault("resolve.similarity_threshold", 0.70)
	v.SetDefault("resolve.token_window", 2)
	v.SetDefault("collect.months", []int{7, 8, 9, 10, 11, 12})
	v.SetDefault("collect.max_pages", 0)
	v.SetDefault("collect.max_items", 0)
	v.SetDefault("collect.workers", 10)
	v.SetDefault("collect.bill_types", []string{"PL", "PEC", "PLP", "MPV", "PDC", "PLV", "PRC", "SUG", "REQ", "RIC"})
	v.SetDefault("collect.temp_dir", "/tmp/kritikos")
	v.SetDefault("object_store.root_dir", "objects")
	v.SetDefault("object_store.compress", true)
	v.SetDefault("insight.model", "claude-haiku-4-5-20251001")
	v.SetDefault("insight.max_tokens", 1024)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

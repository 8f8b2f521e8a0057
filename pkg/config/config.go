// Package config provides a reusable loader for NatLangChain configuration
// files and environment variables. It is versioned so that applications can
// depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// wrapErr adds context to an error message. It returns nil if err is nil.
func wrapErr(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// envOrDefault returns the value of the environment variable identified by
// key or the provided fallback if the variable is unset or empty.
func envOrDefault(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// Config represents the unified configuration for a ledger node. It mirrors
// the structure of the YAML files under cmd/config and the configuration
// surface enumerated in spec.md §6.
type Config struct {
	Ledger struct {
		MaxContentBytes  int    `mapstructure:"max_content_bytes" json:"max_content_bytes"`
		MaxIntentBytes   int    `mapstructure:"max_intent_bytes" json:"max_intent_bytes"`
		MaxAuthorBytes   int    `mapstructure:"max_author_bytes" json:"max_author_bytes"`
		MaxPending       int    `mapstructure:"max_pending" json:"max_pending"`
		MaxBlockEntries  int    `mapstructure:"max_block_entries" json:"max_block_entries"`
		Difficulty       int    `mapstructure:"difficulty" json:"difficulty"`
		GenesisText      string `mapstructure:"genesis_text" json:"genesis_text"`
		ValidationPolicy string `mapstructure:"validation_policy" json:"validation_policy"`
	} `mapstructure:"ledger" json:"ledger"`

	RateLimit struct {
		Requests      int `mapstructure:"requests" json:"requests"`
		WindowSeconds int `mapstructure:"window_seconds" json:"window_seconds"`
	} `mapstructure:"rate_limit" json:"rate_limit"`

	Timestamp struct {
		PastWindowSeconds   int `mapstructure:"past_window_seconds" json:"past_window_seconds"`
		FutureWindowSeconds int `mapstructure:"future_window_seconds" json:"future_window_seconds"`
	} `mapstructure:"timestamp" json:"timestamp"`

	Fingerprint struct {
		TTLSeconds int `mapstructure:"ttl_seconds" json:"ttl_seconds"`
	} `mapstructure:"fingerprint" json:"fingerprint"`

	Validator struct {
		LLMTimeoutSeconds   int      `mapstructure:"llm_timeout_seconds" json:"llm_timeout_seconds"`
		RetryMax            int      `mapstructure:"retry_max" json:"retry_max"`
		RetryBaseSeconds    float64  `mapstructure:"retry_base_seconds" json:"retry_base_seconds"`
		RetryCapSeconds     float64  `mapstructure:"retry_cap_seconds" json:"retry_cap_seconds"`
		RetryJitterFraction float64  `mapstructure:"retry_jitter_fraction" json:"retry_jitter_fraction"`
		TransferKeywords    []string `mapstructure:"transfer_keywords" json:"transfer_keywords"`
	} `mapstructure:"validator" json:"validator"`

	Timeouts struct {
		AdmissionSeconds int `mapstructure:"admission_seconds" json:"admission_seconds"`
		MineSeconds      int `mapstructure:"mine_seconds" json:"mine_seconds"`
	} `mapstructure:"timeouts" json:"timeouts"`

	Mining struct {
		CancellationCheckInterval int `mapstructure:"cancellation_check_interval" json:"cancellation_check_interval"`
	} `mapstructure:"mining" json:"mining"`

	Storage struct {
		Backend string `mapstructure:"backend" json:"backend"` // "memory" | "file" | "sql"
		Path    string `mapstructure:"path" json:"path"`
	} `mapstructure:"storage" json:"storage"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and returned.
//
// The function uses the provided environment name to merge additional config
// files. If env is empty, only the default configuration is loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath(".")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	setDefaults()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, wrapErr(err, "load config")
		}
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, wrapErr(err, fmt.Sprintf("merge %s config", env))
			}
		}
	}

	viper.AutomaticEnv() // picks up matching process environment variables

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, wrapErr(err, "unmarshal config")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the NATLANGCHAIN_ENV environment
// variable.
func LoadFromEnv() (*Config, error) {
	return Load(envOrDefault("NATLANGCHAIN_ENV", ""))
}

// setDefaults seeds viper with the spec-mandated defaults so a node can boot
// with no config file present at all.
func setDefaults() {
	viper.SetDefault("ledger.max_content_bytes", 64*1024)
	viper.SetDefault("ledger.max_intent_bytes", 1024)
	viper.SetDefault("ledger.max_author_bytes", 256)
	viper.SetDefault("ledger.max_pending", 10_000)
	viper.SetDefault("ledger.max_block_entries", 256)
	viper.SetDefault("ledger.difficulty", 1)
	viper.SetDefault("ledger.genesis_text", "Genesis entry")
	viper.SetDefault("ledger.validation_policy", "Required")

	viper.SetDefault("rate_limit.requests", 20)
	viper.SetDefault("rate_limit.window_seconds", 60)

	viper.SetDefault("timestamp.past_window_seconds", 24*3600)
	viper.SetDefault("timestamp.future_window_seconds", 5*60)

	viper.SetDefault("fingerprint.ttl_seconds", 60*60)

	viper.SetDefault("validator.llm_timeout_seconds", 30)
	viper.SetDefault("validator.retry_max", 3)
	viper.SetDefault("validator.retry_base_seconds", 1.0)
	viper.SetDefault("validator.retry_cap_seconds", 30.0)
	viper.SetDefault("validator.retry_jitter_fraction", 0.1)
	viper.SetDefault("validator.transfer_keywords", []string{
		"transfer", "convey", "hand over", "assign", "deed over", "relinquish",
	})

	viper.SetDefault("timeouts.admission_seconds", 90)
	viper.SetDefault("timeouts.mine_seconds", 60)

	viper.SetDefault("mining.cancellation_check_interval", 1<<12)

	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("storage.path", "")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}

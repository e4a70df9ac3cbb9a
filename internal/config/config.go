// Package config loads redline settings from redline.yaml, the environment and .env.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Templates TemplatesConfig `mapstructure:"templates" json:"templates"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Snapshots SnapshotsConfig `mapstructure:"snapshots" json:"snapshots"`
	LLM       LLMConfig       `mapstructure:"llm" json:"llm"`
	Compare   CompareConfig   `mapstructure:"compare" json:"compare"`
	Reports   ReportsConfig   `mapstructure:"reports" json:"reports"`
	Batch     BatchConfig     `mapstructure:"batch" json:"batch"`
	Log       LogConfig       `mapstructure:"log" json:"log"`
	RulesFile string          `mapstructure:"rules_file" json:"rules_file"`
}

type ServerConfig struct {
	Addr           string   `mapstructure:"addr" json:"addr"`
	UploadDir      string   `mapstructure:"upload_dir" json:"upload_dir"`
	MaxUploadMB    int64    `mapstructure:"max_upload_mb" json:"max_upload_mb"`
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
}

type TemplatesConfig struct {
	Dir string `mapstructure:"dir" json:"dir"`
}

// StorageConfig selects where rendered reports go.
type StorageConfig struct {
	Backend string      `mapstructure:"backend" json:"backend"` // local | minio
	MinIO   MinIOConfig `mapstructure:"minio" json:"minio"`
}

type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint" json:"endpoint"`
	AccessKey string `mapstructure:"access_key" json:"-"`
	SecretKey string `mapstructure:"secret_key" json:"-"`
	Bucket    string `mapstructure:"bucket" json:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl" json:"use_ssl"`
}

type SnapshotsConfig struct {
	Dir string `mapstructure:"dir" json:"dir"`
}

// LLMConfig configures the optional classifier oracle.
type LLMConfig struct {
	Enabled           bool          `mapstructure:"enabled" json:"enabled"`
	Provider          string        `mapstructure:"provider" json:"provider"`
	Model             string        `mapstructure:"model" json:"model"`
	APIKey            string        `mapstructure:"api_key" json:"-"`
	Timeout           time.Duration `mapstructure:"timeout" json:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries" json:"max_retries"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" json:"requests_per_second"`
}

type CompareConfig struct {
	PairThreshold float64 `mapstructure:"pair_threshold" json:"pair_threshold"`
	MaxSimilarity float64 `mapstructure:"max_similarity" json:"max_similarity"`
	MinChars      int     `mapstructure:"min_chars" json:"min_chars"`
	CaseSensitive bool    `mapstructure:"case_sensitive" json:"case_sensitive"`
}

type ReportsConfig struct {
	Formats   []string `mapstructure:"formats" json:"formats"`
	OutputDir string   `mapstructure:"output_dir" json:"output_dir"`
	PDFFont   string   `mapstructure:"pdf_font" json:"pdf_font"`
}

type BatchConfig struct {
	Workers int `mapstructure:"workers" json:"workers"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// envKeys are bound explicitly so AutomaticEnv also reaches keys that have no
// default and do not appear in the config file.
var envKeys = []string{
	"storage.minio.endpoint",
	"storage.minio.access_key",
	"storage.minio.secret_key",
	"llm.api_key",
	"llm.model",
	"reports.pdf_font",
	"rules_file",
}

// Load reads configuration. An explicit path must exist; otherwise redline.yaml
// is looked up in the working directory and $HOME/.redline and is optional.
func Load(path string) (*Config, error) {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("redline")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.redline")
	}

	v.SetEnvPrefix("REDLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Provider-specific API key variables are honored when no explicit key is set.
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKey(cfg.LLM.Provider)
	}

	cfg.Templates.Dir = resolvePath(cfg.Templates.Dir)
	cfg.Snapshots.Dir = resolvePath(cfg.Snapshots.Dir)
	cfg.Reports.OutputDir = resolvePath(cfg.Reports.OutputDir)
	cfg.Reports.PDFFont = resolvePath(cfg.Reports.PDFFont)
	cfg.Server.UploadDir = resolvePath(cfg.Server.UploadDir)
	cfg.RulesFile = resolvePath(cfg.RulesFile)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.upload_dir", "./data/uploads")
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("templates.dir", "./templates")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.minio.bucket", "redline-reports")
	v.SetDefault("storage.minio.use_ssl", false)

	v.SetDefault("snapshots.dir", "./data/results")

	v.SetDefault("llm.enabled", false)
	v.SetDefault("llm.provider", "google")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.requests_per_second", 2.0)

	v.SetDefault("compare.pair_threshold", 0.2)
	v.SetDefault("compare.max_similarity", 1.0)
	v.SetDefault("compare.min_chars", 1)
	v.SetDefault("compare.case_sensitive", false)

	v.SetDefault("reports.formats", []string{"word", "excel", "pdf"})
	v.SetDefault("reports.output_dir", "./data/reports")

	v.SetDefault("batch.workers", 4)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func providerKey(provider string) string {
	switch strings.ToLower(provider) {
	case "google":
		return os.Getenv("GOOGLE_API_KEY")
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	}
	return ""
}

func resolvePath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

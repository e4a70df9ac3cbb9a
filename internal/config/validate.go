package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Templates.Dir == "" {
		return errors.New("templates.dir is required")
	}
	if c.Snapshots.Dir == "" {
		return errors.New("snapshots.dir is required")
	}

	switch c.Storage.Backend {
	case "local":
		if c.Reports.OutputDir == "" {
			return errors.New("reports.output_dir is required for local storage")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			return errors.New("storage.minio.endpoint is required")
		}
		if c.Storage.MinIO.Bucket == "" {
			return errors.New("storage.minio.bucket is required")
		}
	default:
		return fmt.Errorf("storage.backend must be local or minio, got %q", c.Storage.Backend)
	}

	if c.LLM.Enabled {
		switch strings.ToLower(c.LLM.Provider) {
		case "google", "openai", "anthropic":
		default:
			return fmt.Errorf("llm.provider must be google, openai or anthropic, got %q", c.LLM.Provider)
		}
		if c.LLM.APIKey == "" {
			return fmt.Errorf("llm.api_key is required when llm.enabled is true (provider %s)", c.LLM.Provider)
		}
		if c.LLM.Timeout <= 0 {
			return errors.New("llm.timeout must be positive")
		}
	}
	if c.LLM.MaxRetries < 0 {
		return errors.New("llm.max_retries must be >= 0")
	}

	if c.Compare.PairThreshold < 0 || c.Compare.PairThreshold > 1 {
		return fmt.Errorf("compare.pair_threshold must be between 0 and 1, got %v", c.Compare.PairThreshold)
	}
	if c.Compare.MaxSimilarity <= 0 || c.Compare.MaxSimilarity > 1 {
		return fmt.Errorf("compare.max_similarity must be in (0, 1], got %v", c.Compare.MaxSimilarity)
	}
	if c.Compare.MinChars < 0 {
		return errors.New("compare.min_chars must be >= 0")
	}

	for _, f := range c.Reports.Formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "word", "excel", "pdf":
		default:
			return fmt.Errorf("reports.formats: unknown format %q", f)
		}
	}

	if c.Batch.Workers < 1 {
		return errors.New("batch.workers must be >= 1")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

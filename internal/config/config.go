// Package config loads and validates one aggregation run's RunConfig: YAML
// file defaults, overlaid with environment variable overrides, the way the
// teacher's config package layers applyEnvOverrides on top of
// DefaultConfig.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// DefaultConfig returns a RunConfig with sensible defaults. Object-store
// and database credentials are left empty — callers must supply them via
// the config file or environment before Validate will accept the result.
func DefaultConfig() *model.RunConfig {
	return &model.RunConfig{
		UseStreaming:    true,
		ChunkSize:       50_000,
		ParallelChunks:  true,
		MaxWorkers:      4,
		ColumnFiltering: true,
		UseCategorical:  true,
		UseBulkCopy:     true,
		UseArrowCompute: false,
		Tolerance:       0.0001,
		BatchSize:       1000,
		Truncate:        false,

		ObjectStore: model.ObjectStoreConfig{
			Region:         "us-east-1",
			UsePathStyle:   true,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    60 * time.Second,
		},
		Database: model.DatabaseConfig{
			Port:           5432,
			Schema:         "public",
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    60 * time.Second,
		},

		LogFormat:        "json",
		MetadataCacheTTL: 15 * time.Minute,
		ServeAddr:        ":8080",
	}
}

// LoadFromFile loads a RunConfig from a YAML file, overlaid on defaults,
// and then applies environment variable overrides.
func LoadFromFile(path string) (*model.RunConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides fills in empty string fields from environment variables,
// the way the teacher's Helm-chart deployment overrides cloud-specific
// fields through the environment rather than the config file. The database
// port and truncate variables, when set and parseable, always override the
// configured value.
func applyEnvOverrides(c *model.RunConfig) {
	if v := os.Getenv("OCP_USAGE_PROVIDER_UUID"); v != "" && c.ProviderUUID == "" {
		c.ProviderUUID = v
	}
	if v := os.Getenv("OCP_USAGE_YEAR"); v != "" && c.Year == "" {
		c.Year = v
	}
	if v := os.Getenv("OCP_USAGE_MONTH"); v != "" && c.Month == "" {
		c.Month = v
	}
	if v := os.Getenv("OCP_USAGE_ORG_ID"); v != "" && c.OrgID == "" {
		c.OrgID = v
	}

	if v := os.Getenv("OCP_USAGE_S3_ENDPOINT"); v != "" && c.ObjectStore.Endpoint == "" {
		c.ObjectStore.Endpoint = v
	}
	if v := os.Getenv("OCP_USAGE_S3_ACCESS_KEY"); v != "" && c.ObjectStore.AccessKey == "" {
		c.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("OCP_USAGE_S3_SECRET_KEY"); v != "" && c.ObjectStore.SecretKey == "" {
		c.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("OCP_USAGE_S3_BUCKET"); v != "" && c.ObjectStore.Bucket == "" {
		c.ObjectStore.Bucket = v
	}

	if v := os.Getenv("OCP_USAGE_DB_HOST"); v != "" && c.Database.Host == "" {
		c.Database.Host = v
	}
	if v := os.Getenv("OCP_USAGE_DB_PASSWORD"); v != "" && c.Database.Password == "" {
		c.Database.Password = v
	}
	if v := os.Getenv("OCP_USAGE_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}

	if v := os.Getenv("OCP_USAGE_TRUNCATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Truncate = b
		}
	}
}

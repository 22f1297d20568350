package config

import (
	"fmt"
	"strings"

	"github.com/jordigilh/ocp-usage-aggregator/internal/aggregator/model"
)

// ValidationError collects every validation failure found in one pass,
// rather than stopping at the first.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) Add(format string, args ...any) {
	e.Errors = append(e.Errors, fmt.Sprintf(format, args...))
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate checks a RunConfig for the fields spec.md §4.10's Init ->
// LoadingMeta transition requires before a run can proceed.
func Validate(c *model.RunConfig) error {
	ve := &ValidationError{}

	if c.ProviderUUID == "" {
		ve.Add("providerUUID is required")
	}
	if c.Year == "" {
		ve.Add("year is required")
	}
	if c.Month == "" {
		ve.Add("month is required")
	} else if len(c.Month) != 2 {
		ve.Add("month must be two-char zero-padded, got %q", c.Month)
	}
	if c.OrgID == "" {
		ve.Add("orgID is required")
	}

	if c.ObjectStore.Bucket == "" {
		ve.Add("objectStore.bucket is required")
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		ve.Add("objectStore.accessKey and objectStore.secretKey are required")
	}

	if c.Database.Host == "" {
		ve.Add("database.host is required")
	}
	if c.Database.DB == "" {
		ve.Add("database.db is required")
	}
	if c.Database.User == "" {
		ve.Add("database.user is required")
	}

	if c.ChunkSize <= 0 {
		ve.Add("chunkSize must be > 0, got %d", c.ChunkSize)
	}
	if c.MaxWorkers <= 0 {
		ve.Add("maxWorkers must be > 0, got %d", c.MaxWorkers)
	}
	if c.BatchSize <= 0 {
		ve.Add("batchSize must be > 0, got %d", c.BatchSize)
	}
	if c.Tolerance < 0 {
		ve.Add("tolerance must be >= 0, got %v", c.Tolerance)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		ve.Add("logFormat must be json or text, got %q", c.LogFormat)
	}

	if c.Serve && c.ServeAddr == "" {
		ve.Add("serveAddr is required when serve is enabled")
	}

	if ve.HasErrors() {
		return ve
	}
	return nil
}

package model

import "time"

// ObjectStoreConfig is the S3-compatible endpoint the enumerator and
// columnar reader pull files from.
type ObjectStoreConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	AccessKey string        `yaml:"accessKey"`
	SecretKey string        `yaml:"secretKey"`
	Bucket    string        `yaml:"bucket"`
	Region    string        `yaml:"region"`
	// UsePathStyle is required for most self-hosted S3-compatible stores
	// (minio, noobaa) that back OpenShift object storage.
	UsePathStyle bool          `yaml:"usePathStyle"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
}

// DatabaseConfig is the PostgreSQL connection the loader bulk-copies into
// and the metadata stage reads enabled keys / cost categories from.
type DatabaseConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	DB      string `yaml:"db"`
	User    string `yaml:"user"`
	Password string `yaml:"password"`
	Schema  string `yaml:"schema"`
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
}

// RunConfig is the full configuration for one aggregation run, per spec.md
// §3/§6.
type RunConfig struct {
	UseStreaming   bool `yaml:"useStreaming"`
	ChunkSize      int  `yaml:"chunkSize"`
	ParallelChunks bool `yaml:"parallelChunks"`
	MaxWorkers     int  `yaml:"maxWorkers"`
	ColumnFiltering bool `yaml:"columnFiltering"`
	UseCategorical  bool `yaml:"useCategorical"`
	UseBulkCopy     bool `yaml:"useBulkCopy"`
	UseArrowCompute bool `yaml:"useArrowCompute"`
	Tolerance       float64 `yaml:"tolerance"`
	BatchSize       int     `yaml:"batchSize"`
	Truncate        bool    `yaml:"truncate"`

	ObjectStore ObjectStoreConfig `yaml:"objectStore"`
	Database    DatabaseConfig    `yaml:"database"`

	ProviderUUID string `yaml:"providerUUID"`
	Year         string `yaml:"year"`
	Month        string `yaml:"month"`

	// OrgID is the object-store path's organization segment
	// (data/<org>/OCP/source=<uuid>/...). Not part of spec.md's RunConfig
	// table but required to resolve the path per spec.md §6.
	OrgID string `yaml:"orgID"`

	// Serve, when true, starts the optional health/metrics HTTP surface
	// (ambient, outside spec.md's core scope) alongside the run.
	Serve     bool   `yaml:"serve"`
	ServeAddr string `yaml:"serveAddr"`

	// Schedule, when non-empty, is a cron expression that re-runs the
	// pipeline on a recurring basis instead of exiting after one pass.
	Schedule string `yaml:"schedule"`

	// LogFormat is "json" or "text" (internal/aggregator/obslog).
	LogFormat string `yaml:"logFormat"`
	// MetadataCacheTTL bounds how long the enabled-key set and
	// cost-category patterns are reused between relational-store refreshes.
	MetadataCacheTTL time.Duration `yaml:"metadataCacheTTL"`
}

package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Mode selects how the run is bounded.
const (
	ModeDefault  = "default"  // follow the stream head indefinitely
	ModeBackfill = "backfill" // stop at backfill_config.ending_version
	ModeTesting  = "testing"  // stop at testing_config.ending_version
)

type Config struct {
	TransactionStream TransactionStream `yaml:"transaction_stream"`
	DB                DB                `yaml:"db"`
	// Brokers is a comma-separated bootstrap server list. Empty selects the
	// no-op publisher.
	Brokers            string         `yaml:"brokers"`
	Processor          Processor      `yaml:"processor"`
	PerTableChunkSizes map[string]int `yaml:"per_table_chunk_sizes"`
	DeprecatedTables   []string       `yaml:"deprecated_tables"`
	Mode               string         `yaml:"mode"`
	Backfill           BoundedRun     `yaml:"backfill_config"`
	Testing            BoundedRun     `yaml:"testing_config"`
	MetricsPort        int            `yaml:"metrics_port"`
	SchemaPath         string         `yaml:"schema_path"`
}

type TransactionStream struct {
	URL                  string  `yaml:"url"`
	AuthToken            string  `yaml:"auth_token"`
	StartingVersion      *uint64 `yaml:"starting_version"`
	RequestEndingVersion *uint64 `yaml:"request_ending_version"`
	// BatchSize is the transaction count requested per server response.
	BatchSize uint64 `yaml:"batch_size"`
}

type DB struct {
	ConnectionString string `yaml:"connection_string"`
	PoolSize         int32  `yaml:"pool_size"`
}

type Processor struct {
	Name string `yaml:"name"`
	// ChannelSize bounds the batch queue between the stream and the
	// processor; a full queue blocks the stream reader.
	ChannelSize int `yaml:"channel_size"`
}

type BoundedRun struct {
	EndingVersion *uint64 `yaml:"ending_version"`
}

// Load reads the yaml config and applies env overrides for deploy-time
// secrets and tuning, then validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Env overrides. Secrets in particular are expected to come from the
	// environment in deployments rather than the checked-in config file.
	if v := os.Getenv("DB_URL"); v != "" {
		cfg.DB.ConnectionString = v
	}
	if v := os.Getenv("STREAM_URL"); v != "" {
		cfg.TransactionStream.URL = v
	}
	if v := os.Getenv("STREAM_AUTH_TOKEN"); v != "" {
		cfg.TransactionStream.AuthToken = v
	}
	if v := os.Getenv("BROKERS"); v != "" {
		cfg.Brokers = v
	}
	if v := os.Getenv("PROCESSOR_NAME"); v != "" {
		cfg.Processor.Name = v
	}
	if v := os.Getenv("METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MetricsPort = port
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeDefault
	}
	if c.Processor.ChannelSize == 0 {
		c.Processor.ChannelSize = 10
	}
	if c.TransactionStream.BatchSize == 0 {
		c.TransactionStream.BatchSize = 1000
	}
	if c.DB.PoolSize == 0 {
		c.DB.PoolSize = 10
	}
	if c.SchemaPath == "" {
		c.SchemaPath = "schema.sql"
	}
}

func (c *Config) validate() error {
	if c.TransactionStream.URL == "" {
		return fmt.Errorf("transaction_stream.url is required")
	}
	if c.DB.ConnectionString == "" {
		return fmt.Errorf("db.connection_string is required")
	}
	if c.Processor.Name == "" {
		return fmt.Errorf("processor.name is required")
	}
	switch c.Mode {
	case ModeDefault, ModeBackfill, ModeTesting:
	default:
		return fmt.Errorf("unknown mode %q", c.Mode)
	}
	if c.Mode == ModeBackfill && c.Backfill.EndingVersion == nil {
		return fmt.Errorf("backfill_config.ending_version is required in backfill mode")
	}
	if c.Mode == ModeTesting && c.Testing.EndingVersion == nil {
		return fmt.Errorf("testing_config.ending_version is required in testing mode")
	}
	return nil
}

// EndingVersion returns the inclusive version bound for the configured mode,
// or nil when the run is unbounded.
func (c *Config) EndingVersion() *uint64 {
	switch c.Mode {
	case ModeBackfill:
		return c.Backfill.EndingVersion
	case ModeTesting:
		return c.Testing.EndingVersion
	default:
		return c.TransactionStream.RequestEndingVersion
	}
}

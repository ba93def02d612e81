package driver

import (
	"fmt"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/output/batch"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
)

// Config represents the tap settings for the Pushbullet REST API
type Config struct {
	APIKey             string              `json:"api_key" validate:"required" jsonschema:"title=API Key,description=API Key for Pushbullet"`
	StartDate          float64             `json:"start_date,omitempty" jsonschema:"description=Earliest Unix timestamp to get data from"`
	UserAgent          string              `json:"user_agent,omitempty" jsonschema:"description=User-Agent header sent on API requests"`
	PageSize           int                 `json:"page_size,omitempty" jsonschema:"description=Records requested per API page"`
	MaxRetries         int                 `json:"max_retries,omitempty" jsonschema:"description=Retry budget for retriable API failures"`
	RequestTimeout     int                 `json:"request_timeout,omitempty" jsonschema:"description=Per-request timeout in seconds"`
	RateLimit          float64             `json:"rate_limit,omitempty" jsonschema:"description=Client side requests-per-second ceiling; 0 disables"`
	CacheTTL           *int                `json:"cache_ttl,omitempty" jsonschema:"description=Response cache TTL in seconds; 0 disables the cache"`
	StreamMaps         map[string]any      `json:"stream_maps,omitempty" jsonschema:"description=Stream and property transforms applied to the output"`
	StreamMapConfig    map[string]any      `json:"stream_map_config,omitempty" jsonschema:"description=Values referenced by config.* stream map expressions"`
	FakerConfig        *output.FakerConfig `json:"faker_config,omitempty" jsonschema:"description=Seed and locale for fake.* stream map expressions"`
	FlatteningEnabled  bool                `json:"flattening_enabled,omitempty" jsonschema:"description=Flatten nested record objects into top level columns"`
	FlatteningMaxDepth int                 `json:"flattening_max_depth,omitempty" jsonschema:"description=Maximum depth to flatten to"`
	AddRecordMetadata  bool                `json:"add_record_metadata,omitempty" jsonschema:"description=Add _sdc_* columns to schemas and records"`
	BatchConfig        *batch.Config       `json:"batch_config,omitempty" jsonschema:"description=Write records to batch files instead of RECORD messages"`
}

// Validate fills defaults and checks the configuration for missing or
// invalid fields
func (c *Config) Validate() error {
	if c.UserAgent == "" {
		c.UserAgent = fmt.Sprintf("%s/%s", constants.TapName, constants.TapVersion)
	}

	if c.PageSize <= 0 {
		c.PageSize = constants.DefaultPageSize
	}

	if c.MaxRetries <= 0 {
		c.MaxRetries = constants.DefaultRetryCount
	}

	if c.RequestTimeout <= 0 {
		c.RequestTimeout = int(constants.DefaultRequestTimeout.Seconds())
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}

	// absent means the default one hour cache; an explicit 0 disables it
	if c.CacheTTL == nil {
		ttl := int(constants.DefaultCacheTTL.Seconds())
		c.CacheTTL = &ttl
	}

	return utils.Validate(c)
}

// WriterConfig routes records to batch files when batch_config is set,
// otherwise to the stdout writer.
func (c *Config) WriterConfig() *types.WriterConfig {
	if c.BatchConfig != nil {
		return &types.WriterConfig{
			Type:         types.BatchType,
			WriterConfig: c.BatchConfig,
		}
	}

	return &types.WriterConfig{Type: types.StdoutType}
}

// PipelineSettings exposes the record pipeline knobs the writer pool needs.
func (c *Config) PipelineSettings() *output.Settings {
	settings := &output.Settings{
		StreamMaps:         c.StreamMaps,
		StreamMapConfig:    c.StreamMapConfig,
		Faker:              c.FakerConfig,
		FlatteningEnabled:  c.FlatteningEnabled,
		FlatteningMaxDepth: c.FlatteningMaxDepth,
		AddRecordMetadata:  c.AddRecordMetadata,
	}
	if c.BatchConfig != nil {
		settings.StateEveryRows = c.BatchConfig.BatchSizeRows
	}

	return settings
}

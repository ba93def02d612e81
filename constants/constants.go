package constants

import "time"

const (
	TapName    = "tap-pushbullet"
	TapVersion = "0.2.1"

	// Pushbullet REST API
	APIBaseURL       = "https://api.pushbullet.com"
	AccessTokenKey   = "Access-Token"
	RateLimitReset   = "X-Ratelimit-Reset"
	RetryAfterHeader = "Retry-After"

	DefaultPageSize       = 100
	DefaultRetryCount     = 5
	DefaultRequestTimeout = 300 * time.Second
	DefaultRateLimitWait  = 60 * time.Second
	DefaultCacheTTL       = time.Hour
	DefaultBatchSizeRows  = 10000

	// columns attached to schemas and records when record metadata is enabled
	SDCExtractedAt = "_sdc_extracted_at"
	SDCReceivedAt  = "_sdc_received_at"
	SDCBatchedAt   = "_sdc_batched_at"
	SDCSequence    = "_sdc_sequence"

	ParquetFileExt = "parquet"
	JSONLFileExt   = "jsonl"
)

// viper keys shared across packages
const (
	ConfigFolder  = "CONFIG_FOLDER"
	StatePath     = "STATE_PATH"
	CatalogPath   = "CATALOG_PATH"
	EncryptionKey = "ENCRYPTION_KEY"
)

package batch

import (
	"fmt"
	"strings"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/utils"
)

const (
	FormatJSONL   = "jsonl"
	FormatParquet = "parquet"

	CompressionNone = "none"
	CompressionGzip = "gzip"

	fileScheme = "file://"
	s3Scheme   = "s3://"
)

type EncodingConfig struct {
	// Format of the batch files: jsonl (default) or parquet
	Format string `json:"format,omitempty"`
	// Compression applies to jsonl only; parquet compresses internally
	Compression string `json:"compression,omitempty"`
}

type StorageConfig struct {
	// Root is where batch files land: file:///path or s3://bucket/path
	Root string `json:"root"`
	// Prefix gets prepended to every generated file name
	Prefix string `json:"prefix,omitempty"`
	// Region for s3 roots; falls back to the ambient AWS configuration
	Region string `json:"region,omitempty"`
}

type Config struct {
	Encoding      EncodingConfig `json:"encoding,omitempty"`
	Storage       StorageConfig  `json:"storage"`
	BatchSizeRows int64          `json:"batch_size_rows,omitempty"`
}

func (c *Config) Validate() error {
	if c.Encoding.Format == "" {
		c.Encoding.Format = FormatJSONL
	}
	if c.Encoding.Compression == "" {
		c.Encoding.Compression = CompressionNone
	}
	if c.BatchSizeRows <= 0 {
		c.BatchSizeRows = constants.DefaultBatchSizeRows
	}

	switch c.Encoding.Format {
	case FormatJSONL:
	case FormatParquet:
		if c.Encoding.Compression == CompressionGzip {
			return fmt.Errorf("gzip compression applies to jsonl batches only")
		}
	default:
		return fmt.Errorf("unsupported batch format [%s]; valid are %s and %s", c.Encoding.Format, FormatJSONL, FormatParquet)
	}

	if c.Encoding.Compression != CompressionNone && c.Encoding.Compression != CompressionGzip {
		return fmt.Errorf("unsupported batch compression [%s]; valid are %s and %s", c.Encoding.Compression, CompressionNone, CompressionGzip)
	}

	if c.Storage.Root == "" {
		return fmt.Errorf("storage root is required for batch output")
	}
	if !c.onLocalDisk() && !c.onS3() {
		return fmt.Errorf("unsupported storage root [%s]; use %spath or %sbucket/path", c.Storage.Root, fileScheme, s3Scheme)
	}

	return utils.Validate(c)
}

func (c *Config) onLocalDisk() bool {
	return strings.HasPrefix(c.Storage.Root, fileScheme)
}

func (c *Config) onS3() bool {
	return strings.HasPrefix(c.Storage.Root, s3Scheme)
}

// localDir returns the directory part of a file:// root.
func (c *Config) localDir() string {
	return strings.TrimPrefix(strings.TrimSuffix(c.Storage.Root, "/"), fileScheme)
}

// s3Location splits an s3:// root into bucket and key prefix.
func (c *Config) s3Location() (string, string) {
	trimmed := strings.TrimPrefix(strings.TrimSuffix(c.Storage.Root, "/"), s3Scheme)
	bucket, prefix, _ := strings.Cut(trimmed, "/")
	return bucket, prefix
}

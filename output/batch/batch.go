package batch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/parquet-go/parquet-go"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/output"
	"github.com/reservoir-data/tap-pushbullet/types"
	"github.com/reservoir-data/tap-pushbullet/utils"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

// Batch writes records into rotating files instead of RECORD lines. Each
// finalized file gets announced as a BATCH message carrying its manifest, so
// loaders can ingest files in bulk while schemas still arrive the usual way.
// Files land on local disk or S3; S3 uploads stage through a temp directory.
type Batch struct {
	config   *Config
	options  *output.Options
	stream   types.StreamInterface
	localDir string
	bucket   string
	keyPath  string
	uploader *manager.Uploader
	current  *batchFile
	batchAt  bool
	records  atomic.Int64
	files    int
}

type batchFile struct {
	name string
	path string
	file *os.File
	gz   *gzip.Writer
	pq   *parquet.GenericWriter[any]
	rows int64
}

func (b *Batch) GetConfigRef() output.Config {
	b.config = &Config{}
	return b.config
}

func (b *Batch) Spec() any {
	return Config{}
}

func (b *Batch) Type() string {
	return string(types.BatchType)
}

// Check verifies the storage root is writable before any thread spins up;
// a doomed destination should fail the run early, not mid-stream.
func (b *Batch) Check(ctx context.Context) error {
	if b.config.onLocalDisk() {
		return os.MkdirAll(b.config.localDir(), os.ModePerm)
	}

	client, err := b.s3Client(ctx)
	if err != nil {
		return err
	}

	bucket, prefix := b.config.s3Location()
	testKey := path.Join(prefix, ".write-check-"+uuid.NewString())
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(testKey),
		Body:   strings.NewReader("batch write check"),
	})
	if err != nil {
		return fmt.Errorf("failed to write test object to s3 bucket[%s]: %s", bucket, err)
	}

	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(testKey),
	})
	return err
}

func (b *Batch) s3Client(ctx context.Context) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if b.config.Storage.Region != "" {
		opts = append(opts, awsconfig.WithRegion(b.config.Storage.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %s", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (b *Batch) Setup(stream types.StreamInterface, options *output.Options) error {
	b.stream = stream
	b.options = options
	_, b.batchAt = stream.Schema().GetProperty(constants.SDCBatchedAt)

	if b.config.onLocalDisk() {
		b.localDir = b.config.localDir()
		if err := os.MkdirAll(b.localDir, os.ModePerm); err != nil {
			return fmt.Errorf("failed to create batch directory %s: %s", b.localDir, err)
		}
	} else {
		client, err := b.s3Client(context.Background())
		if err != nil {
			return err
		}
		b.uploader = manager.NewUploader(client)
		b.bucket, b.keyPath = b.config.s3Location()

		staging, err := os.MkdirTemp("", constants.TapName+"-batch-")
		if err != nil {
			return fmt.Errorf("failed to create staging directory: %s", err)
		}
		b.localDir = staging
	}

	message := types.Message{
		Type:          types.SchemaMessage,
		Stream:        stream.Name(),
		Schema:        stream.Schema(),
		KeyProperties: stream.Keys(),
	}
	if cursor := stream.Cursor(); cursor != "" {
		message.BookmarkProperties = []string{cursor}
	}
	logger.WriteMessage(message)
	return nil
}

func (b *Batch) Write(ctx context.Context, record types.RawRecord) error {
	if b.current == nil {
		if err := b.openFile(); err != nil {
			return err
		}
	}

	if b.batchAt {
		record.Data[constants.SDCBatchedAt] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	if err := b.writeRow(record.Data); err != nil {
		return err
	}

	b.current.rows++
	b.records.Add(1)
	if b.current.rows >= b.config.BatchSizeRows {
		return b.rotate(ctx)
	}
	return nil
}

func (b *Batch) writeRow(data types.Record) error {
	if b.config.Encoding.Format == FormatParquet {
		_, err := b.current.pq.Write([]any{parquetRow(data)})
		return err
	}

	serialized, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to serialize record: %s", err)
	}

	sink := io.Writer(b.current.file)
	if b.current.gz != nil {
		sink = b.current.gz
	}
	_, err = sink.Write(append(serialized, '\n'))
	return err
}

// parquetRow stringifies nested values; object and array columns are JSON
// typed in the parquet schema and take their bytes pre-encoded.
func parquetRow(data types.Record) map[string]any {
	row := make(map[string]any, len(data))
	for key, value := range data {
		switch value.(type) {
		case map[string]any, []any:
			serialized, err := json.Marshal(value)
			if err != nil {
				row[key] = fmt.Sprint(value)
				continue
			}
			row[key] = string(serialized)
		default:
			row[key] = value
		}
	}
	return row
}

func (b *Batch) openFile() error {
	name := fmt.Sprintf("%s%s-%s.%s", b.config.Storage.Prefix, b.stream.Name(), uuid.NewString(), b.fileExtension())
	fullPath := filepath.Join(b.localDir, name)

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create batch file %s: %s", fullPath, err)
	}

	b.current = &batchFile{
		name: name,
		path: fullPath,
		file: file,
	}

	switch {
	case b.config.Encoding.Format == FormatParquet:
		b.current.pq = parquet.NewGenericWriter[any](file, b.stream.Schema().ToParquet(), parquet.Compression(&parquet.Snappy))
	case b.config.Encoding.Compression == CompressionGzip:
		b.current.gz = gzip.NewWriter(file)
	}
	return nil
}

func (b *Batch) fileExtension() string {
	switch {
	case b.config.Encoding.Format == FormatParquet:
		return constants.ParquetFileExt
	case b.config.Encoding.Compression == CompressionGzip:
		return constants.JSONLFileExt + ".gz"
	default:
		return constants.JSONLFileExt
	}
}

// rotate finalizes the open file, ships it and announces the manifest.
func (b *Batch) rotate(ctx context.Context) error {
	finished := b.current
	b.current = nil

	if err := finished.finalize(); err != nil {
		return err
	}

	if finished.rows == 0 {
		return os.Remove(finished.path)
	}

	fileURL := fileScheme + finished.path
	if b.uploader != nil {
		key := path.Join(b.keyPath, finished.name)
		if err := b.upload(ctx, finished.path, key); err != nil {
			return err
		}
		fileURL = fmt.Sprintf("%s%s/%s", s3Scheme, b.bucket, key)
		logger.Infof("Thread[%s]: uploaded batch file to %s with %d records", b.options.Identifier, fileURL, finished.rows)
	}

	b.files++
	message := types.Message{
		Type:     types.BatchMessage,
		Stream:   b.stream.Name(),
		Encoding: &types.BatchEncoding{Format: b.config.Encoding.Format},
		Manifest: []string{fileURL},
	}
	if b.config.Encoding.Compression == CompressionGzip {
		message.Encoding.Compression = CompressionGzip
	}
	logger.WriteMessage(message)
	return nil
}

func (b *Batch) upload(ctx context.Context, localPath, key string) error {
	staged, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open staged batch file: %s", err)
	}

	_, err = b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   staged,
	})
	return utils.ErrExecSequential(
		func() error { return err },
		utils.ErrExecFormat("failed to close staged file: %s", staged.Close),
		utils.ErrExecFormat("failed to remove staged file: %s", func() error { return os.Remove(localPath) }),
	)
}

func (f *batchFile) finalize() error {
	closers := []func() error{}
	if f.pq != nil {
		closers = append(closers, utils.ErrExecFormat("failed to close parquet writer: %s", f.pq.Close))
	}
	if f.gz != nil {
		closers = append(closers, utils.ErrExecFormat("failed to close gzip writer: %s", f.gz.Close))
	}
	closers = append(closers, utils.ErrExecFormat("failed to close batch file: %s", f.file.Close))
	return utils.ErrExecSequential(closers...)
}

func (b *Batch) Close(ctx context.Context) error {
	defer func() {
		if b.uploader != nil && b.localDir != "" {
			// staging dir only held files pending upload
			_ = os.RemoveAll(b.localDir)
		}
	}()

	if b.current != nil {
		if err := b.rotate(ctx); err != nil {
			return err
		}
	}

	logger.Infof("Thread[%s]: wrote %d records across %d batch files for stream %s",
		b.options.Identifier, b.records.Load(), b.files, b.stream.Name())
	return nil
}

func init() {
	output.RegisteredWriters[types.BatchType] = func() output.Writer {
		return new(Batch)
	}
}

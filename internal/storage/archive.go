// Package storage archives scraped corpus snapshots in S3-compatible
// object storage, so any ingestion run can be reproduced from an exact
// snapshot.
package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds S3/MinIO client configuration.
type Config struct {
	Endpoint        string // "localhost:9000" for MinIO
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
}

// Client wraps the MinIO/S3 client for corpus archive operations.
type Client struct {
	minioClient *minio.Client
	bucket      string
}

// New creates a new archive client.
func New(config Config) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if config.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	minioClient, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Client{minioClient: minioClient, bucket: config.Bucket}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.minioClient.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.minioClient.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// SnapshotMetadata describes one archived corpus snapshot.
type SnapshotMetadata struct {
	Source    string   `json:"source"`
	Timestamp string   `json:"timestamp"`
	FileCount int      `json:"file_count"`
	Files     []string `json:"files"`
}

// SnapshotPrefix builds a unique archive prefix for one scrape run:
// corpus/{source}/{timestamp}-{shortid}.
func SnapshotPrefix(source string) string {
	timestamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	sum := sha256.Sum256(fmt.Appendf(nil, "%s-%d", source, time.Now().UnixNano()))
	return fmt.Sprintf("corpus/%s/%s-%s", source, timestamp, hex.EncodeToString(sum[:])[:8])
}

// PutCorpusFile writes one standards JSON file under a snapshot prefix.
func (c *Client) PutCorpusFile(ctx context.Context, prefix, filename string, data []byte) error {
	objectName := path.Join(prefix, "files", filename)

	_, err := c.minioClient.PutObject(ctx, c.bucket, objectName,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return fmt.Errorf("failed to put corpus file: %w", err)
	}
	return nil
}

// PutMetadata writes the snapshot metadata JSON.
func (c *Client) PutMetadata(ctx context.Context, prefix string, meta SnapshotMetadata) error {
	objectName := path.Join(prefix, "metadata.json")

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = c.minioClient.PutObject(ctx, c.bucket, objectName,
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: "application/json",
		})
	if err != nil {
		return fmt.Errorf("failed to put metadata: %w", err)
	}
	return nil
}

// ListCorpusFiles returns the standards JSON filenames under a snapshot
// prefix.
func (c *Client) ListCorpusFiles(ctx context.Context, prefix string) ([]string, error) {
	filesPrefix := path.Join(prefix, "files") + "/"
	var files []string

	objectCh := c.minioClient.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    filesPrefix,
		Recursive: true,
	})

	for object := range objectCh {
		if object.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", object.Err)
		}
		if strings.HasSuffix(object.Key, ".json") {
			files = append(files, path.Base(object.Key))
		}
	}

	return files, nil
}

// GetCorpusFile reads one standards JSON file from a snapshot.
func (c *Client) GetCorpusFile(ctx context.Context, prefix, filename string) ([]byte, error) {
	objectName := path.Join(prefix, "files", filename)

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get corpus file: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}
	return data, nil
}

// GetMetadata reads the snapshot metadata.
func (c *Client) GetMetadata(ctx context.Context, prefix string) (*SnapshotMetadata, error) {
	objectName := path.Join(prefix, "metadata.json")

	object, err := c.minioClient.GetObject(ctx, c.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata: %w", err)
	}
	defer object.Close()

	data, err := io.ReadAll(object)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta SnapshotMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

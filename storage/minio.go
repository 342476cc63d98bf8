// Package storage keeps job artifacts in MinIO.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"mixlens/config"
	"mixlens/core/jobs"
	"mixlens/logger"
	"mixlens/model"
)

// JobPrefix is the object prefix shared by all job artifacts.
const JobPrefix = "jobs/"

// ObjectInfo describes one stored artifact.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// BucketStats summarises a listing.
type BucketStats struct {
	TotalObjects int
	TotalSize    int64
	LastModified time.Time
}

// ArtifactStore uploads result documents and plots per job.
type ArtifactStore struct {
	client *minio.Client
	bucket string
}

// NewMinioClient connects to MinIO and makes sure the bucket exists.
func NewMinioClient(cfg *config.Config) (*minio.Client, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
		logger.Info("Created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	logger.Info("Connected to MinIO",
		logger.String("endpoint", cfg.MinioEndpoint),
		logger.String("bucket", cfg.MinioBucket))
	return client, nil
}

// NewArtifactStore wraps client for bucket.
func NewArtifactStore(client *minio.Client, bucket string) *ArtifactStore {
	return &ArtifactStore{client: client, bucket: bucket}
}

// ObjectKey returns the key of an artifact file of a job.
func ObjectKey(jobID, name string) string {
	return path.Join(strings.TrimSuffix(JobPrefix, "/"), jobID, name)
}

var _ jobs.Sink = (*ArtifactStore)(nil)

func (s *ArtifactStore) Name() string { return "minio" }

// Publish uploads result.json and every plot of a successful job.
func (s *ArtifactStore) Publish(ctx context.Context, job model.Job, out jobs.Outcome, dir string) error {
	if !out.OK() {
		return nil
	}
	files := []string{filepath.Join(dir, jobs.ResultFile)}
	names := make([]string, 0, len(out.Result.Plots))
	for name := range out.Result.Plots {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		files = append(files, out.Result.Plots[name])
	}

	for _, f := range files {
		if err := s.upload(ctx, job.ID, f); err != nil {
			return err
		}
	}
	logger.Info("Artifacts uploaded", logger.JobID(job.ID), logger.Int("files", len(files)))
	return nil
}

func (s *ArtifactStore) upload(ctx context.Context, jobID, file string) error {
	key := ObjectKey(jobID, filepath.Base(file))
	_, err := s.client.FPutObject(ctx, s.bucket, key, file, minio.PutObjectOptions{
		ContentType: ContentType(file),
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// Open streams an artifact back. The caller closes the reader.
func (s *ArtifactStore) Open(ctx context.Context, jobID, name string) (io.ReadCloser, error) {
	key := ObjectKey(jobID, name)
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	return obj, nil
}

// List returns the artifacts under prefix with totals.
func (s *ArtifactStore) List(ctx context.Context, prefix string) ([]ObjectInfo, *BucketStats, error) {
	stats := &BucketStats{}
	var objects []ObjectInfo

	for object := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, stats, nil
}

// ContentType guesses the MIME type of an artifact from its extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return "application/json"
	case ".png":
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// FormatSize renders a byte count with binary units.
func FormatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

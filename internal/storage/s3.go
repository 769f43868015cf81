package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path/filepath"

	"github.com/apex/log"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/afero"

	"photomap/internal/config"
	"photomap/internal/keys"
	"photomap/internal/models"
)

// ObjectStore is the subset of *minio.Client the publisher needs.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64,
		opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// S3Service publishes the artifact, and optionally the photos, to an
// S3-compatible bucket.
type S3Service struct {
	client ObjectStore
	cfg    config.S3Config
	logger log.Interface
}

// NewS3Service connects to the endpoint in cfg.
func NewS3Service(cfg config.S3Config, logger log.Interface) (*S3Service, error) {
	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("missing one or more required settings: s3.endpoint, s3.access_key, s3.secret_key")
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	logger.WithField("endpoint", cfg.Endpoint).Debug("created MinIO client")
	return NewS3ServiceWithClient(minioClient, cfg, logger), nil
}

// NewS3ServiceWithClient wraps an existing client.
func NewS3ServiceWithClient(client ObjectStore, cfg config.S3Config, logger log.Interface) *S3Service {
	return &S3Service{client: client, cfg: cfg, logger: logger}
}

// Bucket returns the target bucket name.
func (s *S3Service) Bucket() string { return s.cfg.Bucket }

// ArtifactKey returns the object key of the artifact.
func (s *S3Service) ArtifactKey() string { return keys.Object("", s.cfg.ArtifactKey) }

// CreateBucket makes sure the target bucket exists.
func (s *S3Service) CreateBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return fmt.Errorf("error checking bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
			return fmt.Errorf("create bucket %s: %w", s.cfg.Bucket, err)
		}
		s.logger.WithField("bucket", s.cfg.Bucket).Info("created bucket")
	}
	return nil
}

// PutArtifact uploads the rendered artifact bytes.
func (s *S3Service) PutArtifact(ctx context.Context, data []byte) error {
	key := s.ArtifactKey()
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("failed to store artifact %s in S3: %w", key, err)
	}
	s.logger.WithFields(log.Fields{"bucket": s.cfg.Bucket, "key": key}).Info("uploaded artifact")
	return nil
}

// PutPhotos uploads the image behind every record, keyed by its path relative
// to the public prefix so record paths resolve against the bucket. Photos
// are read from root on afs.
func (s *S3Service) PutPhotos(ctx context.Context, afs afero.Fs, root, publicPrefix string, records []models.PhotoLocation) (int, error) {
	var n int
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rel := keys.Relative(publicPrefix, rec.Path)
		if err := s.putPhoto(ctx, afs, filepath.Join(root, filepath.FromSlash(rel)), keys.Object(s.cfg.PhotoPrefix, rel)); err != nil {
			return n, err
		}
		n++
	}
	s.logger.WithFields(log.Fields{"bucket": s.cfg.Bucket, "count": n}).Info("uploaded photos")
	return n, nil
}

func (s *S3Service) putPhoto(ctx context.Context, afs afero.Fs, name, key string) error {
	f, err := afs.Open(name)
	if err != nil {
		return fmt.Errorf("open photo %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat photo %s: %w", name, err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if _, err := s.client.PutObject(ctx, s.cfg.Bucket, key, f, info.Size(),
		minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("failed to store photo %s in S3: %w", key, err)
	}
	s.logger.WithField("key", key).Debug("uploaded photo")
	return nil
}

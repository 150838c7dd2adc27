package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-manager/internal/application/port"
)

// uploader is the part of s3manager.Uploader the archive uses
type uploader interface {
	UploadWithContext(ctx aws.Context, input *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error)
}

// S3Config holds the archive bucket settings
type S3Config struct {
	Region   string
	Bucket   string
	Prefix   string
	Endpoint string
}

// S3Archive implements port.ArtifactArchive on an S3 bucket
type S3Archive struct {
	uploader uploader
	bucket   string
	prefix   string
	logger   *zap.Logger
}

// NewS3Archive creates an archive using the default AWS credential chain
func NewS3Archive(cfg S3Config, logger *zap.Logger) (*S3Archive, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 archive: bucket is required")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.Region)}
	if cfg.Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("s3 archive: failed to create session: %w", err)
	}

	return newS3Archive(s3manager.NewUploader(sess), cfg.Bucket, cfg.Prefix, logger), nil
}

func newS3Archive(up uploader, bucket, prefix string, logger *zap.Logger) *S3Archive {
	return &S3Archive{
		uploader: up,
		bucket:   bucket,
		prefix:   prefix,
		logger:   logger,
	}
}

// Archive uploads content under prefix/key and returns the object location
func (a *S3Archive) Archive(ctx context.Context, key string, content []byte) (string, error) {
	name := SanitizeFilename(key)
	if name == "" {
		return "", fmt.Errorf("s3 archive: invalid key %q", key)
	}
	objectKey := path.Join(a.prefix, name)

	out, err := a.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:             aws.String(a.bucket),
		Key:                aws.String(objectKey),
		Body:               bytes.NewReader(content),
		ContentType:        aws.String("application/pdf"),
		ContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", name)),
	})
	if err != nil {
		a.logger.Error("Failed to archive artifact",
			zap.String("bucket", a.bucket),
			zap.String("key", objectKey),
			zap.Error(err))
		return "", fmt.Errorf("s3 archive: upload %s: %w", objectKey, err)
	}

	a.logger.Info("Artifact archived",
		zap.String("bucket", a.bucket),
		zap.String("key", objectKey),
		zap.String("location", out.Location))

	return out.Location, nil
}

var _ port.ArtifactArchive = (*S3Archive)(nil)

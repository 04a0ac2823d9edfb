// Package artifact uploads grader-produced artifacts to object storage and
// parses the metrics they carry.
package artifact

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const presignExpiry = 7 * 24 * time.Hour

// Config describes how to reach the object store.
type Config struct {
	Endpoint  string
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
}

// Sink uploads artifacts for a run and produces presigned download URLs.
type Sink struct {
	bucket   string
	uploader *manager.Uploader
	presign  *s3.PresignClient
	log      *zap.SugaredLogger
}

// NewSink constructs a Sink from Config, using a path-style, statically
// credentialed S3 client so it works against both AWS S3 and a
// MinIO-compatible endpoint for local development. Requests are not
// retried: each upload and presign call is attempted once.
func NewSink(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Sink, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
		o.Retryer = aws.NopRetryer{}
	})

	return &Sink{
		bucket:   cfg.Bucket,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		log:      log,
	}, nil
}

// Upload uploads every artifact for runID and returns presigned GET URLs
// keyed by artifact name. A per-artifact upload failure is logged and the
// artifact is omitted from the returned map rather than aborting the batch.
func (s *Sink) Upload(ctx context.Context, runID string, artifacts map[string]string) map[string]string {
	urls := make(map[string]string, len(artifacts))

	for name, localPath := range artifacts {
		key := fmt.Sprintf("runs/%s/%s", runID, name)

		if err := s.uploadOne(ctx, key, localPath, name); err != nil {
			s.log.Errorw("failed to upload artifact", "name", name, "error", err)
			continue
		}

		url, err := s.presignGet(ctx, key)
		if err != nil {
			s.log.Errorw("failed to presign artifact url", "name", name, "error", err)
			continue
		}

		urls[name] = url
		s.log.Infow("uploaded artifact", "run_id", runID, "name", name, "key", key)
	}

	return urls
}

func (s *Sink) uploadOne(ctx context.Context, key, localPath, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(name)),
	})
	if err != nil {
		return fmt.Errorf("upload: %w", err)
	}
	return nil
}

func (s *Sink) presignGet(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

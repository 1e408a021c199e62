package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"signalsift/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3Config contains minimal configuration for creating an S3 client.
// Values are optional and will fall back to the standard AWS config/credential chain.
type S3Config struct {
	// Region to use for requests, e.g. "us-east-1". If empty, AWS defaults apply.
	Region string
	// Profile selects a named shared config/credentials profile. If empty, default chain applies.
	Profile string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
	// Bucket receiving batch archives.
	Bucket string
}

// Archive writes full batch results to S3 as JSON so processed corpora can
// be replayed or audited after the Redis records expire.
type Archive struct {
	client *s3.Client
	bucket string
}

// NewArchive creates an Archive using the default AWS configuration chain,
// with optional overrides from S3Config.
func NewArchive(ctx context.Context, cfg S3Config) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &Archive{client: c, bucket: cfg.Bucket}, nil
}

// batchKey is the archive layout: batches/YYYY/MM/DD/<batch-id>.json
func batchKey(batchID string, at time.Time) string {
	return fmt.Sprintf("batches/%s/%s.json", at.UTC().Format("2006/01/02"), batchID)
}

// SaveBatch uploads the complete batch result as a JSON object.
func (a *Archive) SaveBatch(ctx context.Context, result *types.BatchResult) error {
	blob, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling batch %s: %w", result.BatchID, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(batchKey(result.BatchID, result.ProcessedAt)),
		Body:        bytes.NewReader(blob),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archiving batch %s: %w", result.BatchID, err)
	}
	return nil
}

// LoadBatch fetches an archived batch back. Returns (nil, nil) when no
// archive exists for the id and date.
func (a *Archive) LoadBatch(ctx context.Context, batchID string, processedAt time.Time) (*types.BatchResult, error) {
	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(batchKey(batchID, processedAt)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching archived batch %s: %w", batchID, err)
	}
	defer out.Body.Close()

	blob, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("reading archived batch %s: %w", batchID, err)
	}

	var result types.BatchResult
	if err := json.Unmarshal(blob, &result); err != nil {
		return nil, fmt.Errorf("decoding archived batch %s: %w", batchID, err)
	}
	return &result, nil
}

// isNotFound recognizes both HTTP 404 responses and NotFound/NoSuchKey API
// error codes.
func isNotFound(err error) bool {
	var respErr *http.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey"
	}
	return false
}

package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/tendant/simple-sharelink/pkg/sharelink"
)

// Config options for the S3 signer
type Config struct {
	Region          string // AWS region
	Bucket          string // Default bucket for links without an override
	AccessKeyID     string // Access key ID
	SecretAccessKey string // Secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned URLs (default: 300)
}

// Signer produces presigned GET URLs for S3-compatible object storage and
// doubles as the bucket/object browser for the management API. It
// implements sharelink.Signer and sharelink.Browser.
//
// The presign duration is deliberately short and independent of any
// link's expiry: the link is the durable token, the signed URL is only
// the redirect target of a single redemption.
type Signer struct {
	client          *s3.Client
	presignClient   *s3.PresignClient
	defaultBucket   string
	presignDuration time.Duration
}

// New creates a new S3 signer
func New(config Config) (*Signer, error) {
	if config.Bucket == "" {
		return nil, errors.New("default bucket is required")
	}

	if config.Region == "" {
		config.Region = "us-east-1"
	}

	if config.PresignDuration <= 0 {
		config.PresignDuration = 300 // 5 minutes
	}

	var awsCfg aws.Config
	var err error

	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				config.AccessKeyID,
				config.SecretAccessKey,
				"",
			)),
		)
	} else {
		// Default credential chain
		awsCfg, err = awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(config.Region),
		)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)

	return &Signer{
		client:          client,
		presignClient:   s3.NewPresignClient(client),
		defaultBucket:   config.Bucket,
		presignDuration: time.Duration(config.PresignDuration) * time.Second,
	}, nil
}

// SignDownloadURL returns a presigned GET URL for the object. An empty
// bucket selects the configured default. When filename is set the URL
// forces a browser download under that name.
func (s *Signer) SignDownloadURL(ctx context.Context, bucket, objectKey, filename string) (string, error) {
	if bucket == "" {
		bucket = s.defaultBucket
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(objectKey),
	}
	if filename != "" {
		input.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", filename))
	}

	result, err := s.presignClient.PresignGetObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = s.presignDuration
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return result.URL, nil
}

// ListBuckets returns the buckets visible to the configured credentials.
func (s *Signer) ListBuckets(ctx context.Context) ([]sharelink.BucketInfo, error) {
	result, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", apiError(err))
	}

	buckets := make([]sharelink.BucketInfo, 0, len(result.Buckets))
	for _, b := range result.Buckets {
		info := sharelink.BucketInfo{Name: aws.ToString(b.Name)}
		if b.CreationDate != nil {
			info.CreatedAt = *b.CreationDate
		}
		buckets = append(buckets, info)
	}

	return buckets, nil
}

// ListObjects returns one page of objects under the given prefix.
func (s *Signer) ListObjects(ctx context.Context, req sharelink.ListObjectsRequest) (*sharelink.ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(req.Bucket),
	}
	if req.Prefix != "" {
		input.Prefix = aws.String(req.Prefix)
	}
	if req.ContinuationToken != "" {
		input.ContinuationToken = aws.String(req.ContinuationToken)
	}

	result, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects in bucket %s: %w", req.Bucket, apiError(err))
	}

	page := &sharelink.ObjectPage{
		Objects:               make([]sharelink.ObjectInfo, 0, len(result.Contents)),
		IsTruncated:           aws.ToBool(result.IsTruncated),
		NextContinuationToken: aws.ToString(result.NextContinuationToken),
	}
	for _, obj := range result.Contents {
		info := sharelink.ObjectInfo{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		page.Objects = append(page.Objects, info)
	}

	return page, nil
}

// apiError strips SDK wrapping down to the provider error code when one
// is present, keeping handler-facing messages short.
func apiError(err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %s", ae.ErrorCode(), ae.ErrorMessage())
	}
	return err
}

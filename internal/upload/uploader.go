// Package upload archives scan report artifacts to S3. It owns all AWS
// SDK access for the pipeline; the report package only formats.
package upload

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// S3API is the subset of the S3 client the uploader uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// STSAPI is the subset of the STS client the uploader uses.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// ClientFactory builds the service clients from a resolved AWS config.
// Inject a fake in tests.
type ClientFactory func(cfg aws.Config) (S3API, STSAPI)

// defaultClientFactory creates real SDK clients.
func defaultClientFactory(cfg aws.Config) (S3API, STSAPI) {
	return s3.NewFromConfig(cfg), sts.NewFromConfig(cfg)
}

// Uploader stores report artifacts in an S3 bucket. Construct with
// NewUploader, then call Load once before PutReport.
type Uploader struct {
	factory ClientFactory

	s3        S3API
	sts       STSAPI
	accountID string
	region    string
}

// NewUploader returns an uploader backed by the real AWS SDK.
func NewUploader() *Uploader {
	return &Uploader{factory: defaultClientFactory}
}

// NewUploaderWithFactory returns an uploader that uses f to create its
// clients. Pass a fake factory in tests.
func NewUploaderWithFactory(f ClientFactory) *Uploader {
	return &Uploader{factory: f}
}

// Load resolves AWS credentials for the named shared-config profile (empty
// selects the default credential chain), constructs the service clients,
// and verifies the credentials by resolving the caller's account ID.
func (u *Uploader) Load(ctx context.Context, profile, region string) error {
	opts := []func(*awsconfig.LoadOptions) error{}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	u.s3, u.sts = u.factory(cfg)
	u.region = cfg.Region

	identity, err := u.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return fmt.Errorf("resolve AWS caller identity: %w", err)
	}
	u.accountID = aws.ToString(identity.Account)
	return nil
}

// AccountID returns the account resolved by Load, empty before Load.
func (u *Uploader) AccountID() string { return u.accountID }

// PutReport uploads body as the given bucket/key and returns the s3:// URI.
// Load must have succeeded first.
func (u *Uploader) PutReport(ctx context.Context, bucket, key string, body []byte) (string, error) {
	if u.s3 == nil {
		return "", fmt.Errorf("uploader not loaded")
	}

	_, err := u.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put report s3://%s/%s: %w", bucket, key, err)
	}
	return fmt.Sprintf("s3://%s/%s", bucket, key), nil
}

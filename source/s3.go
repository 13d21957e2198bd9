package source

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3 reads an object from S3, versioned by its ETag. Conditional fetches
// send If-None-Match; S3 answers 304 Not Modified, which the SDK surfaces
// as an API error with code NotModified.
type S3 struct {
	client *s3.Client
	bucket string
	key    string
}

var _ Source = (*S3)(nil)

type S3Config struct {
	Client *s3.Client
	Bucket string
	Key    string
}

func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Client == nil {
		return nil, errors.New("source: s3: nil client")
	}
	if cfg.Bucket == "" || cfg.Key == "" {
		return nil, errors.New("source: s3: bucket and key are required")
	}
	return &S3{client: cfg.Client, bucket: cfg.Bucket, key: cfg.Key}, nil
}

func (s *S3) Fetch(ctx context.Context) (string, []byte, error) {
	v, b, _, err := s.get(ctx, "")
	return v, b, err
}

func (s *S3) FetchIfNewer(ctx context.Context, version string) (string, []byte, bool, error) {
	return s.get(ctx, version)
}

func (s *S3) get(ctx context.Context, version string) (string, []byte, bool, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	}
	if version != "" {
		in.IfNoneMatch = aws.String(version)
	}

	out, err := s.client.GetObject(ctx, in)
	if err != nil {
		var ae smithy.APIError
		if version != "" && errors.As(err, &ae) && ae.ErrorCode() == "NotModified" {
			return "", nil, false, nil
		}
		return "", nil, false, err
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return "", nil, false, err
	}
	return aws.ToString(out.ETag), b, true, nil
}

func (s *S3) String() string { return "s3://" + s.bucket + "/" + s.key }

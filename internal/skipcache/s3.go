package skipcache

import (
	"bytes"
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3 is the S3-compatible skip-cache storage named in spec.md 5,
// grounded on aws-sdk-go-v2's s3 client — the same dependency the
// retrieval pack's cloudposse-atmos manifest pulls in.
type S3 struct {
	Client *s3.Client
	Bucket string
	Prefix string
}

func (s *S3) objectKey(key string) string {
	return s.Prefix + key
}

// Has issues a HeadObject and interprets a 404 as "not done yet".
func (s *S3) Has(ctx context.Context, key string) (bool, error) {
	_, err := s.Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err == nil {
		return true, nil
	}
	var notFound *smithyhttp.ResponseError
	if errors.As(err, &notFound) && notFound.HTTPStatusCode() == 404 {
		return false, nil
	}
	return false, err
}

// Put uploads a zero-byte object at key.
func (s *S3) Put(ctx context.Context, key string) error {
	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.objectKey(key)),
		Body:   bytes.NewReader(nil),
	})
	return err
}

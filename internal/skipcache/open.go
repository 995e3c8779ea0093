package skipcache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"

	"github.com/cigenhq/cigen/pkg/model"
)

// Open constructs the Backend cfg selects. "local" (the default) needs
// no external service; "redis" and "s3" read their connection details
// from cfg plus the environment variables CircleCI and GitHub Actions
// both already expose when an AWS context is configured (the region
// from AWS_REGION or AWS_DEFAULT_REGION, and the three credentials
// AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_SESSION_TOKEN) — this avoids pulling in
// aws-sdk-go-v2/config's credential-chain resolution for a single
// skip-cache client.
func Open(cfg model.SkipCacheConfig) (Backend, error) {
	switch cfg.Backend {
	case "", "local":
		dir := cfg.Dir
		if dir == "" {
			dir = ".cigen/skip-cache"
		}
		return &Local{Dir: dir}, nil

	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("skip_cache backend %q requires redis_addr", cfg.Backend)
		}
		return &Redis{
			Client: redis.NewClient(&redis.Options{Addr: cfg.RedisAddr}),
			Prefix: cfg.RedisPrefix,
			TTL:    30 * 24 * time.Hour,
		}, nil

	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("skip_cache backend %q requires s3_bucket", cfg.Backend)
		}
		region := os.Getenv("AWS_REGION")
		if region == "" {
			region = os.Getenv("AWS_DEFAULT_REGION")
		}
		client := s3.New(s3.Options{
			Region:      region,
			Credentials: envCredentials{},
		})
		return &S3{Client: client, Bucket: cfg.S3Bucket, Prefix: cfg.S3Prefix}, nil

	default:
		return nil, fmt.Errorf("unknown skip_cache backend %q", cfg.Backend)
	}
}

// envCredentials reads the three AWS credential env vars directly
// rather than resolving the full SDK credential chain.
type envCredentials struct{}

func (envCredentials) Retrieve(_ context.Context) (aws.Credentials, error) {
	return aws.Credentials{
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
	}, nil
}

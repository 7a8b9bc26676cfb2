package dataset

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// Opener opens a dataset source for reading.
type Opener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context, uri string) (io.ReadCloser, error)

func (f OpenerFunc) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	return f(ctx, uri)
}

// FileOpener reads sources from the local filesystem.
type FileOpener struct{}

func (FileOpener) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	path := strings.TrimPrefix(uri, "file://")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	return f, nil
}

// S3API is the subset of the S3 client used to fetch objects.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 client. Endpoint is only needed for MinIO or
// other S3-compatible stores.
type S3Config struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// NewS3Client builds an S3 client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	opts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
			o.UsePathStyle = true
		})
	}

	return s3.NewFromConfig(awsCfg, opts...), nil
}

// S3Opener reads s3://bucket/key sources.
type S3Opener struct {
	client S3API
}

// NewS3Opener wraps an S3 client.
func NewS3Opener(client S3API) *S3Opener {
	return &S3Opener{client: client}
}

func (o *S3Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, key, err := parseS3URI(uri)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Fetching dataset from S3")

	out, err := o.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	return out.Body, nil
}

func parseS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("invalid S3 URI %q: %w", uri, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: expected s3://bucket/key", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("invalid S3 URI %q: missing object key", uri)
	}
	return u.Host, key, nil
}

// Resolver picks an Opener by URI scheme. Plain paths use the file opener.
type Resolver struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

// NewResolver returns a resolver that knows the file scheme and, lazily,
// the s3 scheme configured by cfg.
func NewResolver(cfg S3Config) *Resolver {
	r := &Resolver{openers: map[string]Opener{
		"file": FileOpener{},
	}}
	r.Register("s3", lazyS3Opener(cfg))
	return r
}

// Register installs or replaces the opener for a scheme.
func (r *Resolver) Register(scheme string, opener Opener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[strings.ToLower(scheme)] = opener
}

// Open opens uri with the opener registered for its scheme.
func (r *Resolver) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	scheme := schemeOf(uri)

	r.mu.RLock()
	opener, ok := r.openers[scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported dataset scheme %q in %s", scheme, uri)
	}
	return opener.Open(ctx, uri)
}

func schemeOf(uri string) string {
	idx := strings.Index(uri, "://")
	if idx <= 0 {
		return "file"
	}
	return strings.ToLower(uri[:idx])
}

// lazyS3Opener defers AWS config loading until an s3 URI is opened, so
// local runs never touch the credential chain.
func lazyS3Opener(cfg S3Config) Opener {
	var (
		once   sync.Once
		opener *S3Opener
		errNew error
	)
	return OpenerFunc(func(ctx context.Context, uri string) (io.ReadCloser, error) {
		once.Do(func() {
			client, err := NewS3Client(ctx, cfg)
			if err != nil {
				errNew = err
				return
			}
			opener = NewS3Opener(client)
		})
		if errNew != nil {
			return nil, errNew
		}
		return opener.Open(ctx, uri)
	})
}

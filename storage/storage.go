// Package storage keeps product images and other media in an S3-compatible
// bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"github.com/Ib-dI/ylang-creations/config"
)

var (
	// ErrUnsupportedType is returned for uploads that are not images.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrTooLarge is returned for uploads above the configured limit.
	ErrTooLarge = errors.New("file too large")
	// ErrNotConfigured is returned by Disabled.
	ErrNotConfigured = errors.New("object storage is not configured")
)

// AllowedTypes lists the accepted image content types.
var AllowedTypes = []string{"image/jpeg", "image/png", "image/webp", "image/gif", "image/avif"}

// maxDeleteBatch is the S3 DeleteObjects limit.
const maxDeleteBatch = 1000

// API is the subset of the S3 client used by Bucket.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Object describes a stored file.
type Object struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	ContentType  string    `json:"contentType,omitempty"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified,omitempty"`
}

// Media is the storage used by the HTTP API.
type Media interface {
	Upload(ctx context.Context, prefix string, r io.Reader) (*Object, error)
	Delete(ctx context.Context, urls ...string) error
	List(ctx context.Context, prefix string) ([]Object, error)
}

// Bucket stores objects in one bucket and serves them from a public base URL.
type Bucket struct {
	api      API
	bucket   string
	baseURL  string
	maxBytes int64
	logger   *slog.Logger
}

var _ Media = (*Bucket)(nil)

// New builds a Bucket from cfg. Static credentials are used when an access
// key is configured; otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg config.StorageConfig) (*Bucket, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithAPI(client, cfg), nil
}

// NewWithAPI builds a Bucket over an existing client.
func NewWithAPI(api API, cfg config.StorageConfig) *Bucket {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" && cfg.Endpoint != "" {
		baseURL = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return &Bucket{
		api:      api,
		bucket:   cfg.Bucket,
		baseURL:  baseURL,
		maxBytes: cfg.MaxUploadBytes,
		logger:   slog.Default(),
	}
}

// WithLogger sets the logger for the bucket.
func (b *Bucket) WithLogger(l *slog.Logger) *Bucket {
	tmp := *b
	tmp.logger = l
	return &tmp
}

// Upload stores an image read from r under prefix with a random name. The
// content type is sniffed from the data, never trusted from the client.
func (b *Bucket) Upload(ctx context.Context, prefix string, r io.Reader) (*Object, error) {
	limit := b.maxBytes
	if limit <= 0 {
		limit = 5 << 20
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	contentType := mt.String()
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	if !slices.Contains(AllowedTypes, contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	key := path.Join(cleanPrefix(prefix), uuid.NewString()+mt.Extension())
	_, err = b.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", key, err)
	}

	b.logger.Info("Uploaded object", "key", key, "contentType", contentType, "size", len(data))
	return &Object{Key: key, URL: b.PublicURL(key), ContentType: contentType, Size: int64(len(data))}, nil
}

// Delete removes the objects behind urls. URLs that do not point into the
// bucket are ignored.
func (b *Bucket) Delete(ctx context.Context, urls ...string) error {
	var ids []types.ObjectIdentifier
	for _, u := range urls {
		if key, ok := b.KeyFromURL(u); ok {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(key)})
		}
	}

	var errs []error
	for batch := range slices.Chunk(ids, maxDeleteBatch) {
		out, err := b.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: batch, Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete objects: %w", err))
			continue
		}
		for _, e := range out.Errors {
			errs = append(errs, fmt.Errorf("failed to delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message)))
		}
	}
	if len(ids) > 0 {
		b.logger.Info("Deleted objects", "count", len(ids), "errors", len(errs))
	}
	return errors.Join(errs...)
}

// List returns every object under prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	p := cleanPrefix(prefix)
	if p != "" {
		p += "/"
	}
	pager := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(p),
	})

	objects := []Object{}
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects under %q: %w", p, err)
		}
		for _, o := range page.Contents {
			key := aws.ToString(o.Key)
			objects = append(objects, Object{
				Key:          key,
				URL:          b.PublicURL(key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}
	return objects, nil
}

// PublicURL returns the URL serving key.
func (b *Bucket) PublicURL(key string) string {
	return b.baseURL + "/" + strings.TrimLeft(key, "/")
}

// KeyFromURL returns the object key of a URL produced by PublicURL.
func (b *Bucket) KeyFromURL(raw string) (string, bool) {
	prefix := b.baseURL + "/"
	if b.baseURL == "" || !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	key := strings.TrimPrefix(raw, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	key, err := url.PathUnescape(key)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

func cleanPrefix(prefix string) string {
	p := strings.Trim(path.Clean("/"+prefix), "/")
	if p == "." {
		return ""
	}
	return p
}

// Disabled is the Media used when no bucket is configured.
type Disabled struct{}

var _ Media = Disabled{}

// Upload implements Media.
func (Disabled) Upload(context.Context, string, io.Reader) (*Object, error) {
	return nil, ErrNotConfigured
}

// Delete implements Media. Nothing can be stored, so nothing needs deleting.
func (Disabled) Delete(context.Context, ...string) error {
	return nil
}

// List implements Media.
func (Disabled) List(context.Context, string) ([]Object, error) {
	return nil, ErrNotConfigured
}

//go:build integration

package storage_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	qt "github.com/frankban/quicktest"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ib-dI/ylang-creations/config"
	"github.com/Ib-dI/ylang-creations/storage"
)

func startLocalStack(c *qt.C) config.StorageConfig {
	ctx := context.Background()

	container, err := localstack.Run(ctx,
		"localstack/localstack:latest",
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		c.Skipf("localstack unavailable: %v", err)
	}
	c.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	c.Assert(err, qt.IsNil)
	port, err := container.MappedPort(ctx, "4566")
	c.Assert(err, qt.IsNil)

	cfg := config.StorageConfig{
		Endpoint:       fmt.Sprintf("http://%s:%s", host, port.Port()),
		Region:         "us-east-1",
		Bucket:         "products",
		AccessKey:      "test",
		SecretKey:      "test",
		ForcePathStyle: true,
		MaxUploadBytes: 1 << 20,
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	c.Assert(err, qt.IsNil)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(cfg.Bucket)})
	c.Assert(err, qt.IsNil)

	return cfg
}

func TestBucket_LocalStack(t *testing.T) {
	c := qt.New(t)
	ctx := context.Background()

	b, err := storage.New(ctx, startLocalStack(c))
	c.Assert(err, qt.IsNil)

	first, err := b.Upload(ctx, "images", strings.NewReader(string(pngHeader)))
	c.Assert(err, qt.IsNil)
	second, err := b.Upload(ctx, "images", strings.NewReader(string(pngHeader)))
	c.Assert(err, qt.IsNil)
	_, err = b.Upload(ctx, "other", strings.NewReader(string(pngHeader)))
	c.Assert(err, qt.IsNil)

	objects, err := b.List(ctx, "images")
	c.Assert(err, qt.IsNil)
	c.Assert(objects, qt.HasLen, 2)

	c.Assert(b.Delete(ctx, first.URL, second.URL), qt.IsNil)

	objects, err = b.List(ctx, "images")
	c.Assert(err, qt.IsNil)
	c.Assert(objects, qt.HasLen, 0)
}

// Package archive uploads a compiled decoder's bytecode, symbol
// table, and graphviz dot dump to an S3-compatible bucket, for sites
// that manage many receivers from a central fleet inventory and want
// a durable record of what was last attached to each device.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// Config configures the S3 destination.
type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Archive uploads decoder artifacts to S3.
type Archive struct {
	client *s3.S3
	bucket string
	prefix string
}

// New creates an Archive, verifying the bucket is reachable.
func New(cfg Config) (*Archive, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive: bucket is required")
	}

	sess, err := session.NewSession(&aws.Config{
		Region:      aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: create session: %w", err)
	}

	client := s3.New(sess)
	if _, err := client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("archive: access bucket %s: %w", cfg.Bucket, err)
	}

	return &Archive{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (a *Archive) key(deviceName, name, suffix string) string {
	key := fmt.Sprintf("%s/%s/%s%s", deviceName, name, name, suffix)
	if a.prefix != "" {
		return a.prefix + "/" + key
	}
	return key
}

// UploadDecoder uploads a compiled decoder's bytecode, symbol listing,
// and (optional) graphviz dot dump under
// "<prefix>/<deviceName>/<name>/".
func (a *Archive) UploadDecoder(ctx context.Context, deviceName, name string, bytecode []byte, symbols string, dot string) error {
	if err := a.put(ctx, a.key(deviceName, name, ".bpf"), bytecode, "application/octet-stream"); err != nil {
		return err
	}
	if symbols != "" {
		if err := a.put(ctx, a.key(deviceName, name, ".symbols.txt"), []byte(symbols), "text/plain"); err != nil {
			return err
		}
	}
	if dot != "" {
		if err := a.put(ctx, a.key(deviceName, name, ".dot"), []byte(dot), "text/vnd.graphviz"); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) put(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: put %s: %w", key, err)
	}
	return nil
}

// ListDecoders lists every archived decoder key for deviceName.
func (a *Archive) ListDecoders(ctx context.Context, deviceName string) ([]string, error) {
	prefix := deviceName
	if a.prefix != "" {
		prefix = a.prefix + "/" + deviceName
	}
	result, err := a.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: list %s: %w", prefix, err)
	}
	keys := make([]string, 0, len(result.Contents))
	for _, obj := range result.Contents {
		keys = append(keys, *obj.Key)
	}
	return keys, nil
}

// LastModified reports when a given archived object was last
// written, for drift/staleness checks (internal/maintenance).
func (a *Archive) LastModified(ctx context.Context, key string) (time.Time, error) {
	result, err := a.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("archive: head %s: %w", key, err)
	}
	return *result.LastModified, nil
}

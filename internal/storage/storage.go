// Package storage keeps posts as JSON objects in an S3-compatible bucket (MinIO in
// development). Each post lives under posts/<id>.json.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"forum/internal/posts"
)

const keyPrefix = "posts/"

// Config holds the bucket connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// PostStore is a posts.Repository backed by object storage. Single-object writes are
// atomic; read-modify-write sequences are serialized within this process only.
type PostStore struct {
	client *s3.Client
	bucket string
	logger *slog.Logger
	now    func() time.Time

	mu sync.Mutex
}

var _ posts.Repository = (*PostStore)(nil)

// New creates a post store for the configured bucket, creating the bucket if needed.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*PostStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("S3 endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket name is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if logger == nil {
		logger = slog.Default()
	}

	protocol := "http"
	if cfg.UseSSL {
		protocol = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", protocol, cfg.Endpoint)

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Path-style addressing is required for MinIO
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true
	})

	s := &PostStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
		now:    time.Now,
	}

	if err := s.EnsureBucketExists(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// EnsureBucketExists creates the bucket if it doesn't already exist
func (s *PostStore) EnsureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("created S3 bucket", "bucket", s.bucket)
	return nil
}

// Health checks if the storage service is accessible
func (s *PostStore) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("storage health check failed: %w", err)
	}
	return nil
}

func objectKey(id uuid.UUID) string {
	return keyPrefix + id.String() + ".json"
}

func idFromKey(key string) (uuid.UUID, bool) {
	name, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return uuid.Nil, false
	}
	name, ok = strings.CutSuffix(name, ".json")
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(name)
	return id, err == nil
}

func (s *PostStore) List(ctx context.Context) ([]posts.Post, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(keyPrefix),
	})

	out := []posts.Post{}
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list posts: %w", err)
		}
		for _, obj := range page.Contents {
			id, ok := idFromKey(aws.ToString(obj.Key))
			if !ok {
				continue
			}
			post, err := s.GetByID(ctx, id)
			if errors.Is(err, posts.ErrPostNotFound) {
				// deleted between listing and reading
				continue
			}
			if err != nil {
				return nil, err
			}
			out = append(out, *post)
		}
	}
	posts.DefaultSort.Sort(out)
	return out, nil
}

func (s *PostStore) GetByID(ctx context.Context, id uuid.UUID) (*posts.Post, error) {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, posts.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post %s: %w", id, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read post %s: %w", id, err)
	}
	var post posts.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("failed to decode post %s: %w", id, err)
	}
	return &post, nil
}

func (s *PostStore) Save(ctx context.Context, post *posts.Post) (*posts.Post, error) {
	p := posts.PrepareSave(post, s.now())
	if err := s.put(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostStore) put(ctx context.Context, p posts.Post) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode post %s: %w", p.ID, err)
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey(p.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to store post %s: %w", p.ID, err)
	}
	return nil
}

func (s *PostStore) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check post %s: %w", id, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey(id)),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete post %s: %w", id, err)
	}
	return true, nil
}

func (s *PostStore) IncrementLikes(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.adjustLikes(ctx, id, 1)
}

func (s *PostStore) DecrementLikes(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.adjustLikes(ctx, id, -1)
}

func (s *PostStore) adjustLikes(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, err := s.GetByID(ctx, id)
	if errors.Is(err, posts.ErrPostNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if post.Likes+delta < 0 {
		return false, nil
	}
	post.Likes += delta
	if err := s.put(ctx, posts.PrepareSave(post, s.now())); err != nil {
		return false, err
	}
	return true, nil
}

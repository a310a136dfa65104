package filestore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultListCacheTTL = 30 * time.Second

type s3Config struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Prefix    string `json:"prefix"`
	PublicURL string `json:"public_url"`
	UseSSL    bool   `json:"use_ssl"`
	// ListCacheSeconds keeps listings for a short while; writes purge it.
	ListCacheSeconds int `json:"list_cache_seconds"`
}

type s3API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type s3Store struct {
	client    s3API
	bucket    string
	prefix    string
	publicURL string
	listCache *expirable.LRU[string, []Entry]

	// writes bumps on every Save/Delete; a List only caches its result
	// when no write finished while it was running.
	mu     sync.Mutex
	writes uint64
}

func init() {
	Register("s3", createS3Store)
}

func createS3Store(args interface{}) (Store, error) {
	config := &s3Config{}
	if err := decodeConfig(args, config); err != nil {
		return nil, err
	}
	if config.Bucket == "" || config.SecretID == "" || config.SecretKey == "" {
		return nil, fmt.Errorf("s3 bucket/secret_id/secret_key are required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(config.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.SecretID, config.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	endpoint := ""
	if config.Endpoint != "" {
		endpoint = endpointURL(config.Endpoint, config.UseSSL)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	publicURL := strings.TrimSuffix(config.PublicURL, "/")
	if publicURL == "" {
		publicURL = buildS3BaseURL(config.Endpoint, config.Bucket, config.Region, config.UseSSL)
	}
	ttl := defaultListCacheTTL
	if config.ListCacheSeconds > 0 {
		ttl = time.Duration(config.ListCacheSeconds) * time.Second
	}
	return newS3Store(client, config.Bucket, config.Prefix, publicURL, ttl), nil
}

func newS3Store(client s3API, bucket, prefix, publicURL string, ttl time.Duration) *s3Store {
	return &s3Store{
		client:    client,
		bucket:    bucket,
		prefix:    strings.Trim(prefix, "/"),
		publicURL: publicURL,
		listCache: expirable.NewLRU[string, []Entry](16, nil, ttl),
	}
}

func (s *s3Store) Type() string {
	return "s3"
}

func (s *s3Store) URL(key string) string {
	return strings.TrimSuffix(s.publicURL, "/") + "/" + s.objectKey(key)
}

func (s *s3Store) Save(ctx context.Context, key string, r io.ReadSeeker, size int64) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	defer s.invalidate()
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return err
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType(key)),
	})
	return err
}

func (s *s3Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if !ValidKey(key) {
		return nil, ErrInvalidKey
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func (s *s3Store) List(ctx context.Context, prefix string) ([]Entry, error) {
	if cached, ok := s.listCache.Get(prefix); ok {
		return append([]Entry(nil), cached...), nil
	}
	s.mu.Lock()
	startWrites := s.writes
	s.mu.Unlock()
	full := s.objectKey(prefix)
	base := ""
	if s.prefix != "" {
		base = s.prefix + "/"
	}
	entries := make([]Entry, 0)
	pager := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(full),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := strings.TrimPrefix(aws.ToString(obj.Key), base)
			if !ValidKey(key) {
				continue
			}
			entries = append(entries, Entry{Key: key, ModTime: aws.ToTime(obj.LastModified)})
		}
	}
	sortEntries(entries)
	s.mu.Lock()
	if s.writes == startWrites {
		s.listCache.Add(prefix, entries)
	}
	s.mu.Unlock()
	return append([]Entry(nil), entries...), nil
}

func (s *s3Store) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	defer s.invalidate()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	return err
}

func (s *s3Store) invalidate() {
	s.mu.Lock()
	s.writes++
	s.listCache.Purge()
	s.mu.Unlock()
}

func (s *s3Store) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if s.prefix == "" {
		return key
	}
	return path.Join(s.prefix, key)
}

func contentType(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".png") {
		return "image/png"
	}
	return "application/octet-stream"
}

func endpointURL(endpoint string, useSSL bool) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return scheme + "://" + endpoint
}

func buildS3BaseURL(endpoint, bucket, region string, useSSL bool) string {
	if endpoint == "" {
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	ep := endpointURL(endpoint, useSSL)
	u, err := url.Parse(ep)
	if err != nil {
		return strings.TrimSuffix(ep, "/") + "/" + bucket
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + bucket
	return u.String()
}

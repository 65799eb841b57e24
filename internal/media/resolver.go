// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media resolves playable sources in an S3-compatible object store.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"github.com/ManuGH/playwatch/internal/cache"
	"github.com/ManuGH/playwatch/internal/log"
)

var (
	ErrNotFound   = errors.New("media object not found")
	ErrInvalidKey = errors.New("invalid media key")
)

// ObjectAPI is the subset of *minio.Client the resolver uses.
type ObjectAPI interface {
	StatObject(ctx context.Context, bucket, key string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PresignedGetObject(ctx context.Context, bucket, key string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

// Config contains object store settings.
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Bucket          string
	Region          string

	// PresignExpiry defaults to 1h.
	PresignExpiry time.Duration
	// ProbeRange checks each presigned URL for byte-range support.
	ProbeRange bool
	// CacheTTL keeps resolved sources for reuse; 0 disables caching. It is
	// capped at half of PresignExpiry so cached URLs stay valid.
	CacheTTL time.Duration
}

// Source is a resolved, directly playable object.
type Source struct {
	Key            string    `json:"key"`
	URL            string    `json:"url"`
	Size           int64     `json:"size"`
	ContentType    string    `json:"content_type"`
	ETag           string    `json:"etag,omitempty"`
	LastModified   time.Time `json:"last_modified"`
	ExpiresAt      time.Time `json:"expires_at"`
	RangeSupported *bool     `json:"range_supported,omitempty"`
}

// Resolver turns object keys into presigned sources.
type Resolver struct {
	api    ObjectAPI
	cfg    Config
	prober *RangeProber
	cache  *cache.Memory[Source]
	flight singleflight.Group
	now    func() time.Time
	logger zerolog.Logger
}

// NewResolver creates a minio client for cfg.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("object store endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return NewResolverWithAPI(client, cfg), nil
}

// NewResolverWithAPI builds a resolver over an existing client.
func NewResolverWithAPI(api ObjectAPI, cfg Config) *Resolver {
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = time.Hour
	}
	r := &Resolver{
		api:    api,
		cfg:    cfg,
		now:    time.Now,
		logger: log.WithComponent("media"),
	}
	if cfg.CacheTTL > cfg.PresignExpiry/2 {
		cfg.CacheTTL = cfg.PresignExpiry / 2
	}
	r.cfg = cfg
	if cfg.CacheTTL > 0 {
		r.cache = cache.NewMemory[Source](cfg.CacheTTL, cache.WithClock(func() time.Time { return r.now() }))
	}
	if cfg.ProbeRange {
		r.prober = NewRangeProber(&http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		}, 3)
	}
	return r
}

// Resolve stats key and presigns a GET URL for it.
func (r *Resolver) Resolve(ctx context.Context, key string) (Source, error) {
	if err := ValidateKey(key); err != nil {
		return Source{}, err
	}
	if r.cache != nil {
		if src, ok := r.cache.Get(key); ok {
			r.logger.Debug().Str(log.FieldEvent, "media.cache_hit").Str(log.FieldMediaKey, key).Msg("media source from cache")
			return src, nil
		}
	}

	// Concurrent resolves of one key share a single stat, presign and probe.
	v, err, _ := r.flight.Do(key, func() (any, error) {
		return r.resolve(ctx, key)
	})
	if err != nil {
		return Source{}, err
	}
	return v.(Source), nil
}

func (r *Resolver) resolve(ctx context.Context, key string) (Source, error) {
	info, err := r.api.StatObject(ctx, r.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return Source{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return Source{}, fmt.Errorf("stat %s: %w", key, err)
	}

	issued := r.now()
	u, err := r.api.PresignedGetObject(ctx, r.cfg.Bucket, key, r.cfg.PresignExpiry, url.Values{})
	if err != nil {
		return Source{}, fmt.Errorf("presign %s: %w", key, err)
	}

	src := Source{
		Key:          key,
		URL:          u.String(),
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		ExpiresAt:    issued.Add(r.cfg.PresignExpiry),
	}
	if src.ContentType == "" {
		src.ContentType = "application/octet-stream"
	}

	if r.prober != nil {
		ok, err := r.prober.Probe(ctx, src.URL)
		if err != nil {
			r.logger.Warn().Err(err).
				Str(log.FieldEvent, "media.range_probe_failed").
				Str(log.FieldMediaKey, key).
				Msg("range probe failed")
		} else {
			src.RangeSupported = &ok
		}
	}

	if r.cache != nil {
		r.cache.Set(key, src, r.cfg.CacheTTL)
	}

	r.logger.Debug().
		Str(log.FieldEvent, "media.resolved").
		Str(log.FieldMediaKey, key).
		Int64("size", src.Size).
		Time("expires_at", src.ExpiresAt).
		Msg("media source resolved")
	return src, nil
}

// Close stops the source cache janitor.
func (r *Resolver) Close() {
	if r.cache != nil {
		r.cache.Stop()
	}
}

func isNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	default:
		return false
	}
}

// ValidateKey rejects empty keys, absolute keys and path traversal.
func ValidateKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case len(key) > 1024:
		return fmt.Errorf("%w: longer than 1024 bytes", ErrInvalidKey)
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("%w: leading slash", ErrInvalidKey)
	case strings.ContainsRune(key, '\\'), strings.ContainsRune(key, 0):
		return fmt.Errorf("%w: illegal character", ErrInvalidKey)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: relative path segment", ErrInvalidKey)
		}
	}
	return nil
}

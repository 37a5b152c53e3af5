package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/analysis"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/dtos"
	"github.com/nimeshabuddhika/qr-fraud-scanner/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "qrscan:verdict:"
	defaultTTL       = 10 * time.Minute
)

// ErrCacheMiss is returned by a ResultStore when no verdict is stored for the digest.
var ErrCacheMiss = errors.New("cache miss")

// ResultStore persists verdicts keyed by the sha256 of the image.
type ResultStore interface {
	Get(ctx context.Context, digest string) (dtos.AnalysisResponse, error)
	Set(ctx context.Context, digest string, resp dtos.AnalysisResponse) error
}

// ResultStoreConfig tunes how verdicts are keyed and how long they live.
// Zero values fall back to "qrscan:verdict:" and ten minutes.
type ResultStoreConfig struct {
	KeyPrefix string
	TTL       time.Duration
}

// RedisResultStore is a ResultStore backed by Redis string keys with a TTL.
type RedisResultStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

func NewRedisResultStore(client *redis.Client, cfg ResultStoreConfig) *RedisResultStore {
	prefix := cfg.KeyPrefix
	if utils.IsEmpty(prefix) {
		prefix = defaultKeyPrefix
	}
	return &RedisResultStore{
		client:    client,
		keyPrefix: prefix,
		ttl:       defaultDuration(cfg.TTL, defaultTTL),
	}
}

func (r *RedisResultStore) Get(ctx context.Context, digest string) (dtos.AnalysisResponse, error) {
	var out dtos.AnalysisResponse
	raw, err := r.client.Get(ctx, r.keyPrefix+digest).Bytes()
	if errors.Is(err, redis.Nil) {
		return out, ErrCacheMiss
	}
	if err != nil {
		return out, err
	}
	if err = json.Unmarshal(raw, &out); err != nil {
		return dtos.AnalysisResponse{}, err
	}
	return out, nil
}

func (r *RedisResultStore) Set(ctx context.Context, digest string, resp dtos.AnalysisResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.keyPrefix+digest, raw, r.ttl).Err()
}

// CachingBackend serves repeated uploads of the same image from a ResultStore.
// The store is best-effort: its failures are logged and the inner backend is used.
type CachingBackend struct {
	logger *zap.Logger
	inner  analysis.Backend
	store  ResultStore
}

func NewCachingBackend(logger *zap.Logger, inner analysis.Backend, store ResultStore) *CachingBackend {
	return &CachingBackend{logger: logger, inner: inner, store: store}
}

func (c *CachingBackend) Analyze(ctx context.Context, traceID string, req dtos.AnalysisRequest) (dtos.AnalysisResponse, error) {
	digest := utils.Sha256Hex(req.Image)

	cached, err := c.store.Get(ctx, digest)
	switch {
	case err == nil:
		c.logger.Debug("verdict_cache_hit", zap.String(pkg.TraceId, traceID), zap.String(pkg.ImageSha256, digest))
		return cached, nil
	case !errors.Is(err, ErrCacheMiss):
		c.logger.Warn("verdict_cache_read_failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
	}

	resp, err := c.inner.Analyze(ctx, traceID, req)
	if err != nil {
		return resp, err
	}
	if err = c.store.Set(ctx, digest, resp); err != nil {
		c.logger.Warn("verdict_cache_write_failed", zap.String(pkg.TraceId, traceID), zap.Error(err))
	}
	return resp, nil
}

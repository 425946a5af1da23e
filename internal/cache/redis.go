package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"amm-launch-lab/internal/domain"
)

const (
	// DefaultTTL keeps creation info for a week; deployments never change.
	DefaultTTL = 7 * 24 * time.Hour

	keyPrefix = "amm:creation:"
)

// Redis is a CreationCache shared between indexer processes.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to addr and verifies the connection.
func NewRedis(ctx context.Context, addr string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,

		// Connection pool
		PoolSize:     10,
		MinIdleConns: 2,

		// Timeouts
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}

	logger.Info("connected to redis", zap.String("addr", addr))
	return &Redis{client: rdb, ttl: ttl, logger: logger}, nil
}

// Close closes the connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Get implements CreationCache.
func (r *Redis) Get(ctx context.Context, address string) (*domain.ContractCreationInfo, bool, error) {
	b, err := r.client.Get(ctx, key(address)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var info domain.ContractCreationInfo
	if err := json.Unmarshal(b, &info); err != nil {
		// a corrupt entry is a miss; the next Set overwrites it
		r.logger.Warn("discarding undecodable cache entry",
			zap.String("token", address), zap.Error(err))
		return nil, false, nil
	}
	return &info, true, nil
}

// Set implements CreationCache.
func (r *Redis) Set(ctx context.Context, address string, info *domain.ContractCreationInfo) error {
	if info == nil {
		return nil
	}
	b, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal creation info: %w", err)
	}
	if err := r.client.Set(ctx, key(address), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func key(address string) string {
	return keyPrefix + strings.ToLower(address)
}

var _ CreationCache = (*Redis)(nil)

// Package cache provides the short-TTL Redis cache for an asset's current
// owner set. Entries are invalidated synchronously before a mutating
// ledger call returns, so readers never see a stale active set for longer
// than one round trip.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/ff-ip-ledger/internal/adapter"
	"github.com/feral-file/ff-ip-ledger/internal/logger"
	"github.com/feral-file/ff-ip-ledger/internal/store/schema"
)

// OwnersCache caches the active ownership set per asset
//
//go:generate mockgen -source=owners.go -destination=../mocks/owners_cache.go -package=mocks -mock_names=OwnersCache=MockOwnersCache
type OwnersCache interface {
	// Get returns the cached active set for the asset, (nil, false) on a miss
	Get(ctx context.Context, assetID string) ([]schema.OwnershipRecord, bool)
	// Put stores the active set for the asset
	Put(ctx context.Context, assetID string, records []schema.OwnershipRecord)
	// Invalidate drops the asset's entry
	Invalidate(ctx context.Context, assetID string) error
}

type redisOwnersCache struct {
	client adapter.RedisClient
	ttl    time.Duration
}

// NewOwnersCache creates a Redis-backed owners cache with the given TTL
func NewOwnersCache(client adapter.RedisClient, ttl time.Duration) OwnersCache {
	return &redisOwnersCache{client: client, ttl: ttl}
}

func ownersKey(assetID string) string {
	return fmt.Sprintf("ownership:active:%s", assetID)
}

// Get returns the cached active set for the asset. Cache failures degrade
// to a miss; the store remains the source of truth.
func (c *redisOwnersCache) Get(ctx context.Context, assetID string) ([]schema.OwnershipRecord, bool) {
	data, err := c.client.Get(ctx, ownersKey(assetID))
	if err != nil {
		logger.WarnCtx(ctx, "Owners cache read failed", zap.String("asset_id", assetID), zap.Error(err))
		return nil, false
	}
	if data == nil {
		return nil, false
	}

	var records []schema.OwnershipRecord
	if err := json.Unmarshal(data, &records); err != nil {
		logger.WarnCtx(ctx, "Owners cache entry corrupt", zap.String("asset_id", assetID), zap.Error(err))
		return nil, false
	}
	return records, true
}

// Put stores the active set for the asset. Failures are logged and
// swallowed; a missing cache entry only costs a store read.
func (c *redisOwnersCache) Put(ctx context.Context, assetID string, records []schema.OwnershipRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to marshal owners cache entry", zap.String("asset_id", assetID), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, ownersKey(assetID), data, c.ttl); err != nil {
		logger.WarnCtx(ctx, "Owners cache write failed", zap.String("asset_id", assetID), zap.Error(err))
	}
}

// Invalidate drops the asset's entry. Unlike reads and writes, failures
// are returned: a mutation must not report success while a stale entry
// may outlive it.
func (c *redisOwnersCache) Invalidate(ctx context.Context, assetID string) error {
	if err := c.client.Del(ctx, ownersKey(assetID)); err != nil {
		return fmt.Errorf("failed to invalidate owners cache for asset %s: %w", assetID, err)
	}
	return nil
}

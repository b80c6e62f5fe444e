package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"catalog/application/ports"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
)

// CachingSlugRegistry caches the resolution reads of a ports.SlugRegistry.
// Availability checks and writes always go to the wrapped registry; writes
// invalidate the keys they can name. History rows of an unregistered entity
// expire with the TTL.
type CachingSlugRegistry struct {
	ports.SlugRegistry
	cache  ports.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachingSlugRegistry wraps inner with cache
func NewCachingSlugRegistry(inner ports.SlugRegistry, cache ports.Cache, ttl time.Duration, logger *zap.Logger) *CachingSlugRegistry {
	return &CachingSlugRegistry{SlugRegistry: inner, cache: cache, ttl: ttl, logger: logger}
}

// JoinsStoreTx reports what the wrapped registry reports
func (r *CachingSlugRegistry) JoinsStoreTx() bool {
	return ports.JoinsStoreTx(r.SlugRegistry)
}

func lookupKey(slug string) string { return "slug:lookup:" + slug }

func activeKey(entityType valueobjects.EntityType, entityID int64) string {
	return fmt.Sprintf("slug:active:%s:%d", entityType, entityID)
}

// RegisterSlug registers then drops the new slug, the previous active slug
// and the entity's active pointer from the cache.
func (r *CachingSlugRegistry) RegisterSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64, slug valueobjects.Slug) error {
	keys := []string{lookupKey(slug.String()), activeKey(entityType, entityID)}
	if previous, err := r.SlugRegistry.ActiveSlug(ctx, entityType, entityID); err == nil {
		keys = append(keys, lookupKey(previous.Slug))
	}

	if err := r.SlugRegistry.RegisterSlug(ctx, entityType, entityID, slug); err != nil {
		return err
	}
	r.invalidate(ctx, keys...)
	return nil
}

// UnregisterAllSlugsOfEntity unregisters then drops the active slug entries
func (r *CachingSlugRegistry) UnregisterAllSlugsOfEntity(ctx context.Context, entityType valueobjects.EntityType, entityID int64) error {
	keys := []string{activeKey(entityType, entityID)}
	if active, err := r.SlugRegistry.ActiveSlug(ctx, entityType, entityID); err == nil {
		keys = append(keys, lookupKey(active.Slug))
	}

	if err := r.SlugRegistry.UnregisterAllSlugsOfEntity(ctx, entityType, entityID); err != nil {
		return err
	}
	r.invalidate(ctx, keys...)
	return nil
}

// Lookup reads through the cache
func (r *CachingSlugRegistry) Lookup(ctx context.Context, slug valueobjects.Slug) (*entities.SlugRegistration, error) {
	return r.read(ctx, lookupKey(slug.String()), func() (*entities.SlugRegistration, error) {
		return r.SlugRegistry.Lookup(ctx, slug)
	})
}

// ActiveSlug reads through the cache
func (r *CachingSlugRegistry) ActiveSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64) (*entities.SlugRegistration, error) {
	return r.read(ctx, activeKey(entityType, entityID), func() (*entities.SlugRegistration, error) {
		return r.SlugRegistry.ActiveSlug(ctx, entityType, entityID)
	})
}

func (r *CachingSlugRegistry) read(ctx context.Context, key string, load func() (*entities.SlugRegistration, error)) (*entities.SlugRegistration, error) {
	if raw, ok := r.cache.Get(ctx, key); ok {
		var reg entities.SlugRegistration
		if err := json.Unmarshal(raw, &reg); err == nil {
			return &reg, nil
		}
		r.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}

	reg, err := load()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(reg)
	if err == nil {
		err = r.cache.Set(ctx, key, raw, r.ttl)
	}
	if err != nil {
		r.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
	}
	return reg, nil
}

func (r *CachingSlugRegistry) invalidate(ctx context.Context, keys ...string) {
	if err := r.cache.Delete(ctx, keys...); err != nil {
		r.logger.Warn("Cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

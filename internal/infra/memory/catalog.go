package memory

import (
	"context"
	"time"

	"xforce-progression/internal/domain"
	"xforce-progression/internal/progression"
)

// CatalogSource lists every achievement definition.
type CatalogSource interface {
	List(ctx context.Context) ([]domain.AchievementDefinition, error)
}

// StaticCatalog serves a fixed set of definitions.
type StaticCatalog struct {
	defs []domain.AchievementDefinition
}

func NewStaticCatalog(defs []domain.AchievementDefinition) *StaticCatalog {
	own := append([]domain.AchievementDefinition(nil), defs...)
	progression.SortByPosition(own)
	return &StaticCatalog{defs: own}
}

func (c *StaticCatalog) List(_ context.Context) ([]domain.AchievementDefinition, error) {
	return append([]domain.AchievementDefinition(nil), c.defs...), nil
}

func (c *StaticCatalog) ListByTrigger(_ context.Context, trigger domain.Trigger) ([]domain.AchievementDefinition, error) {
	return byTrigger(c.defs, trigger), nil
}

const catalogKey = "catalog"

// CachedCatalog keeps the whole catalog for ttl. The catalog is small and
// read-only to the engine, so eventual consistency after an edit is enough.
type CachedCatalog struct {
	source CatalogSource
	cache  *ttlCache[[]domain.AchievementDefinition]
}

func NewCachedCatalog(source CatalogSource, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{source: source, cache: newTTLCache[[]domain.AchievementDefinition](ttl)}
}

func (c *CachedCatalog) List(ctx context.Context) ([]domain.AchievementDefinition, error) {
	defs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return append([]domain.AchievementDefinition(nil), defs...), nil
}

func (c *CachedCatalog) ListByTrigger(ctx context.Context, trigger domain.Trigger) ([]domain.AchievementDefinition, error) {
	defs, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	return byTrigger(defs, trigger), nil
}

// Refresh reloads the catalog from the source now. On failure the cached copy is kept.
func (c *CachedCatalog) Refresh(ctx context.Context) (int, error) {
	defs, err := c.fetch(ctx)
	if err != nil {
		return 0, err
	}
	c.cache.put(catalogKey, defs, c.cache.clock())
	return len(defs), nil
}

func (c *CachedCatalog) load(ctx context.Context) ([]domain.AchievementDefinition, error) {
	return c.cache.get(ctx, catalogKey, c.fetch)
}

func (c *CachedCatalog) fetch(ctx context.Context) ([]domain.AchievementDefinition, error) {
	defs, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}
	progression.SortByPosition(defs)
	return defs, nil
}

func byTrigger(defs []domain.AchievementDefinition, trigger domain.Trigger) []domain.AchievementDefinition {
	var out []domain.AchievementDefinition
	for _, def := range defs {
		if def.Trigger == trigger {
			out = append(out, def)
		}
	}
	return out
}

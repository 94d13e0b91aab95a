// Package cache adapts pkg/cache to the domain ResultCache.
package cache

import (
	"context"
	"errors"
	"time"

	"CandleScan/internal/domain/models"
	domrepo "CandleScan/internal/domain/repository"
	pkgcache "CandleScan/pkg/cache"
	applogger "CandleScan/pkg/logger"
)

// ResultCache stores analysis results as JSON under "analysis:<key>".
// Backend failures are logged and treated as misses.
type ResultCache struct {
	svc pkgcache.Service
	ttl time.Duration
	l   *applogger.Logger
}

func NewResultCache(svc pkgcache.Service, ttl time.Duration, l *applogger.Logger) domrepo.ResultCache {
	if l == nil {
		l = applogger.Nop()
	}
	return &ResultCache{svc: svc, ttl: ttl, l: l}
}

func (c *ResultCache) GetResult(ctx context.Context, key string) (*models.AnalysisResult, bool) {
	var r models.AnalysisResult
	if err := c.svc.Get(ctx, "analysis:"+key, &r); err != nil {
		if !errors.Is(err, pkgcache.ErrCacheMiss) {
			c.l.Warn("result cache read error", applogger.String("key", key), applogger.Error(err))
		}
		return nil, false
	}
	return &r, true
}

func (c *ResultCache) SetResult(ctx context.Context, key string, r *models.AnalysisResult) {
	if err := c.svc.Set(ctx, "analysis:"+key, r, c.ttl); err != nil {
		c.l.Warn("result cache write error", applogger.String("key", key), applogger.Error(err))
	}
}

// Noop never hits.
type Noop struct{}

func (Noop) GetResult(context.Context, string) (*models.AnalysisResult, bool) { return nil, false }
func (Noop) SetResult(context.Context, string, *models.AnalysisResult)        {}

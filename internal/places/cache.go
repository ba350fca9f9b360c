package places

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/zOOGal/Routed/internal/types"
)

const (
	detailsCacheTTL     = 5 * time.Minute
	detailsCacheCleanup = 10 * time.Minute
)

var _ Detailer = (*CachedDetailer)(nil)

// CachedDetailer memoizes place-details lookups for a short TTL. The
// open-hours check hits the same handful of shortlisted places on every
// nearby request, so even a small cache cuts most of the provider calls.
// Errors and unknown places are not cached.
type CachedDetailer struct {
	inner Detailer
	cache *cache.Cache
}

func NewCachedDetailer(inner Detailer) *CachedDetailer {
	return &CachedDetailer{
		inner: inner,
		cache: cache.New(detailsCacheTTL, detailsCacheCleanup),
	}
}

func (d *CachedDetailer) GetDetails(ctx context.Context, placeID string) (*types.PlaceDetails, error) {
	if hit, found := d.cache.Get(placeID); found {
		details := hit.(types.PlaceDetails)
		return &details, nil
	}

	details, err := d.inner.GetDetails(ctx, placeID)
	if err != nil || details == nil {
		return details, err
	}

	d.cache.Set(placeID, *details, cache.DefaultExpiration)
	return details, nil
}

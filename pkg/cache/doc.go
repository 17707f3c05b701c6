// Package cache provides an optional Redis-backed HTTP response cache for the
// artic.edu client.
//
// The session page cache (pkg/pagecache) is what keeps a browsing session from
// refetching pages. This package sits one layer lower, in the HTTP client, and
// lets several sessions or process restarts share responses the API marked
// as cacheable.
//
// Freshness is taken from the response, in order of preference:
//
//   - Cache-Control: max-age=N (no-store disables caching)
//   - Expires
//   - DefaultTTL
//
// Entries are kept in Redis for StaleRetention past their freshness lifetime so
// that a stale entry with an ETag or Last-Modified can be revalidated with a
// conditional request instead of downloaded again.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.KeyForRequest(req)
//	entry, err := manager.Get(ctx, key)
//	switch {
//	case err == cache.ErrCacheMiss:
//		// fetch from the API, then manager.Set(ctx, key, entry)
//	case entry.IsExpired() && cache.CanRevalidate(entry):
//		cache.AddConditionalHeaders(req, entry)
//	default:
//		resp := cache.EntryToResponse(entry, req)
//	}
//
// # Metrics
//
//   - artic_response_cache_hits_total
//   - artic_response_cache_misses_total
//   - artic_response_cache_revalidated_total
//   - artic_response_cache_errors_total{operation}
package cache

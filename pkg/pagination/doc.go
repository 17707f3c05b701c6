// Package pagination provides parallel batch fetching of artwork pages.
//
// A bulk selection that has to look past the pages already in memory asks
// for a batch of page numbers at once. The batch fetcher spreads them over a
// bounded worker pool and treats the batch as a unit: either every page
// arrives or the caller gets an error and no pages.
//
// Example usage:
//
//	config := pagination.DefaultConfig()
//	fetcher := pagination.NewBatchFetcher(articClient, config)
//	pages, err := fetcher.FetchPages(ctx, []int{4, 5, 6})
//
// The batch fetcher:
//   - Deduplicates and orders the requested page numbers
//   - Spawns a worker pool (default 4 workers)
//   - Applies a per-page timeout
//   - Cancels outstanding work on the first failure
//   - Returns all pages or none
package pagination

package extract

import (
	"github.com/aluiziolira/go-scrape-products/models"
)

// poolPaths are the known payload locations that hold listing collections,
// probed in priority order. New page templates tend to move the array one
// wrapper deeper rather than rename everything, so the probe list grows at
// the tail.
var poolPaths = [][]string{
	{"products"},
	{"items"},
	{"results"},
	{"catalog", "products"},
	{"category", "products"},
	{"search", "results"},
	{"search", "products"},
	{"grid", "items"},
	{"listing", "items"},
	{"payload", "products"},
	{"payload", "items"},
}

// CollectPool probes the fixed payload locations for listing collections and
// flattens every array found into one de-duplicated sequence, keyed by
// product URL. The first occurrence per URL wins in full; a later richer
// occurrence of the same URL is ignored. Returns nil when no known location
// holds any qualifying item, in which case the caller falls back to the
// other locators.
func CollectPool(root any, origin string) []models.ListingItem {
	obj, ok := root.(map[string]any)
	if !ok {
		// some templates inject the collection as the top-level value
		if list, isList := root.([]any); isList {
			pool := newItemPool(origin)
			appendQualifying(pool, list)
			return pool.items()
		}
		return nil
	}

	pool := newItemPool(origin)
	for _, path := range poolPaths {
		if list := arrayAt(obj, path); list != nil {
			appendQualifying(pool, list)
		}
	}
	return pool.items()
}

func appendQualifying(pool *itemPool, list []any) {
	for _, entry := range list {
		node, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		if looksLikeListingEntry(node) || looksLikeProduct(node) {
			pool.add(node)
		}
	}
}

// arrayAt descends nested objects along path and returns the array at its
// end, or nil.
func arrayAt(obj map[string]any, path []string) []any {
	current := any(obj)
	for _, key := range path {
		node, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = node[key]
	}
	list, ok := current.([]any)
	if !ok {
		return nil
	}
	return list
}

// Package extract locates product data in fetched pages and merges it into
// canonical records. The target store swaps page-generation technology
// between templates, so three independent locators feed one merger:
// the framework-injected JSON payload, linked-data script blocks, and a raw
// DOM scan. None of them assumes the others produced anything, and none of
// them returns an error for malformed input.
package extract

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
	"github.com/aluiziolira/go-scrape-products/siteurl"
)

// EmbeddedScriptSelector matches the script element carrying the
// framework-injected page state.
const EmbeddedScriptSelector = `script#__APP_DATA__`

// payload trees are site-generated JSON, not attacker-controlled depth, but
// a cap keeps a pathological page from blowing the stack.
const maxSearchDepth = 64

// ParsePayload decodes the embedded page-state blob. ok is false on
// malformed JSON or an empty blob; the caller falls through to the next
// locator.
func ParsePayload(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	var root any
	if err := json.Unmarshal([]byte(raw), &root); err != nil {
		return nil, false
	}
	return root, true
}

// looksLikeProduct is the node classification heuristic: an object counts as
// a product node when its key set carries both an id-like and a name-like
// field. This is duck typing over an unstable schema and has a known
// false-positive risk; it exists because the payload shape changes between
// page templates faster than any fixed schema could track.
func looksLikeProduct(obj map[string]any) bool {
	return stringAt(obj, idKeys) != "" && stringAt(obj, nameKeys) != ""
}

// looksLikeListingEntry marks objects that reference a product detail page.
func looksLikeListingEntry(obj map[string]any) bool {
	link := stringAt(obj, urlKeys)
	if link == "" || !siteurl.IsProductPath(link) {
		return false
	}
	return stringAt(obj, idKeys) != "" || stringAt(obj, nameKeys) != ""
}

// ProductFromPayload deep-searches the parsed payload for the first node
// classified as a product and projects it to a partial record. Returns nil
// when no node qualifies.
func ProductFromPayload(root any) *Partial {
	node := findFirst(root, 0, looksLikeProduct)
	if node == nil {
		return nil
	}
	return partialFromNode(node, SourceEmbedded)
}

// ListingFromPayload deep-searches the payload for every object pointing at
// a product path, one entry per distinct URL. The first occurrence of a URL
// wins; later occurrences are ignored wholesale.
func ListingFromPayload(root any, origin string) []models.ListingItem {
	pool := newItemPool(origin)
	walk(root, 0, func(obj map[string]any) bool {
		if looksLikeListingEntry(obj) {
			pool.add(obj)
		}
		return false
	})
	return pool.items()
}

// findFirst walks the tree depth first and returns the first object node the
// predicate accepts. Arrays keep their JSON order; object keys are visited
// in sorted order so results are deterministic.
func findFirst(node any, depth int, pred func(map[string]any) bool) map[string]any {
	var found map[string]any
	walk(node, depth, func(obj map[string]any) bool {
		if pred(obj) {
			found = obj
			return true
		}
		return false
	})
	return found
}

// walk visits every object node pre-order. The visitor returns true to stop
// the traversal.
func walk(node any, depth int, visit func(map[string]any) bool) bool {
	if depth > maxSearchDepth {
		return false
	}
	switch v := node.(type) {
	case map[string]any:
		if visit(v) {
			return true
		}
		for _, key := range sortedKeys(v) {
			if walk(v[key], depth+1, visit) {
				return true
			}
		}
	case []any:
		for _, entry := range v {
			if walk(entry, depth+1, visit) {
				return true
			}
		}
	}
	return false
}

// partialFromNode projects an untyped payload node to a partial record.
func partialFromNode(obj map[string]any, source string) *Partial {
	p := &Partial{Source: source}

	p.ExternalID = stringAt(obj, idKeys)
	p.Title = stringAt(obj, nameKeys)
	p.Brand = nestedStringAt(obj, brandKeys, nameKeys)
	p.URL = stringAt(obj, urlKeys)
	p.Availability = stringAt(obj, availabilityKeys)
	p.DescriptionHTML = stringAt(obj, descHTMLKeys)
	p.DescriptionText = stringAt(obj, descTextKeys)

	p.Price, p.Currency = priceFromNode(obj)

	if rating, ok := numberAt(obj, ratingKeys); ok {
		p.Rating = &rating
	}
	if count, ok := countAt(obj, reviewCountKeys); ok {
		p.ReviewCount = &count
	}

	p.Images = stringsAt(obj, imageListKeys, urlKeys)
	if len(p.Images) == 0 {
		if img := nestedStringAt(obj, imageKeys, urlKeys); img != "" {
			p.Images = []string{img}
		}
	}

	p.Categories = stringsAt(obj, categoryListKeys, nameKeys)
	if len(p.Categories) == 0 {
		if cat := nestedStringAt(obj, categoryKeys, nameKeys); cat != "" {
			p.Categories = []string{cat}
		}
	}

	return p
}

// priceFromNode handles the three shapes prices take across templates:
// a bare number, a formatted string, or a wrapper object with its own
// amount and currency fields.
func priceFromNode(obj map[string]any) (price, currency string) {
	currency = stringAt(obj, currencyKeys)

	for _, key := range priceKeys {
		switch v := obj[key].(type) {
		case float64:
			if formatted, ok := parser.ParsePrice(strconv.FormatFloat(v, 'f', -1, 64)); ok {
				return formatted, currency
			}
		case string:
			if formatted, ok := parser.ParsePrice(v); ok {
				if currency == "" {
					currency = parser.ParseCurrency(v)
				}
				return formatted, currency
			}
		case map[string]any:
			if inner, innerCurrency := priceFromNode(v); inner != "" {
				if currency == "" {
					currency = innerCurrency
				}
				return inner, currency
			}
		}
	}
	return "", currency
}

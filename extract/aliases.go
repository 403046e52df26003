package extract

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// The target store renames payload fields between page templates. Every
// canonical field therefore carries an ordered list of alias keys, consulted
// first to last. Keeping these as tables makes the fallback chains
// inspectable and testable instead of burying them in lookup code.
var (
	idKeys           = []string{"id", "productId", "product_id", "itemId", "sku", "objectID"}
	nameKeys         = []string{"name", "displayName", "title", "productName"}
	urlKeys          = []string{"url", "productUrl", "product_url", "link", "href"}
	slugKeys         = []string{"slug", "seoSlug", "urlKey"}
	brandKeys        = []string{"brand", "brandName", "manufacturer"}
	priceKeys        = []string{"price", "currentPrice", "salePrice", "amount", "value"}
	currencyKeys     = []string{"currency", "currencyCode", "currency_code", "priceCurrency"}
	ratingKeys       = []string{"rating", "averageRating", "ratingValue", "stars"}
	reviewCountKeys  = []string{"reviewCount", "reviewsCount", "ratingCount", "numReviews"}
	availabilityKeys = []string{"availability", "stockStatus", "status"}
	descHTMLKeys     = []string{"descriptionHtml", "description_html", "descriptionHTML"}
	descTextKeys     = []string{"descriptionText", "description_text", "description"}
	imageKeys        = []string{"image", "imageUrl", "image_url", "mainImage", "img"}
	imageListKeys    = []string{"images", "gallery", "imageUrls", "image_urls"}
	categoryKeys     = []string{"category", "categoryName"}
	categoryListKeys = []string{"categories", "categoryPath", "breadcrumbs"}

	totalPagesKeys = []string{"totalPages", "pageCount", "totalPageCount", "lastPage", "pagesTotal"}
	nextPageKeys   = []string{"nextPage", "nextPageUrl", "next", "nextUrl"}
	paginationKeys = []string{"pagination", "paging", "pageInfo"}
)

// stringAt returns the first alias that holds a non-empty string, or a
// number formatted as its shortest decimal form. Site payloads use numeric
// ids on some templates and string ids on others.
func stringAt(obj map[string]any, keys []string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			// status booleans are not useful as field values
		}
	}
	return ""
}

// numberAt returns the first alias that parses to a finite number.
// ParseFloat accepts "Inf" and "NaN" spellings, so finiteness is checked
// explicitly; non-finite values are treated as absent.
func numberAt(obj map[string]any, keys []string) (float64, bool) {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case float64:
			if finite(v) {
				return v, true
			}
		case string:
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && finite(parsed) {
				return parsed, true
			}
		}
	}
	return 0, false
}

// countAt resolves count-like aliases to a non-negative int. Values outside
// int32 range are treated as absent rather than risking a wrapping
// float-to-int conversion.
func countAt(obj map[string]any, keys []string) (int, bool) {
	v, ok := numberAt(obj, keys)
	if !ok || v < 0 || v > math.MaxInt32 {
		return 0, false
	}
	return int(v), true
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// nestedStringAt resolves aliases that are sometimes scalars and sometimes
// wrapper objects, e.g. brand: "Acme" vs brand: {"name": "Acme"}.
func nestedStringAt(obj map[string]any, keys, innerKeys []string) string {
	for _, key := range keys {
		switch v := obj[key].(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case map[string]any:
			if inner := stringAt(v, innerKeys); inner != "" {
				return inner
			}
		}
	}
	return ""
}

// stringsAt flattens a list-valued alias into its string members, accepting
// both plain strings and wrapper objects.
func stringsAt(obj map[string]any, keys, innerKeys []string) []string {
	for _, key := range keys {
		list, ok := obj[key].([]any)
		if !ok {
			continue
		}
		var out []string
		for _, entry := range list {
			switch v := entry.(type) {
			case string:
				if trimmed := strings.TrimSpace(v); trimmed != "" {
					out = append(out, trimmed)
				}
			case map[string]any:
				if inner := stringAt(v, innerKeys); inner != "" {
					out = append(out, inner)
				}
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// sortedKeys gives map traversal a stable order so "first match" semantics
// do not depend on Go's randomized map iteration.
func sortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for key := range obj {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

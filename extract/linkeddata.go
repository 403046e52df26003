package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
)

// LinkedDataSelector matches structured-markup script blocks.
const LinkedDataSelector = `script[type="application/ld+json"]`

// ProductFromLinkedData scans every linked-data block in sel and returns the
// first node declared as a Product, projected to a partial record. Malformed
// blocks are skipped; returns nil when no Product node exists.
func ProductFromLinkedData(sel *goquery.Selection) *Partial {
	var found *Partial
	eachLinkedDataNode(sel, func(node map[string]any) bool {
		if !hasType(node, "Product") {
			return false
		}
		found = partialFromLinkedData(node)
		return true
	})
	return found
}

// ListingFromLinkedData returns every Product node nested under an ItemList
// wrapper, one ListingItem per distinct URL.
func ListingFromLinkedData(sel *goquery.Selection, origin string) []models.ListingItem {
	pool := newItemPool(origin)
	eachLinkedDataNode(sel, func(node map[string]any) bool {
		if !hasType(node, "ItemList") {
			return false
		}
		elements, _ := node["itemListElement"].([]any)
		for _, entry := range elements {
			wrapper, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			product := wrapper
			if item, ok := wrapper["item"].(map[string]any); ok {
				product = item
			}
			if !hasType(product, "Product") && stringAt(product, nameKeys) == "" {
				continue
			}
			p := partialFromLinkedData(product)
			item := p.ListingItem(origin)
			if item.URL == "" {
				if link := stringAt(wrapper, urlKeys); link != "" {
					item.URL = link
				}
			}
			pool.addItem(item)
		}
		return false
	})
	return pool.items()
}

// eachLinkedDataNode parses every linked-data script block as JSON, flattens
// list and @graph wrappers, and feeds each object node to visit until it
// returns true.
func eachLinkedDataNode(sel *goquery.Selection, visit func(map[string]any) bool) {
	if sel == nil {
		return
	}
	stopped := false
	sel.Find(LinkedDataSelector).EachWithBreak(func(_ int, script *goquery.Selection) bool {
		var root any
		if err := json.Unmarshal([]byte(script.Text()), &root); err != nil {
			return true // skip malformed block, keep scanning
		}
		for _, node := range flattenLinkedData(root) {
			if visit(node) {
				stopped = true
				return false
			}
		}
		return !stopped
	})
}

// flattenLinkedData unwraps top-level arrays and @graph containers into a
// flat node list.
func flattenLinkedData(root any) []map[string]any {
	var nodes []map[string]any
	switch v := root.(type) {
	case []any:
		for _, entry := range v {
			nodes = append(nodes, flattenLinkedData(entry)...)
		}
	case map[string]any:
		if graph, ok := v["@graph"].([]any); ok {
			for _, entry := range graph {
				nodes = append(nodes, flattenLinkedData(entry)...)
			}
		}
		nodes = append(nodes, v)
	}
	return nodes
}

// hasType matches a node's @type declaration, which may be a string or a
// list of strings.
func hasType(node map[string]any, want string) bool {
	switch v := node["@type"].(type) {
	case string:
		return strings.EqualFold(v, want)
	case []any:
		for _, entry := range v {
			if s, ok := entry.(string); ok && strings.EqualFold(s, want) {
				return true
			}
		}
	}
	return false
}

// partialFromLinkedData maps schema.org Product vocabulary to a partial
// record.
func partialFromLinkedData(node map[string]any) *Partial {
	p := &Partial{Source: SourceLinkedData}

	p.Title = stringAt(node, []string{"name"})
	p.Brand = nestedStringAt(node, []string{"brand", "manufacturer"}, []string{"name"})
	p.ExternalID = stringAt(node, []string{"sku", "productID", "mpn", "gtin13"})
	p.URL = stringAt(node, []string{"url"})
	p.DescriptionHTML = stringAt(node, []string{"description"})

	switch img := node["image"].(type) {
	case string:
		if trimmed(img) != "" {
			p.Images = []string{trimmed(img)}
		}
	case []any:
		for _, entry := range img {
			switch e := entry.(type) {
			case string:
				if trimmed(e) != "" {
					p.Images = append(p.Images, trimmed(e))
				}
			case map[string]any:
				if u := stringAt(e, []string{"url", "contentUrl"}); u != "" {
					p.Images = append(p.Images, u)
				}
			}
		}
	case map[string]any:
		if u := stringAt(img, []string{"url", "contentUrl"}); u != "" {
			p.Images = []string{u}
		}
	}

	if category := stringAt(node, []string{"category"}); category != "" {
		p.Categories = strings.Split(category, ">")
		for i := range p.Categories {
			p.Categories[i] = trimmed(p.Categories[i])
		}
	}

	if offer := firstOffer(node); offer != nil {
		if price := stringAt(offer, []string{"price", "lowPrice"}); price != "" {
			if formatted, ok := parser.ParsePrice(price); ok {
				p.Price = formatted
			}
		}
		p.Currency = stringAt(offer, []string{"priceCurrency"})
		p.Availability = stringAt(offer, []string{"availability"})
	}

	if agg, ok := node["aggregateRating"].(map[string]any); ok {
		if rating, ok := numberAt(agg, []string{"ratingValue"}); ok {
			p.Rating = &rating
		}
		if count, ok := countAt(agg, []string{"reviewCount", "ratingCount"}); ok {
			p.ReviewCount = &count
		}
	}

	return p
}

// firstOffer unwraps offers, which appear as a single object, a list, or an
// AggregateOffer.
func firstOffer(node map[string]any) map[string]any {
	switch v := node["offers"].(type) {
	case map[string]any:
		return v
	case []any:
		for _, entry := range v {
			if offer, ok := entry.(map[string]any); ok {
				return offer
			}
		}
	}
	return nil
}

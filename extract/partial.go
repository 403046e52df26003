package extract

import (
	"strings"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/siteurl"
)

// Locator source tags, in merge priority order.
const (
	SourceEmbedded   = "embedded"
	SourceLinkedData = "linked_data"
	SourceDOM        = "dom"
)

// Partial is one locator's view of a product. Any field may be absent;
// the merger combines partials in priority order.
type Partial struct {
	Source          string
	URL             string
	ExternalID      string
	Title           string
	Brand           string
	Price           string
	Currency        string
	Availability    string
	DescriptionHTML string
	DescriptionText string
	Rating          *float64
	ReviewCount     *int
	Images          []string
	Categories      []string
}

// Empty reports whether the locator found nothing usable.
func (p *Partial) Empty() bool {
	if p == nil {
		return true
	}
	return p.URL == "" && p.ExternalID == "" && p.Title == "" && p.Brand == "" &&
		p.Price == "" && p.Availability == "" && p.DescriptionHTML == "" &&
		p.DescriptionText == "" && p.Rating == nil && p.ReviewCount == nil &&
		len(p.Images) == 0 && len(p.Categories) == 0
}

// ListingItem projects the partial into a listing candidate.
func (p *Partial) ListingItem(origin string) models.ListingItem {
	item := models.ListingItem{
		ExternalID:  p.ExternalID,
		Title:       p.Title,
		Brand:       p.Brand,
		Price:       p.Price,
		Currency:    p.Currency,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
	}
	if len(p.Images) > 0 {
		item.Image = p.Images[0]
	}
	if p.URL != "" {
		item.URL = siteurl.Absolute(origin, p.URL)
	}
	return item
}

// itemPool accumulates listing items keyed by absolute product URL.
// The first occurrence of a URL wins in full; later occurrences are dropped
// rather than merged, because each pool entry is an already-complete
// candidate, not a field fragment.
type itemPool struct {
	origin string
	order  []string
	byURL  map[string]models.ListingItem
}

func newItemPool(origin string) *itemPool {
	return &itemPool{
		origin: origin,
		byURL:  make(map[string]models.ListingItem),
	}
}

func (ip *itemPool) add(obj map[string]any) {
	item := listingItemFromNode(obj, ip.origin)
	if item.URL == "" {
		return
	}
	if _, seen := ip.byURL[item.URL]; seen {
		return
	}
	ip.byURL[item.URL] = item
	ip.order = append(ip.order, item.URL)
}

func (ip *itemPool) addItem(item models.ListingItem) {
	if item.URL == "" {
		return
	}
	if _, seen := ip.byURL[item.URL]; seen {
		return
	}
	ip.byURL[item.URL] = item
	ip.order = append(ip.order, item.URL)
}

func (ip *itemPool) items() []models.ListingItem {
	if len(ip.order) == 0 {
		return nil
	}
	out := make([]models.ListingItem, 0, len(ip.order))
	for _, url := range ip.order {
		out = append(out, ip.byURL[url])
	}
	return out
}

// listingItemFromNode converts an untyped payload node to a ListingItem.
// When the node carries no usable URL, one is derived from its slug and id.
func listingItemFromNode(obj map[string]any, origin string) models.ListingItem {
	p := partialFromNode(obj, SourceEmbedded)
	item := p.ListingItem(origin)
	item.Slug = stringAt(obj, slugKeys)
	if item.URL == "" {
		item.URL = siteurl.DetailURL(origin, item.Slug, item.ExternalID)
	}
	return item
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

package extract

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
	"github.com/aluiziolira/go-scrape-products/siteurl"
)

// ErrNoTitle marks a merge whose result has no title. Such records are
// invalid and must be discarded, not persisted.
var ErrNoTitle = errors.New("merged record has no title")

// Merge combines partial records for the same logical product into one
// ProductRecord. Partials are consulted in the order given, which callers
// arrange as embedded > linked data > DOM.
//
// Scalar fields are first-wins: the first partial supplying a non-empty
// value fixes the field and later partials never overwrite it. Array fields
// (images, categories) are the union of every partial's entries in
// first-seen order. Re-merging with additional empty partials is a no-op.
//
// pageURL is the fetched page's resolved URL and takes precedence over any
// url field found in the sources.
func Merge(pageURL, origin string, partials ...*Partial) (*models.ProductRecord, error) {
	record := &models.ProductRecord{}

	for _, p := range partials {
		if p == nil {
			continue
		}
		if record.Source == "" && !p.Empty() {
			record.Source = p.Source
		}
		setString(&record.URL, p.URL)
		setString(&record.ExternalID, p.ExternalID)
		setString(&record.Title, p.Title)
		setString(&record.Brand, p.Brand)
		setString(&record.Currency, p.Currency)
		setString(&record.Availability, p.Availability)
		setString(&record.DescriptionHTML, p.DescriptionHTML)
		setString(&record.DescriptionText, p.DescriptionText)
		if record.Price == "" {
			if price, ok := parser.ParsePrice(p.Price); ok {
				record.Price = price
			}
		}
		if record.Rating == nil && p.Rating != nil && !math.IsInf(*p.Rating, 0) && !math.IsNaN(*p.Rating) {
			rating := *p.Rating
			record.Rating = &rating
		}
		if record.ReviewCount == nil && p.ReviewCount != nil && *p.ReviewCount >= 0 {
			count := *p.ReviewCount
			record.ReviewCount = &count
		}
		record.Images = appendUnique(record.Images, p.Images)
		record.Categories = appendUnique(record.Categories, p.Categories)
	}

	if strings.TrimSpace(record.Title) == "" {
		return nil, ErrNoTitle
	}

	if pageURL != "" {
		record.URL = pageURL
	} else if record.URL != "" {
		record.URL = siteurl.Absolute(origin, record.URL)
	}
	for i, img := range record.Images {
		record.Images[i] = siteurl.Absolute(origin, img)
	}

	record.Availability = parser.NormalizeAvailability(record.Availability)
	record.Currency = strings.ToUpper(record.Currency)
	if record.DescriptionText == "" && record.DescriptionHTML != "" {
		record.DescriptionText = parser.StripHTML(record.DescriptionHTML)
	}
	record.ScrapedAt = time.Now().UTC()

	return record, nil
}

// FromListingItem builds a record from a listing-level projection, used when
// detail pages are not fetched.
func FromListingItem(item models.ListingItem, origin string) (*models.ProductRecord, error) {
	p := &Partial{
		Source:      SourceEmbedded,
		URL:         item.URL,
		ExternalID:  item.ExternalID,
		Title:       item.Title,
		Brand:       item.Brand,
		Price:       item.Price,
		Currency:    item.Currency,
		Rating:      item.Rating,
		ReviewCount: item.ReviewCount,
	}
	if item.Image != "" {
		p.Images = []string{item.Image}
	}
	return Merge(item.URL, origin, p)
}

// DedupKey picks the identity a record is deduplicated by: the site's
// product id when present, else the record URL.
func DedupKey(externalID, url string) string {
	if id := strings.TrimSpace(externalID); id != "" {
		return "id:" + id
	}
	return "url:" + strings.TrimSpace(url)
}

func setString(dst *string, value string) {
	if *dst != "" {
		return
	}
	if v := trimmed(value); v != "" {
		*dst = v
	}
}

func appendUnique(dst []string, values []string) []string {
	if len(values) == 0 {
		return dst
	}
	seen := make(map[string]struct{}, len(dst)+len(values))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		v = trimmed(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

// Package models defines data structures for the scraper.
package models

import "time"

// Crawl labels distinguish listing pages from product detail pages.
const (
	LabelListing = "LISTING"
	LabelProduct = "PRODUCT"
)

// ProductRecord is the canonical persisted product unit. The field set is the
// external output schema and must stay stable for downstream consumers.
type ProductRecord struct {
	URL             string   `csv:"url" json:"url"`
	ExternalID      string   `csv:"external_id" json:"external_id,omitempty"`
	Title           string   `csv:"title" json:"title"`
	Brand           string   `csv:"brand" json:"brand,omitempty"`
	Price           string   `csv:"price" json:"price,omitempty"`
	Currency        string   `csv:"currency" json:"currency,omitempty"`
	Rating          *float64 `csv:"rating" json:"rating,omitempty"`
	ReviewCount     *int     `csv:"review_count" json:"review_count,omitempty"`
	Availability    string   `csv:"availability" json:"availability,omitempty"`
	DescriptionHTML string   `csv:"description_html" json:"description_html,omitempty"`
	DescriptionText string   `csv:"description_text" json:"description_text,omitempty"`
	Images          []string `csv:"images" json:"images,omitempty"`
	Categories      []string `csv:"categories" json:"categories,omitempty"`

	Source    string    `csv:"source" json:"source"`
	ScrapedAt time.Time `csv:"scraped_at" json:"scraped_at"`
}

// ListingItem is a lightweight candidate scraped from a listing page. It either
// becomes a detail-page request or is persisted directly in listing mode.
type ListingItem struct {
	ExternalID  string   `json:"external_id,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	URL         string   `json:"url"`
	Title       string   `json:"title,omitempty"`
	Brand       string   `json:"brand,omitempty"`
	Price       string   `json:"price,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	Image       string   `json:"image,omitempty"`
}

// CrawlRequest is a unit of work handed back to the crawl driver. GroupKey
// identifies the logical paginated sequence a listing request belongs to.
type CrawlRequest struct {
	URL      string
	Label    string
	Page     int
	GroupKey string
}

// Pagination is a listing payload's view of its own paging, as far as it
// could be read. TotalPages defaults to 1 when the payload said nothing.
type Pagination struct {
	TotalPages int
	NextURL    string
}

// ScrapeResult holds the overall outcome of one crawl run.
type ScrapeResult struct {
	StartTime    time.Time
	EndTime      time.Time
	SavedCount   int
	SkippedCount int
	RequestCount int
	PageCount    int
	ErrorCount   int
	RetryCount   int
	FailedURLs   []string
	ErrorsByType map[string]int
}

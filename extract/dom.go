package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/parser"
	"github.com/aluiziolira/go-scrape-products/siteurl"
)

// ListingFromDOM is the last-resort locator: scan anchors whose href points
// at a product path and read title and price out of the surrounding markup.
// Only invoked when the embedded payload and linked data yielded nothing.
func ListingFromDOM(sel *goquery.Selection, origin string) []models.ListingItem {
	if sel == nil {
		return nil
	}

	pool := newItemPool(origin)
	sel.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href, _ := anchor.Attr("href")
		if !siteurl.IsProductPath(href) {
			return
		}

		item := models.ListingItem{
			URL:        siteurl.Absolute(origin, href),
			ExternalID: idFromProductPath(href),
			Title:      anchorTitle(anchor),
		}
		if item.Title == "" {
			return
		}

		// price lives near the anchor, not inside it, on grid templates
		context := anchor.Parent().Text()
		if price, ok := parser.ParsePrice(context); ok {
			item.Price = price
			item.Currency = parser.ParseCurrency(context)
		}
		if img, ok := anchor.Find("img").Attr("src"); ok {
			item.Image = siteurl.Absolute(origin, img)
		}

		pool.addItem(item)
	})
	return pool.items()
}

// ProductFromDOM extracts a minimal detail-page partial from page markup.
func ProductFromDOM(sel *goquery.Selection) *Partial {
	if sel == nil {
		return nil
	}

	p := &Partial{Source: SourceDOM}
	p.Title = parser.CleanText(sel.Find("h1").First().Text())
	if p.Title == "" {
		p.Title = parser.CleanText(sel.Find("title").First().Text())
	}

	priceText := sel.Find(`[class*="price"], [data-price]`).First().Text()
	if price, ok := parser.ParsePrice(priceText); ok {
		p.Price = price
		p.Currency = parser.ParseCurrency(priceText)
	}

	sel.Find(`img[class*="product"], [class*="gallery"] img`).Each(func(_ int, img *goquery.Selection) {
		if src, ok := img.Attr("src"); ok && trimmed(src) != "" {
			p.Images = append(p.Images, trimmed(src))
		}
	})

	if p.Empty() {
		return nil
	}
	return p
}

// anchorTitle prefers a heading inside the anchor, then the anchor's own
// text, then a heading in the anchor's parent.
func anchorTitle(anchor *goquery.Selection) string {
	if heading := anchor.Find("h1, h2, h3, h4").First(); heading.Length() > 0 {
		if title := parser.CleanText(heading.Text()); title != "" {
			return title
		}
	}
	if title := parser.CleanText(anchor.Text()); title != "" {
		return title
	}
	if heading := anchor.Parent().Find("h1, h2, h3, h4").First(); heading.Length() > 0 {
		return parser.CleanText(heading.Text())
	}
	return ""
}

// idFromProductPath pulls the trailing id out of /pr/<slug>/<id> style
// paths. Returns "" when the tail is not id-shaped.
func idFromProductPath(href string) string {
	path := href
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	path = strings.TrimRight(path, "/")
	idx := strings.Index(path, siteurl.ProductPathPrefix)
	if idx < 0 {
		return ""
	}
	segments := strings.Split(path[idx+len(siteurl.ProductPathPrefix):], "/")
	tail := segments[len(segments)-1]
	for _, r := range tail {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return tail
}

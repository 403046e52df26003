package frontier

import (
	"net/url"
	"strconv"
	"sync"

	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/siteurl"
)

// Page-number query parameters recognized on listing URLs, in preference
// order. The first one already present on the URL is reused; otherwise the
// primary name is inserted.
var pageParams = []string{"page", "p"}

// Paginator computes next-page requests per listing sequence. Sequences are
// keyed by the request's GroupKey so independent listings never share
// bookkeeping, and enqueueing the same next URL twice within one sequence
// is a no-op.
type Paginator struct {
	mu       sync.Mutex
	maxPages int
	state    *RunState
	groups   map[string]*groupState
}

type groupState struct {
	highestPage int
	enqueued    map[string]struct{}
}

// NewPaginator builds a paginator. maxPages caps pagination depth per
// sequence; state supplies the budget cutoff.
func NewPaginator(maxPages int, state *RunState) *Paginator {
	return &Paginator{
		maxPages: maxPages,
		state:    state,
		groups:   make(map[string]*groupState),
	}
}

// Next computes the follow-up listing request after req, or ok=false when
// the sequence terminates. Termination is silent: exhausted pages, the page
// cap, a self-looping next URL, an already-enqueued next URL, and a tripped
// result budget all end the sequence without error.
func (pg *Paginator) Next(req models.CrawlRequest, pag models.Pagination, origin string) (models.CrawlRequest, bool) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	total := pag.TotalPages
	if total < 1 {
		total = 1
	}
	if page >= total {
		return models.CrawlRequest{}, false
	}
	if page+1 > pg.maxPages {
		return models.CrawlRequest{}, false
	}
	if pg.state != nil && pg.state.ShouldStop() {
		return models.CrawlRequest{}, false
	}

	nextURL := ""
	if pag.NextURL != "" {
		nextURL = siteurl.Absolute(origin, pag.NextURL)
	} else {
		nextURL = bumpPageParam(req.URL, page+1)
	}
	if nextURL == "" || nextURL == req.URL {
		return models.CrawlRequest{}, false
	}

	pg.mu.Lock()
	defer pg.mu.Unlock()

	group := pg.groups[req.GroupKey]
	if group == nil {
		group = &groupState{enqueued: make(map[string]struct{})}
		pg.groups[req.GroupKey] = group
	}
	if _, already := group.enqueued[nextURL]; already {
		return models.CrawlRequest{}, false
	}
	group.enqueued[nextURL] = struct{}{}
	if page+1 > group.highestPage {
		group.highestPage = page + 1
	}

	return models.CrawlRequest{
		URL:      nextURL,
		Label:    models.LabelListing,
		Page:     page + 1,
		GroupKey: req.GroupKey,
	}, true
}

// HighestPage returns the deepest page enqueued for a sequence, for
// reporting.
func (pg *Paginator) HighestPage(groupKey string) int {
	pg.mu.Lock()
	defer pg.mu.Unlock()
	if group := pg.groups[groupKey]; group != nil {
		return group.highestPage
	}
	return 0
}

// bumpPageParam rewrites the page-number query parameter on raw to next.
// Whichever recognized parameter is already present is reused; with none
// present the primary name is inserted. Returns "" when raw does not parse.
func bumpPageParam(raw string, next int) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	query := parsed.Query()

	name := pageParams[0]
	for _, candidate := range pageParams {
		if query.Has(candidate) {
			name = candidate
			break
		}
	}
	query.Set(name, strconv.Itoa(next))
	parsed.RawQuery = query.Encode()
	return parsed.String()
}

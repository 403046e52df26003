package frontier

import (
	"fmt"
	"sync"
	"testing"

	"github.com/aluiziolira/go-scrape-products/models"
)

const origin = "https://www.shoplandia.com"

func listingRequest(page int) models.CrawlRequest {
	url := origin + "/catalog/all"
	if page > 1 {
		url = fmt.Sprintf("%s?page=%d", url, page)
	}
	return models.CrawlRequest{
		URL:      url,
		Label:    models.LabelListing,
		Page:     page,
		GroupKey: "/catalog/all",
	}
}

func TestPaginatorEnqueuesMinTotalCap(t *testing.T) {
	tests := []struct {
		name  string
		total int
		cap   int
		want  int // pages enqueued beyond the first
	}{
		{name: "total below cap", total: 3, cap: 20, want: 2},
		{name: "cap below total", total: 50, cap: 5, want: 4},
		{name: "single page", total: 1, cap: 20, want: 0},
		{name: "missing total defaults to one", total: 0, cap: 20, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pg := NewPaginator(tt.cap, NewRunState(true, 0))

			enqueued := 0
			req := listingRequest(1)
			for {
				next, ok := pg.Next(req, models.Pagination{TotalPages: tt.total}, origin)
				if !ok {
					break
				}
				enqueued++
				if next.Page != req.Page+1 {
					t.Fatalf("page = %d, want %d", next.Page, req.Page+1)
				}
				if next.GroupKey != req.GroupKey {
					t.Fatalf("group key must be preserved")
				}
				req = next
			}

			if enqueued != tt.want {
				t.Fatalf("enqueued = %d, want min(total, cap)-1 = %d", enqueued, tt.want)
			}
		})
	}
}

func TestPaginatorNeverRevisitsEnqueued(t *testing.T) {
	pg := NewPaginator(20, NewRunState(true, 0))
	req := listingRequest(1)
	pag := models.Pagination{TotalPages: 5}

	first, ok := pg.Next(req, pag, origin)
	if !ok {
		t.Fatalf("first Next should enqueue")
	}
	if _, ok := pg.Next(req, pag, origin); ok {
		t.Fatalf("same next URL must not be enqueued twice for one sequence")
	}
	if first.URL == req.URL {
		t.Fatalf("next URL must differ from current")
	}
}

func TestPaginatorIndependentGroups(t *testing.T) {
	pg := NewPaginator(20, NewRunState(true, 0))
	pag := models.Pagination{TotalPages: 5}

	a := models.CrawlRequest{URL: origin + "/catalog/a", Label: models.LabelListing, Page: 1, GroupKey: "a"}
	b := models.CrawlRequest{URL: origin + "/catalog/b", Label: models.LabelListing, Page: 1, GroupKey: "b"}

	if _, ok := pg.Next(a, pag, origin); !ok {
		t.Fatalf("group a should paginate")
	}
	if _, ok := pg.Next(b, pag, origin); !ok {
		t.Fatalf("group b must not be affected by group a bookkeeping")
	}
	if pg.HighestPage("a") != 2 || pg.HighestPage("b") != 2 {
		t.Fatalf("highest pages = %d, %d", pg.HighestPage("a"), pg.HighestPage("b"))
	}
}

func TestPaginatorExplicitNextURL(t *testing.T) {
	pg := NewPaginator(20, NewRunState(true, 0))
	req := listingRequest(1)
	pag := models.Pagination{TotalPages: 3, NextURL: "/catalog/all?cursor=abc"}

	next, ok := pg.Next(req, pag, origin)
	if !ok {
		t.Fatalf("expected next request")
	}
	if next.URL != origin+"/catalog/all?cursor=abc" {
		t.Fatalf("next URL = %q, want resolved explicit next", next.URL)
	}
}

func TestPaginatorSelfLoopGuard(t *testing.T) {
	pg := NewPaginator(20, NewRunState(true, 0))
	req := listingRequest(1)
	pag := models.Pagination{TotalPages: 3, NextURL: req.URL}

	if _, ok := pg.Next(req, pag, origin); ok {
		t.Fatalf("a next URL equal to the current URL must terminate the sequence")
	}
}

func TestPaginatorBudgetStopsSequence(t *testing.T) {
	state := NewRunState(true, 1)
	state.RecordSaved()

	pg := NewPaginator(20, state)
	if _, ok := pg.Next(listingRequest(1), models.Pagination{TotalPages: 5}, origin); ok {
		t.Fatalf("a tripped budget must stop pagination")
	}
}

func TestPaginatorReusesPresentPageParam(t *testing.T) {
	pg := NewPaginator(20, NewRunState(true, 0))
	req := models.CrawlRequest{
		URL:      origin + "/catalog/all?p=2&sort=price",
		Label:    models.LabelListing,
		Page:     2,
		GroupKey: "/catalog/all",
	}

	next, ok := pg.Next(req, models.Pagination{TotalPages: 5}, origin)
	if !ok {
		t.Fatalf("expected next request")
	}
	if next.URL != origin+"/catalog/all?p=3&sort=price" {
		t.Fatalf("next URL = %q, want p bumped in place", next.URL)
	}
}

func TestPaginatorConcurrentNextIdempotent(t *testing.T) {
	pg := NewPaginator(20, NewRunState(true, 0))
	req := listingRequest(1)
	pag := models.Pagination{TotalPages: 5}

	const workers = 16
	oks := make(chan bool, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := pg.Next(req, pag, origin)
			oks <- ok
		}()
	}
	wg.Wait()
	close(oks)

	succeeded := 0
	for ok := range oks {
		if ok {
			succeeded++
		}
	}
	if succeeded != 1 {
		t.Fatalf("concurrent Next for one sequence must enqueue once, got %d", succeeded)
	}
}

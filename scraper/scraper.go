package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aluiziolira/go-scrape-products/config"
	"github.com/aluiziolira/go-scrape-products/extract"
	"github.com/aluiziolira/go-scrape-products/frontier"
	"github.com/aluiziolira/go-scrape-products/models"
	"github.com/aluiziolira/go-scrape-products/pipeline"
	"github.com/aluiziolira/go-scrape-products/siteurl"
)

// Context keys carried on colly requests.
const (
	ctxLabel = "label"
	ctxPage  = "page"
	ctxGroup = "group"
)

// ErrNoSeeds is returned when no seed request could be constructed at all.
// This is the only condition allowed to fail a run at start; everything
// page-level degrades to "no items found" instead.
var ErrNoSeeds = errors.New("scraper: no valid seed request could be constructed")

// Scraper wraps the colly collector and drives extraction for the target
// store. All extraction and merge work for one page runs to completion
// inside that page's handler; concurrency exists only across handler
// invocations, bounded by the collector's parallelism limit.
type Scraper struct {
	cfg       *config.Config
	origin    string
	collector *colly.Collector
	retry     *retryManager
	Metrics   *Metrics

	state     *frontier.RunState
	paginator *frontier.Paginator
	// bounded guard against re-enqueueing detail URLs on long crawls
	enqueuedDetails *lru.Cache[string, struct{}]

	requestCount int64
	pageCount    int64
	errorCount   int64

	mu           sync.Mutex
	failedURLs   []string
	errorsByType map[string]int

	handlersOnce sync.Once
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config) (*Scraper, error) {
	origin := siteurl.Origin(cfg.Location)
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("resolve origin from location %q: invalid origin %q", cfg.Location, origin)
	}

	collector := colly.NewCollector(
		colly.Async(true),
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Parallelism,
		Delay:       cfg.Delay,
		RandomDelay: cfg.RandomDelay,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	enqueued, err := lru.New[string, struct{}](cfg.EnqueueCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create enqueue cache: %w", err)
	}

	state := frontier.NewRunState(cfg.Dedup, cfg.TargetResults)
	s := &Scraper{
		cfg:             cfg,
		origin:          origin,
		collector:       collector,
		Metrics:         NewMetrics(),
		state:           state,
		paginator:       frontier.NewPaginator(cfg.MaxListingPages, state),
		enqueuedDetails: enqueued,
		errorsByType:    make(map[string]int),
	}
	s.retry = newRetryManager(cfg, s.Metrics)
	return s, nil
}

// Run starts the crawl from the configured seed paths and streams records
// through the pipeline.
func (s *Scraper) Run(ctx context.Context, p *pipeline.Pipeline) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.retry.SetContext(ctx)
	s.configureHandlers(ctx, p)

	start := time.Now()
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			s.collector.Wait()
			s.retry.Stop()
		case <-done:
		}
	}()

	seeded := 0
	for i, path := range s.cfg.SeedPaths {
		req := models.CrawlRequest{
			URL:      siteurl.Absolute(s.origin, path),
			Label:    models.LabelListing,
			Page:     1,
			GroupKey: fmt.Sprintf("seed-%d:%s", i, path),
		}
		if err := s.visit(req); err != nil {
			slog.Error("seed visit failed", slog.String("url", req.URL), slog.Any("error", err))
			continue
		}
		seeded++
	}
	if seeded == 0 {
		return nil, ErrNoSeeds
	}

	s.collector.Wait()
	s.retry.Stop()

	result := &models.ScrapeResult{
		StartTime:    start,
		EndTime:      time.Now(),
		SavedCount:   s.state.SavedCount(),
		ErrorCount:   int(atomic.LoadInt64(&s.errorCount)),
		FailedURLs:   s.snapshotFailedURLs(),
		ErrorsByType: s.snapshotErrors(),
		RetryCount:   s.retry.TotalRetries(),
		RequestCount: int(atomic.LoadInt64(&s.requestCount)),
		PageCount:    int(atomic.LoadInt64(&s.pageCount)),
	}

	if result.SavedCount == 0 {
		slog.Warn("run finished without saving any records",
			slog.Int("requests", result.RequestCount),
			slog.Int("errors", result.ErrorCount),
		)
	}

	return result, nil
}

// visit hands a labeled request to the collector.
func (s *Scraper) visit(req models.CrawlRequest) error {
	cctx := colly.NewContext()
	cctx.Put(ctxLabel, req.Label)
	cctx.Put(ctxPage, strconv.Itoa(req.Page))
	cctx.Put(ctxGroup, req.GroupKey)
	return s.collector.Request("GET", req.URL, nil, cctx, nil)
}

// requestFrom recovers the crawl request from a colly request. Labels
// survive retries via the request context; if they are ever missing the
// URL shape decides.
func requestFrom(r *colly.Request) models.CrawlRequest {
	req := models.CrawlRequest{
		URL:      r.URL.String(),
		Label:    r.Ctx.Get(ctxLabel),
		GroupKey: r.Ctx.Get(ctxGroup),
	}
	if page, err := strconv.Atoi(r.Ctx.Get(ctxPage)); err == nil {
		req.Page = page
	}
	if req.Label == "" {
		if siteurl.IsProductPath(req.URL) {
			req.Label = models.LabelProduct
		} else {
			req.Label = models.LabelListing
		}
	}
	if req.Page < 1 {
		req.Page = pageFromURL(r.URL)
	}
	if req.GroupKey == "" {
		req.GroupKey = r.URL.Path
	}
	return req
}

func pageFromURL(u *url.URL) int {
	query := u.Query()
	for _, name := range []string{"page", "p"} {
		if raw := query.Get(name); raw != "" {
			if page, err := strconv.Atoi(raw); err == nil && page >= 1 {
				return page
			}
		}
	}
	return 1
}

func (s *Scraper) configureHandlers(ctx context.Context, p *pipeline.Pipeline) {
	s.handlersOnce.Do(func() {
		s.collector.OnRequest(func(r *colly.Request) {
			if ctx.Err() != nil || s.state.ShouldStop() {
				r.Abort()
				return
			}
			r.Ctx.Put("start", time.Now())
			current := atomic.AddInt64(&s.requestCount, 1)
			s.Metrics.IncRequest("started")
			if current%50 == 0 {
				slog.Debug("scraper request progress",
					slog.Int64("requests", current),
					slog.Int("saved", s.state.SavedCount()),
					slog.String("url", r.URL.String()),
				)
			}
		})

		s.collector.OnResponse(func(r *colly.Response) {
			if r.StatusCode >= http.StatusBadRequest {
				slog.Error("non-200 response",
					slog.Int("status", r.StatusCode),
					slog.String("url", r.Request.URL.String()),
				)
			}
			if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
				s.Metrics.ObserveDuration(time.Since(start))
			}
		})

		s.collector.OnError(func(r *colly.Response, err error) {
			atomic.AddInt64(&s.errorCount, 1)
			statusCode := 0
			if r != nil {
				statusCode = r.StatusCode
			}
			classified := classifyError(err, statusCode)
			category := errorTypeLabel(classified)

			s.mu.Lock()
			s.errorsByType[category]++
			s.mu.Unlock()

			failedURL := ""
			var request *colly.Request
			if r != nil && r.Request != nil && r.Request.URL != nil {
				request = r.Request
				failedURL = r.Request.URL.String()
			}
			slog.Error("request error",
				slog.String("url", failedURL),
				slog.String("category", category),
				slog.Any("error", err),
			)
			s.Metrics.IncError(category)

			if request == nil || !s.retry.Schedule(request) {
				s.mu.Lock()
				s.failedURLs = append(s.failedURLs, failedURL)
				s.mu.Unlock()
			}
		})

		s.collector.OnHTML("html", func(e *colly.HTMLElement) {
			atomic.AddInt64(&s.pageCount, 1)
			req := requestFrom(e.Request)
			switch req.Label {
			case models.LabelProduct:
				s.handleProduct(e, req, p)
			default:
				s.handleListing(e, req, p)
			}
		})
	})
}

// handleListing extracts listing items from a fetched listing page, filters
// them through the dedup/budget state, and enqueues detail requests or
// persists listing-level records. It then drives pagination for the page's
// sequence.
func (s *Scraper) handleListing(e *colly.HTMLElement, req models.CrawlRequest, p *pipeline.Pipeline) {
	if s.state.ShouldStop() {
		return
	}

	payload, payloadOK := extract.ParsePayload(e.DOM.Find(extract.EmbeddedScriptSelector).Text())

	var items []models.ListingItem
	locator := ""
	if payloadOK {
		if items = extract.CollectPool(payload, s.origin); len(items) == 0 {
			items = extract.ListingFromPayload(payload, s.origin)
		}
		if len(items) > 0 {
			locator = extract.SourceEmbedded
		}
	}
	if len(items) == 0 {
		if items = extract.ListingFromLinkedData(e.DOM, s.origin); len(items) > 0 {
			locator = extract.SourceLinkedData
		}
	}
	if len(items) == 0 {
		if items = extract.ListingFromDOM(e.DOM, s.origin); len(items) > 0 {
			locator = extract.SourceDOM
		}
	}
	if len(items) == 0 {
		slog.Warn("listing page yielded no items",
			slog.String("url", req.URL),
			slog.Int("page", req.Page),
		)
	} else {
		s.Metrics.IncLocator(locator)
	}

	for _, item := range items {
		if s.state.ShouldStop() {
			return
		}
		key := extract.DedupKey(item.ExternalID, item.URL)
		if s.state.ShouldSkip(key) {
			s.Metrics.IncDuplicate()
			continue
		}
		if s.cfg.FollowDetails {
			s.enqueueDetail(item)
			continue
		}
		s.persistListing(item, p)
	}

	if !payloadOK {
		return
	}
	next, ok := s.paginator.Next(req, extract.ReadPagination(payload), s.origin)
	if !ok {
		return
	}
	if err := s.visit(next); err != nil {
		slog.Debug("pagination visit failed", slog.String("url", next.URL), slog.Any("error", err))
		return
	}
	s.Metrics.IncListingPage()
}

func (s *Scraper) enqueueDetail(item models.ListingItem) {
	if item.URL == "" {
		return
	}
	if present, _ := s.enqueuedDetails.ContainsOrAdd(item.URL, struct{}{}); present {
		return
	}
	req := models.CrawlRequest{URL: item.URL, Label: models.LabelProduct}
	if err := s.visit(req); err != nil {
		slog.Debug("detail visit failed", slog.String("url", item.URL), slog.Any("error", err))
	}
}

// persistListing saves a listing-level projection directly, used when
// detail fetching is disabled.
func (s *Scraper) persistListing(item models.ListingItem, p *pipeline.Pipeline) {
	record, err := extract.FromListingItem(item, s.origin)
	if err != nil {
		s.Metrics.IncRejected("missing_title")
		return
	}
	s.persist(record, p)
}

// handleProduct runs the locator chain against a detail page and persists
// the merged record. The DOM locator only runs when the other two found
// nothing.
func (s *Scraper) handleProduct(e *colly.HTMLElement, req models.CrawlRequest, p *pipeline.Pipeline) {
	if s.state.ShouldStop() {
		return
	}

	var partials []*extract.Partial

	if payload, ok := extract.ParsePayload(e.DOM.Find(extract.EmbeddedScriptSelector).Text()); ok {
		if embedded := extract.ProductFromPayload(payload); !embedded.Empty() {
			partials = append(partials, embedded)
		}
	}
	if linked := extract.ProductFromLinkedData(e.DOM); !linked.Empty() {
		partials = append(partials, linked)
	}
	if len(partials) == 0 {
		if dom := extract.ProductFromDOM(e.DOM); !dom.Empty() {
			partials = append(partials, dom)
		}
	}

	if len(partials) > 0 {
		s.Metrics.IncLocator(partials[0].Source)
	}

	record, err := extract.Merge(req.URL, s.origin, partials...)
	if err != nil {
		slog.Warn("discarding detail page without title", slog.String("url", req.URL))
		s.Metrics.IncRejected("missing_title")
		return
	}
	s.persist(record, p)
}

// persist commits a record. The atomic seen-mark happens here, immediately
// before the pipeline hand-off, so a racing handler for the same identity
// saves exactly once; RecordSaved then consumes budget so the saved count
// never exceeds the configured target even with handlers in flight.
func (s *Scraper) persist(record *models.ProductRecord, p *pipeline.Pipeline) {
	key := extract.DedupKey(record.ExternalID, record.URL)
	if !s.state.MarkSeen(key) {
		s.Metrics.IncDuplicate()
		return
	}
	if !s.state.RecordSaved() {
		return
	}
	if err := p.Process(record); err != nil {
		if err != pipeline.ErrPipelineClosed {
			slog.Error("pipeline process error", slog.Any("error", err))
		}
		return
	}
	s.Metrics.IncSaved()
}

func (s *Scraper) snapshotFailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch statusCode {
		case http.StatusForbidden:
			return ErrBlocked{Err: wrapped}
		case http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	return err
}

type retryManager struct {
	cfg     *config.Config
	metrics *Metrics
	ctx     context.Context

	mu           sync.Mutex
	attempts     map[string]int
	timers       map[string]*time.Timer
	totalRetries int
	stopped      bool
}

func newRetryManager(cfg *config.Config, metrics *Metrics) *retryManager {
	return &retryManager{
		cfg:      cfg,
		attempts: make(map[string]int),
		timers:   make(map[string]*time.Timer),
		metrics:  metrics,
		ctx:      context.Background(),
	}
}

// Schedule arranges a delayed retry of a failed request. Request.Retry
// preserves the colly context, so crawl labels survive the round trip.
func (rm *retryManager) Schedule(request *colly.Request) bool {
	if rm.cfg.MaxRetries == 0 {
		return false
	}

	url := request.URL.String()

	rm.mu.Lock()

	if rm.stopped {
		rm.mu.Unlock()
		return false
	}
	if rm.ctx != nil && rm.ctx.Err() != nil {
		rm.mu.Unlock()
		return false
	}

	attempt := rm.attempts[url]
	if attempt >= rm.cfg.MaxRetries {
		rm.mu.Unlock()
		return false
	}

	attempt++
	rm.attempts[url] = attempt
	rm.totalRetries++
	rm.metrics.IncRetries()

	delay := rm.backoff(attempt)
	rm.resetTimerLocked(url)
	rm.timers[url] = time.AfterFunc(delay, func() {
		rm.fireRetry(url, request)
	})
	rm.mu.Unlock()
	return true
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) resetTimerLocked(url string) {
	if timer, ok := rm.timers[url]; ok {
		timer.Stop()
		delete(rm.timers, url)
	}
}

func (rm *retryManager) fireRetry(url string, request *colly.Request) {
	rm.mu.Lock()
	if rm.stopped {
		rm.mu.Unlock()
		return
	}
	ctx := rm.ctx
	rm.mu.Unlock()

	if ctx != nil && ctx.Err() != nil {
		return
	}
	if err := request.Retry(); err != nil {
		slog.Debug("retry failed", slog.String("url", url), slog.Any("error", err))
	}

	rm.mu.Lock()
	delete(rm.timers, url)
	rm.mu.Unlock()
}

func (rm *retryManager) Stop() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.stopped {
		return
	}

	rm.stopped = true
	for url, timer := range rm.timers {
		timer.Stop()
		delete(rm.timers, url)
	}
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

func (rm *retryManager) SetContext(ctx context.Context) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if ctx == nil {
		rm.ctx = context.Background()
		return
	}
	rm.ctx = ctx
}

package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scraper.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	RecordsSavedTotal prometheus.Counter
	DuplicatesTotal   prometheus.Counter
	RejectedTotal     *prometheus.CounterVec
	ListingPagesTotal prometheus.Counter
	LocatorUsedTotal  *prometheus.CounterVec
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	recordsSaved := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_records_saved_total",
			Help: "Total product records handed to the pipeline.",
		},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_duplicates_skipped_total",
			Help: "Total items skipped because their identity was already seen.",
		},
	)
	rejected := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_records_rejected_total",
			Help: "Total records discarded before persisting, by reason.",
		},
		[]string{"reason"},
	)
	listingPages := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Total listing pages enqueued through pagination.",
		},
	)
	locatorUsed := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_locator_used_total",
			Help: "Which data source produced usable items, by locator.",
		},
		[]string{"locator"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_errors_total",
			Help: "Total number of scraper errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(requests, requestDuration, recordsSaved, duplicates,
		rejected, listingPages, locatorUsed, retries, errorsTotal)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		RecordsSavedTotal: recordsSaved,
		DuplicatesTotal:   duplicates,
		RejectedTotal:     rejected,
		ListingPagesTotal: listingPages,
		LocatorUsedTotal:  locatorUsed,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncSaved increments the saved records counter.
func (m *Metrics) IncSaved() {
	if m == nil {
		return
	}
	m.RecordsSavedTotal.Inc()
}

// IncDuplicate increments the duplicates counter.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// IncRejected increments the rejected records counter for a reason label.
func (m *Metrics) IncRejected(reason string) {
	if m == nil {
		return
	}
	m.RejectedTotal.WithLabelValues(reason).Inc()
}

// IncListingPage increments the paginated listing pages counter.
func (m *Metrics) IncListingPage() {
	if m == nil {
		return
	}
	m.ListingPagesTotal.Inc()
}

// IncLocator records which locator produced usable data.
func (m *Metrics) IncLocator(locator string) {
	if m == nil {
		return
	}
	m.LocatorUsedTotal.WithLabelValues(locator).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

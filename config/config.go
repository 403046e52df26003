package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	// Location is a free-form market hint: empty, a two-letter market token,
	// a bare hostname, or a full URL. Resolved by siteurl.Origin.
	Location string
	// SeedPaths are listing paths crawled first, relative to the origin.
	SeedPaths []string

	// TargetResults stops the run once this many records were saved.
	// Zero or negative means no limit.
	TargetResults int
	// MaxListingPages caps pagination depth per listing sequence.
	MaxListingPages int
	// FollowDetails fetches product detail pages for every listing item.
	// When false, listing-level projections are persisted directly.
	FollowDetails bool
	// Dedup skips products whose id or URL was already saved this run.
	Dedup bool

	Parallelism     int
	Delay           time.Duration
	RandomDelay     time.Duration
	Timeout         time.Duration
	MaxRetries      int
	RetryBackoff    time.Duration
	RetryBackoffMax time.Duration

	// EnqueueCacheSize bounds the in-memory set of detail URLs already
	// handed to the collector.
	EnqueueCacheSize   int
	PipelineBufferSize int
	BatchSize          int

	OutputFile   string
	OutputFormat string // csv, json, or dual
	UserAgent    string
	MetricsAddr  string
	Verbose      bool
}

// DefaultConfig returns conservative defaults for the target store.
func DefaultConfig() *Config {
	return &Config{
		Location:           "",
		SeedPaths:          []string{"/catalog/all"},
		TargetResults:      100,
		MaxListingPages:    20,
		FollowDetails:      true,
		Dedup:              true,
		Parallelism:        8,
		Delay:              0,
		RandomDelay:        0,
		Timeout:            15 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       200 * time.Millisecond,
		RetryBackoffMax:    2 * time.Second,
		EnqueueCacheSize:   50000,
		PipelineBufferSize: 512,
		BatchSize:          64,
		OutputFile:         "output/products.csv",
		OutputFormat:       "csv",
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		MetricsAddr:        "",
		Verbose:            false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(c.SeedPaths) == 0 {
		return fmt.Errorf("at least one seed path is required")
	}
	for _, p := range c.SeedPaths {
		if p == "" {
			return fmt.Errorf("seed path cannot be empty")
		}
	}
	if c.MaxListingPages <= 0 {
		return fmt.Errorf("max listing pages must be positive")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.EnqueueCacheSize <= 0 {
		return fmt.Errorf("enqueue cache size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	return nil
}

// Unbounded reports whether the run has no result budget.
func (c *Config) Unbounded() bool {
	return c.TargetResults <= 0
}

// EnvInt reads an integer environment variable. The second return value
// reports whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, true, nil
}

// EnvString reads a string environment variable.
func EnvString(name string) (string, bool) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

// EnvBool reads a boolean environment variable.
func EnvBool(name string) (bool, bool, error) {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, fmt.Errorf("%s must be a boolean: %w", name, err)
	}
	return value, true, nil
}

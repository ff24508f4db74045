package models

import "time"

// WorkItem represents a sitemap document reference pending resolution.
// Depth 0 is a root sitemap; children sit one level below their parent.
type WorkItem struct {
	URL   string
	Depth int
}

// ErrorKind classifies the failure mode of a single page fetch.
type ErrorKind string

const (
	ErrorKindNone             ErrorKind = ""                   // Zero value = successful fetch
	ErrorKindTransport        ErrorKind = "transport_error"    // No HTTP response (dial, DNS, timeout)
	ErrorKindNonSuccessStatus ErrorKind = "non_success_status" // Response received, status != 200
)

// String implements fmt.Stringer for logging
func (k ErrorKind) String() string {
	if k == "" {
		return "none"
	}
	return string(k)
}

// IsFailure reports whether the kind marks a failed fetch.
func (k ErrorKind) IsFailure() bool {
	return k != ErrorKindNone
}

// FetchOutcome is the result of warming a single page URL.
// Produced once per URL, immutable after creation, consumed exactly once
// by the ResultAggregator.
type FetchOutcome struct {
	URL         string
	StatusCode  int           // 0 when no HTTP response was received
	Duration    time.Duration // Wall-clock time around the full transaction (monotonic)
	ErrorKind   ErrorKind
	CacheStatus string // Raw value of the first cache header present (X-Cache etc.), logged only
	Err         error  // Underlying transport error, nil for ErrorKindNone/NonSuccessStatus
}

// Success reports whether the fetch returned HTTP 200.
func (o FetchOutcome) Success() bool {
	return o.ErrorKind == ErrorKindNone && o.StatusCode == 200
}

// RunSummary is the aggregate tally of a single warm run.
type RunSummary struct {
	RunID          string
	TotalResolved  int64
	TotalProcessed int64
	SuccessCount   int64
	FailedCount    int64
	Elapsed        time.Duration
}

// URLSet is an insertion-ordered, deduplicated set of page URLs.
// Built once during sitemap resolution; read-only for the rest of the run.
type URLSet struct {
	urls []string
	seen map[string]struct{}
}

// NewURLSet returns an empty URLSet.
func NewURLSet() *URLSet {
	return &URLSet{seen: make(map[string]struct{})}
}

// Add inserts pageURL and reports whether it was new.
func (s *URLSet) Add(pageURL string) bool {
	if _, ok := s.seen[pageURL]; ok {
		return false
	}
	s.seen[pageURL] = struct{}{}
	s.urls = append(s.urls, pageURL)
	return true
}

// Contains reports whether pageURL is a member.
func (s *URLSet) Contains(pageURL string) bool {
	_, ok := s.seen[pageURL]
	return ok
}

// Len returns the number of distinct URLs.
func (s *URLSet) Len() int {
	return len(s.urls)
}

// URLs returns the members in insertion order. The returned slice is the
// set's backing store; callers must not mutate it.
func (s *URLSet) URLs() []string {
	return s.urls
}

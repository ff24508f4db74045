package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrSitemapDownload  = errors.New("sitemap download failed after all attempts") // Fatal when it hits the root
	ErrEmptyURLSet      = errors.New("sitemap resolution yielded no URLs")         // Fatal
	ErrChildSitemap     = errors.New("child sitemap unreachable")                  // Recovered: logged and skipped
	ErrTransport        = errors.New("transport error")                            // Per-URL, recovered
	ErrNonSuccessStatus = errors.New("non-success HTTP status")                    // Per-URL, recovered
	ErrParsing          = errors.New("parsing error")                              // Wraps XML/gzip decode errors
	ErrMaxDepthExceeded = errors.New("maximum sitemap depth exceeded")
	ErrRequestCreation  = errors.New("failed to create HTTP request")
	ErrConfigValidation = errors.New("configuration validation error")
)

// IsFatal reports whether err is one of the run-aborting failures.
// Everything else is contained to its own unit of work (one sitemap, one URL).
func IsFatal(err error) bool {
	return errors.Is(err, ErrSitemapDownload) ||
		errors.Is(err, ErrEmptyURLSet) ||
		errors.Is(err, ErrConfigValidation)
}

// WrapErrorf wraps err with a formatted context message using %w semantics.
// Returns nil when err is nil.
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	// Check against sentinel errors first
	switch {
	case errors.Is(err, ErrSitemapDownload):
		errMsg := strings.ToLower(err.Error())
		switch {
		case errors.Is(err, ErrNonSuccessStatus):
			return "SitemapDownload_HTTPStatus"
		case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline exceeded"):
			return "SitemapDownload_NetworkTimeout"
		case strings.Contains(errMsg, "connection refused"):
			return "SitemapDownload_ConnectionRefused"
		case strings.Contains(errMsg, "no such host"):
			return "SitemapDownload_DNSLookup"
		}
		return "SitemapDownload"
	case errors.Is(err, ErrEmptyURLSet):
		return "Resolve_EmptyURLSet"
	case errors.Is(err, ErrChildSitemap):
		return "Resolve_ChildSitemap"
	case errors.Is(err, ErrMaxDepthExceeded):
		return "Resolve_MaxDepth"
	case errors.Is(err, ErrNonSuccessStatus):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404") {
			return "HTTP_404"
		}
		if strings.Contains(errMsg, " 403") {
			return "HTTP_403"
		}
		if strings.Contains(errMsg, " 429") {
			return "HTTP_429"
		}
		if strings.Contains(errMsg, " 5") {
			return "HTTP_5xx"
		}
		return "HTTP_NonSuccess"
	case errors.Is(err, ErrTransport):
		return categorizeNetwork(err)
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "gzip") {
			return "Content_ParsingGzip"
		}
		return "Content_ParsingXML"
	case errors.Is(err, ErrRequestCreation):
		return "Internal_RequestCreation"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types/strings ---

	// Context errors
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}

	return categorizeNetwork(err)
}

// categorizeNetwork classifies transport-level failures by type and message.
func categorizeNetwork(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}

	lowerErrMsg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lowerErrMsg, "timeout") || strings.Contains(lowerErrMsg, "deadline exceeded"):
		return "Network_Timeout"
	case strings.Contains(lowerErrMsg, "connection refused"):
		return "Network_ConnectionRefused"
	case strings.Contains(lowerErrMsg, "no such host"):
		return "Network_DNSLookup"
	case strings.Contains(lowerErrMsg, "tls") || strings.Contains(lowerErrMsg, "certificate"):
		return "Network_TLS"
	case strings.Contains(lowerErrMsg, "reset by peer"):
		return "Network_ConnectionReset"
	case strings.Contains(lowerErrMsg, "broken pipe"):
		return "Network_BrokenPipe"
	case strings.Contains(lowerErrMsg, "eof"):
		return "Network_EOF"
	}
	return "Unknown"
}

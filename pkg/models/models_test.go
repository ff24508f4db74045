package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		name     string
		kind     ErrorKind
		expected string
	}{
		{"none renders as none", ErrorKindNone, "none"},
		{"transport", ErrorKindTransport, "transport_error"},
		{"non-success status", ErrorKindNonSuccessStatus, "non_success_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.String())
		})
	}
}

func TestErrorKind_IsFailure(t *testing.T) {
	assert.False(t, ErrorKindNone.IsFailure())
	assert.True(t, ErrorKindTransport.IsFailure())
	assert.True(t, ErrorKindNonSuccessStatus.IsFailure())
}

func TestFetchOutcome_Success(t *testing.T) {
	tests := []struct {
		name     string
		outcome  FetchOutcome
		expected bool
	}{
		{
			name:     "200 with no error kind",
			outcome:  FetchOutcome{URL: "https://example.com/", StatusCode: 200, Duration: 12 * time.Millisecond},
			expected: true,
		},
		{
			name:     "404 non-success",
			outcome:  FetchOutcome{URL: "https://example.com/gone", StatusCode: 404, ErrorKind: ErrorKindNonSuccessStatus},
			expected: false,
		},
		{
			name:     "503 non-success",
			outcome:  FetchOutcome{URL: "https://example.com/down", StatusCode: 503, ErrorKind: ErrorKindNonSuccessStatus},
			expected: false,
		},
		{
			name:     "transport error has no status",
			outcome:  FetchOutcome{URL: "https://example.com/", StatusCode: 0, ErrorKind: ErrorKindTransport},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.outcome.Success())
		})
	}
}

func TestURLSet_AddAndDedup(t *testing.T) {
	set := NewURLSet()

	assert.True(t, set.Add("https://example.com/a"))
	assert.True(t, set.Add("https://example.com/b"))
	assert.False(t, set.Add("https://example.com/a"), "duplicate should be rejected")

	assert.Equal(t, 2, set.Len())
	assert.True(t, set.Contains("https://example.com/a"))
	assert.False(t, set.Contains("https://example.com/c"))
}

func TestURLSet_InsertionOrder(t *testing.T) {
	set := NewURLSet()
	urls := []string{
		"https://example.com/3",
		"https://example.com/1",
		"https://example.com/2",
	}
	for _, u := range urls {
		set.Add(u)
	}
	set.Add(urls[0]) // re-add must not reorder

	assert.Equal(t, urls, set.URLs())
}

func TestURLSet_Empty(t *testing.T) {
	set := NewURLSet()
	assert.Equal(t, 0, set.Len())
	assert.Empty(t, set.URLs())
}

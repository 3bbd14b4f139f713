package feed

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEntryNotFound is returned when the archive lacks the expected spreadsheet.
	ErrEntryNotFound = errors.New("archive entry not found")
	// ErrEmptySheet is returned when the first worksheet has no header row.
	ErrEmptySheet = errors.New("worksheet is empty")
	// ErrUnsupportedSheet is returned for entries that are neither .xls nor .xlsx.
	ErrUnsupportedSheet = errors.New("unsupported spreadsheet format")
)

// ErrTimeout indicates a timeout while downloading the feed.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e ErrTimeout) Unwrap() error {
	return e.Err
}

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string {
	return fmt.Errorf("connection: %w", e.Err).Error()
}

func (e ErrConnection) Unwrap() error {
	return e.Err
}

// ErrForbidden indicates a forbidden response (HTTP 403).
type ErrForbidden struct {
	Err error
}

func (e ErrForbidden) Error() string {
	return fmt.Errorf("forbidden: %w", e.Err).Error()
}

func (e ErrForbidden) Unwrap() error {
	return e.Err
}

// ErrNotFound indicates a missing feed (HTTP 404).
type ErrNotFound struct {
	Err error
}

func (e ErrNotFound) Error() string {
	return fmt.Errorf("not_found: %w", e.Err).Error()
}

func (e ErrNotFound) Unwrap() error {
	return e.Err
}

// ErrRateLimited indicates the vendor rate-limited the request.
type ErrRateLimited struct {
	Err error
}

func (e ErrRateLimited) Error() string {
	return fmt.Errorf("rate_limited: %w", e.Err).Error()
}

func (e ErrRateLimited) Unwrap() error {
	return e.Err
}

// ErrHTTPStatus covers every other non-2xx answer.
type ErrHTTPStatus struct {
	StatusCode int
	Err        error
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Errorf("http_status %d: %w", e.StatusCode, e.Err).Error()
}

func (e ErrHTTPStatus) Unwrap() error {
	return e.Err
}

// ErrorTypeLabel maps err onto a short label used by metrics and logs.
func ErrorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout ErrTimeout
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var conn ErrConnection
	if errors.As(err, &conn) {
		return "connection"
	}
	var forbidden ErrForbidden
	if errors.As(err, &forbidden) {
		return "forbidden"
	}
	var notFound ErrNotFound
	if errors.As(err, &notFound) {
		return "not_found"
	}
	var rateLimited ErrRateLimited
	if errors.As(err, &rateLimited) {
		return "rate_limited"
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return "http_status"
	}
	if errors.Is(err, ErrEntryNotFound) {
		return "entry_not_found"
	}
	if errors.Is(err, ErrEmptySheet) || errors.Is(err, ErrUnsupportedSheet) {
		return "parse"
	}
	return "other"
}

// Retryable reports whether a download failure may succeed on a later attempt.
func Retryable(err error) bool {
	var timeout ErrTimeout
	var conn ErrConnection
	var rateLimited ErrRateLimited
	if errors.As(err, &timeout) || errors.As(err, &conn) || errors.As(err, &rateLimited) {
		return true
	}
	var status ErrHTTPStatus
	if errors.As(err, &status) {
		return status.StatusCode >= http.StatusInternalServerError
	}
	return false
}

package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents network-related errors and empty responses
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents a page fetch that exceeded its deadline
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents a source still inside its cool-down window
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeStorage represents archive database errors
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
	// ErrorTypeInterrupted represents an operator interrupt
	ErrorTypeInterrupted ErrorType = "interrupted"
)

// ErrEmptyResponse is wrapped by fetch errors for responses without a body
var ErrEmptyResponse = stderrors.New("empty response")

// CrawlerError represents a crawler-specific error
type CrawlerError struct {
	Type     ErrorType
	Provider string
	Message  string
	Err      error
	Time     time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is retryable
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeTimeout, provider, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewCache creates a new cache error
func NewCache(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeCache, provider, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(provider, message string, err error) *CrawlerError {
	return New(ErrorTypePublisher, provider, message, err)
}

// NewStorage creates a new storage error
func NewStorage(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeStorage, provider, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, provider, message, err)
}

// NewInterrupted creates a new interrupted error
func NewInterrupted(provider string, err error) *CrawlerError {
	return New(ErrorTypeInterrupted, provider, "interrupted by operator", err)
}

// FromContext classifies an error raised while ctx was in use. A cancelled
// context means the operator interrupted the run; an expired deadline is a
// per-fetch timeout. Any other error is reported as a network failure.
func FromContext(ctx context.Context, provider, message string, err error) *CrawlerError {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce
	}
	switch {
	case stderrors.Is(ctx.Err(), context.Canceled) || stderrors.Is(err, context.Canceled):
		return NewInterrupted(provider, err)
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewTimeout(provider, message, err)
	default:
		return NewNetwork(provider, message, err)
	}
}

// TypeOf returns the ErrorType of err, or "" when err is not a CrawlerError
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// IsInterrupted reports whether err stems from an operator interrupt
func IsInterrupted(err error) bool {
	return TypeOf(err) == ErrorTypeInterrupted || stderrors.Is(err, context.Canceled)
}

// Is forwards to the standard library so callers importing this package
// under the name "errors" keep access to it.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As forwards to the standard library.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

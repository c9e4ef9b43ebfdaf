package publisher

import "context"

// Publisher represents a service for publishing price rows
type Publisher interface {
	// Publish publishes messages to a stream under the given field key
	Publish(ctx context.Context, key string, messages ...[]byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}

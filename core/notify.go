package core

import "context"

// Notifier publishes invalidation topics after a successful write,
// so that readers of the written resource know to refetch it.
type Notifier interface {
	Publish(ctx context.Context, topic string) error
	Close() error
}

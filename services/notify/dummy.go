package notifysvc

import (
	"context"
	"sync"

	"github.com/trezcool/escuela/core"
)

// logNotifier only logs the published topics. It is used when no redis server is configured.
type logNotifier struct {
	logger core.Logger
}

var _ core.Notifier = logNotifier{}

func (n logNotifier) Publish(_ context.Context, topic string) error {
	n.logger.Debug("invalidated " + topic)
	return nil
}

func (n logNotifier) Close() error { return nil }

// Recorder keeps the published topics in memory, for tests.
type Recorder struct {
	mu     sync.Mutex
	topics []string
}

var _ core.Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder { return new(Recorder) }

func (r *Recorder) Publish(_ context.Context, topic string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	return nil
}

func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.topics...)
}

func (r *Recorder) Close() error { return nil }

// New returns the redis notifier when a redis address is configured, a notifier logging to logger otherwise.
func New(ctx context.Context, conf *core.Config, logger core.Logger) (core.Notifier, error) {
	if conf.Redis.Address == "" {
		return logNotifier{logger: logger}, nil
	}
	return NewRedisNotifier(ctx, conf)
}

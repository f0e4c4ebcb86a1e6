package profilesync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

type DocumentStore interface {
	Upsert(ctx context.Context, profile model.UserProfile) error
	Get(ctx context.Context, uid string) (model.UserProfile, error)
}

type Recorder interface {
	RecordProfileSync(err error)
}

// Mirror copies local profile writes to the remote document store in the background.
// Pushes run concurrently; the store keeps whichever document has the newest UpdatedAt.
type Mirror struct {
	store   DocumentStore
	timeout time.Duration
	metrics Recorder
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewMirror(store DocumentStore, timeout time.Duration, logger *zap.Logger) *Mirror {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Mirror{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

func (m *Mirror) AttachMetrics(metrics Recorder) {
	m.metrics = metrics
}

func (m *Mirror) Push(profile model.UserProfile) {
	if m.store == nil {
		return
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		err := m.store.Upsert(ctx, profile)
		if m.metrics != nil {
			m.metrics.RecordProfileSync(err)
		}
		if err != nil {
			m.logger.Warn("profile mirror push failed", zap.String("uid", profile.UID), zap.Error(err))
		}
	}()
}

func (m *Mirror) Pull(ctx context.Context, uid string) (model.UserProfile, error) {
	if m.store == nil {
		return model.UserProfile{}, fmt.Errorf("document store is nil")
	}
	return m.store.Get(ctx, uid)
}

// Wait blocks until in-flight pushes finish or ctx is done.
func (m *Mirror) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

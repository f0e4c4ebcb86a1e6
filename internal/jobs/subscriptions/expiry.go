package subscriptions

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const jobName = "subscription_expiry"

type Sweeper interface {
	ExpireSubscriptions(ctx context.Context, now time.Time) (int, error)
}

type Recorder interface {
	RecordJobRun(job string, duration time.Duration, err error)
}

// ExpiryJob turns off subscriptions whose paid period has ended.
type ExpiryJob struct {
	sweeper Sweeper
	metrics Recorder
	now     func() time.Time
	logger  *zap.Logger
}

func NewExpiryJob(sweeper Sweeper, logger *zap.Logger) *ExpiryJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryJob{
		sweeper: sweeper,
		now:     time.Now,
		logger:  logger,
	}
}

func (j *ExpiryJob) AttachMetrics(metrics Recorder) {
	j.metrics = metrics
}

func (j *ExpiryJob) Name() string {
	return jobName
}

func (j *ExpiryJob) Run(ctx context.Context) error {
	if j.sweeper == nil {
		return fmt.Errorf("subscription sweeper is nil")
	}

	started := j.now()
	expired, err := j.sweeper.ExpireSubscriptions(ctx, started.UTC())
	if j.metrics != nil {
		j.metrics.RecordJobRun(jobName, j.now().Sub(started), err)
	}
	if err != nil {
		return fmt.Errorf("expire subscriptions: %w", err)
	}

	if expired > 0 {
		j.logger.Info("subscription expiry completed", zap.Int("expired", expired))
	}
	return nil
}

package subscriptions

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunPassesCurrentTimeToSweeper(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	sweeper := &fakeSweeper{expired: 2}
	recorder := &fakeRecorder{}

	job := NewExpiryJob(sweeper, nil)
	job.now = func() time.Time { return now }
	job.AttachMetrics(recorder)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run expiry job: %v", err)
	}

	if !sweeper.calledWith.Equal(now) {
		t.Fatalf("unexpected sweep time: got %s want %s", sweeper.calledWith, now)
	}
	if len(recorder.runs) != 1 || recorder.runs[0] != jobName || recorder.errs[0] != nil {
		t.Fatalf("unexpected recorded runs: %v %v", recorder.runs, recorder.errs)
	}
}

func TestRunReportsSweeperFailure(t *testing.T) {
	boom := errors.New("postgres unavailable")
	recorder := &fakeRecorder{}

	job := NewExpiryJob(&fakeSweeper{err: boom}, nil)
	job.AttachMetrics(recorder)

	err := job.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped sweeper error, got %v", err)
	}
	if len(recorder.errs) != 1 || !errors.Is(recorder.errs[0], boom) {
		t.Fatalf("expected failure to be recorded, got %v", recorder.errs)
	}
}

func TestRunWithoutSweeperFails(t *testing.T) {
	if err := NewExpiryJob(nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error without sweeper")
	}
}

type fakeSweeper struct {
	expired    int
	err        error
	calledWith time.Time
}

func (f *fakeSweeper) ExpireSubscriptions(_ context.Context, now time.Time) (int, error) {
	f.calledWith = now
	return f.expired, f.err
}

type fakeRecorder struct {
	runs []string
	errs []error
}

func (f *fakeRecorder) RecordJobRun(job string, _ time.Duration, err error) {
	f.runs = append(f.runs, job)
	f.errs = append(f.errs, err)
}

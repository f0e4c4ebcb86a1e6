package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
)

func newTestClient(t *testing.T) *goredis.Client {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestProfileRepoCreateIsOnce(t *testing.T) {
	repo := NewProfileRepo(newTestClient(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, model.UserProfile{UID: "u1", CurrentGP: 100})
	if err != nil || !created {
		t.Fatalf("first create: created=%v err=%v", created, err)
	}
	created, err = repo.Create(ctx, model.UserProfile{UID: "u1", CurrentGP: 5})
	if err != nil || created {
		t.Fatalf("second create must not overwrite: created=%v err=%v", created, err)
	}

	profile, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.CurrentGP != 100 {
		t.Fatalf("unexpected balance: %d", profile.CurrentGP)
	}
}

func TestProfileRepoGetMissing(t *testing.T) {
	repo := NewProfileRepo(newTestClient(t))

	if _, err := repo.Get(context.Background(), "nobody"); !errors.Is(err, profilesvc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	_, err := repo.Update(context.Background(), "nobody", func(*model.UserProfile) error { return nil })
	if !errors.Is(err, profilesvc.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from update, got %v", err)
	}
}

func TestProfileRepoConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	repo := NewProfileRepo(newTestClient(t))
	ctx := context.Background()

	if _, err := repo.Create(ctx, model.UserProfile{UID: "u1", Visited: map[string]time.Time{}}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "u1", func(p *model.UserProfile) error {
				p.CurrentGP += 10
				return nil
			})
			if err != nil {
				t.Errorf("update profile: %v", err)
			}
		}()
	}
	wg.Wait()

	profile, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if profile.CurrentGP != workers*10 {
		t.Fatalf("expected %d GP, got %d", workers*10, profile.CurrentGP)
	}
}

func TestProfileRepoManyWritersAllLand(t *testing.T) {
	repo := NewProfileRepo(newTestClient(t))
	ctx := context.Background()

	if _, err := repo.Create(ctx, model.UserProfile{UID: "u1"}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	const workers = 64
	var (
		wg     sync.WaitGroup
		failed atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Update(ctx, "u1", func(p *model.UserProfile) error {
				p.CurrentGP++
				return nil
			}); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	profile, err := repo.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get profile: %v", err)
	}
	if failed.Load() != 0 || profile.CurrentGP != workers {
		t.Fatalf("failed=%d current_gp=%d", failed.Load(), profile.CurrentGP)
	}
}

func TestUpdateBackoffBounds(t *testing.T) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		d := updateBackoff(attempt)
		if d <= 0 || d > maxUpdateBackoff {
			t.Fatalf("attempt %d: backoff %s out of range", attempt, d)
		}
	}
	if d := updateBackoff(0); d > time.Millisecond {
		t.Fatalf("first backoff too long: %s", d)
	}
}

func TestProfileRepoUpdateAbortKeepsRecord(t *testing.T) {
	repo := NewProfileRepo(newTestClient(t))
	ctx := context.Background()

	if _, err := repo.Create(ctx, model.UserProfile{UID: "u1", CurrentGP: 50}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	stop := errors.New("stop")
	_, err := repo.Update(ctx, "u1", func(p *model.UserProfile) error {
		p.CurrentGP = 0
		return stop
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected abort error, got %v", err)
	}

	profile, _ := repo.Get(ctx, "u1")
	if profile.CurrentGP != 50 {
		t.Fatalf("aborted update leaked: %d", profile.CurrentGP)
	}
}

func TestProfileRepoFlags(t *testing.T) {
	repo := NewProfileRepo(newTestClient(t))
	ctx := context.Background()

	value, err := repo.GetFlag(ctx, "u1", "onboarding_done")
	if err != nil || value {
		t.Fatalf("missing flag should read false, value=%v err=%v", value, err)
	}
	if err := repo.SetFlag(ctx, "u1", "onboarding_done", true); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	value, err = repo.GetFlag(ctx, "u1", "onboarding_done")
	if err != nil || !value {
		t.Fatalf("expected flag true, value=%v err=%v", value, err)
	}
}

func TestRateRepoWindow(t *testing.T) {
	repo := NewRateRepo(newTestClient(t))
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		count, ttl, err := repo.IncrementWindow(ctx, "rate:test", time.Minute)
		if err != nil {
			t.Fatalf("increment window: %v", err)
		}
		if count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, count)
		}
		if ttl <= 0 || ttl > time.Minute {
			t.Fatalf("unexpected ttl: %s", ttl)
		}
	}

	count, _, err := repo.WindowState(ctx, "rate:test")
	if err != nil || count != 3 {
		t.Fatalf("unexpected window state count=%d err=%v", count, err)
	}
}

func TestCacheRepoRoundTrip(t *testing.T) {
	repo := NewCacheRepo(newTestClient(t))
	ctx := context.Background()

	if _, ok, err := repo.Get(ctx, "wiki:en:Louvre"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := repo.Set(ctx, "wiki:en:Louvre", []byte(`{"title":"Louvre"}`), time.Hour); err != nil {
		t.Fatalf("set cache: %v", err)
	}
	value, ok, err := repo.Get(ctx, "wiki:en:Louvre")
	if err != nil || !ok || string(value) != `{"title":"Louvre"}` {
		t.Fatalf("unexpected cache read value=%s ok=%v err=%v", value, ok, err)
	}
}

package visits

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
	"github.com/ssmoliagin/weekendguide/internal/services/geo"
)

type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]model.UserProfile
}

func (m *memoryProfiles) Get(_ context.Context, uid string) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.profiles[uid]), nil
}

func (m *memoryProfiles) Update(_ context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := clone(m.profiles[uid])
	if err := fn(&next); err != nil {
		return model.UserProfile{}, err
	}
	m.profiles[uid] = next
	return clone(next), nil
}

func clone(p model.UserProfile) model.UserProfile {
	raw, _ := json.Marshal(p)
	var out model.UserProfile
	_ = json.Unmarshal(raw, &out)
	return out
}

type fakeCatalog struct{}

func (fakeCatalog) POI(_ context.Context, country, region, _ string, id string) (model.POI, error) {
	switch id {
	case "belvedere":
		return model.POI{ID: id, CountryCode: country, RegionCode: region, Lat: 48.1915, Lon: 16.3809, Title: "Belvedere", Category: enums.PlaceCategoryMuseum}, nil
	case "prater":
		return model.POI{ID: id, CountryCode: country, RegionCode: region, Lat: 48.2167, Lon: 16.3958, Title: "Prater", Category: enums.PlaceCategoryOther}, nil
	default:
		return model.POI{}, errors.New("catalog entry not found")
	}
}

type slowProximity struct{}

func (slowProximity) WithinRadius(ctx context.Context, _, _, _, _, _ float64) (bool, float64, error) {
	<-ctx.Done()
	return false, 0, ctx.Err()
}

type fakeNotifier struct {
	sent []model.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, _ string, n model.Notification) {
	f.sent = append(f.sent, n)
}

func newTestService(profiles *memoryProfiles, notifier *fakeNotifier) *Service {
	svc := NewService(Dependencies{
		Profiles:  profiles,
		Catalog:   fakeCatalog{},
		Proximity: geo.NewService(nil),
		Notifier:  notifier,
	}, Config{
		RadiusM:         200,
		GPSCheckTimeout: time.Second,
		Rewards:         rules.NewRewards(map[string]int{"museum": 20}, 5),
	})
	svc.now = func() time.Time {
		return time.Date(2026, time.June, 2, 14, 0, 0, 0, time.UTC)
	}
	return svc
}

func unlockedProfile() *memoryProfiles {
	return &memoryProfiles{profiles: map[string]model.UserProfile{
		"u1": {
			UID:        "u1",
			CurrentGP:  100,
			TotalGP:    100,
			Collection: []model.CollectionEntry{{CountryCode: "at", RegionCode: "vienna"}},
		},
	}}
}

var atBelvedere = VisitInput{CountryCode: "at", RegionCode: "vienna", Lang: "en", POIID: "belvedere", Lat: 48.1917, Lon: 16.3810}

func TestMarkVisitedCreditsRewardOnce(t *testing.T) {
	profiles := unlockedProfile()
	notifier := &fakeNotifier{}
	svc := newTestService(profiles, notifier)

	first, err := svc.MarkVisited(context.Background(), "u1", atBelvedere)
	if err != nil {
		t.Fatalf("first visit: %v", err)
	}
	if first.AlreadyVisited || first.RewardGP != 20 {
		t.Fatalf("unexpected first result: %+v", first)
	}

	second, err := svc.MarkVisited(context.Background(), "u1", atBelvedere)
	if err != nil {
		t.Fatalf("second visit: %v", err)
	}
	if !second.AlreadyVisited || second.RewardGP != 0 {
		t.Fatalf("unexpected second result: %+v", second)
	}

	profile, _ := profiles.Get(context.Background(), "u1")
	if profile.CurrentGP != 120 || profile.TotalGP != 120 {
		t.Fatalf("reward credited more than once: current=%d total=%d", profile.CurrentGP, profile.TotalGP)
	}
	if len(notifier.sent) != 1 || notifier.sent[0].Title != "+20 GP" {
		t.Fatalf("unexpected notifications: %+v", notifier.sent)
	}
}

func TestConcurrentVisitsCreditOnce(t *testing.T) {
	profiles := unlockedProfile()
	svc := newTestService(profiles, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.MarkVisited(context.Background(), "u1", atBelvedere); err != nil {
				t.Errorf("visit: %v", err)
			}
		}()
	}
	wg.Wait()

	profile, _ := profiles.Get(context.Background(), "u1")
	if profile.CurrentGP != 120 {
		t.Fatalf("expected a single reward, balance is %d", profile.CurrentGP)
	}
}

func TestMarkVisitedFallbackReward(t *testing.T) {
	profiles := unlockedProfile()
	svc := newTestService(profiles, nil)

	result, err := svc.MarkVisited(context.Background(), "u1", VisitInput{
		CountryCode: "at", RegionCode: "vienna", POIID: "prater", Lat: 48.2167, Lon: 16.3958,
	})
	if err != nil {
		t.Fatalf("visit: %v", err)
	}
	if result.RewardGP != 5 {
		t.Fatalf("expected fallback reward, got %d", result.RewardGP)
	}
}

func TestMarkVisitedRequiresUnlockedRegion(t *testing.T) {
	profiles := &memoryProfiles{profiles: map[string]model.UserProfile{"u1": {UID: "u1"}}}
	svc := newTestService(profiles, nil)

	if _, err := svc.MarkVisited(context.Background(), "u1", atBelvedere); !errors.Is(err, ErrRegionLocked) {
		t.Fatalf("expected ErrRegionLocked, got %v", err)
	}
}

func TestMarkVisitedRejectsFarAwayUser(t *testing.T) {
	profiles := unlockedProfile()
	svc := newTestService(profiles, nil)

	far := atBelvedere
	far.Lat, far.Lon = 48.2082, 16.3738
	if _, err := svc.MarkVisited(context.Background(), "u1", far); !errors.Is(err, ErrTooFar) {
		t.Fatalf("expected ErrTooFar, got %v", err)
	}

	profile, _ := profiles.Get(context.Background(), "u1")
	if len(profile.Visited) != 0 || profile.CurrentGP != 100 {
		t.Fatalf("rejected visit changed the profile: %+v", profile)
	}
}

func TestMarkVisitedGPSTimeout(t *testing.T) {
	profiles := unlockedProfile()
	svc := newTestService(profiles, nil)
	svc.proximity = slowProximity{}
	svc.cfg.GPSCheckTimeout = 10 * time.Millisecond

	if _, err := svc.MarkVisited(context.Background(), "u1", atBelvedere); !errors.Is(err, ErrGPSTimeout) {
		t.Fatalf("expected ErrGPSTimeout, got %v", err)
	}
}

func TestVisitedNewestFirst(t *testing.T) {
	profiles := &memoryProfiles{profiles: map[string]model.UserProfile{"u1": {
		UID: "u1",
		Visited: map[string]time.Time{
			"a": time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			"b": time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}}}
	svc := newTestService(profiles, nil)

	visited, err := svc.Visited(context.Background(), "u1")
	if err != nil {
		t.Fatalf("visited: %v", err)
	}
	if len(visited) != 2 || visited[0].POIID != "b" {
		t.Fatalf("unexpected order: %+v", visited)
	}
}

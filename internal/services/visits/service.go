package visits

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrRegionLocked = errors.New("region is not unlocked")
	ErrTooFar       = errors.New("user is too far from the place")
	ErrGPSTimeout   = errors.New("gps check timed out")
)

var errAlreadyVisited = errors.New("already visited")

type ProfileUpdater interface {
	Get(ctx context.Context, uid string) (model.UserProfile, error)
	Update(ctx context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error)
}

type POICatalog interface {
	POI(ctx context.Context, countryCode, regionCode, lang, poiID string) (model.POI, error)
}

type ProximityChecker interface {
	WithinRadius(ctx context.Context, userLat, userLon, targetLat, targetLon, radiusM float64) (bool, float64, error)
}

type Notifier interface {
	Notify(ctx context.Context, uid string, n model.Notification)
}

type Recorder interface {
	RecordVisit(result string)
}

type Config struct {
	RadiusM         float64
	GPSCheckTimeout time.Duration
	Rewards         rules.Rewards
}

type Dependencies struct {
	Profiles  ProfileUpdater
	Catalog   POICatalog
	Proximity ProximityChecker
	Notifier  Notifier
	Metrics   Recorder
	Logger    *zap.Logger
}

type Service struct {
	profiles  ProfileUpdater
	catalog   POICatalog
	proximity ProximityChecker
	notifier  Notifier
	metrics   Recorder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

type VisitInput struct {
	CountryCode string
	RegionCode  string
	Lang        string
	POIID       string
	Lat         float64
	Lon         float64
}

type Result struct {
	POIID          string
	AlreadyVisited bool
	RewardGP       int
	DistanceM      float64
	VisitedAt      time.Time
	Profile        model.UserProfile
}

type VisitedPlace struct {
	POIID     string
	VisitedAt time.Time
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.RadiusM <= 0 {
		cfg.RadiusM = 200
	}
	if cfg.GPSCheckTimeout <= 0 {
		cfg.GPSCheckTimeout = 3 * time.Second
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		profiles:  deps.Profiles,
		catalog:   deps.Catalog,
		proximity: deps.Proximity,
		notifier:  deps.Notifier,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// MarkVisited records a visit of an unlocked POI and credits its reward once.
func (s *Service) MarkVisited(ctx context.Context, uid string, in VisitInput) (Result, error) {
	if err := validateInput(uid, in); err != nil {
		s.record("invalid")
		return Result{}, err
	}
	if s.profiles == nil || s.catalog == nil || s.proximity == nil {
		return Result{}, fmt.Errorf("visit service is not configured")
	}

	poi, err := s.catalog.POI(ctx, in.CountryCode, in.RegionCode, in.Lang, in.POIID)
	if err != nil {
		s.record("unknown_poi")
		return Result{}, fmt.Errorf("lookup poi: %w", err)
	}

	distance, err := s.checkDistance(ctx, in, poi)
	if err != nil {
		return Result{}, err
	}

	reward := s.cfg.Rewards.For(poi.Category)
	result := Result{POIID: poi.ID, DistanceM: distance}

	profile, err := s.profiles.Update(ctx, uid, func(p *model.UserProfile) error {
		if !p.HasRegion(poi.CountryCode, poi.RegionCode) {
			return ErrRegionLocked
		}
		if visitedAt, ok := p.Visited[poi.ID]; ok {
			result.VisitedAt = visitedAt
			return errAlreadyVisited
		}

		now := s.now().UTC()
		if p.Visited == nil {
			p.Visited = map[string]time.Time{}
		}
		p.Visited[poi.ID] = now
		p.CurrentGP += reward
		p.TotalGP += reward
		result.VisitedAt = now
		return nil
	})
	if errors.Is(err, errAlreadyVisited) {
		s.record("already_visited")
		result.AlreadyVisited = true
		if current, err := s.profiles.Get(ctx, uid); err == nil {
			result.Profile = current
		}
		return result, nil
	}
	if err != nil {
		if errors.Is(err, ErrRegionLocked) {
			s.record("region_locked")
		} else {
			s.record("error")
		}
		return Result{}, err
	}

	s.record("rewarded")
	result.RewardGP = reward
	result.Profile = profile
	if s.notifier != nil && reward > 0 {
		s.notifier.Notify(ctx, uid, model.Notification{
			Title: fmt.Sprintf("+%d GP", reward),
			Body:  poi.Title,
			Data: map[string]string{
				"type":      "poi_visited",
				"poi_id":    poi.ID,
				"reward_gp": strconv.Itoa(reward),
			},
		})
	}
	return result, nil
}

// Visited lists visited POIs, most recent first.
func (s *Service) Visited(ctx context.Context, uid string) ([]VisitedPlace, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if s.profiles == nil {
		return nil, fmt.Errorf("profile updater is nil")
	}

	profile, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}

	out := make([]VisitedPlace, 0, len(profile.Visited))
	for id, at := range profile.Visited {
		out = append(out, VisitedPlace{POIID: id, VisitedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VisitedAt.Equal(out[j].VisitedAt) {
			return out[i].POIID < out[j].POIID
		}
		return out[i].VisitedAt.After(out[j].VisitedAt)
	})
	return out, nil
}

func (s *Service) checkDistance(ctx context.Context, in VisitInput, poi model.POI) (float64, error) {
	checkCtx, cancel := context.WithTimeout(ctx, s.cfg.GPSCheckTimeout)
	defer cancel()

	ok, distance, err := s.proximity.WithinRadius(checkCtx, in.Lat, in.Lon, poi.Lat, poi.Lon, s.cfg.RadiusM)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.record("gps_timeout")
			return 0, ErrGPSTimeout
		}
		s.record("invalid")
		return 0, fmt.Errorf("check distance: %v: %w", err, ErrValidation)
	}
	if !ok {
		s.record("too_far")
		return distance, fmt.Errorf("%.0f m from %s, limit %.0f m: %w", distance, poi.ID, s.cfg.RadiusM, ErrTooFar)
	}
	return distance, nil
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordVisit(result)
	}
}

func validateInput(uid string, in VisitInput) error {
	if strings.TrimSpace(uid) == "" {
		return fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if strings.TrimSpace(in.POIID) == "" || strings.TrimSpace(in.CountryCode) == "" || strings.TrimSpace(in.RegionCode) == "" {
		return fmt.Errorf("country, region and poi are required: %w", ErrValidation)
	}
	return nil
}

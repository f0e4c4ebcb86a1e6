package unlock

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrAlreadyUnlocked   = errors.New("region already unlocked")
	ErrInsufficientFunds = errors.New("insufficient guide points")
)

const (
	MethodGP           = "gp"
	MethodSubscription = "subscription"
	MethodPurchase     = "purchase"
)

type ProfileUpdater interface {
	Get(ctx context.Context, uid string) (model.UserProfile, error)
	Update(ctx context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error)
}

type RegionCatalog interface {
	Region(ctx context.Context, countryCode, regionCode string) (model.Region, error)
}

type Notifier interface {
	Notify(ctx context.Context, uid string, n model.Notification)
}

type Recorder interface {
	RecordUnlock(result string)
}

type Config struct {
	DefaultRegionCost int
}

type Service struct {
	profiles ProfileUpdater
	catalog  RegionCatalog
	notifier Notifier
	metrics  Recorder
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

type Dependencies struct {
	Profiles ProfileUpdater
	Catalog  RegionCatalog
	Notifier Notifier
	Metrics  Recorder
	Logger   *zap.Logger
}

type Result struct {
	CountryCode string
	RegionCode  string
	Method      string
	CostGP      int
	Profile     model.UserProfile
}

func NewService(deps Dependencies, cfg Config) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultRegionCost < 0 {
		cfg.DefaultRegionCost = 0
	}

	return &Service{
		profiles: deps.Profiles,
		catalog:  deps.Catalog,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// UnlockRegion spends GP on a region, or unlocks it for free with an active subscription.
// The balance check and the collection append happen in one atomic profile update.
func (s *Service) UnlockRegion(ctx context.Context, uid, countryCode, regionCode string) (Result, error) {
	region, err := s.lookup(ctx, uid, countryCode, regionCode)
	if err != nil {
		s.record("invalid")
		return Result{}, err
	}

	cost := rules.RegionCost(region.CostGP, s.cfg.DefaultRegionCost)
	result := Result{
		CountryCode: region.CountryCode,
		RegionCode:  region.Code,
	}

	profile, err := s.profiles.Update(ctx, uid, func(p *model.UserProfile) error {
		if p.HasRegion(region.CountryCode, region.Code) {
			return ErrAlreadyUnlocked
		}

		now := s.now().UTC()
		if p.SubscriptionActive(now) {
			result.Method = MethodSubscription
			result.CostGP = 0
			appendRegion(p, region, now)
			return nil
		}

		if p.CurrentGP < cost {
			return fmt.Errorf("need %d GP, have %d: %w", cost, p.CurrentGP, ErrInsufficientFunds)
		}
		p.CurrentGP -= cost
		p.SpentGP += cost
		result.Method = MethodGP
		result.CostGP = cost
		appendRegion(p, region, now)
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyUnlocked):
			s.record("already_unlocked")
		case errors.Is(err, ErrInsufficientFunds):
			s.record("insufficient_funds")
		default:
			s.record("error")
		}
		return Result{}, err
	}

	s.record(result.Method)
	result.Profile = profile
	s.notify(ctx, uid, region, result)
	return result, nil
}

// Grant unlocks a region without touching the balance. Used for store purchases.
// Granting an already unlocked region is a no-op.
func (s *Service) Grant(ctx context.Context, uid, countryCode, regionCode string) (Result, error) {
	region, err := s.lookup(ctx, uid, countryCode, regionCode)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		CountryCode: region.CountryCode,
		RegionCode:  region.Code,
		Method:      MethodPurchase,
	}
	granted := false
	profile, err := s.profiles.Update(ctx, uid, func(p *model.UserProfile) error {
		granted = false
		if p.HasRegion(region.CountryCode, region.Code) {
			return nil
		}
		appendRegion(p, region, s.now().UTC())
		granted = true
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	result.Profile = profile
	if granted {
		s.record(MethodPurchase)
		s.notify(ctx, uid, region, result)
	}
	return result, nil
}

func (s *Service) Collection(ctx context.Context, uid string) ([]model.CollectionEntry, error) {
	if s.profiles == nil {
		return nil, fmt.Errorf("profile updater is nil")
	}
	profile, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if profile.Collection == nil {
		return []model.CollectionEntry{}, nil
	}
	return profile.Collection, nil
}

func (s *Service) IsUnlocked(ctx context.Context, uid, countryCode, regionCode string) (bool, error) {
	if s.profiles == nil {
		return false, fmt.Errorf("profile updater is nil")
	}
	profile, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return false, err
	}
	return profile.HasRegion(rules.NormalizeCode(countryCode), rules.NormalizeCode(regionCode)), nil
}

func (s *Service) lookup(ctx context.Context, uid, countryCode, regionCode string) (model.Region, error) {
	if strings.TrimSpace(uid) == "" {
		return model.Region{}, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if rules.NormalizeCode(countryCode) == "" || rules.NormalizeCode(regionCode) == "" {
		return model.Region{}, fmt.Errorf("country and region are required: %w", ErrValidation)
	}
	if s.profiles == nil || s.catalog == nil {
		return model.Region{}, fmt.Errorf("unlock service is not configured")
	}

	region, err := s.catalog.Region(ctx, countryCode, regionCode)
	if err != nil {
		return model.Region{}, fmt.Errorf("lookup region: %w", err)
	}
	if region.CountryCode == "" {
		region.CountryCode = rules.NormalizeCode(countryCode)
	}
	return region, nil
}

func appendRegion(p *model.UserProfile, region model.Region, now time.Time) {
	key := model.RegionKey(region.CountryCode, region.Code)
	purchased := false
	for _, existing := range p.PurchasedRegions {
		if existing == key {
			purchased = true
			break
		}
	}
	if !purchased {
		p.PurchasedRegions = append(p.PurchasedRegions, key)
	}
	p.Collection = append(p.Collection, model.CollectionEntry{
		CountryCode: region.CountryCode,
		RegionCode:  region.Code,
		UnlockedAt:  now,
	})
}

func (s *Service) notify(ctx context.Context, uid string, region model.Region, result Result) {
	if s.notifier == nil {
		return
	}
	name := region.Name.In(result.Profile.Language)
	if name == "" {
		name = region.Code
	}
	s.notifier.Notify(ctx, uid, model.Notification{
		Title: "Region unlocked",
		Body:  name,
		Data: map[string]string{
			"type":    "region_unlocked",
			"country": region.CountryCode,
			"region":  region.Code,
			"method":  result.Method,
			"cost_gp": strconv.Itoa(result.CostGP),
		},
	})
}

func (s *Service) record(result string) {
	if s.metrics != nil {
		s.metrics.RecordUnlock(result)
	}
}

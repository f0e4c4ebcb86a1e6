package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
	unlocksvc "github.com/ssmoliagin/weekendguide/internal/services/unlock"
)

const (
	KindGPPack       = "gp_pack"
	KindSubscription = "subscription"
	KindRegion       = "region"

	maxTokenLen = 4096
)

var (
	ErrValidation          = errors.New("validation error")
	ErrUnsupportedSKU      = errors.New("unsupported sku")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrTokenOwnedByOther   = errors.New("purchase token belongs to another user")
)

type PurchaseStore interface {
	Claim(ctx context.Context, purchase model.Purchase) (model.Purchase, bool, error)
	MarkApplied(ctx context.Context, id int64) error
	Release(ctx context.Context, id int64) error
}

type ProfileUpdater interface {
	Get(ctx context.Context, uid string) (model.UserProfile, error)
	Update(ctx context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error)
}

type RegionGranter interface {
	Grant(ctx context.Context, uid, countryCode, regionCode string) (unlocksvc.Result, error)
}

type ExpiredSubscriptionStore interface {
	ListExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]string, error)
	ClearExpiredSubscription(ctx context.Context, uid string, now time.Time) error
}

type Recorder interface {
	RecordPurchase(kind, result string)
}

type Config struct {
	AllowDevProvider bool
	SweepBatchSize   int
}

type Dependencies struct {
	Purchases PurchaseStore
	Profiles  ProfileUpdater
	Regions   RegionGranter
	Expired   ExpiredSubscriptionStore
	Metrics   Recorder
	Logger    *zap.Logger
}

type Service struct {
	purchases PurchaseStore
	profiles  ProfileUpdater
	regions   RegionGranter
	expired   ExpiredSubscriptionStore
	metrics   Recorder
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

type ConfirmInput struct {
	Provider      string
	SKU           string
	PurchaseToken string
}

type ConfirmResult struct {
	PurchaseID int64
	SKU        enums.PurchaseSKU
	Kind       string
	Status     string
	Idempotent bool
	CreditedGP int
	Profile    model.UserProfile
}

type SubscriptionSnapshot struct {
	Active bool
	Until  *time.Time
	Token  string
}

func NewService(deps Dependencies, cfg Config) *Service {
	if cfg.SweepBatchSize <= 0 {
		cfg.SweepBatchSize = 500
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		purchases: deps.Purchases,
		profiles:  deps.Profiles,
		regions:   deps.Regions,
		expired:   deps.Expired,
		metrics:   deps.Metrics,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Confirm applies a store purchase at most once per (provider, purchase token).
func (s *Service) Confirm(ctx context.Context, uid string, in ConfirmInput) (ConfirmResult, error) {
	if strings.TrimSpace(uid) == "" {
		return ConfirmResult{}, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if s.purchases == nil || s.profiles == nil {
		return ConfirmResult{}, fmt.Errorf("billing service is not configured")
	}

	provider, ok := enums.ParseProvider(in.Provider)
	if !ok || (provider == enums.ProviderDev && !s.cfg.AllowDevProvider) {
		return ConfirmResult{}, ErrUnsupportedProvider
	}
	sku, ok := rules.NormalizeSKU(in.SKU)
	if !ok {
		return ConfirmResult{}, ErrUnsupportedSKU
	}
	token := strings.TrimSpace(in.PurchaseToken)
	if token == "" || len(token) > maxTokenLen {
		return ConfirmResult{}, fmt.Errorf("purchase token is invalid: %w", ErrValidation)
	}
	kind := skuKind(sku)

	purchase, claimed, err := s.purchases.Claim(ctx, model.Purchase{
		UID:           uid,
		Provider:      provider,
		SKU:           sku,
		PurchaseToken: token,
	})
	if err != nil {
		s.record(kind, "error")
		return ConfirmResult{}, fmt.Errorf("claim purchase: %w", err)
	}

	result := ConfirmResult{
		PurchaseID: purchase.ID,
		SKU:        purchase.SKU,
		Kind:       skuKind(purchase.SKU),
		Status:     purchase.Status,
	}

	if !claimed {
		if purchase.UID != uid {
			s.record(kind, "conflict")
			return ConfirmResult{}, ErrTokenOwnedByOther
		}
		s.record(kind, "idempotent")
		result.Idempotent = true
		if profile, err := s.profiles.Get(ctx, uid); err == nil {
			result.Profile = profile
		}
		return result, nil
	}

	profile, credited, err := s.apply(ctx, uid, sku, token)
	if err != nil {
		if releaseErr := s.purchases.Release(ctx, purchase.ID); releaseErr != nil {
			s.logger.Error("release purchase claim failed",
				zap.Int64("purchase_id", purchase.ID),
				zap.Error(releaseErr),
			)
		}
		s.record(kind, "error")
		return ConfirmResult{}, fmt.Errorf("apply purchase: %w", err)
	}

	if err := s.purchases.MarkApplied(ctx, purchase.ID); err != nil {
		// the claim row still blocks re-application; only the status is stale
		s.logger.Warn("mark purchase applied failed", zap.Int64("purchase_id", purchase.ID), zap.Error(err))
	} else {
		result.Status = "applied"
	}

	s.record(kind, "applied")
	result.CreditedGP = credited
	result.Profile = profile
	return result, nil
}

func (s *Service) Subscription(ctx context.Context, uid string) (SubscriptionSnapshot, error) {
	if strings.TrimSpace(uid) == "" {
		return SubscriptionSnapshot{}, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if s.profiles == nil {
		return SubscriptionSnapshot{}, fmt.Errorf("profile updater is nil")
	}

	profile, err := s.profiles.Get(ctx, uid)
	if err != nil {
		return SubscriptionSnapshot{}, err
	}

	return SubscriptionSnapshot{
		Active: profile.SubscriptionActive(s.now()),
		Until:  profile.SubscriptionUntil,
		Token:  profile.SubscriptionToken,
	}, nil
}

// ExpireSubscriptions clears the subscribed flag of profiles whose period ended.
// The local record decides: a renewal not yet mirrored keeps the subscription.
// A listed uid with no local record is cleared on the remote copy only.
func (s *Service) ExpireSubscriptions(ctx context.Context, now time.Time) (int, error) {
	if s.expired == nil || s.profiles == nil {
		return 0, fmt.Errorf("billing service is not configured")
	}

	uids, err := s.expired.ListExpiredSubscriptions(ctx, now, s.cfg.SweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list expired subscriptions: %w", err)
	}

	expired := 0
	for _, uid := range uids {
		changed := false
		_, err := s.profiles.Update(ctx, uid, func(p *model.UserProfile) error {
			changed = false
			if !p.Subscribed || p.SubscriptionUntil == nil || p.SubscriptionUntil.After(now) {
				return nil
			}
			p.Subscribed = false
			changed = true
			return nil
		})
		if errors.Is(err, profilesvc.ErrNotFound) {
			if clearErr := s.expired.ClearExpiredSubscription(ctx, uid, now); clearErr != nil {
				s.logger.Warn("clear remote subscription failed", zap.String("uid", uid), zap.Error(clearErr))
			}
			continue
		}
		if err != nil {
			s.logger.Warn("expire subscription failed", zap.String("uid", uid), zap.Error(err))
			continue
		}
		if changed {
			expired++
		}
	}

	return expired, nil
}

func (s *Service) apply(ctx context.Context, uid string, sku enums.PurchaseSKU, token string) (model.UserProfile, int, error) {
	if gp, ok := rules.GPForSKU(sku); ok {
		profile, err := s.profiles.Update(ctx, uid, func(p *model.UserProfile) error {
			p.CurrentGP += gp
			p.TotalGP += gp
			return nil
		})
		return profile, gp, err
	}

	if period, ok := rules.SubscriptionDuration(sku); ok {
		profile, err := s.profiles.Update(ctx, uid, func(p *model.UserProfile) error {
			until := rules.ExtendSubscription(p.SubscriptionUntil, s.now().UTC(), period)
			p.Subscribed = true
			p.SubscriptionToken = token
			p.SubscriptionUntil = &until
			return nil
		})
		return profile, 0, err
	}

	if country, region, ok := rules.ParseRegionSKU(sku); ok {
		if s.regions == nil {
			return model.UserProfile{}, 0, fmt.Errorf("region granter is nil")
		}
		granted, err := s.regions.Grant(ctx, uid, country, region)
		if err != nil {
			return model.UserProfile{}, 0, err
		}
		return granted.Profile, 0, nil
	}

	return model.UserProfile{}, 0, ErrUnsupportedSKU
}

func (s *Service) record(kind, result string) {
	if s.metrics != nil {
		s.metrics.RecordPurchase(kind, result)
	}
}

func skuKind(sku enums.PurchaseSKU) string {
	if _, ok := rules.GPForSKU(sku); ok {
		return KindGPPack
	}
	if _, ok := rules.SubscriptionDuration(sku); ok {
		return KindSubscription
	}
	if _, _, ok := rules.ParseRegionSKU(sku); ok {
		return KindRegion
	}
	return "unknown"
}

package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("profile not found")
)

// Flags are client markers such as onboarding_done.
var flagPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

const maxDisplayNameLen = 80

type ProfileStore interface {
	Get(ctx context.Context, uid string) (model.UserProfile, error)
	Create(ctx context.Context, profile model.UserProfile) (bool, error)
	Update(ctx context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error)
	Replace(ctx context.Context, profile model.UserProfile) error
	SetFlag(ctx context.Context, uid, flag string, value bool) error
	GetFlag(ctx context.Context, uid, flag string) (bool, error)
}

// RemoteMirror receives every accepted local write. Push never blocks the caller.
type RemoteMirror interface {
	Push(profile model.UserProfile)
	Pull(ctx context.Context, uid string) (model.UserProfile, error)
}

type Config struct {
	WelcomeBonusGP int
}

type Service struct {
	store  ProfileStore
	mirror RemoteMirror
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

type PreferencesInput struct {
	Language             *string
	Theme                *string
	Units                *string
	NotificationsEnabled *bool
}

func NewService(store ProfileStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.WelcomeBonusGP < 0 {
		cfg.WelcomeBonusGP = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) AttachMirror(mirror RemoteMirror) {
	s.mirror = mirror
}

// Ensure makes sure a local profile exists for identity. It reports true only when
// a brand-new profile was created with defaults.
func (s *Service) Ensure(ctx context.Context, identity rules.Identity) (bool, error) {
	identity.UID = strings.TrimSpace(identity.UID)
	if identity.UID == "" {
		return false, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if s.store == nil {
		return false, fmt.Errorf("profile store is nil")
	}

	_, err := s.store.Get(ctx, identity.UID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, fmt.Errorf("load local profile: %w", err)
	}

	if s.mirror != nil {
		remote, pullErr := s.mirror.Pull(ctx, identity.UID)
		switch {
		case pullErr == nil:
			rules.FillDefaults(&remote)
			remote.UID = identity.UID
			if _, err := s.store.Create(ctx, remote); err != nil {
				return false, fmt.Errorf("restore remote profile: %w", err)
			}
			return false, nil
		case errors.Is(pullErr, ErrNotFound):
		default:
			s.logger.Warn("pull remote profile failed, creating defaults", zap.String("uid", identity.UID), zap.Error(pullErr))
		}
	}

	profile := rules.NewProfile(identity, s.cfg.WelcomeBonusGP, s.now())
	created, err := s.store.Create(ctx, profile)
	if err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}
	if created {
		s.push(profile)
	}
	return created, nil
}

func (s *Service) Get(ctx context.Context, uid string) (model.UserProfile, error) {
	if strings.TrimSpace(uid) == "" {
		return model.UserProfile{}, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if s.store == nil {
		return model.UserProfile{}, fmt.Errorf("profile store is nil")
	}

	profile, err := s.store.Get(ctx, uid)
	if err != nil {
		return model.UserProfile{}, err
	}
	rules.FillDefaults(&profile)
	return profile, nil
}

// Update applies fn atomically to the local record and then mirrors the result.
// A failing fn leaves the record untouched and its error is returned as is.
func (s *Service) Update(ctx context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error) {
	if strings.TrimSpace(uid) == "" {
		return model.UserProfile{}, fmt.Errorf("uid is required: %w", ErrValidation)
	}
	if s.store == nil {
		return model.UserProfile{}, fmt.Errorf("profile store is nil")
	}

	updated, err := s.store.Update(ctx, uid, func(p *model.UserProfile) error {
		rules.FillDefaults(p)
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return model.UserProfile{}, err
	}

	s.push(updated)
	return updated, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, uid string, in PreferencesInput) (model.UserProfile, error) {
	normalized, err := normalizePreferences(in)
	if err != nil {
		return model.UserProfile{}, err
	}

	return s.Update(ctx, uid, func(p *model.UserProfile) error {
		if normalized.Language != nil {
			p.Language = *normalized.Language
		}
		if normalized.Theme != nil {
			p.Theme = enums.Theme(*normalized.Theme)
		}
		if normalized.Units != nil {
			p.Units = enums.Units(*normalized.Units)
		}
		if normalized.NotificationsEnabled != nil {
			p.NotificationsEnabled = *normalized.NotificationsEnabled
		}
		return nil
	})
}

func (s *Service) UpdateIdentity(ctx context.Context, uid, displayName, photoURL string) (model.UserProfile, error) {
	displayName = strings.TrimSpace(displayName)
	photoURL = strings.TrimSpace(photoURL)

	if utf8.RuneCountInString(displayName) > maxDisplayNameLen {
		return model.UserProfile{}, fmt.Errorf("display name is too long: %w", ErrValidation)
	}
	if photoURL != "" {
		parsed, err := url.Parse(photoURL)
		if err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
			return model.UserProfile{}, fmt.Errorf("photo url is invalid: %w", ErrValidation)
		}
	}

	return s.Update(ctx, uid, func(p *model.UserProfile) error {
		if displayName != "" {
			p.DisplayName = displayName
		}
		if photoURL != "" {
			p.PhotoURL = photoURL
		}
		return nil
	})
}

// ToggleFavorite flips the favorite state of poiID and returns the new state.
func (s *Service) ToggleFavorite(ctx context.Context, uid, poiID string) (bool, error) {
	poiID = strings.TrimSpace(poiID)
	if poiID == "" {
		return false, fmt.Errorf("poi id is required: %w", ErrValidation)
	}

	var favorite bool
	_, err := s.Update(ctx, uid, func(p *model.UserProfile) error {
		if p.IsFavorite(poiID) {
			kept := p.Favorites[:0]
			for _, id := range p.Favorites {
				if id != poiID {
					kept = append(kept, id)
				}
			}
			p.Favorites = kept
			favorite = false
			return nil
		}
		p.Favorites = append(p.Favorites, poiID)
		favorite = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return favorite, nil
}

func (s *Service) SetFlag(ctx context.Context, uid, flag string, value bool) error {
	flag = strings.TrimSpace(flag)
	if strings.TrimSpace(uid) == "" || !flagPattern.MatchString(flag) {
		return fmt.Errorf("uid and flag are required: %w", ErrValidation)
	}
	if s.store == nil {
		return fmt.Errorf("profile store is nil")
	}
	return s.store.SetFlag(ctx, uid, flag, value)
}

func (s *Service) GetFlag(ctx context.Context, uid, flag string) (bool, error) {
	flag = strings.TrimSpace(flag)
	if strings.TrimSpace(uid) == "" || !flagPattern.MatchString(flag) {
		return false, fmt.Errorf("uid and flag are required: %w", ErrValidation)
	}
	if s.store == nil {
		return false, fmt.Errorf("profile store is nil")
	}
	return s.store.GetFlag(ctx, uid, flag)
}

func (s *Service) push(profile model.UserProfile) {
	if s.mirror == nil {
		return
	}
	s.mirror.Push(profile)
}

func normalizePreferences(in PreferencesInput) (PreferencesInput, error) {
	out := PreferencesInput{NotificationsEnabled: in.NotificationsEnabled}

	if in.Language != nil {
		lang, ok := rules.NormalizeLanguage(*in.Language)
		if !ok {
			return PreferencesInput{}, fmt.Errorf("language must be a 2-letter code: %w", ErrValidation)
		}
		out.Language = &lang
	}
	if in.Theme != nil {
		theme := enums.Theme(strings.ToLower(strings.TrimSpace(*in.Theme)))
		if !theme.Valid() {
			return PreferencesInput{}, fmt.Errorf("theme is invalid: %w", ErrValidation)
		}
		value := string(theme)
		out.Theme = &value
	}
	if in.Units != nil {
		units := enums.Units(strings.ToLower(strings.TrimSpace(*in.Units)))
		if !units.Valid() {
			return PreferencesInput{}, fmt.Errorf("units are invalid: %w", ErrValidation)
		}
		value := string(units)
		out.Units = &value
	}

	return out, nil
}

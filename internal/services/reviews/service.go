package reviews

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

const (
	maxTextRunes   = 2000
	maxListLimit   = 100
	defaultListLim = 20
)

var (
	ErrValidation  = errors.New("validation error")
	ErrRateLimited = errors.New("too many reviews")
)

type TooFastError struct {
	RetryAfterSec int64
}

func (e TooFastError) Error() string {
	return "too many reviews"
}

func (e TooFastError) Is(target error) bool {
	return target == ErrRateLimited
}

func (e TooFastError) RetryAfter() int64 {
	if e.RetryAfterSec <= 0 {
		return 1
	}
	return e.RetryAfterSec
}

func IsTooFast(err error) (*TooFastError, bool) {
	var tf TooFastError
	if errors.As(err, &tf) {
		return &tf, true
	}
	return nil, false
}

type ReviewStore interface {
	Insert(ctx context.Context, review model.Review) error
	ListByPOI(ctx context.Context, poiID string, limit int) ([]model.Review, error)
	Summary(ctx context.Context, poiID string) (model.ReviewSummary, error)
}

type RateLimiter interface {
	Allow(ctx context.Context, subject string) (int64, bool, error)
}

type ProfileReader interface {
	Get(ctx context.Context, uid string) (model.UserProfile, error)
}

type Alerter interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Dependencies struct {
	Store    ReviewStore
	Limiter  RateLimiter
	Profiles ProfileReader
	Logger   *zap.Logger
}

type AddInput struct {
	POIID    string
	Rating   int
	Text     string
	Language string
}

type Service struct {
	store    ReviewStore
	limiter  RateLimiter
	profiles ProfileReader
	alerter  Alerter
	chatID   int64
	logger   *zap.Logger
	now      func() time.Time

	entropyMu sync.Mutex
	entropy   io.Reader
}

func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:    deps.Store,
		limiter:  deps.Limiter,
		profiles: deps.Profiles,
		logger:   logger,
		now:      time.Now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}
}

// AttachModeration sends a short alert for every new review to chatID.
func (s *Service) AttachModeration(alerter Alerter, chatID int64) {
	if alerter == nil || chatID == 0 {
		return
	}
	s.alerter = alerter
	s.chatID = chatID
}

func (s *Service) Add(ctx context.Context, uid string, in AddInput) (model.Review, error) {
	if s.store == nil {
		return model.Review{}, fmt.Errorf("review store is not configured")
	}

	review, err := s.normalize(uid, in)
	if err != nil {
		return model.Review{}, err
	}

	if s.limiter != nil {
		retryAfter, allowed, err := s.limiter.Allow(ctx, uid)
		if err != nil {
			return model.Review{}, fmt.Errorf("check review rate: %w", err)
		}
		if !allowed {
			return model.Review{}, TooFastError{RetryAfterSec: retryAfter}
		}
	}

	review.AuthorName = s.authorName(ctx, uid)
	review.CreatedAt = s.now().UTC()
	review.ID = s.newID(review.CreatedAt)

	if err := s.store.Insert(ctx, review); err != nil {
		return model.Review{}, fmt.Errorf("store review: %w", err)
	}

	s.alert(ctx, review)
	return review, nil
}

func (s *Service) ListByPOI(ctx context.Context, poiID string, limit int) ([]model.Review, error) {
	if s.store == nil {
		return nil, fmt.Errorf("review store is not configured")
	}
	poiID = strings.TrimSpace(poiID)
	if poiID == "" {
		return nil, fmt.Errorf("%w: poi_id is required", ErrValidation)
	}
	if limit <= 0 {
		limit = defaultListLim
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	return s.store.ListByPOI(ctx, poiID, limit)
}

func (s *Service) Summary(ctx context.Context, poiID string) (model.ReviewSummary, error) {
	if s.store == nil {
		return model.ReviewSummary{}, fmt.Errorf("review store is not configured")
	}
	poiID = strings.TrimSpace(poiID)
	if poiID == "" {
		return model.ReviewSummary{}, fmt.Errorf("%w: poi_id is required", ErrValidation)
	}

	return s.store.Summary(ctx, poiID)
}

func (s *Service) normalize(uid string, in AddInput) (model.Review, error) {
	uid = strings.TrimSpace(uid)
	poiID := strings.TrimSpace(in.POIID)
	if uid == "" || poiID == "" {
		return model.Review{}, fmt.Errorf("%w: uid and poi_id are required", ErrValidation)
	}
	if in.Rating < 1 || in.Rating > 5 {
		return model.Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}

	text := strings.TrimSpace(in.Text)
	if utf8.RuneCountInString(text) > maxTextRunes {
		return model.Review{}, fmt.Errorf("%w: text is longer than %d characters", ErrValidation, maxTextRunes)
	}

	lang := strings.ToLower(strings.TrimSpace(in.Language))
	if len(lang) > 8 {
		return model.Review{}, fmt.Errorf("%w: invalid language", ErrValidation)
	}

	return model.Review{
		POIID:    poiID,
		UID:      uid,
		Rating:   in.Rating,
		Text:     text,
		Language: lang,
	}, nil
}

func (s *Service) authorName(ctx context.Context, uid string) string {
	if s.profiles == nil {
		return ""
	}
	profile, err := s.profiles.Get(ctx, uid)
	if err != nil {
		s.logger.Debug("review author profile unavailable", zap.String("uid", uid), zap.Error(err))
		return ""
	}
	return strings.TrimSpace(profile.DisplayName)
}

func (s *Service) newID(at time.Time) string {
	s.entropyMu.Lock()
	defer s.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), s.entropy).String()
}

func (s *Service) alert(ctx context.Context, review model.Review) {
	if s.alerter == nil {
		return
	}

	author := review.AuthorName
	if author == "" {
		author = review.UID
	}
	text := fmt.Sprintf("New review %s\nPOI: %s\nAuthor: %s\nRating: %d/5\n\n%s",
		review.ID, review.POIID, author, review.Rating, review.Text)

	if err := s.alerter.SendText(ctx, s.chatID, text); err != nil {
		s.logger.Warn("review moderation alert failed", zap.String("review_id", review.ID), zap.Error(err))
	}
}

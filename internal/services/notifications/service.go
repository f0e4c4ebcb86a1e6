package notifications

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

type Sender interface {
	Send(uid string, n model.Notification) int
}

type ProfileReader interface {
	Get(ctx context.Context, uid string) (model.UserProfile, error)
}

// Service delivers notifications to users who have them enabled.
type Service struct {
	sender   Sender
	profiles ProfileReader
	logger   *zap.Logger
	now      func() time.Time
}

func NewService(sender Sender, profiles ProfileReader, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		sender:   sender,
		profiles: profiles,
		logger:   logger,
		now:      time.Now,
	}
}

// Notify is best effort: lookup failures and disabled notifications are not errors.
func (s *Service) Notify(ctx context.Context, uid string, n model.Notification) {
	if s.sender == nil || strings.TrimSpace(uid) == "" {
		return
	}

	if s.profiles != nil {
		profile, err := s.profiles.Get(ctx, uid)
		if err != nil {
			s.logger.Warn("notification skipped, profile unavailable", zap.String("uid", uid), zap.Error(err))
			return
		}
		if !profile.NotificationsEnabled {
			return
		}
	}

	if n.SentAt.IsZero() {
		n.SentAt = s.now().UTC()
	}
	delivered := s.sender.Send(uid, n)
	s.logger.Debug("notification sent", zap.String("uid", uid), zap.String("title", n.Title), zap.Int("delivered", delivered))
}

func (s *Service) NotifyText(ctx context.Context, uid, title, body string) {
	s.Notify(ctx, uid, model.Notification{Title: title, Body: body})
}

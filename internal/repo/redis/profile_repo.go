package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
)

const (
	profilePrefix      = "profile:"
	profileFlagsPrefix = "profile_flags:"

	maxUpdateAttempts = 32
	maxUpdateBackoff  = 64 * time.Millisecond
)

// ProfileRepo keeps one JSON record per user plus a hash of simple flags.
type ProfileRepo struct {
	client *goredis.Client
}

func NewProfileRepo(client *goredis.Client) *ProfileRepo {
	return &ProfileRepo{client: client}
}

func (r *ProfileRepo) Get(ctx context.Context, uid string) (model.UserProfile, error) {
	if r.client == nil {
		return model.UserProfile{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(uid) == "" {
		return model.UserProfile{}, profilesvc.ErrValidation
	}

	raw, err := r.client.Get(ctx, profileKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return model.UserProfile{}, profilesvc.ErrNotFound
		}
		return model.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}

	return decodeProfile(raw)
}

// Create stores the profile only when no record exists yet.
func (r *ProfileRepo) Create(ctx context.Context, profile model.UserProfile) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(profile.UID) == "" {
		return false, profilesvc.ErrValidation
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return false, fmt.Errorf("encode profile: %w", err)
	}

	created, err := r.client.SetNX(ctx, profileKey(profile.UID), raw, 0).Result()
	if err != nil {
		return false, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

// Update runs fn over the current record inside WATCH/MULTI and retries on conflicting writes.
func (r *ProfileRepo) Update(ctx context.Context, uid string, fn func(*model.UserProfile) error) (model.UserProfile, error) {
	if r.client == nil {
		return model.UserProfile{}, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(uid) == "" || fn == nil {
		return model.UserProfile{}, profilesvc.ErrValidation
	}

	key := profileKey(uid)
	var updated model.UserProfile

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, goredis.Nil) {
				return profilesvc.ErrNotFound
			}
			return fmt.Errorf("get profile: %w", err)
		}

		profile, err := decodeProfile(raw)
		if err != nil {
			return err
		}
		if err := fn(&profile); err != nil {
			return err
		}

		next, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("encode profile: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}

		updated = profile
		return nil
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, goredis.TxFailedErr) {
			return model.UserProfile{}, err
		}
		if err := sleepContext(ctx, updateBackoff(attempt)); err != nil {
			return model.UserProfile{}, err
		}
	}

	return model.UserProfile{}, fmt.Errorf("update profile: too many concurrent writers")
}

// updateBackoff doubles per attempt up to maxUpdateBackoff, jittered over [d/2, d].
func updateBackoff(attempt int) time.Duration {
	d := maxUpdateBackoff
	if attempt < 6 {
		d = time.Millisecond << attempt
	}
	return d/2 + rand.N(d/2+1)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Replace overwrites the local record, used when a remote copy is adopted.
func (r *ProfileRepo) Replace(ctx context.Context, profile model.UserProfile) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(profile.UID) == "" {
		return profilesvc.ErrValidation
	}

	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.client.Set(ctx, profileKey(profile.UID), raw, 0).Err(); err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) SetFlag(ctx context.Context, uid, flag string, value bool) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(flag) == "" {
		return profilesvc.ErrValidation
	}

	if err := r.client.HSet(ctx, profileFlagsKey(uid), flag, boolToFlag(value)).Err(); err != nil {
		return fmt.Errorf("set profile flag: %w", err)
	}
	return nil
}

func (r *ProfileRepo) GetFlag(ctx context.Context, uid, flag string) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	if strings.TrimSpace(uid) == "" || strings.TrimSpace(flag) == "" {
		return false, profilesvc.ErrValidation
	}

	value, err := r.client.HGet(ctx, profileFlagsKey(uid), flag).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("get profile flag: %w", err)
	}
	return value == "1", nil
}

func decodeProfile(raw []byte) (model.UserProfile, error) {
	var profile model.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("decode profile: %w", err)
	}
	return profile, nil
}

func boolToFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func profileKey(uid string) string {
	return profilePrefix + uid
}

func profileFlagsKey(uid string) string {
	return profileFlagsPrefix + uid
}

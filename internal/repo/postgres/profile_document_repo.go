package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	profilesvc "github.com/ssmoliagin/weekendguide/internal/services/profiles"
)

// ProfileDocumentRepo is the remote copy of user profiles: one jsonb document per uid,
// overwritten in full unless the stored copy is newer.
type ProfileDocumentRepo struct {
	pool *pgxpool.Pool
}

func NewProfileDocumentRepo(pool *pgxpool.Pool) *ProfileDocumentRepo {
	return &ProfileDocumentRepo{pool: pool}
}

func (r *ProfileDocumentRepo) Upsert(ctx context.Context, profile model.UserProfile) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(profile.UID) == "" {
		return fmt.Errorf("invalid profile document payload")
	}

	document, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile document: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
INSERT INTO profile_documents (
	uid,
	document,
	subscribed,
	subscription_until,
	updated_at
) VALUES ($1, $2::jsonb, $3, $4, $5)
ON CONFLICT (uid) DO UPDATE
SET document = EXCLUDED.document,
	subscribed = EXCLUDED.subscribed,
	subscription_until = EXCLUDED.subscription_until,
	updated_at = EXCLUDED.updated_at
WHERE profile_documents.updated_at <= EXCLUDED.updated_at
`, profile.UID, string(document), profile.Subscribed, profile.SubscriptionUntil, documentVersion(profile, time.Now()))
	if err != nil {
		return fmt.Errorf("upsert profile document: %w", err)
	}

	return nil
}

// documentVersion is the timestamp a pushed document is ordered by. Postgres keeps
// microseconds, so the value is truncated to match what a later compare sees.
func documentVersion(profile model.UserProfile, now time.Time) time.Time {
	version := profile.UpdatedAt
	if version.IsZero() {
		version = now
	}
	return version.UTC().Truncate(time.Microsecond)
}

func (r *ProfileDocumentRepo) Get(ctx context.Context, uid string) (model.UserProfile, error) {
	if r.pool == nil {
		return model.UserProfile{}, fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(uid) == "" {
		return model.UserProfile{}, profilesvc.ErrValidation
	}

	var raw []byte
	err := r.pool.QueryRow(ctx, `
SELECT document
FROM profile_documents
WHERE uid = $1
LIMIT 1
`, uid).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.UserProfile{}, profilesvc.ErrNotFound
		}
		return model.UserProfile{}, fmt.Errorf("get profile document: %w", err)
	}

	var profile model.UserProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("decode profile document: %w", err)
	}
	return profile, nil
}

// ListExpiredSubscriptions returns uids whose subscription ended before now.
func (r *ProfileDocumentRepo) ListExpiredSubscriptions(ctx context.Context, now time.Time, limit int) ([]string, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 500
	}

	rows, err := r.pool.Query(ctx, `
SELECT uid
FROM profile_documents
WHERE subscribed = TRUE
  AND subscription_until IS NOT NULL
  AND subscription_until < $1
ORDER BY subscription_until ASC
LIMIT $2
`, now.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired subscriptions: %w", err)
	}
	defer rows.Close()

	uids := make([]string, 0)
	for rows.Next() {
		var uid string
		if err := rows.Scan(&uid); err != nil {
			return nil, fmt.Errorf("scan expired subscription: %w", err)
		}
		uids = append(uids, uid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expired subscriptions: %w", err)
	}

	return uids, nil
}

// ClearExpiredSubscription drops the subscribed flag of a document whose period ended,
// leaving updated_at alone so a newer push still lands.
func (r *ProfileDocumentRepo) ClearExpiredSubscription(ctx context.Context, uid string, now time.Time) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(uid) == "" {
		return profilesvc.ErrValidation
	}

	_, err := r.pool.Exec(ctx, `
UPDATE profile_documents
SET subscribed = FALSE,
	document = jsonb_set(document, '{subscribed}', 'false'::jsonb)
WHERE uid = $1
  AND subscribed = TRUE
  AND subscription_until IS NOT NULL
  AND subscription_until < $2
`, uid, now.UTC())
	if err != nil {
		return fmt.Errorf("clear expired subscription: %w", err)
	}
	return nil
}

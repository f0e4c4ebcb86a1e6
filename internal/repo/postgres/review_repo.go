package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

type ReviewRepo struct {
	pool *pgxpool.Pool
}

func NewReviewRepo(pool *pgxpool.Pool) *ReviewRepo {
	return &ReviewRepo{pool: pool}
}

func (r *ReviewRepo) Insert(ctx context.Context, review model.Review) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}
	if strings.TrimSpace(review.ID) == "" || strings.TrimSpace(review.POIID) == "" || strings.TrimSpace(review.UID) == "" {
		return fmt.Errorf("invalid review payload")
	}

	_, err := r.pool.Exec(ctx, `
INSERT INTO poi_reviews (
	id,
	poi_id,
	uid,
	author_name,
	rating,
	text,
	language,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, review.ID, review.POIID, review.UID, review.AuthorName, review.Rating, review.Text, review.Language, review.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

func (r *ReviewRepo) ListByPOI(ctx context.Context, poiID string, limit int) ([]model.Review, error) {
	if r.pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `
SELECT id, poi_id, uid, author_name, rating, text, language, created_at
FROM poi_reviews
WHERE poi_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2
`, poiID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]model.Review, 0, limit)
	for rows.Next() {
		var review model.Review
		if err := rows.Scan(
			&review.ID,
			&review.POIID,
			&review.UID,
			&review.AuthorName,
			&review.Rating,
			&review.Text,
			&review.Language,
			&review.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviews: %w", err)
	}

	return reviews, nil
}

func (r *ReviewRepo) Summary(ctx context.Context, poiID string) (model.ReviewSummary, error) {
	if r.pool == nil {
		return model.ReviewSummary{}, fmt.Errorf("postgres pool is nil")
	}

	summary := model.ReviewSummary{POIID: poiID}
	err := r.pool.QueryRow(ctx, `
SELECT COUNT(*), COALESCE(AVG(rating), 0)::float8
FROM poi_reviews
WHERE poi_id = $1
`, poiID).Scan(&summary.Count, &summary.Average)
	if err != nil {
		return model.ReviewSummary{}, fmt.Errorf("summarize reviews: %w", err)
	}

	return summary, nil
}

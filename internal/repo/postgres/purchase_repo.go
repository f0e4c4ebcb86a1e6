package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
	"github.com/ssmoliagin/weekendguide/internal/domain/model"
)

const (
	PurchaseStatusPending = "pending"
	PurchaseStatusApplied = "applied"
)

var ErrPurchaseNotFound = errors.New("purchase not found")

type PurchaseRepo struct {
	pool *pgxpool.Pool
}

func NewPurchaseRepo(pool *pgxpool.Pool) *PurchaseRepo {
	return &PurchaseRepo{pool: pool}
}

// Claim records the purchase token once. claimed is false when (provider, token)
// was seen before; the stored row is returned in that case.
func (r *PurchaseRepo) Claim(ctx context.Context, purchase model.Purchase) (model.Purchase, bool, error) {
	if r.pool == nil {
		return model.Purchase{}, false, fmt.Errorf("postgres pool is nil")
	}
	token := strings.TrimSpace(purchase.PurchaseToken)
	if strings.TrimSpace(purchase.UID) == "" || token == "" || purchase.Provider == "" || purchase.SKU == "" {
		return model.Purchase{}, false, fmt.Errorf("invalid purchase claim payload")
	}

	var (
		record  model.Purchase
		claimed bool
	)
	err := InTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		inserted, err := scanPurchase(tx.QueryRow(ctx, `
INSERT INTO purchases (
	uid,
	provider,
	sku,
	purchase_token,
	status,
	created_at
) VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (provider, purchase_token) DO NOTHING
RETURNING id, uid, provider, sku, purchase_token, status, created_at
`, purchase.UID, string(purchase.Provider), string(purchase.SKU), token, PurchaseStatusPending))
		if err == nil {
			record = inserted
			claimed = true
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("insert purchase: %w", err)
		}

		existing, err := scanPurchase(tx.QueryRow(ctx, `
SELECT id, uid, provider, sku, purchase_token, status, created_at
FROM purchases
WHERE provider = $1
  AND purchase_token = $2
LIMIT 1
`, string(purchase.Provider), token))
		if err != nil {
			return fmt.Errorf("load existing purchase: %w", err)
		}
		record = existing
		return nil
	})
	if err != nil {
		return model.Purchase{}, false, err
	}

	return record, claimed, nil
}

func (r *PurchaseRepo) MarkApplied(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	tag, err := r.pool.Exec(ctx, `
UPDATE purchases
SET status = $2
WHERE id = $1
`, id, PurchaseStatusApplied)
	if err != nil {
		return fmt.Errorf("mark purchase applied: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPurchaseNotFound
	}
	return nil
}

// Release drops a pending claim so the same token can be confirmed again.
func (r *PurchaseRepo) Release(ctx context.Context, id int64) error {
	if r.pool == nil {
		return fmt.Errorf("postgres pool is nil")
	}

	if _, err := r.pool.Exec(ctx, `
DELETE FROM purchases
WHERE id = $1
  AND status = $2
`, id, PurchaseStatusPending); err != nil {
		return fmt.Errorf("release purchase claim: %w", err)
	}
	return nil
}

func scanPurchase(row pgx.Row) (model.Purchase, error) {
	var (
		record   model.Purchase
		provider string
		sku      string
	)
	if err := row.Scan(
		&record.ID,
		&record.UID,
		&provider,
		&sku,
		&record.PurchaseToken,
		&record.Status,
		&record.CreatedAt,
	); err != nil {
		return model.Purchase{}, err
	}
	record.Provider = enums.PurchaseProvider(provider)
	record.SKU = enums.PurchaseSKU(sku)
	return record, nil
}

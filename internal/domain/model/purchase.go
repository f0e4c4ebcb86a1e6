package model

import (
	"time"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
)

type Purchase struct {
	ID            int64                  `json:"id"`
	UID           string                 `json:"uid"`
	Provider      enums.PurchaseProvider `json:"provider"`
	SKU           enums.PurchaseSKU      `json:"sku"`
	PurchaseToken string                 `json:"purchase_token"`
	Status        string                 `json:"status"`
	CreatedAt     time.Time              `json:"created_at"`
}

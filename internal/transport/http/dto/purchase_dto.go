package dto

import "time"

type BillingConfirmRequest struct {
	Provider      string `json:"provider"`
	SKU           string `json:"sku"`
	PurchaseToken string `json:"purchase_token"`
}

type BillingConfirmResponse struct {
	OK         bool   `json:"ok"`
	PurchaseID int64  `json:"purchase_id"`
	SKU        string `json:"sku"`
	Kind       string `json:"kind"`
	Status     string `json:"status"`
	Idempotent bool   `json:"idempotent"`
	CreditedGP int    `json:"credited_gp"`
	CurrentGP  int    `json:"current_gp"`
	Subscribed bool   `json:"subscribed"`
}

type SubscriptionResponse struct {
	Active bool       `json:"active"`
	Until  *time.Time `json:"until,omitempty"`
}

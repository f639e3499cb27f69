package dto

import "time"

// BillingItem 账单记录
type BillingItem struct {
	ID             int64     `json:"id"`
	SubscriptionID int64     `json:"subscription_id"`
	InvoiceNumber  string    `json:"invoice_number"`
	PlanName       string    `json:"plan_name,omitempty"`
	Amount         string    `json:"amount"`
	Status         string    `json:"status"`
	PaymentMethod  string    `json:"payment_method,omitempty"`
	BilledAt       time.Time `json:"billed_at"`
	Description    string    `json:"description"`
	ReceiptURL     string    `json:"receipt_url,omitempty"`
}

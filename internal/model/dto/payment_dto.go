package dto

// AddPaymentMethodRequest 添加支付方式，card 需要卡号与有效期，upi 需要 UPI ID
type AddPaymentMethodRequest struct {
	Kind        string `json:"kind" binding:"required,oneof=card upi"`
	Brand       string `json:"brand,omitempty" binding:"omitempty,oneof=visa mastercard amex rupay"`
	CardNumber  string `json:"card_number,omitempty"`
	ExpiryMonth int    `json:"expiry_month,omitempty" binding:"omitempty,min=1,max=12"`
	ExpiryYear  int    `json:"expiry_year,omitempty"`
	UPIID       string `json:"upi_id,omitempty" binding:"omitempty,max=100"`
	IsDefault   bool   `json:"is_default"`
}

// PaymentMethodItem 支付方式
type PaymentMethodItem struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Brand       string `json:"brand"`
	Masked      string `json:"masked"`
	Display     string `json:"display"`
	ExpiryMonth *int   `json:"expiry_month,omitempty"`
	ExpiryYear  *int   `json:"expiry_year,omitempty"`
	IsDefault   bool   `json:"is_default"`
	Expired     bool   `json:"expired"`
}

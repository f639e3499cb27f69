// Package pricing 折扣计算，无副作用
package pricing

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/qs3c/sub_go_server/internal/model"
)

// Reason 折扣拒绝原因，按优先级排列
type Reason string

const (
	InvalidCode   Reason = "invalid_code"
	NotYetValid   Reason = "not_yet_valid"
	Expired       Reason = "expired"
	LimitExceeded Reason = "limit_exceeded"
	MinimumNotMet Reason = "minimum_not_met"
)

var reasonMessages = map[Reason]string{
	InvalidCode:   "Invalid discount code",
	NotYetValid:   "Discount code is not yet valid",
	Expired:       "Discount code has expired",
	LimitExceeded: "Discount code usage limit exceeded",
	MinimumNotMet: "Plan price does not meet the discount minimum",
}

// Rejection 折扣被拒绝，不影响按原价下单
type Rejection struct {
	Reason  Reason `json:"reason"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (r *Rejection) Error() string {
	return r.Message
}

func reject(reason Reason, code string, detail string) *Rejection {
	msg := reasonMessages[reason]
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return &Rejection{Reason: reason, Code: code, Message: msg}
}

// NewRejection 构造指定原因的拒绝
func NewRejection(reason Reason, code string) *Rejection {
	return reject(reason, code, "")
}

// Result 折扣计算结果，UsedCount 不变
type Result struct {
	DiscountID int64           `json:"discount_id"`
	Code       string          `json:"code"`
	Amount     decimal.Decimal `json:"amount"`
	FinalPrice decimal.Decimal `json:"final_price"`
}

// NormalizeCode 折扣码大小写不敏感，统一转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Evaluate 校验折扣并计算优惠金额，d 为 nil 表示折扣码不存在
func Evaluate(d *model.Discount, price decimal.Decimal, now time.Time) (*Result, *Rejection) {
	if d == nil {
		return nil, reject(InvalidCode, "", "")
	}
	if !d.Active {
		return nil, reject(InvalidCode, d.Code, "")
	}
	if now.Before(d.ValidFrom) {
		return nil, reject(NotYetValid, d.Code, "valid from "+d.ValidFrom.Format("2006-01-02"))
	}
	if now.After(d.ValidUntil) {
		return nil, reject(Expired, d.Code, "")
	}
	if d.UsageLimit != nil && d.UsedCount >= *d.UsageLimit {
		return nil, reject(LimitExceeded, d.Code, "")
	}
	if price.LessThan(d.MinAmount) {
		return nil, reject(MinimumNotMet, d.Code, "minimum "+d.MinAmount.StringFixed(2))
	}

	amount := Amount(d, price)
	return &Result{
		DiscountID: d.ID,
		Code:       d.Code,
		Amount:     amount,
		FinalPrice: FinalAmount(price, amount),
	}, nil
}

// Amount 计算优惠金额，结果落在 [0, price]
func Amount(d *model.Discount, price decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch d.DiscountType {
	case model.DiscountPercentage:
		amount = price.Mul(d.DiscountValue).Div(decimal.NewFromInt(100)).Round(2)
		if d.MaxDiscount.Valid && amount.GreaterThan(d.MaxDiscount.Decimal) {
			amount = d.MaxDiscount.Decimal
		}
	case model.DiscountFixed:
		amount = decimal.Min(d.DiscountValue, price)
	}

	if amount.IsNegative() {
		return decimal.Zero
	}
	if amount.GreaterThan(price) {
		return price
	}
	return amount
}

// FinalAmount 实付金额 max(0, price - discount)
func FinalAmount(price, discount decimal.Decimal) decimal.Decimal {
	final := price.Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

package dto

import "time"

// MonthCount 按月统计
type MonthCount struct {
	Month string `json:"month"` // YYYY-MM
	Count int    `json:"count"`
}

// ChurnStats 流失率 = 已取消 / 总数
type ChurnStats struct {
	Total     int64   `json:"total"`
	Cancelled int64   `json:"cancelled"`
	Rate      float64 `json:"rate"`
}

// AmountByKey 按套餐或月份汇总的金额
type AmountByKey struct {
	Key    string `json:"key"`
	Amount string `json:"amount"`
}

// RevenueReport 收入统计。Total 为实际已支付金额之和，
// ListPriceRevenue 为订阅套餐标价之和（未扣除折扣，包含已取消订阅）。
type RevenueReport struct {
	Total            string        `json:"total"`
	ByPlan           []AmountByKey `json:"by_plan"`
	ByMonth          []AmountByKey `json:"by_month"`
	ListPriceRevenue string        `json:"list_price_revenue"`
}

// DurationBucket 订阅时长分布
type DurationBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// AuditItem 审计日志
type AuditItem struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	CreatedAt time.Time `json:"created_at"`
}

// Dashboard 管理端首页
type Dashboard struct {
	TotalUsers          int64       `json:"total_users"`
	ActivePlans         int64       `json:"active_plans"`
	ActiveDiscounts     int64       `json:"active_discounts"`
	TotalSubscriptions  int64       `json:"total_subscriptions"`
	ActiveSubscriptions int64       `json:"active_subscriptions"`
	PaidRevenue         string      `json:"paid_revenue"`
	RecentActivity      []AuditItem `json:"recent_activity"`
	PlanCounts          []PlanCount `json:"plan_counts"`
	ReceiptQueueDepth   int64       `json:"receipt_queue_depth"`
}

// PlanCount 每个套餐的订阅数
type PlanCount struct {
	PlanID   int64  `json:"plan_id"`
	PlanName string `json:"plan_name"`
	Count    int64  `json:"count"`
}

// StatusCount 每种状态的订阅数
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// SnapshotPoint 快照时间序列的一个点
type SnapshotPoint struct {
	Date   string `json:"date"`
	PlanID *int64 `json:"plan_id,omitempty"`
	Value  string `json:"value"`
}

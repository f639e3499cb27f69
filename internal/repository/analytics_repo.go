package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/sub_go_server/internal/model"
)

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

// SubscriptionRow 分析用的订阅明细
type SubscriptionRow struct {
	ID        int64
	PlanID    int64
	PlanName  string
	PlanPrice decimal.Decimal
	Status    string
	StartDate time.Time
	EndDate   time.Time
}

// PaidBillingRow 已支付账单明细
type PaidBillingRow struct {
	Amount   decimal.Decimal
	BilledAt time.Time
	PlanID   int64
	PlanName string
}

type AnalyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

func (r *AnalyticsRepository) CountByPlan() ([]PlanCount, error) {
	var rows []PlanCount
	err := r.db.Table("subscriptions AS s").
		Select("p.id AS plan_id, p.name AS plan_name, COUNT(s.id) AS count").
		Joins("JOIN plans AS p ON p.id = s.plan_id").
		Group("p.id, p.name").
		Order("count DESC, p.id ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) CountByStatus() ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.Model(&model.Subscription{}).
		Select("status, COUNT(id) AS count").
		Group("status").
		Order("status ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) ListSubscriptions() ([]SubscriptionRow, error) {
	var rows []SubscriptionRow
	err := r.db.Table("subscriptions AS s").
		Select("s.id, s.plan_id, p.name AS plan_name, p.price AS plan_price, s.status, s.start_date, s.end_date").
		Joins("JOIN plans AS p ON p.id = s.plan_id").
		Order("s.start_date ASC").
		Scan(&rows).Error
	return rows, err
}

// ListPaidBillings 已支付账单，from 为零值时不限起始时间
func (r *AnalyticsRepository) ListPaidBillings(from time.Time) ([]PaidBillingRow, error) {
	var rows []PaidBillingRow
	q := r.db.Table("billing_records AS b").
		Select("b.amount, b.billed_at, p.id AS plan_id, p.name AS plan_name").
		Joins("JOIN subscriptions AS s ON s.id = b.subscription_id").
		Joins("JOIN plans AS p ON p.id = s.plan_id").
		Where("b.status = ?", model.BillingPaid)
	if !from.IsZero() {
		q = q.Where("b.billed_at >= ?", from)
	}
	err := q.Order("b.billed_at ASC").Scan(&rows).Error
	return rows, err
}

func (r *AnalyticsRepository) SaveSnapshots(snapshots []model.AnalyticsSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	return r.db.Create(&snapshots).Error
}

// DeleteSnapshots 删除某天的快照，保证重复执行幂等
func (r *AnalyticsRepository) DeleteSnapshots(day time.Time) error {
	return r.db.Where("metric_date >= ? AND metric_date < ?", day, day.AddDate(0, 0, 1)).
		Delete(&model.AnalyticsSnapshot{}).Error
}

func (r *AnalyticsRepository) ListSnapshots(metric string, from, to time.Time) ([]model.AnalyticsSnapshot, error) {
	var snapshots []model.AnalyticsSnapshot
	err := r.db.Where("metric_name = ? AND metric_date >= ? AND metric_date <= ?", metric, from, to).
		Order("metric_date ASC").
		Find(&snapshots).Error
	return snapshots, err
}

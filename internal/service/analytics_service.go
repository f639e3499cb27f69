package service

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/repository"
)

const recentActivityLimit = 20

// 订阅时长分档（天）
var durationBuckets = []struct {
	label string
	upTo  int // 不含
}{
	{"<1 month", 30},
	{"1-3 months", 90},
	{"3-6 months", 180},
	{"6-12 months", 365},
	{"12+ months", -1},
}

// AnalyticsService 只读统计，空库时返回零值
type AnalyticsService struct {
	store         *repository.Store
	analyticsRepo *repository.AnalyticsRepository
	userRepo      *repository.UserRepository
	planRepo      *repository.PlanRepository
	discountRepo  *repository.DiscountRepository
	subRepo       *repository.SubscriptionRepository
	auditRepo     *repository.AuditRepository
	receipts      QueueInspector
	now           func() time.Time
}

func NewAnalyticsService(
	store *repository.Store,
	analyticsRepo *repository.AnalyticsRepository,
	userRepo *repository.UserRepository,
	planRepo *repository.PlanRepository,
	discountRepo *repository.DiscountRepository,
	subRepo *repository.SubscriptionRepository,
	auditRepo *repository.AuditRepository,
	receipts QueueInspector,
) *AnalyticsService {
	return &AnalyticsService{
		store:         store,
		analyticsRepo: analyticsRepo,
		userRepo:      userRepo,
		planRepo:      planRepo,
		discountRepo:  discountRepo,
		subRepo:       subRepo,
		auditRepo:     auditRepo,
		receipts:      receipts,
		now:           time.Now,
	}
}

// PlanCounts 各套餐订阅数
func (s *AnalyticsService) PlanCounts() ([]dto.PlanCount, error) {
	rows, err := s.analyticsRepo.CountByPlan()
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r repository.PlanCount, _ int) dto.PlanCount {
		return dto.PlanCount{PlanID: r.PlanID, PlanName: r.PlanName, Count: r.Count}
	}), nil
}

// MonthlyStarts 按开始月份统计新订阅，月份升序
func (s *AnalyticsService) MonthlyStarts() ([]dto.MonthCount, error) {
	rows, err := s.analyticsRepo.ListSubscriptions()
	if err != nil {
		return nil, err
	}

	byMonth := lo.GroupBy(rows, func(r repository.SubscriptionRow) string {
		return monthKey(r.StartDate)
	})
	months := lo.Keys(byMonth)
	sort.Strings(months)

	return lo.Map(months, func(m string, _ int) dto.MonthCount {
		return dto.MonthCount{Month: m, Count: len(byMonth[m])}
	}), nil
}

// StatusCounts 各状态订阅数
func (s *AnalyticsService) StatusCounts() ([]dto.StatusCount, error) {
	rows, err := s.analyticsRepo.CountByStatus()
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r repository.StatusCount, _ int) dto.StatusCount {
		return dto.StatusCount{Status: r.Status, Count: r.Count}
	}), nil
}

// Churn 流失率，无订阅时为 0
func (s *AnalyticsService) Churn() (*dto.ChurnStats, error) {
	rows, err := s.analyticsRepo.CountByStatus()
	if err != nil {
		return nil, err
	}

	stats := &dto.ChurnStats{}
	for _, r := range rows {
		stats.Total += r.Count
		if r.Status == model.SubscriptionCancelled {
			stats.Cancelled += r.Count
		}
	}
	if stats.Total > 0 {
		stats.Rate = float64(stats.Cancelled) / float64(stats.Total)
	}
	return stats, nil
}

// Revenue 已支付账单金额，按套餐与月份汇总；同时给出标价口径的总额
func (s *AnalyticsService) Revenue() (*dto.RevenueReport, error) {
	billings, err := s.analyticsRepo.ListPaidBillings(time.Time{})
	if err != nil {
		return nil, err
	}
	subs, err := s.analyticsRepo.ListSubscriptions()
	if err != nil {
		return nil, err
	}

	report := &dto.RevenueReport{
		Total:   money(sumBillings(billings)),
		ByPlan:  sumBy(billings, func(r repository.PaidBillingRow) string { return r.PlanName }),
		ByMonth: sumBy(billings, func(r repository.PaidBillingRow) string { return monthKey(r.BilledAt) }),
	}

	listPrice := lo.Reduce(subs, func(acc decimal.Decimal, r repository.SubscriptionRow, _ int) decimal.Decimal {
		return acc.Add(r.PlanPrice)
	}, decimal.Zero)
	report.ListPriceRevenue = money(listPrice)

	return report, nil
}

// DurationBuckets 订阅时长分布，已取消按结束时间计算，有效订阅按当前时间计算
func (s *AnalyticsService) DurationBuckets() ([]dto.DurationBucket, error) {
	rows, err := s.analyticsRepo.ListSubscriptions()
	if err != nil {
		return nil, err
	}

	now := s.now()
	counts := make([]int, len(durationBuckets))
	for _, r := range rows {
		end := lo.Ternary(r.Status == model.SubscriptionCancelled, r.EndDate, now)
		days := int(end.Sub(r.StartDate).Hours() / 24)
		counts[bucketIndex(days)]++
	}

	buckets := make([]dto.DurationBucket, len(durationBuckets))
	for i, b := range durationBuckets {
		buckets[i] = dto.DurationBucket{Label: b.label, Count: counts[i]}
	}
	return buckets, nil
}

func bucketIndex(days int) int {
	for i, b := range durationBuckets {
		if b.upTo < 0 || days < b.upTo {
			return i
		}
	}
	return len(durationBuckets) - 1
}

// Dashboard 管理端汇总，回执队列不可用时积压数记为 0
func (s *AnalyticsService) Dashboard(ctx context.Context) (*dto.Dashboard, error) {
	d := &dto.Dashboard{}
	var err error

	if d.TotalUsers, err = s.userRepo.Count(); err != nil {
		return nil, err
	}
	if d.ActivePlans, err = s.planRepo.CountActive(); err != nil {
		return nil, err
	}
	if d.ActiveDiscounts, err = s.discountRepo.CountActive(); err != nil {
		return nil, err
	}
	if d.ActiveSubscriptions, err = s.subRepo.CountByStatus(model.SubscriptionActive); err != nil {
		return nil, err
	}
	cancelled, err := s.subRepo.CountByStatus(model.SubscriptionCancelled)
	if err != nil {
		return nil, err
	}
	d.TotalSubscriptions = d.ActiveSubscriptions + cancelled

	billings, err := s.analyticsRepo.ListPaidBillings(time.Time{})
	if err != nil {
		return nil, err
	}
	d.PaidRevenue = money(sumBillings(billings))

	if d.PlanCounts, err = s.PlanCounts(); err != nil {
		return nil, err
	}

	logs, err := s.auditRepo.ListRecent(recentActivityLimit)
	if err != nil {
		return nil, err
	}
	d.RecentActivity = lo.Map(logs, func(l model.AuditLog, _ int) dto.AuditItem {
		return dto.AuditItem{Actor: l.Actor, Action: l.Action, CreatedAt: l.CreatedAt}
	})

	if s.receipts != nil {
		depth, err := s.receipts.Length(ctx)
		if err != nil {
			log.WithError(err).Warn("analytics: failed to read receipt queue length")
		} else {
			d.ReceiptQueueDepth = depth
		}
	}

	return d, nil
}

// Snapshot 写入某天（UTC）的指标快照，重复执行覆盖当天数据
func (s *AnalyticsService) Snapshot(ctx context.Context, day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	err := s.store.Transaction(ctx, func(r *repository.Repos) error {
		subs, err := r.Analytics.ListSubscriptions()
		if err != nil {
			return err
		}
		billings, err := r.Analytics.ListPaidBillings(start)
		if err != nil {
			return err
		}

		var snapshots []model.AnalyticsSnapshot

		active := lo.Filter(subs, func(row repository.SubscriptionRow, _ int) bool {
			return row.Status == model.SubscriptionActive && row.StartDate.Before(end)
		})
		perPlan := lo.GroupBy(active, func(row repository.SubscriptionRow) int64 { return row.PlanID })
		planIDs := lo.Keys(perPlan)
		sort.Slice(planIDs, func(i, j int) bool { return planIDs[i] < planIDs[j] })
		for _, id := range planIDs {
			snapshots = append(snapshots, model.AnalyticsSnapshot{
				MetricName:  model.MetricActiveSubscriptions,
				MetricValue: decimal.NewFromInt(int64(len(perPlan[id]))),
				MetricDate:  start,
				PlanID:      lo.ToPtr(id),
			})
		}

		started := lo.CountBy(subs, func(row repository.SubscriptionRow) bool {
			return !row.StartDate.Before(start) && row.StartDate.Before(end)
		})
		snapshots = append(snapshots, model.AnalyticsSnapshot{
			MetricName:  model.MetricNewSubscriptions,
			MetricValue: decimal.NewFromInt(int64(started)),
			MetricDate:  start,
		})

		dayBillings := lo.Filter(billings, func(row repository.PaidBillingRow, _ int) bool {
			return row.BilledAt.Before(end)
		})
		snapshots = append(snapshots, model.AnalyticsSnapshot{
			MetricName:  model.MetricRevenue,
			MetricValue: sumBillings(dayBillings),
			MetricDate:  start,
		})

		if err := r.Analytics.DeleteSnapshots(start); err != nil {
			return err
		}
		return r.Analytics.SaveSnapshots(snapshots)
	})
	if err != nil {
		return err
	}

	log.WithField("day", start.Format("2006-01-02")).Info("analytics: snapshot written")
	return nil
}

// Snapshots 查询某指标的快照序列
func (s *AnalyticsService) Snapshots(metric string, from, to time.Time) ([]dto.SnapshotPoint, error) {
	rows, err := s.analyticsRepo.ListSnapshots(metric, from, to)
	if err != nil {
		return nil, err
	}
	return lo.Map(rows, func(r model.AnalyticsSnapshot, _ int) dto.SnapshotPoint {
		return dto.SnapshotPoint{
			Date:   r.MetricDate.UTC().Format("2006-01-02"),
			PlanID: r.PlanID,
			Value:  money(r.MetricValue),
		}
	}), nil
}

func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func sumBillings(rows []repository.PaidBillingRow) decimal.Decimal {
	return lo.Reduce(rows, func(acc decimal.Decimal, r repository.PaidBillingRow, _ int) decimal.Decimal {
		return acc.Add(r.Amount)
	}, decimal.Zero)
}

// sumBy 按 key 汇总金额，key 升序
func sumBy(rows []repository.PaidBillingRow, key func(repository.PaidBillingRow) string) []dto.AmountByKey {
	groups := lo.GroupBy(rows, key)
	keys := lo.Keys(groups)
	sort.Strings(keys)

	return lo.Map(keys, func(k string, _ int) dto.AmountByKey {
		return dto.AmountByKey{Key: k, Amount: money(sumBillings(groups[k]))}
	})
}

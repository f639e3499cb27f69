package service

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/model/dto"
	"github.com/qs3c/sub_go_server/internal/repository"
)

const popularLimit = 3

type RecommendationService struct {
	plans         *PlanService
	discounts     *DiscountService
	subRepo       *repository.SubscriptionRepository
	discountRepo  *repository.DiscountRepository
	analyticsRepo *repository.AnalyticsRepository
	cfg           *config.Config
	now           func() time.Time
}

func NewRecommendationService(
	plans *PlanService,
	discounts *DiscountService,
	subRepo *repository.SubscriptionRepository,
	discountRepo *repository.DiscountRepository,
	analyticsRepo *repository.AnalyticsRepository,
	cfg *config.Config,
) *RecommendationService {
	return &RecommendationService{
		plans:         plans,
		discounts:     discounts,
		subRepo:       subRepo,
		discountRepo:  discountRepo,
		analyticsRepo: analyticsRepo,
		cfg:           cfg,
		now:           time.Now,
	}
}

// currentPlan 用户有效订阅中最贵的套餐
func (s *RecommendationService) currentPlan(userID int64) (*model.Plan, error) {
	subs, err := s.subRepo.ListActiveByUser(userID)
	if err != nil {
		return nil, err
	}

	var current *model.Plan
	for i := range subs {
		p := subs[i].Plan
		if p != nil && (current == nil || p.Price.GreaterThan(current.Price)) {
			current = p
		}
	}
	return current, nil
}

// Recommendations 有订阅时推荐相邻的升级与降级套餐，否则推荐最受欢迎的套餐
func (s *RecommendationService) Recommendations(actor Actor) (*dto.RecommendationsResponse, error) {
	current, err := s.currentPlan(actor.UserID)
	if err != nil {
		return nil, err
	}

	plans, err := s.plans.ListActive()
	if err != nil {
		return nil, err
	}

	resp := &dto.RecommendationsResponse{Recommendations: []dto.Recommendation{}}
	if current != nil {
		item := buildPlanItem(current)
		resp.CurrentPlan = &item
		resp.Recommendations = s.neighbours(current, plans)
	} else {
		resp.Recommendations, err = s.popular(plans)
		if err != nil {
			return nil, err
		}
	}

	if resp.Offers, err = s.discounts.Offers(); err != nil {
		return nil, err
	}
	return resp, nil
}

// neighbours plans 已按价格升序
func (s *RecommendationService) neighbours(current *model.Plan, plans []model.Plan) []dto.Recommendation {
	var recs []dto.Recommendation

	if up, ok := lo.Find(plans, func(p model.Plan) bool {
		return p.ID != current.ID && p.Price.GreaterThan(current.Price)
	}); ok {
		recs = append(recs, dto.Recommendation{
			Plan:   buildPlanItem(&up),
			Type:   DirectionUpgrade,
			Reason: "Get more with " + up.Name,
		})
	}

	cheaper := lo.Filter(plans, func(p model.Plan, _ int) bool {
		return p.ID != current.ID && p.Price.LessThan(current.Price)
	})
	if len(cheaper) > 0 {
		down := cheaper[len(cheaper)-1]
		savings := money(current.Price.Sub(down.Price))
		recs = append(recs, dto.Recommendation{
			Plan:    buildPlanItem(&down),
			Type:    DirectionDowngrade,
			Reason:  "Save money with " + down.Name,
			Savings: &savings,
		})
	}

	if recs == nil {
		return []dto.Recommendation{}
	}
	return recs
}

func (s *RecommendationService) popular(plans []model.Plan) ([]dto.Recommendation, error) {
	counts, err := s.analyticsRepo.CountByPlan()
	if err != nil {
		return nil, err
	}

	byID := lo.KeyBy(plans, func(p model.Plan) int64 { return p.ID })
	recs := []dto.Recommendation{}
	for _, c := range counts {
		p, ok := byID[c.PlanID]
		if !ok {
			continue
		}
		recs = append(recs, dto.Recommendation{
			Plan:   buildPlanItem(&p),
			Type:   "popular",
			Reason: fmt.Sprintf("Most popular choice (%d subscribers)", c.Count),
		})
		if len(recs) == popularLimit {
			break
		}
	}
	return recs, nil
}

// Notifications 即将到期的订阅与最近一天新增的折扣
func (s *RecommendationService) Notifications(actor Actor) ([]dto.Notification, error) {
	now := s.now()
	days := s.cfg.Billing.ExpiryNoticeDays
	if days <= 0 {
		days = 7
	}

	expiring, err := s.subRepo.ListExpiring(actor.UserID, now, now.AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}

	notifications := []dto.Notification{}
	for i := range expiring {
		sub := expiring[i]
		left := int(math.Ceil(sub.EndDate.Sub(now).Hours() / 24))
		notifications = append(notifications, dto.Notification{
			Type:           "warning",
			Title:          "Subscription Expiring Soon",
			Message:        fmt.Sprintf("Your %s subscription expires in %d days", planName(&sub), left),
			Action:         "renew",
			SubscriptionID: lo.ToPtr(sub.ID),
		})
	}

	fresh, err := s.discountRepo.ListCreatedSince(now.Add(-24 * time.Hour))
	if err != nil {
		return nil, err
	}
	for _, d := range fresh {
		if now.After(d.ValidUntil) {
			continue
		}
		notifications = append(notifications, dto.Notification{
			Type:    "info",
			Title:   "New Discount Available",
			Message: fmt.Sprintf("%s: %s", d.Name, d.Code),
			Action:  "view",
		})
	}

	return notifications, nil
}

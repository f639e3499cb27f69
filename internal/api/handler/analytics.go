package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/internal/model"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/seed"
	"github.com/qs3c/sub_go_server/internal/service"
)

const dateLayout = "2006-01-02"

// Seeder 演示数据写入
type Seeder interface {
	Run(ctx context.Context, opts seed.Options) (*seed.Summary, error)
}

type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	seeder           Seeder
}

func NewAnalyticsHandler(analyticsService *service.AnalyticsService, seeder Seeder) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		seeder:           seeder,
	}
}

// Dashboard 管理后台概览
// GET /api/v1/admin/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	resp, err := h.analyticsService.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Plans 各套餐订阅数
// GET /api/v1/admin/analytics/plans
func (h *AnalyticsHandler) Plans(c *gin.Context) {
	resp, err := h.analyticsService.PlanCounts()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Trends 按月新增订阅
// GET /api/v1/admin/analytics/trends
func (h *AnalyticsHandler) Trends(c *gin.Context) {
	resp, err := h.analyticsService.MonthlyStarts()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Status 订阅状态分布
// GET /api/v1/admin/analytics/status
func (h *AnalyticsHandler) Status(c *gin.Context) {
	resp, err := h.analyticsService.StatusCounts()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Revenue 收入统计
// GET /api/v1/admin/analytics/revenue
func (h *AnalyticsHandler) Revenue(c *gin.Context) {
	resp, err := h.analyticsService.Revenue()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Duration 订阅时长分布
// GET /api/v1/admin/analytics/duration
func (h *AnalyticsHandler) Duration(c *gin.Context) {
	resp, err := h.analyticsService.DurationBuckets()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Churn 流失率
// GET /api/v1/admin/analytics/churn
func (h *AnalyticsHandler) Churn(c *gin.Context) {
	resp, err := h.analyticsService.Churn()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// Snapshots 每日快照序列，默认最近 30 天
// GET /api/v1/admin/analytics/snapshots?metric=revenue&from=2026-01-01&to=2026-01-31
func (h *AnalyticsHandler) Snapshots(c *gin.Context) {
	metric := c.DefaultQuery("metric", model.MetricActiveSubscriptions)
	switch metric {
	case model.MetricActiveSubscriptions, model.MetricRevenue, model.MetricNewSubscriptions:
	default:
		response.ParamError(c, "unknown metric: "+metric)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(dateLayout, v); err != nil {
			response.ParamError(c, "from must be YYYY-MM-DD")
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(dateLayout, v); err != nil {
			response.ParamError(c, "to must be YYYY-MM-DD")
			return
		}
	}
	if to.Before(from) {
		response.ParamError(c, "to must not be before from")
		return
	}

	points, err := h.analyticsService.Snapshots(metric, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, points)
}

type seedRequest struct {
	Analytics *bool `json:"analytics,omitempty"`
	Months    int   `json:"months,omitempty" binding:"omitempty,min=1,max=36"`
}

// Seed 写入演示数据，默认包含 12 个月的模拟订阅
// POST /api/v1/admin/analytics/seed
func (h *AnalyticsHandler) Seed(c *gin.Context) {
	var req seedRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}

	opts := seed.Options{Analytics: true, Months: req.Months}
	if req.Analytics != nil {
		opts.Analytics = *req.Analytics
	}

	summary, err := h.seeder.Run(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithMessage(c, "demo data seeded", summary)
}

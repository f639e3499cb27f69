package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/sub_go_server/config"
	"github.com/qs3c/sub_go_server/internal/api/handler"
	"github.com/qs3c/sub_go_server/internal/api/middleware"
	"github.com/qs3c/sub_go_server/internal/pkg/ratelimit"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Auth          *handler.AuthHandler
	User          *handler.UserHandler
	Plan          *handler.PlanHandler
	Discount      *handler.DiscountHandler
	Subscription  *handler.SubscriptionHandler
	PaymentMethod *handler.PaymentMethodHandler
	Chat          *handler.ChatHandler
	Analytics     *handler.AnalyticsHandler
	WebSocket     *handler.WebSocketHandler
}

type Router struct {
	h       Handlers
	limiter ratelimit.Limiter
	cfg     *config.Config
}

func NewRouter(h Handlers, limiter ratelimit.Limiter, cfg *config.Config) *Router {
	return &Router{
		h:       h,
		limiter: limiter,
		cfg:     cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	secret := r.cfg.JWT.Secret

	api := engine.Group("/api/v1")
	{
		// WebSocket，令牌在 query 中
		api.GET("/ws", r.h.WebSocket.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.h.Auth.Register)
			auth.POST("/login", r.h.Auth.Login)
		}

		// 公开接口 - 套餐
		api.GET("/plans", middleware.OptionalAuth(secret), r.h.Plan.ListActive)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(secret))
		{
			discounts := authenticated.Group("/discounts")
			{
				discounts.POST("/preview", r.h.Discount.Preview)
				discounts.GET("/offers", r.h.Discount.Offers)
			}

			subs := authenticated.Group("/subscriptions")
			{
				subs.GET("", r.h.Subscription.List)
				subs.POST("", r.h.Subscription.Charge)
				subs.POST("/:id/cancel", r.h.Subscription.Cancel)
				subs.POST("/:id/renew", r.h.Subscription.Renew)
				subs.POST("/:id/change-plan", r.h.Subscription.ChangePlan)
				subs.POST("/:id/upgrade", r.h.Subscription.Upgrade)
				subs.POST("/:id/downgrade", r.h.Subscription.Downgrade)
			}

			authenticated.GET("/billing", r.h.Subscription.BillingHistory)

			pms := authenticated.Group("/payment-methods")
			{
				pms.GET("", r.h.PaymentMethod.List)
				pms.POST("", r.h.PaymentMethod.Add)
				pms.PUT("/:id/default", r.h.PaymentMethod.SetDefault)
				pms.DELETE("/:id", r.h.PaymentMethod.Delete)
			}

			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.h.User.GetProfile)
				user.PUT("/account", r.h.User.UpdateAccount)
				user.GET("/recommendations", r.h.User.Recommendations)
				user.GET("/notifications", r.h.User.Notifications)
			}

			chats := authenticated.Group("/chats")
			{
				chats.GET("", r.h.Chat.List)
				chats.POST("", r.h.Chat.Create)
				chats.GET("/:id/messages", r.h.Chat.Messages)
				chats.POST("/:id/messages", r.h.Chat.AddMessage)
			}

			authenticated.POST("/chatbot",
				middleware.RateLimit(r.limiter, "chatbot", r.cfg.Chatbot.RateLimitPerMinute),
				r.h.Chat.Reply)
		}

		// 管理接口
		admin := api.Group("/admin")
		admin.Use(middleware.Auth(secret), middleware.RequireAdmin())
		{
			plans := admin.Group("/plans")
			{
				plans.GET("", r.h.Plan.ListAll)
				plans.POST("", r.h.Plan.Create)
				plans.PUT("/:id", r.h.Plan.Update)
				plans.POST("/:id/deactivate", r.h.Plan.Deactivate)
			}

			discounts := admin.Group("/discounts")
			{
				discounts.GET("", r.h.Discount.List)
				discounts.POST("", r.h.Discount.Create)
				discounts.PUT("/:id", r.h.Discount.Update)
				discounts.POST("/:id/toggle", r.h.Discount.Toggle)
				discounts.GET("/:id/usages", r.h.Discount.Usages)
			}

			analytics := admin.Group("/analytics")
			{
				analytics.GET("/dashboard", r.h.Analytics.Dashboard)
				analytics.GET("/plans", r.h.Analytics.Plans)
				analytics.GET("/trends", r.h.Analytics.Trends)
				analytics.GET("/status", r.h.Analytics.Status)
				analytics.GET("/revenue", r.h.Analytics.Revenue)
				analytics.GET("/duration", r.h.Analytics.Duration)
				analytics.GET("/churn", r.h.Analytics.Churn)
				analytics.GET("/snapshots", r.h.Analytics.Snapshots)
				analytics.POST("/seed", r.h.Analytics.Seed)
			}
		}
	}

	return engine
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/qs3c/sub_go_server/internal/api/middleware"
	"github.com/qs3c/sub_go_server/internal/pkg/response"
	"github.com/qs3c/sub_go_server/internal/pricing"
	"github.com/qs3c/sub_go_server/internal/service"
)

var (
	paramErrors = []error{
		service.ErrPlanInactive,
		service.ErrSamePlan,
		service.ErrDirectionMismatch,
		service.ErrInvalidTransition,
		service.ErrNoPaymentMethod,
		service.ErrInvalidPaymentMethod,
		service.ErrInvalidPaymentDetails,
		service.ErrUsernameExists,
		service.ErrEmailExists,
		service.ErrInvalidAmount,
		service.ErrInvalidValidity,
		service.ErrInvalidMessage,
	}
	notFoundErrors = []error{
		service.ErrUserNotFound,
		service.ErrPlanNotFound,
		service.ErrSubscriptionNotFound,
		service.ErrPaymentMethodNotFound,
		service.ErrDiscountNotFound,
		service.ErrChatNotFound,
	}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// respondError 将服务层错误映射为业务码，未知错误记录日志后返回通用消息
func respondError(c *gin.Context, err error) {
	var rejection *pricing.Rejection
	switch {
	case errors.As(err, &rejection):
		response.DiscountError(c, rejection.Message, rejection)
	case errors.Is(err, service.ErrForbidden):
		response.PermissionError(c, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.AuthError(c, err.Error())
	case errors.Is(err, service.ErrDiscountCodeExists):
		response.DuplicateError(c, err.Error())
	case isAny(err, notFoundErrors):
		response.NotFoundError(c, err.Error())
	case isAny(err, paramErrors):
		response.ParamError(c, err.Error())
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("api: request failed")
		response.ServerError(c, "")
	}
}

// currentActor 取当前调用者，未认证时直接写回响应
func currentActor(c *gin.Context) (service.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		response.AuthError(c, "")
	}
	return actor, ok
}

// pathID 解析路径参数 :id
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "invalid id")
		return 0, false
	}
	return id, true
}

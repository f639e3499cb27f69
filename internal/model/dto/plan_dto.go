package dto

// PlanItem 套餐
type PlanItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	QuotaGB     int    `json:"quota_gb"`
	Quota       string `json:"quota"` // "100GB" / "Unlimited"
	Price       string `json:"price"`
	Active      bool   `json:"active"`
}

// CreatePlanRequest 创建套餐
type CreatePlanRequest struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description,omitempty" binding:"omitempty,max=2000"`
	QuotaGB     int    `json:"quota_gb" binding:"min=0"`
	Price       string `json:"price" binding:"required"`
}

// UpdatePlanRequest 更新套餐，字段为空表示不修改
type UpdatePlanRequest struct {
	Name        *string `json:"name,omitempty" binding:"omitempty,max=100"`
	Description *string `json:"description,omitempty" binding:"omitempty,max=2000"`
	QuotaGB     *int    `json:"quota_gb,omitempty" binding:"omitempty,min=0"`
	Price       *string `json:"price,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

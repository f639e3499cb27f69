package dto

// Recommendation 套餐推荐
type Recommendation struct {
	Plan    PlanItem `json:"plan"`
	Type    string   `json:"type"` // upgrade, downgrade, popular
	Reason  string   `json:"reason"`
	Savings *string  `json:"savings,omitempty"`
}

// RecommendationsResponse 推荐结果
type RecommendationsResponse struct {
	CurrentPlan     *PlanItem        `json:"current_plan"`
	Recommendations []Recommendation `json:"recommendations"`
	Offers          []DiscountItem   `json:"offers"`
}

// Notification 站内提醒
type Notification struct {
	Type    string `json:"type"` // warning, info
	Title   string `json:"title"`
	Message string `json:"message"`
	Action  string `json:"action"` // renew, view
	// 订阅到期提醒对应的订阅
	SubscriptionID *int64 `json:"subscription_id,omitempty"`
}

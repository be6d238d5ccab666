package dto

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 注册 / 登录响应
type AuthResponse struct {
	Token string    `json:"token"`
	User  *UserInfo `json:"user"`
}

// UserInfo 用户信息（返回给前端）
type UserInfo struct {
	ID                    int64      `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Tier                  string     `json:"tier"`
	SubscriptionStatus    string     `json:"subscriptionStatus"`
	SubscriptionExpiresAt string     `json:"subscriptionExpiresAt,omitempty"`
	Usage                 *UsageInfo `json:"usage,omitempty"`
	CreatedAt             string     `json:"createdAt,omitempty"`
}

// UsageInfo 今日用量
type UsageInfo struct {
	Tier         string `json:"tier"`
	CurrentUsage int    `json:"currentUsage"`
	Limit        int    `json:"limit"`
	Remaining    int    `json:"remaining"`
	ResetAt      string `json:"resetAt,omitempty"`
}

// UpdateProfileRequest 更新用户信息请求
type UpdateProfileRequest struct {
	Name *string `json:"name,omitempty" binding:"omitempty,max=100"`
}

// GithubLoginResponse GitHub 授权跳转地址
type GithubLoginResponse struct {
	URL string `json:"url"`
}

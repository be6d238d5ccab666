package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

func (r *UserRepository) GetByID(id int64) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(email string) (*model.User, error) {
	var user model.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByGithubID(githubID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("github_id = ?", githubID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByStripeCustomerID(customerID string) (*model.User, error) {
	var user model.User
	err := r.db.Where("stripe_customer_id = ?", customerID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(user *model.User) error {
	return r.db.Save(user).Error
}

func (r *UserRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	return r.db.Model(&model.User{}).Where("id = ?", id).Updates(fields).Error
}

func (r *UserRepository) ExistsByEmail(email string) (bool, error) {
	var count int64
	err := r.db.Model(&model.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// ResetUsageIfDue 到达重置时间才清零，返回是否发生了重置
func (r *UserRepository) ResetUsageIfDue(id int64, now, nextResetAt time.Time) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND (usage_reset_at IS NULL OR usage_reset_at <= ?)", id, now).
		Updates(map[string]interface{}{
			"daily_usage":    0,
			"usage_reset_at": nextResetAt,
		})
	return result.RowsAffected > 0, result.Error
}

// TryIncrementUsage 带上限的原子自增，返回 false 表示已达上限
func (r *UserRepository) TryIncrementUsage(id int64, limit int) (bool, error) {
	result := r.db.Model(&model.User{}).
		Where("id = ? AND daily_usage < ?", id, limit).
		Update("daily_usage", gorm.Expr("daily_usage + 1"))
	return result.RowsAffected > 0, result.Error
}

// DecrementUsage 退还一次用量，不会小于 0
func (r *UserRepository) DecrementUsage(id int64) error {
	return r.db.Model(&model.User{}).
		Where("id = ? AND daily_usage > 0", id).
		Update("daily_usage", gorm.Expr("daily_usage - 1")).Error
}

// List 管理后台用户列表
func (r *UserRepository) List(page, pageSize int, tier, search string) ([]*model.User, int64, error) {
	var users []*model.User
	var total int64

	query := r.db.Model(&model.User{})
	if tier != "" {
		query = query.Where("tier = ?", tier)
	}
	if search != "" {
		query = query.Where("email LIKE ? OR name LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Order("id ASC").Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// ExpireSubscriptions 将过期的会员订阅标记为 expired
func (r *UserRepository) ExpireSubscriptions(now time.Time) (int64, error) {
	result := r.db.Model(&model.User{}).
		Where("tier = ? AND subscription_status = ? AND subscription_expires_at IS NOT NULL AND subscription_expires_at <= ?",
			model.TierPremium, model.SubscriptionActive, now).
		Update("subscription_status", model.SubscriptionExpired)
	return result.RowsAffected, result.Error
}

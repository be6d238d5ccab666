package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

// UsageLimitError 今日次数已用完
type UsageLimitError struct {
	Used    int
	Limit   int
	ResetAt time.Time
}

func (e *UsageLimitError) Error() string {
	return fmt.Sprintf("daily usage limit reached (%d/%d), resets at %s", e.Used, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// IsUsageLimit 判断是否为用量超限
func IsUsageLimit(err error) (*UsageLimitError, bool) {
	var le *UsageLimitError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

type UsageService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
	now      func() time.Time
}

func NewUsageService(userRepo *repository.UserRepository, cfg *config.Config) *UsageService {
	return &UsageService{
		userRepo: userRepo,
		cfg:      cfg,
		now:      time.Now,
	}
}

// NextResetAt 下一个本地零点
func NextResetAt(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

// Reserve 预占一次用量：到期先重置，再做带上限的原子自增。
// 匿名请求（userID 为 0）直接放行；计数写入失败不影响请求。
func (s *UsageService) Reserve(ctx context.Context, userID int64) error {
	if userID == 0 {
		return nil
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	now := s.now()
	if _, err := s.userRepo.ResetUsageIfDue(userID, now, NextResetAt(now)); err != nil {
		log.Printf("Failed to reset usage for user %d: %v", userID, err)
	}

	limit := s.cfg.TierLimit(user.Tier)
	ok, err := s.userRepo.TryIncrementUsage(userID, limit)
	if err != nil {
		log.Printf("Failed to increment usage for user %d: %v", userID, err)
		return nil
	}
	if ok {
		return nil
	}

	// 重新读取以返回最新计数
	if fresh, err := s.userRepo.GetByID(userID); err == nil {
		user = fresh
	}
	return &UsageLimitError{Used: user.DailyUsage, Limit: limit, ResetAt: resetAtOf(user, now)}
}

// Refund 退还预占的一次用量
func (s *UsageService) Refund(userID int64) {
	if userID == 0 {
		return
	}
	if err := s.userRepo.DecrementUsage(userID); err != nil {
		log.Printf("Failed to refund usage for user %d: %v", userID, err)
	}
}

// CheckUsageLimit 只读检查，不占用次数
func (s *UsageService) CheckUsageLimit(userID int64) error {
	if userID == 0 {
		return nil
	}
	info, err := s.GetUsage(userID)
	if err != nil {
		return err
	}
	if info.CurrentUsage >= info.Limit {
		resetAt, _ := time.Parse(time.RFC3339, info.ResetAt)
		return &UsageLimitError{Used: info.CurrentUsage, Limit: info.Limit, ResetAt: resetAt}
	}
	return nil
}

// GetUsage 获取今日用量，到期时顺带重置
func (s *UsageService) GetUsage(userID int64) (*dto.UsageInfo, error) {
	now := s.now()
	if _, err := s.userRepo.ResetUsageIfDue(userID, now, NextResetAt(now)); err != nil {
		log.Printf("Failed to reset usage for user %d: %v", userID, err)
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.usageInfo(user, now), nil
}

func (s *UsageService) usageInfo(user *model.User, now time.Time) *dto.UsageInfo {
	limit := s.cfg.TierLimit(user.Tier)
	remaining := limit - user.DailyUsage
	if remaining < 0 {
		remaining = 0
	}
	return &dto.UsageInfo{
		Tier:         user.Tier,
		CurrentUsage: user.DailyUsage,
		Limit:        limit,
		Remaining:    remaining,
		ResetAt:      resetAtOf(user, now).Format(time.RFC3339),
	}
}

func resetAtOf(user *model.User, now time.Time) time.Time {
	if user.UsageResetAt != nil {
		return *user.UsageResetAt
	}
	return NextResetAt(now)
}

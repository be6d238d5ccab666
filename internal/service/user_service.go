package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/internal/entitlement"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

var ErrEmptyName = errors.New("name cannot be empty")

type UserService struct {
	userRepo *repository.UserRepository
	usage    *UsageService
}

func NewUserService(userRepo *repository.UserRepository, usage *UsageService) *UserService {
	return &UserService{
		userRepo: userRepo,
		usage:    usage,
	}
}

// GetProfile 获取用户详情（含今日用量）
func (s *UserService) GetProfile(userID int64) (*dto.UserInfo, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return s.buildUserInfoWithUsage(user)
}

// UpdateProfile 更新用户信息
func (s *UserService) UpdateProfile(userID int64, req *dto.UpdateProfileRequest) (*dto.UserInfo, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrEmptyName
		}
		if err := s.userRepo.UpdateFields(userID, map[string]interface{}{"name": name}); err != nil {
			return nil, err
		}
		user.Name = name
	}

	return s.buildUserInfoWithUsage(user)
}

// GetFeatures 当前用户可用的功能
func (s *UserService) GetFeatures(userID int64) (*dto.FeaturesResponse, error) {
	user, err := s.load(userID)
	if err != nil {
		return nil, err
	}
	return &dto.FeaturesResponse{
		Tier:               user.Tier,
		SubscriptionStatus: user.SubscriptionStatus,
		Features:           entitlement.FeatureMap(user),
	}, nil
}

func (s *UserService) load(userID int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) buildUserInfoWithUsage(user *model.User) (*dto.UserInfo, error) {
	usage, err := s.usage.GetUsage(user.ID)
	if err != nil {
		return nil, err
	}
	return BuildUserInfo(user, usage), nil
}

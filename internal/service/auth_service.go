package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/ats_resume_server/config"
	"github.com/qs3c/ats_resume_server/internal/model"
	"github.com/qs3c/ats_resume_server/internal/model/dto"
	"github.com/qs3c/ats_resume_server/internal/pkg/email"
	"github.com/qs3c/ats_resume_server/internal/pkg/jwt"
	"github.com/qs3c/ats_resume_server/internal/pkg/oauth"
	"github.com/qs3c/ats_resume_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrOAuthDisabled      = errors.New("github login is not configured")
	ErrOAuthNoEmail       = errors.New("github account has no verified email")
)

type AuthService struct {
	userRepo    *repository.UserRepository
	cfg         *config.Config
	githubOAuth *oauth.GithubOAuth
	stateStore  *oauth.StateStore
	blacklist   *jwt.Blacklist
	mailer      *email.Service
}

func NewAuthService(
	userRepo *repository.UserRepository,
	cfg *config.Config,
	stateStore *oauth.StateStore,
	blacklist *jwt.Blacklist,
	mailer *email.Service,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
		githubOAuth: oauth.NewGithubOAuth(
			cfg.OAuth.Github.ClientID,
			cfg.OAuth.Github.ClientSecret,
			cfg.OAuth.Github.RedirectURI,
		),
		stateStore: stateStore,
		blacklist:  blacklist,
		mailer:     mailer,
	}
}

// WithGithubOAuth 替换 GitHub 客户端
func (s *AuthService) WithGithubOAuth(g *oauth.GithubOAuth) *AuthService {
	s.githubOAuth = g
	return s
}

// Register 用户注册，注册后直接登录
func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	addr := normalizeEmail(req.Email)

	exists, err := s.userRepo.ExistsByEmail(addr)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	passwordStr := string(hashedPassword)

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.Split(addr, "@")[0]
	}

	resetAt := NextResetAt(time.Now())
	user := &model.User{
		Email:              addr,
		Name:               name,
		PasswordHash:       &passwordStr,
		Tier:               model.TierFree,
		SubscriptionStatus: model.SubscriptionActive,
		UsageResetAt:       &resetAt,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	s.sendWelcome(user)

	return s.issue(user)
}

// Login 邮箱密码登录
func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// OAuth 注册的账号没有密码
	if user.PasswordHash == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

// Logout 拉黑当前令牌直到过期
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil || claims == nil {
		return nil
	}
	return s.blacklist.Revoke(ctx, claims)
}

// GetUserByID 根据 ID 获取用户
func (s *AuthService) GetUserByID(id int64) (*model.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetGithubAuthURL 生成 state 并返回 GitHub 授权地址
func (s *AuthService) GetGithubAuthURL(ctx context.Context, redirectURI string) (string, error) {
	if !s.githubOAuth.Enabled() {
		return "", ErrOAuthDisabled
	}
	state, err := s.stateStore.GenerateState(ctx, redirectURI)
	if err != nil {
		return "", err
	}
	return s.githubOAuth.GetAuthURL(state), nil
}

// GithubCallback 校验 state，换取 GitHub 用户并登录；按 GitHub ID 或邮箱关联已有账号
func (s *AuthService) GithubCallback(ctx context.Context, code, state string) (*dto.AuthResponse, string, error) {
	if !s.githubOAuth.Enabled() {
		return nil, "", ErrOAuthDisabled
	}

	stateData, err := s.stateStore.ValidateState(ctx, state)
	if err != nil {
		return nil, "", err
	}

	githubUser, err := s.githubOAuth.FetchUser(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get github user: %w", err)
	}

	githubIDStr := fmt.Sprintf("%d", githubUser.ID)

	user, err := s.userRepo.GetByGithubID(githubIDStr)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", err
	}

	if user == nil {
		if githubUser.Email == "" {
			return nil, "", ErrOAuthNoEmail
		}
		addr := normalizeEmail(githubUser.Email)

		existing, err := s.userRepo.GetByEmail(addr)
		switch {
		case err == nil:
			// 同邮箱账号绑定 GitHub
			existing.GithubID = &githubIDStr
			if err := s.userRepo.Update(existing); err != nil {
				return nil, "", err
			}
			user = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			resetAt := NextResetAt(time.Now())
			user = &model.User{
				Email:              addr,
				Name:               githubUser.DisplayName(),
				GithubID:           &githubIDStr,
				Tier:               model.TierFree,
				SubscriptionStatus: model.SubscriptionActive,
				UsageResetAt:       &resetAt,
			}
			if err := s.userRepo.Create(user); err != nil {
				return nil, "", fmt.Errorf("failed to create user: %w", err)
			}
			s.sendWelcome(user)
		default:
			return nil, "", err
		}
	}

	resp, err := s.issue(user)
	if err != nil {
		return nil, "", err
	}
	return resp, stateData.RedirectURI, nil
}

func (s *AuthService) issue(user *model.User) (*dto.AuthResponse, error) {
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Tier, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: token,
		User:  BuildUserInfo(user, nil),
	}, nil
}

func (s *AuthService) sendWelcome(user *model.User) {
	if s.mailer == nil || !s.mailer.Enabled() {
		return
	}
	go func(to, name string) {
		if err := s.mailer.SendWelcome(to, name, s.cfg.Server.PublicBaseURL); err != nil {
			log.Printf("Failed to send welcome email to %s: %v", to, err)
		}
	}(user.Email, user.Name)
}

// BuildUserInfo 组装返回给前端的用户信息
func BuildUserInfo(user *model.User, usage *dto.UsageInfo) *dto.UserInfo {
	info := &dto.UserInfo{
		ID:                 user.ID,
		Email:              user.Email,
		Name:               user.Name,
		Tier:               user.Tier,
		SubscriptionStatus: user.SubscriptionStatus,
		Usage:              usage,
		CreatedAt:          user.CreatedAt.Format(time.RFC3339),
	}
	if user.SubscriptionExpiresAt != nil {
		info.SubscriptionExpiresAt = user.SubscriptionExpiresAt.Format(time.RFC3339)
	}
	return info
}

func normalizeEmail(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

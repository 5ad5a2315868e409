package model

// Team 球队表：对应 teams
type Team struct {
	ID          string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Name        string  `gorm:"type:varchar(100);not null"                     json:"name"`
	Sport       string  `gorm:"type:varchar(50);not null"                      json:"sport"`
	Description string  `gorm:"type:varchar(500)"                              json:"description,omitempty"`
	CoachID     *string `gorm:"type:uuid"                                      json:"coach_id,omitempty"`
	VersionedModel

	// 关联
	Coach *UserProfile `gorm:"foreignKey:CoachID;references:ID" json:"coach,omitempty"`
}

// TableName 指定表名
func (Team) TableName() string { return "teams" }

package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID                  string `gorm:"primaryKey"`
	Username            string
	FirstName           string
	LastName            string
	Email               string `gorm:"uniqueIndex;not null"`
	PasswordHash        string `gorm:"not null"`
	Company             string
	Position            string
	CompanySize         string
	Industry            string
	CompanyDescription  string    `gorm:"type:text"`
	TargetRoles         string    `gorm:"type:text"`
	RecruitingGoals     string    `gorm:"type:text"`
	OutreachPreferences string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time
}

type ChatMessageModel struct {
	ID        string         `gorm:"primaryKey"`
	UserID    string         `gorm:"not null;index"`
	Role      string         `gorm:"not null"`
	Content   string         `gorm:"type:text;not null"`
	Sequence  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt time.Time      `gorm:"not null;index"`
}

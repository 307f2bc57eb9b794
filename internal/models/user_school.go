package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserSchool grants a user access to a school. Created by provisioning (seed
// loader or admin tooling) only; the sign-in path never writes these.
type UserSchool struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	UserID   int64 `gorm:"not null;uniqueIndex:uq_user_schools_user_school" json:"-"`
	SchoolID int64 `gorm:"not null;uniqueIndex:uq_user_schools_user_school" json:"-"`

	User   User   `gorm:"foreignKey:UserID" json:"-"`
	School School `gorm:"foreignKey:SchoolID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserSchool) TableName() string { return "user_schools" }

func (us *UserSchool) BeforeCreate(tx *gorm.DB) error {
	if us.PublicID == "" {
		us.PublicID = uuid.NewString()
	}
	return nil
}

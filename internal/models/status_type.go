package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StatusType is a bus-run status a tile can be in ("Rolling", "Arrived", ...).
type StatusType struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	StatusTypeCode string `gorm:"size:64;not null;uniqueIndex" json:"statusTypeCode"`
	DisplayName    string `gorm:"size:64;not null;uniqueIndex" json:"displayName"`
	ColorName      string `gorm:"size:64;not null" json:"colorName"`
	HexColor       string `gorm:"size:7;not null" json:"hexColor"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (StatusType) TableName() string { return "status_types" }

func (st *StatusType) BeforeCreate(tx *gorm.DB) error {
	if st.PublicID == "" {
		st.PublicID = uuid.NewString()
	}
	return nil
}

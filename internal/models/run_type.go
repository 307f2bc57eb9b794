package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunType classifies a bus run, e.g. "ARRIVAL" / "DISMISSAL".
type RunType struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	RunTypeCode string `gorm:"size:64;not null;uniqueIndex" json:"runTypeCode"`
	DisplayName string `gorm:"size:64;not null;uniqueIndex" json:"displayName"`

	// Local wall-clock time ("HH:MM:SS") after which this run type becomes
	// the default selection on the home form. Nil means never.
	DefaultAfterLocalTime *string `gorm:"size:8" json:"defaultAfterLocalTime,omitempty"`

	// No default on purpose: seed data must state 1 or 0 explicitly.
	IsDeparture bool `gorm:"not null" json:"isDeparture"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (RunType) TableName() string { return "run_types" }

func (rt *RunType) BeforeCreate(tx *gorm.DB) error {
	if rt.PublicID == "" {
		rt.PublicID = uuid.NewString()
	}
	return nil
}

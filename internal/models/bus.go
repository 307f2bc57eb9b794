package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bus is a district-level vehicle. Per-school presentation (color, display
// name, sort order) lives on SchoolBus.
type Bus struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	// Globally unique district identifier; often matches the school-level
	// display name but does not have to.
	BusCode string `gorm:"size:64;not null;uniqueIndex" json:"busCode"`

	ExternalSystem *string `gorm:"size:64;uniqueIndex:uq_buses_external_system_id" json:"-"`
	ExternalID     *string `gorm:"size:255;uniqueIndex:uq_buses_external_system_id" json:"-"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Bus) TableName() string { return "buses" }

func (b *Bus) BeforeCreate(tx *gorm.DB) error {
	if b.PublicID == "" {
		b.PublicID = uuid.NewString()
	}
	return nil
}

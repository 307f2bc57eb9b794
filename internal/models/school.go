package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// School is the authorization scope unit: users see only the bus runs of
// schools they hold a grant for.
type School struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	ShortName string `gorm:"size:32;not null;uniqueIndex" json:"shortName"`
	LongName  string `gorm:"size:255;not null;uniqueIndex" json:"longName"`

	// Canonical timezone name like America/Chicago.
	Timezone string `gorm:"size:64;not null" json:"timezone"`

	ExternalSystem *string `gorm:"size:64;uniqueIndex:uq_schools_external_system_id" json:"-"`
	ExternalID     *string `gorm:"size:255;uniqueIndex:uq_schools_external_system_id" json:"-"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (School) TableName() string { return "schools" }

func (s *School) BeforeCreate(tx *gorm.DB) error {
	if s.PublicID == "" {
		s.PublicID = uuid.NewString()
	}
	return nil
}

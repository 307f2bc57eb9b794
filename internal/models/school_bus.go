package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SchoolBus is a bus as presented at one school: its tile name, color and
// ordering on the status board. The same bus may appear at several schools.
type SchoolBus struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	SchoolID int64 `gorm:"not null;uniqueIndex:uq_school_buses_school_display_name,priority:1" json:"-"`
	BusID    int64 `gorm:"not null" json:"-"`

	School School `gorm:"foreignKey:SchoolID" json:"-"`
	Bus    Bus    `gorm:"foreignKey:BusID" json:"-"`

	DisplayName string `gorm:"size:64;not null;uniqueIndex:uq_school_buses_school_display_name,priority:2" json:"displayName"`
	ColorName   string `gorm:"size:64;not null" json:"colorName"`
	HexColor    string `gorm:"size:7;not null" json:"hexColor"`
	SortOrder   int    `gorm:"not null" json:"sortOrder"`
	DriverName  string `gorm:"size:255;not null" json:"driverName"`

	// Special-education route flag.
	IsSped bool `gorm:"not null" json:"isSped"`

	IsActive bool `gorm:"not null;default:true" json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (SchoolBus) TableName() string { return "school_buses" }

func (sb *SchoolBus) BeforeCreate(tx *gorm.DB) error {
	if sb.PublicID == "" {
		sb.PublicID = uuid.NewString()
	}
	return nil
}

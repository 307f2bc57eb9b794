package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SchoolBusRunType links a school bus to the run types it participates in.
type SchoolBusRunType struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	SchoolBusID int64 `gorm:"not null;uniqueIndex:uq_school_bus_run_types_bus_run_type" json:"-"`
	RunTypeID   int64 `gorm:"not null;uniqueIndex:uq_school_bus_run_types_bus_run_type" json:"-"`

	SchoolBus SchoolBus `gorm:"foreignKey:SchoolBusID" json:"-"`
	RunType   RunType   `gorm:"foreignKey:RunTypeID" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (SchoolBusRunType) TableName() string { return "school_bus_run_types" }

func (l *SchoolBusRunType) BeforeCreate(tx *gorm.DB) error {
	if l.PublicID == "" {
		l.PublicID = uuid.NewString()
	}
	return nil
}

package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an application user. Rows are provisioned out-of-band (seed loader
// or admin tooling) with email + is_active only; the identity reconciler fills
// in GoogleSub, the display-name fields and LastLoginAt on sign-in.
type User struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	PublicID string `gorm:"size:36;not null;uniqueIndex" json:"id"`

	// Source system for ExternalID (PowerSchool, Google, ...).
	ExternalSystem *string `gorm:"size:64;uniqueIndex:uq_users_external_system_id" json:"-"`
	ExternalID     *string `gorm:"size:255;uniqueIndex:uq_users_external_system_id" json:"-"`

	// Stored normalized: trimmed, lower-cased.
	Email string `gorm:"size:320;not null;uniqueIndex" json:"email"`

	// OIDC subject. Stable per Google account, survives email changes.
	// Nil until the first successful sign-in binds it.
	GoogleSub *string `gorm:"size:255;uniqueIndex" json:"-"`

	FullName   *string `gorm:"size:255" json:"fullName,omitempty"`
	GivenName  *string `gorm:"size:255" json:"givenName,omitempty"`
	FamilyName *string `gorm:"size:255" json:"familyName,omitempty"`

	IsActive    bool       `gorm:"not null;default:true" json:"isActive"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.PublicID == "" {
		u.PublicID = uuid.NewString()
	}
	return nil
}

// DisplayName returns a compact "Given F." style name for page headers,
// falling back to the email when name parts are missing.
func (u *User) DisplayName() string {
	given := derefTrim(u.GivenName)
	family := derefTrim(u.FamilyName)
	if given != "" && family != "" {
		return given + " " + family[:1] + "."
	}
	if u.Email != "" {
		return u.Email
	}
	return "Unknown User"
}

func derefTrim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// Package users persists user accounts and school grants in postgres.
package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/bustracker-app/bustracker/internal/models"
)

// ErrConflict reports a schema-level unique-constraint violation (email or
// google_sub). Concurrent first sign-ins for the same account race on the
// subject binding; the loser gets this and the request should be treated as
// transient and retried by the user.
var ErrConflict = errors.New("users: conflicting concurrent update")

// Repository implements identity.Store on a gorm handle. Hand it the
// transaction handle, not the root *gorm.DB, so all lookups and the save land
// in the caller's transaction.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// UserBySubject matches the stored subject byte-exact. Subjects are opaque
// provider tokens and never normalized.
func (r *Repository) UserBySubject(ctx context.Context, sub string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("google_sub = ?", sub).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// UserByEmail matches case-insensitively; the argument is expected to already
// be in normalized (trimmed, lower-case) form.
func (r *Repository) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// CountActiveSchools counts grants whose school is still active.
func (r *Repository) CountActiveSchools(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.UserSchool{}).
		Joins("JOIN schools ON schools.id = user_schools.school_id").
		Where("user_schools.user_id = ?", userID).
		Where("schools.is_active = ?", true).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repository) SaveUser(ctx context.Context, u *models.User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// AllowedSchools returns the active schools the user holds grants for,
// ordered by short name ascending.
func (r *Repository) AllowedSchools(ctx context.Context, userID int64) ([]models.School, error) {
	var schools []models.School
	err := r.db.WithContext(ctx).
		Model(&models.School{}).
		Joins("JOIN user_schools ON user_schools.school_id = schools.id").
		Where("user_schools.user_id = ?", userID).
		Where("schools.is_active = ?", true).
		Order("schools.short_name ASC").
		Find(&schools).Error
	if err != nil {
		return nil, err
	}
	return schools, nil
}

// GetByID loads a user by internal id, nil when absent. Used by the session
// middleware to resolve the current user for page chrome.
func (r *Repository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

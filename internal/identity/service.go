// Package identity reconciles verified OIDC claims against provisioned user
// accounts and decides whether a sign-in may proceed.
//
// Three gates run in order, each short-circuiting: the user must exist, must
// be active, and must hold at least one grant to an active school. Only after
// all three pass does the reconciler touch the row (subject binding, email
// update, profile refresh). A denied sign-in therefore never perturbs stored
// identity state.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bustracker-app/bustracker/internal/models"
)

// Store is the persistence surface the reconciler needs. Lookups return
// (nil, nil) when no row matches. Implementations are expected to run inside
// the caller's transaction; schema-level unique constraints on email and
// google_sub remain the final backstop for races the lookups cannot see.
type Store interface {
	UserBySubject(ctx context.Context, sub string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	CountActiveSchools(ctx context.Context, userID int64) (int64, error)
	SaveUser(ctx context.Context, u *models.User) error
	AllowedSchools(ctx context.Context, userID int64) ([]models.School, error)
}

// Service runs the reconciliation and the companion school queries against an
// injected Store. Construct one per request transaction.
type Service struct {
	store Store
	log   *zap.Logger
	now   func() time.Time
}

func NewService(store Store, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store: store,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile maps a verified claim set onto an internal user and runs the
// authorization gates. Exactly one of the first two results is meaningful: on
// success userID is set and kind is KindNone; on denial kind is set and
// userID is zero. A non-nil err is an infrastructure failure (store fault),
// never an authorization outcome — the caller must roll back and surface it
// as a server error, not a denial.
func (s *Service) Reconcile(ctx context.Context, claims Claims) (userID int64, kind Kind, err error) {
	sub := strings.TrimSpace(claims.Sub)
	if sub == "" {
		return 0, KindIdentityUnverifiable, nil
	}

	email := NormalizeEmail(claims.Email)
	if email == "" {
		return 0, KindUserNotFound, nil
	}

	// Subject first: it is the stronger key and survives email changes.
	// Stored subjects are compared byte-exact; they are provider-controlled
	// opaque tokens and never normalized.
	user, err := s.store.UserBySubject(ctx, sub)
	if err != nil {
		return 0, KindNone, fmt.Errorf("identity: lookup by subject: %w", err)
	}
	foundBySub := user != nil

	if user == nil {
		user, err = s.store.UserByEmail(ctx, email)
		if err != nil {
			return 0, KindNone, fmt.Errorf("identity: lookup by email: %w", err)
		}
	}

	// Gate 1: user exists.
	if user == nil {
		return 0, KindUserNotFound, nil
	}

	// Gate 2: user is active. Checked before the grant count so an inactive
	// user is reported as inactive, not as lacking schools.
	if !user.IsActive {
		return 0, KindUserInactive, nil
	}

	// Gate 3: at least one grant to an active school.
	active, err := s.store.CountActiveSchools(ctx, user.ID)
	if err != nil {
		return 0, KindNone, fmt.Errorf("identity: count active schools: %w", err)
	}
	if active <= 0 {
		return 0, KindNoSchoolAccess, nil
	}

	// All gates passed; binding and profile updates may now happen.
	if foundBySub {
		if NormalizeEmail(user.Email) != email {
			user.Email = email
		}
	} else {
		existing := derefTrim(user.GoogleSub)
		switch {
		case existing == "":
			user.GoogleSub = &sub
		case existing != sub:
			// Same email, different already-bound subject. No mutation on
			// this path.
			s.log.Warn("sign-in refused: subject conflict on matched email",
				zap.Int64("user_id", user.ID),
				zap.String("email", email),
			)
			return 0, KindIdentityConflict, nil
		}
	}

	// Profile fields are last-write-wins from the provider, blanks included.
	user.FullName = optional(claims.Name)
	user.GivenName = optional(claims.GivenName)
	user.FamilyName = optional(claims.FamilyName)
	loginAt := s.now()
	user.LastLoginAt = &loginAt

	if err := s.store.SaveUser(ctx, user); err != nil {
		return 0, KindNone, fmt.Errorf("identity: save user %d: %w", user.ID, err)
	}

	return user.ID, KindNone, nil
}

// AllowedSchools returns the active schools the user holds grants for, ordered
// by short name. The list can be empty even right after a successful
// reconciliation: school deactivation races with session lifetime.
func (s *Service) AllowedSchools(ctx context.Context, userID int64) ([]models.School, error) {
	schools, err := s.store.AllowedSchools(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("identity: allowed schools for user %d: %w", userID, err)
	}
	return schools, nil
}

func derefTrim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

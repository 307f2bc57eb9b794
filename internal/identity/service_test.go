package identity

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bustracker-app/bustracker/internal/models"
)

// fakeStore is an in-memory Store with the same matching semantics as the
// gorm repository: byte-exact subject lookup, case-insensitive email lookup.
type fakeStore struct {
	users   []*models.User
	schools []models.School
	grants  map[int64][]int64 // userID -> schoolIDs

	saved   int
	saveErr error
	findErr error
}

func (f *fakeStore) UserBySubject(ctx context.Context, sub string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if u.GoogleSub != nil && *u.GoogleSub == sub {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, u := range f.users {
		if NormalizeEmail(u.Email) == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CountActiveSchools(ctx context.Context, userID int64) (int64, error) {
	var n int64
	for _, sid := range f.grants[userID] {
		for _, s := range f.schools {
			if s.ID == sid && s.IsActive {
				n++
			}
		}
	}
	return n, nil
}

func (f *fakeStore) SaveUser(ctx context.Context, u *models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved++
	return nil
}

func (f *fakeStore) AllowedSchools(ctx context.Context, userID int64) ([]models.School, error) {
	var out []models.School
	for _, sid := range f.grants[userID] {
		for _, s := range f.schools {
			if s.ID == sid && s.IsActive {
				out = append(out, s)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ShortName < out[j].ShortName })
	return out, nil
}

func strptr(s string) *string { return &s }

// grantedUser returns a store holding one active user with one active school.
func grantedUser(sub *string, email string) *fakeStore {
	return &fakeStore{
		users: []*models.User{{
			ID:        7,
			Email:     email,
			GoogleSub: sub,
			IsActive:  true,
		}},
		schools: []models.School{{ID: 1, ShortName: "Oak", IsActive: true}},
		grants:  map[int64][]int64{7: {1}},
	}
}

func TestReconcileMissingSub(t *testing.T) {
	svc := NewService(grantedUser(nil, "a@x.com"), nil)

	for _, sub := range []string{"", "   ", "\t"} {
		id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: sub, Email: "a@x.com"})
		require.NoError(t, err)
		assert.Equal(t, KindIdentityUnverifiable, kind)
		assert.Zero(t, id)
	}
}

func TestReconcileMissingEmail(t *testing.T) {
	svc := NewService(grantedUser(nil, "a@x.com"), nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "  "})
	require.NoError(t, err)
	assert.Equal(t, KindUserNotFound, kind)
	assert.Zero(t, id)
}

func TestReconcileUserNotFound(t *testing.T) {
	svc := NewService(grantedUser(strptr("S1"), "a@x.com"), nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S2", Email: "other@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindUserNotFound, kind)
	assert.Zero(t, id)
}

func TestReconcileInactiveUserBeforeSchoolCheck(t *testing.T) {
	// Inactive and without any grants: must report inactive, not no-schools.
	store := &fakeStore{
		users: []*models.User{{ID: 3, Email: "a@x.com", IsActive: false}},
	}
	svc := NewService(store, nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindUserInactive, kind)
	assert.Zero(t, id)
	assert.Zero(t, store.saved, "denied sign-in must not persist anything")
}

func TestReconcileNoActiveSchools(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	store.schools[0].IsActive = false
	svc := NewService(store, nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindNoSchoolAccess, kind)
	assert.Zero(t, id)
	assert.Zero(t, store.saved)
	assert.Nil(t, store.users[0].LastLoginAt)
}

func TestReconcileSuccessBySubUpdatesEmail(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	svc := NewService(store, nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{
		Sub:        "S1",
		Email:      " B@X.com ",
		Name:       "Bea Xavier",
		GivenName:  "Bea",
		FamilyName: "Xavier",
	})
	require.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Equal(t, int64(7), id)

	u := store.users[0]
	assert.Equal(t, "b@x.com", u.Email, "email change on a sub-matched account is applied normalized")
	require.NotNil(t, u.FullName)
	assert.Equal(t, "Bea Xavier", *u.FullName)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, 1, store.saved)
}

func TestReconcileFirstTimeSubjectBinding(t *testing.T) {
	store := grantedUser(nil, "a@x.com")
	svc := NewService(store, nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S9", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Equal(t, int64(7), id)
	require.NotNil(t, store.users[0].GoogleSub)
	assert.Equal(t, "S9", *store.users[0].GoogleSub)
}

func TestReconcileEmptySubjectStringBindsToo(t *testing.T) {
	// A stored sub of whitespace behaves like never-bound.
	store := grantedUser(strptr("   "), "a@x.com")
	svc := NewService(store, nil)

	_, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S9", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindNone, kind)
	assert.Equal(t, "S9", *store.users[0].GoogleSub)
}

func TestReconcileIdentityConflict(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	svc := NewService(store, nil)

	id, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S2", Email: "a@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindIdentityConflict, kind)
	assert.Zero(t, id)

	// No mutation on the conflict path, even though all gates passed.
	assert.Equal(t, "S1", *store.users[0].GoogleSub)
	assert.Equal(t, "a@x.com", store.users[0].Email)
	assert.Nil(t, store.users[0].LastLoginAt)
	assert.Zero(t, store.saved)
}

func TestReconcileCaseInsensitiveEmailMatch(t *testing.T) {
	// Stored email with stray casing still matches the normalized input.
	store := grantedUser(nil, "Mixed.Case@X.com")
	svc := NewService(store, nil)

	_, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S5", Email: "mixed.case@x.com"})
	require.NoError(t, err)
	assert.Equal(t, KindNone, kind)
}

func TestReconcileIdempotent(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	svc := NewService(store, nil)
	claims := Claims{Sub: "S1", Email: "a@x.com", Name: "Ann A"}

	id1, kind1, err := svc.Reconcile(context.Background(), claims)
	require.NoError(t, err)
	require.Equal(t, KindNone, kind1)
	firstLogin := *store.users[0].LastLoginAt

	id2, kind2, err := svc.Reconcile(context.Background(), claims)
	require.NoError(t, err)
	assert.Equal(t, KindNone, kind2)
	assert.Equal(t, id1, id2)

	// Binding fields stay stable; only the login timestamp moves forward.
	assert.Equal(t, "S1", *store.users[0].GoogleSub)
	assert.Equal(t, "a@x.com", store.users[0].Email)
	assert.False(t, store.users[0].LastLoginAt.Before(firstLogin))
}

func TestReconcileBlankProfileOverwrites(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	store.users[0].FullName = strptr("Old Name")
	svc := NewService(store, nil)

	_, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, KindNone, kind)
	assert.Nil(t, store.users[0].FullName, "blank claims win; no merge with stale profile data")
}

func TestReconcileStoreFaultIsNotADenial(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	store.findErr = errors.New("connection reset")
	svc := NewService(store, nil)

	_, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "a@x.com"})
	require.Error(t, err)
	assert.Equal(t, KindNone, kind)
}

func TestReconcileSaveFault(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	store.saveErr = errors.New("duplicate key value violates unique constraint")
	svc := NewService(store, nil)

	_, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "a@x.com"})
	require.Error(t, err)
	assert.Equal(t, KindNone, kind)
}

func TestAllowedSchoolsFiltersInactive(t *testing.T) {
	store := &fakeStore{
		users: []*models.User{{ID: 7, Email: "a@x.com", IsActive: true}},
		schools: []models.School{
			{ID: 1, ShortName: "Pine", IsActive: false},
			{ID: 2, ShortName: "Oak", IsActive: true},
		},
		grants: map[int64][]int64{7: {1, 2}},
	}
	svc := NewService(store, nil)

	schools, err := svc.AllowedSchools(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Oak", schools[0].ShortName)
}

func TestAllowedSchoolsOrdering(t *testing.T) {
	store := &fakeStore{
		schools: []models.School{
			{ID: 1, ShortName: "West", IsActive: true},
			{ID: 2, ShortName: "East", IsActive: true},
			{ID: 3, ShortName: "North", IsActive: true},
		},
		grants: map[int64][]int64{7: {1, 2, 3}},
	}
	svc := NewService(store, nil)

	schools, err := svc.AllowedSchools(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, schools, 3)
	assert.Equal(t, []string{"East", "North", "West"},
		[]string{schools[0].ShortName, schools[1].ShortName, schools[2].ShortName})
}

func TestClaimsFromMap(t *testing.T) {
	claims := ClaimsFromMap(map[string]interface{}{
		"sub":         "S1",
		"email":       "A@X.com",
		"name":        "Ann A",
		"given_name":  "Ann",
		"family_name": "Adams",
		"aud":         []string{"ignored"},
	})
	assert.Equal(t, "S1", claims.Sub)
	assert.Equal(t, "A@X.com", claims.Email)
	assert.Equal(t, "Ann", claims.GivenName)

	empty := ClaimsFromMap(map[string]interface{}{"sub": 12345})
	assert.Equal(t, "", empty.Sub)
}

func TestKindMessages(t *testing.T) {
	for _, k := range []Kind{KindIdentityUnverifiable, KindUserNotFound, KindUserInactive, KindNoSchoolAccess, KindIdentityConflict} {
		assert.NotEmpty(t, k.Message(), k.String())
	}
	assert.Empty(t, KindNone.Message())
}

func TestReconcileDoesNotMutateTimeBackwards(t *testing.T) {
	store := grantedUser(strptr("S1"), "a@x.com")
	svc := NewService(store, nil)
	fixed := time.Date(2026, 2, 25, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	_, kind, err := svc.Reconcile(context.Background(), Claims{Sub: "S1", Email: "a@x.com"})
	require.NoError(t, err)
	require.Equal(t, KindNone, kind)
	assert.Equal(t, fixed, *store.users[0].LastLoginAt)
}

package sessions

import (
	"context"
	"testing"
	"time"
)

// fake repo for testing
type fakeRepo struct {
	store map[string]*Session
}

func (f *fakeRepo) Create(ctx context.Context, s *Session) error {
	if f.store == nil {
		f.store = map[string]*Session{}
	}
	f.store[s.Token] = s
	return nil
}
func (f *fakeRepo) GetByToken(ctx context.Context, token string) (*Session, error) {
	if f.store == nil {
		return nil, nil
	}
	s, ok := f.store[token]
	if !ok {
		return nil, nil
	}
	return s, nil
}
func (f *fakeRepo) DeleteByToken(ctx context.Context, token string) error {
	if f.store == nil {
		return nil
	}
	delete(f.store, token)
	return nil
}

func TestCreateAndValidateSession(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	token, err := svc.Create(ctx, 42, time.Hour)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if token == "" {
		t.Fatalf("expected session token")
	}

	sess, err := svc.Validate(ctx, token)
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess == nil || sess.UserID != 42 {
		t.Fatalf("unexpected session: %v", sess)
	}

	if err := svc.Delete(ctx, token); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	sess2, _ := svc.Validate(ctx, token)
	if sess2 != nil {
		t.Fatalf("expected session removed")
	}
}

func TestValidateExpiredSessionCleansUp(t *testing.T) {
	repo := &fakeRepo{store: map[string]*Session{
		"old": {Token: "old", UserID: 1, ExpiresAt: time.Now().UTC().Add(-time.Minute)},
	}}
	svc := NewService(repo)

	sess, err := svc.Validate(context.Background(), "old")
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected expired session to be rejected")
	}
	if _, ok := repo.store["old"]; ok {
		t.Fatalf("expected expired session to be deleted")
	}
}

func TestValidateUnknownToken(t *testing.T) {
	svc := NewService(&fakeRepo{})
	sess, err := svc.Validate(context.Background(), "nope")
	if err != nil {
		t.Fatalf("validate error: %v", err)
	}
	if sess != nil {
		t.Fatalf("expected nil session for unknown token")
	}
}

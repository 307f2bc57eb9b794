package tokens

import (
	"testing"
	"time"
)

func TestGenerateAndParseSessionToken(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateSessionToken(secret, 42, "abc123", time.Hour)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}

	userID, sid, err := ParseSessionToken(secret, token)
	if err != nil {
		t.Fatalf("ParseSessionToken: %v", err)
	}
	if userID != 42 {
		t.Errorf("userID = %d, want 42", userID)
	}
	if sid != "abc123" {
		t.Errorf("session token = %q, want %q", sid, "abc123")
	}
}

func TestParseSessionTokenWrongSecret(t *testing.T) {
	token, err := GenerateSessionToken("secret-a", 1, "s", time.Hour)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if _, _, err := ParseSessionToken("secret-b", token); err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestParseSessionTokenExpired(t *testing.T) {
	token, err := GenerateSessionToken("secret", 1, "s", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	if _, _, err := ParseSessionToken("secret", token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestParseSessionTokenGarbage(t *testing.T) {
	if _, _, err := ParseSessionToken("secret", "not-a-jwt"); err == nil {
		t.Error("expected error for malformed token")
	}
}

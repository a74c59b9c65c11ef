package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testIssuer(ttl time.Duration) *TokenIssuer {
	return NewTokenIssuer([]byte("test-secret-key-for-auth-package-tests"), ttl)
}

func TestIssueAndVerify(t *testing.T) {
	ti := testIssuer(time.Hour)
	accountID := uuid.New()

	token, expiresAt, err := ti.Issue(accountID, RoleDoctor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("expected expiry in the future")
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Subject != accountID.String() {
		t.Errorf("expected subject %s, got %s", accountID, claims.Subject)
	}
	if claims.Role != RoleDoctor {
		t.Errorf("expected role doctor, got %s", claims.Role)
	}
}

func TestIssue_UnknownRole(t *testing.T) {
	ti := testIssuer(time.Hour)
	if _, _, err := ti.Issue(uuid.New(), "superuser"); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestVerify_Expired(t *testing.T) {
	ti := testIssuer(-time.Minute)
	token, _, err := ti.Issue(uuid.New(), RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	ti := testIssuer(time.Hour)
	token, _, err := ti.Issue(uuid.New(), RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	other := NewTokenIssuer([]byte("a-completely-different-signing-secret"), time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected error for token signed with a different secret")
	}
}

func TestVerify_Garbage(t *testing.T) {
	ti := testIssuer(time.Hour)
	if _, err := ti.Verify("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}

func TestValidRole(t *testing.T) {
	for _, role := range []string{RoleAdmin, RoleDoctor, RolePatient, RoleLab} {
		if !ValidRole(role) {
			t.Errorf("expected %s to be valid", role)
		}
	}
	if ValidRole("nurse") {
		t.Error("expected nurse to be invalid")
	}
}

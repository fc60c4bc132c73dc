package auth

import (
	"testing"

	"campusDeliveryBot/internal/testutil"
)

const testSecret = "test-secret"

func TestParseFromHeader_ValidBearer(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "alice", "student", 7)
	p, err := ParseFromHeader("Bearer "+tok, testSecret)
	if err != nil {
		t.Fatalf("ParseFromHeader: %v", err)
	}
	if p.Name != "alice" || p.Kind != "student" || p.ID != 7 {
		t.Fatalf("principal mismatch: %+v", p)
	}
}

func TestParseFromHeader_MissingHeader(t *testing.T) {
	if _, err := ParseFromHeader("", testSecret); err == nil {
		t.Fatalf("expected error for missing header")
	}
}

func TestParseFromHeader_InvalidScheme(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "bob", "courier", 3)
	if _, err := ParseFromHeader("Token "+tok, testSecret); err == nil {
		t.Fatalf("expected error for non-Bearer scheme")
	}
	if _, err := parseJWT(tok, "wrong"); err == nil {
		t.Fatalf("expected error for wrong secret")
	}
}

func TestParseJWT_ClaimsValidation(t *testing.T) {
	// Missing name/kind -> invalid
	tok := testutil.GenerateJWTHS256(t, testSecret, "", "", 0)
	if _, err := parseJWT(tok, testSecret); err == nil {
		t.Fatalf("expected invalid claims error")
	}
}

func TestParseJWT_KindLowercased(t *testing.T) {
	tok := testutil.GenerateJWTHS256(t, testSecret, "ops", "Admin", 1)
	p, err := parseJWT(tok, testSecret)
	if err != nil {
		t.Fatalf("parseJWT: %v", err)
	}
	if p.Kind != "admin" {
		t.Fatalf("kind not lowercased: %q", p.Kind)
	}
}

package service

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

func TestValidateFormat_SubjectMustBeString(t *testing.T) {
	v := NewTokenValidator()
	future := time.Now().Add(time.Hour)

	cases := []struct {
		name    string
		subject any
		want    domain.TokenVerdict
	}{
		{"string subject", "user-1", domain.TokenValid},
		{"numeric subject", 12345, domain.TokenInvalidSubject},
		{"object subject", map[string]any{"id": "user-1"}, domain.TokenInvalidSubject},
		{"missing subject", nil, domain.TokenInvalidSubject},
		{"empty subject", "", domain.TokenInvalidSubject},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check := v.ValidateFormat(testToken(tc.subject, future))
			if check.Verdict != tc.want {
				t.Fatalf("verdict = %s, want %s", check.Verdict, tc.want)
			}
			if tc.want != domain.TokenValid && check.Valid() {
				t.Fatalf("check must not be valid")
			}
		})
	}
}

func TestValidateFormat_SegmentCount(t *testing.T) {
	v := NewTokenValidator()

	for _, token := range []string{"", "onlyone", "two.parts", "a.b.c.d"} {
		if check := v.ValidateFormat(token); check.Verdict != domain.TokenInvalidFormat {
			t.Fatalf("ValidateFormat(%q) = %s, want invalid_format", token, check.Verdict)
		}
	}
}

func TestValidateFormat_Header(t *testing.T) {
	v := NewTokenValidator()
	payload := base64JSON(map[string]any{"sub": "user-1"})

	badHeaders := map[string]string{
		"not base64":  "!!!",
		"not JSON":    base64.RawURLEncoding.EncodeToString([]byte("plain text")),
		"missing alg": base64JSON(map[string]any{"typ": "JWT"}),
		"missing typ": base64JSON(map[string]any{"alg": "HS256"}),
	}
	for name, header := range badHeaders {
		t.Run(name, func(t *testing.T) {
			token := header + "." + payload + ".sig"
			if check := v.ValidateFormat(token); check.Verdict != domain.TokenInvalidHeader {
				t.Fatalf("verdict = %s, want invalid_header", check.Verdict)
			}
		})
	}
}

func TestValidateFormat_Expired(t *testing.T) {
	v := NewTokenValidator()

	check := v.ValidateFormat(testToken("user-1", time.Now().Add(-time.Minute)))
	if check.Verdict != domain.TokenExpired {
		t.Fatalf("verdict = %s, want expired", check.Verdict)
	}
	// Expiry is the only refreshable invalidity.
	if !check.Verdict.Refreshable() {
		t.Fatalf("expired verdict must be refreshable")
	}
	if check.Claims == nil || check.Claims.Subject != "user-1" {
		t.Fatalf("expired check must still carry claims, got %+v", check.Claims)
	}
}

func TestValidateFormat_NoExpiryClaim(t *testing.T) {
	v := NewTokenValidator()

	check := v.ValidateFormat(testToken("user-1", time.Time{}))
	if check.Verdict != domain.TokenValid {
		t.Fatalf("verdict = %s, want valid (no exp claim)", check.Verdict)
	}
}

func TestValidateFormat_ClaimExtraction(t *testing.T) {
	v := NewTokenValidator()

	header := base64JSON(map[string]any{"alg": "HS256", "typ": "JWT"})
	payload := base64JSON(map[string]any{
		"sub":         "barista-7",
		"role":        "barista",
		"permissions": []any{"orders:read", "orders:complete"},
		"exp":         time.Now().Add(time.Hour).Unix(),
	})
	check := v.ValidateFormat(header + "." + payload + ".sig")

	if !check.Valid() {
		t.Fatalf("expected valid verdict, got %s (%s)", check.Verdict, check.Reason)
	}
	if check.Claims.Role != domain.RoleBarista {
		t.Fatalf("role = %s, want barista", check.Claims.Role)
	}
	if len(check.Claims.Permissions) != 2 {
		t.Fatalf("permissions = %v", check.Claims.Permissions)
	}
}

package domain

import (
	"errors"
	"testing"
)

func TestClassify_SignatureBeatsAuth(t *testing.T) {
	// A 422 signature rejection must not be treated as a plain 401-style
	// refresh case even when the message also mentions authorization.
	err := &RequestError{Status: 422, Message: "Signature verification failed: unauthorized subject"}
	if got := Classify(err); got != ClassSignatureInvalid {
		t.Fatalf("expected signature_invalid, got %s", got)
	}
}

func TestClassify_Table(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ClassificationKind
	}{
		{"structured signature code", &RequestError{Status: 400, Code: "invalid_token", Message: "nope"}, ClassSignatureInvalid},
		{"structured auth code", &RequestError{Status: 400, Code: "token_expired", Message: "nope"}, ClassAuthExpired},
		{"http 422", &RequestError{Status: 422, Message: "unprocessable"}, ClassSignatureInvalid},
		{"signature text on 500", &RequestError{Status: 500, Message: "token validation failed"}, ClassSignatureInvalid},
		{"http 401", &RequestError{Status: 401, Message: "missing token"}, ClassAuthExpired},
		{"http 403", &RequestError{Status: 403, Message: "no access"}, ClassAuthExpired},
		{"unauthorized text", &RequestError{Status: 400, Message: "Unauthorized request"}, ClassAuthExpired},
		{"timeout", &RequestError{Transport: true, Message: "context deadline exceeded"}, ClassTransientNetwork},
		{"server error", &RequestError{Status: 503, Message: "maintenance"}, ClassServerError},
		{"bad gateway", &RequestError{Status: 502, Message: ""}, ClassServerError},
		{"not a request error", errors.New("boom"), ClassUnknown},
		{"2xx with error shape", &RequestError{Status: 200, Message: "odd"}, ClassUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestClassify_WrappedRequestError(t *testing.T) {
	inner := &RequestError{Status: 401, Message: "expired"}
	wrapped := errors.Join(errors.New("call orders/pending"), inner)
	if got := Classify(wrapped); got != ClassAuthExpired {
		t.Fatalf("expected auth_expired through wrapping, got %s", got)
	}
}

func TestRedirectTarget(t *testing.T) {
	cases := map[Role]string{
		RoleAdmin:          "/admin",
		RoleBarista:        "/barista",
		RoleEventOrganizer: "/organizer",
		RoleSupport:        "/support",
		RoleDisplay:        "/display",
		RoleGuest:          "/menu",
		Role("intruder"):   "/menu",
	}
	for role, want := range cases {
		if got := role.RedirectTarget(); got != want {
			t.Fatalf("RedirectTarget(%s) = %s, want %s", role, got, want)
		}
	}
}

func TestVerdictRefreshable(t *testing.T) {
	if !TokenExpired.Refreshable() {
		t.Fatalf("expired tokens must be refreshable")
	}
	for _, v := range []TokenVerdict{TokenInvalidFormat, TokenInvalidHeader, TokenInvalidSubject} {
		if v.Refreshable() {
			t.Fatalf("%s must not be refreshable", v)
		}
	}
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ClassificationKind buckets a failed upstream request into one of a fixed
// set of error kinds that drive the recovery policy.
type ClassificationKind string

const (
	ClassSignatureInvalid ClassificationKind = "signature_invalid"
	ClassAuthExpired      ClassificationKind = "auth_expired"
	ClassTransientNetwork ClassificationKind = "transient_network"
	ClassServerError      ClassificationKind = "server_error"
	ClassUnknown          ClassificationKind = "unknown"
)

// RequestError is the structured failure surface for upstream calls. Code
// carries the machine-readable error code when the backend emits one;
// Message keeps the raw text for the legacy classification path.
type RequestError struct {
	Status    int    // HTTP status, 0 when no response was received
	Code      string // machine-readable backend error code, optional
	Message   string
	Transport bool // no response received: timeout, refused, aborted
	Err       error
}

func (e *RequestError) Error() string {
	if e.Transport {
		return fmt.Sprintf("upstream transport failure: %s", e.Message)
	}
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// signatureCodes and authCodes are the structured codes the backend emits.
var signatureCodes = map[string]struct{}{
	"signature_invalid":       {},
	"invalid_token":           {},
	"token_validation_failed": {},
	"invalid_subject":         {},
}

var authCodes = map[string]struct{}{
	"unauthorized":  {},
	"forbidden":     {},
	"token_expired": {},
}

// Classify derives the error kind from a failed request. It is a pure
// function of the error; ordering matters: a 422 signature rejection must
// win over the generic auth-expired bucket because refreshing a token whose
// subject is malformed yields an equally malformed token.
func Classify(err error) ClassificationKind {
	var re *RequestError
	if !errors.As(err, &re) {
		return ClassUnknown
	}

	if re.Transport {
		return ClassTransientNetwork
	}

	// Structured code takes precedence over text sniffing.
	if re.Code != "" {
		if _, ok := signatureCodes[re.Code]; ok {
			return ClassSignatureInvalid
		}
		if _, ok := authCodes[re.Code]; ok {
			return ClassAuthExpired
		}
	}

	if re.Status == http.StatusUnprocessableEntity || smellsLikeSignature(re.Message) {
		return ClassSignatureInvalid
	}

	if re.Status == http.StatusUnauthorized || re.Status == http.StatusForbidden || smellsLikeAuth(re.Message) {
		return ClassAuthExpired
	}

	if re.Status >= 300 {
		return ClassServerError
	}

	return ClassUnknown
}

// smellsLikeSignature is the legacy fallback path for backends that do not
// emit structured codes yet. Keep it isolated here.
func smellsLikeSignature(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "signature") ||
		strings.Contains(m, "invalid token") ||
		strings.Contains(m, "token validation failed")
}

func smellsLikeAuth(message string) bool {
	m := strings.ToLower(message)
	return strings.Contains(m, "unauthorized") || strings.Contains(m, "forbidden")
}

package service

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/brewpoint/pos-edge/internal/core/domain"
)

// TokenValidator performs structural validation of bearer tokens. No
// signature check happens client-side: the signature is verified by the
// backend, "valid" here means well-formed enough to send.
type TokenValidator struct {
	parser *jwt.Parser
	now    func() time.Time
}

func NewTokenValidator() *TokenValidator {
	return &TokenValidator{
		parser: jwt.NewParser(),
		now:    time.Now,
	}
}

// ValidateFormat checks that the token splits into three segments, that the
// header decodes to JSON carrying alg and typ, that the payload carries a
// subject claim of string type, and that any expiry claim is not in the
// past. The subject-must-be-string rule is enforced strictly: a numeric or
// object subject is terminally invalid and can only be fixed by re-issuance,
// never by refresh.
func (v *TokenValidator) ValidateFormat(token string) domain.TokenCheck {
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
		return domain.TokenCheck{Verdict: domain.TokenInvalidFormat, Reason: "token must have three segments"}
	}

	headerBytes, err := v.parser.DecodeSegment(parts[0])
	if err != nil {
		return domain.TokenCheck{Verdict: domain.TokenInvalidHeader, Reason: "header is not valid base64"}
	}
	var header map[string]any
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return domain.TokenCheck{Verdict: domain.TokenInvalidHeader, Reason: "header is not valid JSON"}
	}
	if _, ok := header["alg"].(string); !ok {
		return domain.TokenCheck{Verdict: domain.TokenInvalidHeader, Reason: "header missing alg"}
	}
	if _, ok := header["typ"].(string); !ok {
		return domain.TokenCheck{Verdict: domain.TokenInvalidHeader, Reason: "header missing typ"}
	}

	payloadBytes, err := v.parser.DecodeSegment(parts[1])
	if err != nil {
		return domain.TokenCheck{Verdict: domain.TokenInvalidFormat, Reason: "payload is not valid base64"}
	}
	var payload map[string]any
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return domain.TokenCheck{Verdict: domain.TokenInvalidFormat, Reason: "payload is not valid JSON"}
	}

	subject, ok := payload["sub"].(string)
	if !ok || subject == "" {
		return domain.TokenCheck{Verdict: domain.TokenInvalidSubject, Reason: "subject claim must be a non-empty string"}
	}

	claims := &domain.TokenClaims{Subject: subject}
	if iat, ok := payload["iat"].(float64); ok {
		claims.IssuedAt = time.Unix(int64(iat), 0)
	}
	if role, ok := payload["role"].(string); ok {
		claims.Role = domain.Role(role)
	}
	if perms, ok := payload["permissions"].([]any); ok {
		for _, p := range perms {
			if s, ok := p.(string); ok {
				claims.Permissions = append(claims.Permissions, s)
			}
		}
	}

	if exp, ok := payload["exp"].(float64); ok {
		claims.ExpiresAt = time.Unix(int64(exp), 0)
		// Client clock is authoritative here; server time is not consulted.
		if claims.ExpiresAt.Before(v.now()) {
			return domain.TokenCheck{Verdict: domain.TokenExpired, Reason: "token expired", Claims: claims}
		}
	}

	return domain.TokenCheck{Verdict: domain.TokenValid, Claims: claims}
}

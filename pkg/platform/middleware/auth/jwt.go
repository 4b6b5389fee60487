package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	id "facelive/pkg/domain"
)

// JWTValidator validates HS256 tokens issued by the external identity
// service. The shared signing key comes from configuration.
type JWTValidator struct {
	signingKey []byte
	issuer     string
}

// NewJWTValidator constructs a validator for the given signing key.
// An empty issuer disables issuer checking (development setups).
func NewJWTValidator(signingKey, issuer string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey), issuer: issuer}
}

// ValidateToken parses and verifies the token and extracts the subject.
func (v *JWTValidator) ValidateToken(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("token subject: %w", err)
	}
	subjectID, err := id.ParseSubjectID(subject)
	if err != nil {
		return nil, fmt.Errorf("token subject is not a valid id: %w", err)
	}

	return &Claims{SubjectID: subjectID}, nil
}

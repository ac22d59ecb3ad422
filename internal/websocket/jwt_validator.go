package websocket

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrInvalidSubject is returned when the token subject is not a user id
var ErrInvalidSubject = errors.New("token subject is not a user id")

// TokenValidator checks HS256 access tokens issued by the identity service
// and resolves the numeric user id carried in the subject claim
type TokenValidator struct {
	validator *validator.Validator
}

// NewTokenValidator creates a validator for tokens signed with secret
func NewTokenValidator(secret, issuer, audience string) (*TokenValidator, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	key := []byte(secret)

	jwtValidator, err := validator.New(
		func(context.Context) (interface{}, error) { return key, nil },
		validator.HS256,
		issuer,
		[]string{audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}
	return &TokenValidator{validator: jwtValidator}, nil
}

// ValidateToken validates a raw JWT and returns the user id
func (v *TokenValidator) ValidateToken(ctx context.Context, token string) (int32, error) {
	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return 0, ErrInvalidToken
	}
	validated, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	return ParseUserID(validated.RegisteredClaims.Subject)
}

// ParseUserID converts a subject claim into a positive user id
func ParseUserID(subject string) (int32, error) {
	id, err := strconv.ParseInt(subject, 10, 32)
	if err != nil || id <= 0 {
		return 0, ErrInvalidSubject
	}
	return int32(id), nil
}

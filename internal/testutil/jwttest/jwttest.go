// Package jwttest signs access tokens for tests of the auth layers.
package jwttest

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	jose "gopkg.in/go-jose/go-jose.v2"
	"gopkg.in/go-jose/go-jose.v2/jwt"
)

// Token settings shared by tests of the auth layers
const (
	TestJWTSecret   = "test-secret-with-enough-entropy-0123456789"
	TestJWTIssuer   = "https://id.ledger.test/"
	TestJWTAudience = "ledger-api"
)

// SignToken returns an HS256 token for userID that expires after ttl
func SignToken(t testing.TB, secret string, userID int32, ttl time.Duration) string {
	t.Helper()
	return SignClaims(t, secret, jwt.Claims{
		Subject:  strconv.Itoa(int(userID)),
		Issuer:   TestJWTIssuer,
		Audience: jwt.Audience{TestJWTAudience},
		IssuedAt: jwt.NewNumericDate(time.Now()),
		Expiry:   jwt.NewNumericDate(time.Now().Add(ttl)),
	})
}

// SignClaims signs arbitrary registered claims with HS256
func SignClaims(t testing.TB, secret string, claims jwt.Claims) string {
	t.Helper()
	signer, err := jose.NewSigner(
		jose.SigningKey{Algorithm: jose.HS256, Key: []byte(secret)},
		(&jose.SignerOptions{}).WithType("JWT"),
	)
	require.NoError(t, err)
	raw, err := jwt.Signed(signer).Claims(claims).CompactSerialize()
	require.NoError(t, err)
	return raw
}

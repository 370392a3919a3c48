package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// tokenExpired peeks at the exp claim of a JWT-shaped token without
// verifying the signature; signature validation is the remote API's job.
// Opaque (non-JWT) tokens and tokens without exp are never considered
// expired here.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(now)
}

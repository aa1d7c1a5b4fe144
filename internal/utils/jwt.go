package utils // package utils provides helper functions for token signing and hashing

import (
	"errors"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens
)

// ErrUnexpectedSigningMethod is returned when a token header names an
// algorithm outside the HMAC family.
var ErrUnexpectedSigningMethod = errors.New("unexpected signing method")

// SignHS256 builds and signs an HS256 JWT carrying claims. Callers are
// responsible for the registered claims (sub, iat, exp).
func SignHS256(secret []byte, claims jwt.MapClaims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// ParseHS256 verifies the signature of raw with secret and returns its
// claims. Time based claims are NOT validated here; the caller decides
// expiry against its own clock.
func ParseHS256(secret []byte, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		// Reject anything that is not HMAC before handing out the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnexpectedSigningMethod
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

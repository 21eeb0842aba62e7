package jwt

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing token")
)

// Claims is the payload of an access token issued by the upstream API.
// The console never holds the signing key, so tokens are inspected, not verified.
type Claims struct {
	UserID    SubjectID `json:"user_id"`
	TokenType string    `json:"token_type"`
	jwt.RegisteredClaims
}

// SubjectID accepts both numeric and string user ids.
type SubjectID string

func (s *SubjectID) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = SubjectID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = SubjectID(n.String())
	return nil
}

// Int returns the id as an int when it is numeric.
func (s SubjectID) Int() (int, bool) {
	n, err := strconv.Atoi(string(s))
	return n, err == nil
}

// Inspect decodes the claims of tokenString without verifying its signature.
func Inspect(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExpiresAt returns the exp claim of tokenString.
func ExpiresAt(tokenString string) (time.Time, bool) {
	claims, err := Inspect(tokenString)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

// ExpiresWithin reports whether tokenString expires before now+d.
// Tokens without a readable exp claim never report as expiring.
func ExpiresWithin(tokenString string, d time.Duration, now time.Time) bool {
	exp, ok := ExpiresAt(tokenString)
	if !ok {
		return false
	}
	return !exp.After(now.Add(d))
}

// Package tokens signs and parses the session cookie value.
//
// The cookie carries an HS256 JWT wrapping the opaque session token; the
// signature keeps the cookie tamper-evident while the real session state
// (and revocation) lives server-side in redis.
package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("tokens: invalid session token")

// GenerateSessionToken signs a cookie token binding the session token to the
// user id for the given lifetime.
func GenerateSessionToken(secret string, userID int64, sessionToken string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"sid": sessionToken,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// ParseSessionToken validates the signature and expiry and returns the user
// id and session token embedded in the cookie.
func ParseSessionToken(secret, raw string) (userID int64, sessionToken string, err error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	sid, _ := claims["sid"].(string)
	if sub == "" || sid == "" {
		return 0, "", ErrInvalidToken
	}
	userID, err = strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidToken
	}
	return userID, sid, nil
}

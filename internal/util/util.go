package util

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// Claims is the JWT payload issued by the auth provider.
type Claims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// ValidateJWT verifies an HMAC-signed token and returns its claims.
func ValidateJWT(tokenString, secret string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

var eastern = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Briefing slot uniqueness is keyed on the Eastern calendar date. A
		// fixed-offset approximation mis-dates late-evening briefings during
		// DST, so a zoneinfo-less image fails at startup instead.
		panic(fmt.Sprintf("load America/New_York zoneinfo: %v", err))
	}
	return loc
}

// EasternTime converts t to US Eastern, the market clock all briefing
// schedules run on.
func EasternTime(t time.Time) time.Time {
	return t.In(eastern)
}

// BriefingDate returns the Eastern calendar date for t at midnight UTC.
// Briefing uniqueness is keyed on this date, so a generation triggered at
// 23:30 ET and its retry at 00:05 ET land on different slots.
func BriefingDate(t time.Time) time.Time {
	et := t.In(eastern)
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, time.UTC)
}

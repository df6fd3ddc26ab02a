// Package auth implements session tokens (HS256 JWTs) and credential
// hashing for the server.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/recordhub/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims combines the registered JWT claims with the key of the record the
// token was issued for.
type Claims struct {
	jwt.RegisteredClaims
	RecordID string
}

// GenerateToken mints an HS256 token binding the requester to recordID,
// expiring after validityDuration.
func GenerateToken(recordID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		RecordID: recordID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetRecordIDFromToken verifies tokenString and returns the bound record
// key. Expiry and signature failures are distinguished: an expired token
// yields common.ErrTokenExpired, any other failure common.ErrInvalidToken.
func GetRecordIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrInvalidToken
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.RecordID, nil
}

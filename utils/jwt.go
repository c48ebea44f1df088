package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taxnexy/config"
	"taxnexy/models"
)

type Claims struct {
	StaffUserID uint `json:"staff_user_id"`
	jwt.RegisteredClaims
}

// GenerateJWTToken issues an access token for a staff user. There is
// no login endpoint in this service; staff tokens are minted
// out-of-band by the identity tooling, which shares this claim shape
// and secret.
func GenerateJWTToken(user *models.StaffUser) (string, error) {
	claims := &Claims{
		StaffUserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

func ParseJWTToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

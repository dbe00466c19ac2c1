package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

const ContextKeyUser = "user"

func CreateJWTToken(userID string, userName string, jwtSecretKey string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{}
	claims["authorized"] = true
	claims["userID"] = userID
	claims["name"] = userName
	claims["exp"] = time.Now().Add(ttl).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecretKey))
}

func ParseJWTToken(tokenString string, jwtSecretKey string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecretKey), nil
	})
}

func ExtractTokenUser(c echo.Context) (string, string) {
	user, ok := c.Get(ContextKeyUser).(*jwt.Token)
	if !ok || !user.Valid {
		return "", ""
	}

	claims, ok := user.Claims.(jwt.MapClaims)
	if !ok {
		return "", ""
	}

	userID, _ := claims["userID"].(string)
	name, _ := claims["name"].(string)
	return userID, name
}

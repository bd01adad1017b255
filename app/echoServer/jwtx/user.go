// app/echoServer/jwtx/user.go
package jwtx

import (
	"errors"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// CallerID resolves the acting user: the authenticated subject when a token
// was presented, otherwise the explicit userId query parameter (permissive
// dev mode, same spirit as the unsigned-webhook mode).
func CallerID(c echo.Context) (int64, error) {
	if id, ok := c.Get("user_id").(int64); ok && id > 0 {
		return id, nil
	}
	raw := c.QueryParam("userId")
	if raw == "" {
		return 0, errors.New("no authenticated user and no userId parameter")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid userId parameter")
	}
	return id, nil
}

// UserIDFromToken pulls the subject out of an echo-jwt parsed token.
func UserIDFromToken(c echo.Context) (int64, error) {
	claims, err := mapClaims(c)
	if err != nil {
		return 0, err
	}
	if f, ok := claims["sub"].(float64); ok {
		return int64(f), nil
	}
	return 0, errors.New("sub missing in claims")
}

// RoleFromToken pulls the role claim out of an echo-jwt parsed token.
func RoleFromToken(c echo.Context) (string, error) {
	claims, err := mapClaims(c)
	if err != nil {
		return "", err
	}
	if s, ok := claims["role"].(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role missing in claims")
}

func mapClaims(c echo.Context) (jwt.MapClaims, error) {
	switch tok := c.Get("user").(type) {
	case *jwt.Token:
		if claims, ok := tok.Claims.(jwt.MapClaims); ok {
			return claims, nil
		}
		return nil, errors.New("invalid jwt claims")
	case jwt.MapClaims:
		return tok, nil
	default:
		return nil, errors.New("no jwt token in context")
	}
}

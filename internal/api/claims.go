package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is the displayable part of an access token's claims.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// PeekToken decodes the access token's claims WITHOUT verifying the
// signature. It exists purely so the UI can show "signed in as / expires at";
// it must never feed an authorization decision. The route guard stays a
// presence check and real enforcement is the server's 401.
func PeekToken(accessToken string) (TokenInfo, error) {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return TokenInfo{}, fmt.Errorf("peek token: %w", err)
	}

	info := TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

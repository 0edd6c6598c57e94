package live

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken   = errors.New("missing token")
	errNoUserIdentity = errors.New("token has no user identity")
)

// liveClaims is the claim set the gatekeeper accepts. The user identity
// comes from the user_id claim, falling back to the registered subject.
type liveClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenVerifier validates bearer credentials on admission. The signing
// algorithm is pinned to HS256; tokens using any other algorithm are
// rejected regardless of signature.
type TokenVerifier struct {
	secret []byte
}

func NewTokenVerifier(secret []byte) *TokenVerifier {
	return &TokenVerifier{secret: secret}
}

// Verify checks the token's signature and expiry and returns the user
// identity it carries.
func (v *TokenVerifier) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", errMissingToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &liveClaims{}, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*liveClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token claims")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", errNoUserIdentity
	}
	return userID, nil
}

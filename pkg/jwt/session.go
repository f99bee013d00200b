package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims token de identidad del comprador emitido por el storefront.
// Subject es el ID del company-user; Shop restringe el token a una tienda.
type SessionClaims struct {
	jwt.RegisteredClaims
	Shop string `json:"shop,omitempty"`
}

// GenerateSession firma un token de sesión (usado por el emisor de sesiones y en tests).
func GenerateSession(secret, companyUserID, shop, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt: secret vacío")
	}
	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   companyUserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Shop: shop,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseSession valida firma y expiración y devuelve los claims.
// Si issuer no es vacío también se verifica el claim iss.
func ParseSession(secret, issuer, tokenString string) (*SessionClaims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: secret vacío")
	}
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, hmacKey(secret), opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("claims de sesión inválidos")
	}
	return claims, nil
}

package identity

import (
	pkgjwt "github.com/jhoicas/b2b-storefront-api/pkg/jwt"
)

// JWTSessionDecoder implementa TokenDecoder con pkg/jwt (HS256).
type JWTSessionDecoder struct {
	Secret string
	Issuer string
}

// NewJWTSessionDecoder devuelve nil si no hay secreto: sin secreto no se confía en ningún token.
func NewJWTSessionDecoder(secret, issuer string) TokenDecoder {
	if secret == "" {
		return nil
	}
	return &JWTSessionDecoder{Secret: secret, Issuer: issuer}
}

// Decode valida el token y devuelve subject y tienda.
func (d *JWTSessionDecoder) Decode(token string) (string, string, error) {
	claims, err := pkgjwt.ParseSession(d.Secret, d.Issuer, token)
	if err != nil {
		return "", "", err
	}
	return claims.Subject, claims.Shop, nil
}

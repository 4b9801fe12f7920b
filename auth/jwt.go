package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"dart-scoring-server/matcherrors"
)

// Validator checks EdDSA-signed JWTs against an identity provider's JWKS and
// maps them to owner keys.
type Validator struct {
	issuer  string
	keyfunc jwt.Keyfunc
}

// NewValidator fetches the JWKS published under baseURL. The issuer is the
// scheme and host of baseURL.
func NewValidator(ctx context.Context, baseURL string) (*Validator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("auth base URL is not set")
	}
	issuer, err := issuerFor(baseURL)
	if err != nil {
		return nil, err
	}
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{strings.TrimRight(baseURL, "/") + "/.well-known/jwks.json"})
	if err != nil {
		return nil, err
	}
	return &Validator{issuer: issuer, keyfunc: jwks.Keyfunc}, nil
}

// NewValidatorFromJWKS builds a validator from a JWK Set document instead of
// fetching it.
func NewValidatorFromJWKS(baseURL string, jwksJSON []byte) (*Validator, error) {
	issuer, err := issuerFor(baseURL)
	if err != nil {
		return nil, err
	}
	jwks, err := keyfunc.NewJWKSetJSON(json.RawMessage(jwksJSON))
	if err != nil {
		return nil, err
	}
	return &Validator{issuer: issuer, keyfunc: jwks.Keyfunc}, nil
}

func issuerFor(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid base URL: %q", baseURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Validate parses tokenString and returns its claims.
func (v *Validator) Validate(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, v.keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", matcherrors.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, matcherrors.ErrInvalidToken
	}
	return claims, nil
}

// Owner validates tokenString and returns the owner key for its subject.
func (v *Validator) Owner(tokenString string) (string, error) {
	claims, err := v.Validate(tokenString)
	if err != nil {
		return "", err
	}
	id := UserIDFromClaims(claims)
	if id == "" {
		return "", fmt.Errorf("%w: no subject", matcherrors.ErrInvalidToken)
	}
	return "user:" + id, nil
}

// UserIDFromClaims returns the user id from claims ("sub" or "id").
func UserIDFromClaims(claims jwt.MapClaims) string {
	if sub, ok := claims["sub"].(string); ok && sub != "" {
		return sub
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id
	}
	return ""
}

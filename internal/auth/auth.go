// Package auth implements the per-session AuthContext of §6: the
// authenticated identity passed to a connector's ConnectionPool.Acquire,
// and the signed session token the FDW extension stamps into every IPC
// message so the host never trusts a client-supplied username in
// isolation (§4.E).
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Provider identifies which authentication mechanism produced a Context.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderJWT      Provider = "jwt"
	ProviderSAML     Provider = "saml"
	ProviderCustom   Provider = "custom"
)

// Detail is the closed set of provider-specific payloads carried by a
// Context, matching §6's `more: Password{} | Jwt{...} | Saml{...} |
// Custom{...}` sum type.
type Detail interface {
	isDetail()
	Provider() Provider
}

type PasswordDetail struct{}

func (PasswordDetail) isDetail()        {}
func (PasswordDetail) Provider() Provider { return ProviderPassword }

type JWTDetail struct {
	RawToken string
	Header   map[string]any
	Claims   map[string]any
}

func (JWTDetail) isDetail()        {}
func (JWTDetail) Provider() Provider { return ProviderJWT }

type SAMLDetail struct {
	RawSAML string
}

func (SAMLDetail) isDetail()        {}
func (SAMLDetail) Provider() Provider { return ProviderSAML }

type CustomDetail struct {
	Data map[string]any
}

func (CustomDetail) isDetail()        {}
func (CustomDetail) Provider() Provider { return ProviderCustom }

// Context is the authenticated identity of one IPC session, passed to
// connectors in ConnectionPool.Acquire.
type Context struct {
	Username        string
	Provider        Provider
	AuthenticatedAt time.Time
	Detail          Detail
}

// sessionClaims is the payload of the signed session token established at
// process start (§4.E) and verified on every subsequent AuthDataSource
// message, so a session can't replay a different session's identity.
type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Provider string `json:"provider"`
}

// TokenIssuer signs and verifies the process-wide session token.
type TokenIssuer struct {
	key []byte
}

func NewTokenIssuer(key []byte) *TokenIssuer {
	return &TokenIssuer{key: key}
}

// Issue mints a session token binding a username and provider, valid for
// ttl from now.
func (i *TokenIssuer) Issue(username string, provider Provider, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Username: username,
		Provider: string(provider),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("auth: signing session token: %w", err)
	}
	return signed, nil
}

// Verify validates a session token and extracts the username/provider it
// was minted for.
func (i *TokenIssuer) Verify(raw string) (username string, provider Provider, err error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("auth: verifying session token: %w", err)
	}
	if !tok.Valid {
		return "", "", fmt.Errorf("auth: session token is not valid")
	}
	return claims.Username, Provider(claims.Provider), nil
}

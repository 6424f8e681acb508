package session

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/nightpass/nightpass/pkg/keystore"
)

// TokenInfo is what a client may read from an access token without the signing key.
// It is for display only; the server remains the judge of validity.
type TokenInfo struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry that lies before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// ErrOpaqueToken is returned for tokens that are not JWTs.
var ErrOpaqueToken = errors.New("token is not a JWT")

// InspectToken decodes the claims of a JWT access token without verifying it.
func InspectToken(raw string) (TokenInfo, error) {
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return TokenInfo{}, ErrOpaqueToken
	}

	var info TokenInfo
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// AccessToken inspects the stored access token. ok is false when none is stored.
func (m *Manager) AccessToken() (info TokenInfo, ok bool, err error) {
	raw, ok := m.creds.Get(keystore.KeyAccessToken)
	if !ok {
		return TokenInfo{}, false, nil
	}
	info, err = InspectToken(raw)
	return info, true, err
}

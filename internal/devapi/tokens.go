package devapi

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is carried by access tokens. Subject holds the user id in decimal.
type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwtlib.RegisteredClaims
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func newTokenService(secret string, ttl time.Duration, now func() time.Time) *tokenService {
	return &tokenService{secret: []byte(secret), ttl: ttl, issuer: "nightpass-devapi", now: now}
}

func (s *tokenService) generate(userID int64, role string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   formatID(userID),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
		},
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *tokenService) validate(tokenStr string) (*Claims, error) {
	token, err := jwtlib.ParseWithClaims(tokenStr, &Claims{}, func(t *jwtlib.Token) (any, error) {
		return s.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(s.issuer),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// newRefreshToken is opaque; only the store knows which user it belongs to.
func newRefreshToken() string {
	return uuid.NewString() + uuid.NewString()
}

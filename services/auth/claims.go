package authsvc

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/trezcool/uninotes/core"
	"github.com/trezcool/uninotes/core/session"
)

// RoleAuthenticated is the JWT role of any signed in user. App roles live in the profile.
const RoleAuthenticated = "authenticated"

// Claims represents the claims of an access token. Same layout as the hosted auth server's.
type Claims struct {
	jwt.StandardClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func NewClaims(identity session.Identity, conf *core.Config) *Claims {
	now := core.NowFunc()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuidString(),
			Issuer:    conf.AppName,
			Subject:   identity.ID,
			Audience:  RoleAuthenticated,
			ExpiresAt: now.Add(conf.Auth.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: identity.Email,
		Role:  RoleAuthenticated,
	}
}

func (c Claims) Identity() session.Identity {
	return session.Identity{ID: c.Subject, Email: c.Email}
}

// GenerateToken signs the claims with HS256.
func GenerateToken(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// ParseToken verifies a HS256 token. Invalid or expired tokens are session.ErrNoSession.
func ParseToken(tokenStr, secret string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, session.ErrNoSession
	}
	return claims, nil
}

package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/examly/examly-backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the token payload issued by the identity provider. The platform
// only needs a stable user id and a role.
type Claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

// AuthService validates bearer tokens from the external identity provider
// and can mint them for development use.
type AuthService struct {
	secret []byte
	expiry time.Duration
}

func NewAuthService(secret string, expiry time.Duration) *AuthService {
	return &AuthService{secret: []byte(secret), expiry: expiry}
}

// GenerateToken mints a signed token for the given identity.
func (s *AuthService) GenerateToken(userID string, role model.Role) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("unknown role %q", role)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		UserID: userID,
		Role:   role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken parses and verifies a token, returning the caller identity.
func (s *AuthService) ValidateToken(tokenString string) (*model.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.UserID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}

	return &model.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

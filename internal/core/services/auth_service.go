package services

import (
	"errors"
	"time"

	"neurohub/internal/core/domain"
	"neurohub/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload issued by the identity service.
type Claims struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	Role     domain.Role   `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 credential tokens and resolves them to a
// principal. It implements ports.TokenVerifier.
type JWTVerifier struct {
	secret         []byte
	accessTokenTTL time.Duration
}

func NewJWTVerifier(secret string, accessTokenTTL time.Duration) *JWTVerifier {
	return &JWTVerifier{
		secret:         []byte(secret),
		accessTokenTTL: accessTokenTTL,
	}
}

func (v *JWTVerifier) Verify(tokenString string) (*ports.Principal, error) {
	if tokenString == "" {
		return nil, domain.ErrNoToken
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return nil, domain.ErrUnknownPrincipal
	}

	return &ports.Principal{
		UserID:   claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}

// GenerateToken mints a token for the given principal. Used by tooling and
// tests; production tokens come from the identity service.
func (v *JWTVerifier) GenerateToken(userID domain.UserID, username string, role domain.Role) (string, error) {
	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(v.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}

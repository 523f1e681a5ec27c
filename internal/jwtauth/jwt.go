// Package jwtauth issues and validates the short-lived bearer tokens used
// by the registry's admin endpoints. An operator exchanges the configured
// admin token for a JWT, then presents it on admin requests.
package jwtauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Claims represents the JWT claims for admin access tokens.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// RoleAdmin is the only role the registry issues today.
const RoleAdmin = "admin"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrBadAdminKey  = errors.New("admin token does not match")
)

// Service handles admin token exchange and JWT validation.
type Service struct {
	signingKey     []byte
	adminTokenHash []byte
	issuer         string
	tokenTTL       time.Duration
}

// NewService creates a Service. adminTokenHash is a bcrypt hash of the
// operator-held admin token.
func NewService(signingKey, adminTokenHash, issuer string, tokenTTL time.Duration) *Service {
	return &Service{
		signingKey:     []byte(signingKey),
		adminTokenHash: []byte(adminTokenHash),
		issuer:         issuer,
		tokenTTL:       tokenTTL,
	}
}

// Exchange verifies the presented admin token against the configured hash
// and issues a signed JWT on success.
func (s *Service) Exchange(adminToken string) (string, error) {
	if err := bcrypt.CompareHashAndPassword(s.adminTokenHash, []byte(adminToken)); err != nil {
		return "", ErrBadAdminKey
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Validate checks a presented JWT and returns its claims.
func (s *Service) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || claims.Role != RoleAdmin {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// HashAdminToken produces the bcrypt hash stored in configuration.
func HashAdminToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin token: %w", err)
	}
	return string(hash), nil
}

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johnrirwin/hamroeshop/internal/config"
	"github.com/johnrirwin/hamroeshop/internal/models"
)

// Claims is the payload of an access token issued by the identity provider.
type Claims struct {
	Role models.Role `json:"role,omitempty"`
	Name string      `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified caller.
type Identity struct {
	UserID string
	Role   models.Role
	Name   string
}

// Service verifies (and, for tests and tooling, issues) HS256 access tokens.
type Service struct {
	config config.AuthConfig
	now    func() time.Time
}

// NewService creates a new auth service
func NewService(cfg config.AuthConfig) *Service {
	return &Service{config: cfg, now: time.Now}
}

// ValidateAccessToken checks signature, expiry, issuer and audience and
// returns the caller identity. Tokens without a role are customers.
func (s *Service) ValidateAccessToken(tokenString string) (*Identity, error) {
	if tokenString == "" {
		return nil, &AuthError{Code: "invalid_token", Message: "token is required"}
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.JWTIssuer),
		jwt.WithAudience(s.config.JWTAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, &AuthError{Code: "invalid_token", Message: "token has expired"}
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return nil, &AuthError{Code: "invalid_token", Message: "invalid token issuer"}
		case errors.Is(err, jwt.ErrTokenInvalidAudience):
			return nil, &AuthError{Code: "invalid_token", Message: "invalid token audience"}
		default:
			return nil, &AuthError{Code: "invalid_token", Message: "invalid or expired token"}
		}
	}
	if !token.Valid {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token claims"}
	}

	if claims.Subject == "" {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token subject"}
	}

	role := claims.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !role.IsValid() {
		return nil, &AuthError{Code: "invalid_token", Message: "invalid token role"}
	}

	return &Identity{UserID: claims.Subject, Role: role, Name: claims.Name}, nil
}

// IssueToken signs an access token for userID. Production tokens come from
// the identity provider; this exists for tests and catalogctl.
func (s *Service) IssueToken(userID string, role models.Role, name string) (string, error) {
	if userID == "" {
		return "", &AuthError{Code: "invalid_input", Message: "user id is required"}
	}
	if !role.IsValid() {
		return "", &AuthError{Code: "invalid_input", Message: "unknown role " + string(role)}
	}

	now := s.now()
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    s.config.JWTIssuer,
			Audience:  jwt.ClaimStrings{s.config.JWTAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *AuthError) Error() string {
	return e.Message
}

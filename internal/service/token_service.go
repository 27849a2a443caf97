package service

import (
	"errors"
	"fmt"
	"time"

	"mobile-money-ledger/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess = "access"
	tokenTypeStepUp = "step_up"
)

var errWrongTokenType = errors.New("wrong token type")

// accessClaims is the payload of an access token.
type accessClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
	Role string `json:"role"`
}

// stepUpClaims is the payload of a step-up token. Binding ties it to one
// transfer intent (the idempotency key).
type stepUpClaims struct {
	jwt.RegisteredClaims
	Type    string `json:"typ"`
	Purpose string `json:"purpose"`
	Binding string `json:"bnd"`
}

// JWTTokenService implements ports.TokenService using HS256 JWT.
type JWTTokenService struct {
	secret       []byte
	expiry       time.Duration
	stepUpExpiry time.Duration
	issuer       string
	parser       *jwt.Parser
}

// NewJWTTokenService creates a new JWT token service.
func NewJWTTokenService(secret string, expiry, stepUpExpiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret:       []byte(secret),
		expiry:       expiry,
		stepUpExpiry: stepUpExpiry,
		issuer:       issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Generate creates an access token for an owner.
func (s *JWTTokenService) Generate(ownerID uuid.UUID, role string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.expiry)
	claims := accessClaims{
		RegisteredClaims: s.registered(ownerID, now, expiresAt),
		Type:             tokenTypeAccess,
		Role:             role,
	}
	signed, err := s.sign(claims)
	return signed, expiresAt, err
}

// Validate parses an access token.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	var claims accessClaims
	if err := s.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeAccess {
		return nil, errWrongTokenType
	}
	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid owner ID in token: %w", err)
	}
	return &ports.TokenClaims{OwnerID: ownerID, Role: claims.Role}, nil
}

// GenerateStepUp mints a short-lived token proving a completed step-up.
func (s *JWTTokenService) GenerateStepUp(ownerID uuid.UUID, purpose, binding string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.stepUpExpiry)
	claims := stepUpClaims{
		RegisteredClaims: s.registered(ownerID, now, expiresAt),
		Type:             tokenTypeStepUp,
		Purpose:          purpose,
		Binding:          binding,
	}
	signed, err := s.sign(claims)
	return signed, expiresAt, err
}

// ValidateStepUp parses a step-up token. An access token is rejected.
func (s *JWTTokenService) ValidateStepUp(tokenString string) (*ports.StepUpClaims, error) {
	var claims stepUpClaims
	if err := s.parse(tokenString, &claims); err != nil {
		return nil, err
	}
	if claims.Type != tokenTypeStepUp {
		return nil, errWrongTokenType
	}
	ownerID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid owner ID in token: %w", err)
	}
	return &ports.StepUpClaims{
		OwnerID:   ownerID,
		Purpose:   claims.Purpose,
		Binding:   claims.Binding,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *JWTTokenService) registered(ownerID uuid.UUID, now, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   ownerID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (s *JWTTokenService) sign(claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (s *JWTTokenService) parse(tokenString string, claims jwt.Claims) error {
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

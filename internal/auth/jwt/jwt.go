package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrExpiredToken    = errors.New("token has expired")
	ErrMissingSubject  = errors.New("token has no subject")
	ErrEmptySecretKey  = errors.New("secret key cannot be empty")
	ErrWeakSecretKey   = errors.New("secret key must be at least 32 characters")
	ErrInvalidDuration = errors.New("duration must be positive")
)

const minSecretLength = 32

// Claims identifies the caller of a mutating content route
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Config holds the signing key and token lifetime. Issuer is optional; when
// set it is stamped on issued tokens and required on validated ones.
type Config struct {
	SecretKey string
	Duration  time.Duration
	Issuer    string
}

// Service issues and checks HS256 tokens
type Service struct {
	key      []byte
	duration time.Duration
	issuer   string
	parser   *jwt.Parser
}

// NewService creates a new JWT service
func NewService(cfg Config) (*Service, error) {
	switch {
	case cfg.SecretKey == "":
		return nil, ErrEmptySecretKey
	case len(cfg.SecretKey) < minSecretLength:
		return nil, ErrWeakSecretKey
	case cfg.Duration <= 0:
		return nil, ErrInvalidDuration
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &Service{
		key:      []byte(cfg.SecretKey),
		duration: cfg.Duration,
		issuer:   cfg.Issuer,
		parser:   jwt.NewParser(opts...),
	}, nil
}

// GenerateToken issues a token for subject, used by operators and tests
func (s *Service) GenerateToken(subject, role string) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.duration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

// ValidateToken parses tokenString and returns its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, ErrInvalidToken
	case claims.Subject == "":
		return nil, ErrMissingSubject
	}
	return claims, nil
}

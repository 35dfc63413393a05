package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	PasswordSessionTTL = time.Hour
	OAuthSessionTTL    = 7 * 24 * time.Hour
)

var (
	ErrSecretNotConfigured = errors.New("jwt secret not configured")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenMalformed      = errors.New("token malformed")
	ErrTokenNotActive      = errors.New("token not active yet")
	ErrTokenInvalid        = errors.New("invalid token")
	ErrInvalidPayload      = errors.New("invalid token payload: missing user id")
)

type AuthMethod string

const (
	MethodJWT     AuthMethod = "jwt"
	MethodSession AuthMethod = "session"
)

// JWTclaims is the wire shape of a session token. Older tokens may carry the
// user id only in "sub", so readers go through Identity instead.
type JWTclaims struct {
	UserID string `json:"userId,omitempty"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Identity is the verified, normalized view of a session token.
type Identity struct {
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Method    AuthMethod `json:"authMethod,omitempty"`
	IssuedAt  time.Time  `json:"iat"`
	ExpiresAt time.Time  `json:"exp"`
}

type TokenService struct {
	secret []byte
	now    func() time.Time
}

type TokenOption func(*TokenService)

func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

func NewTokenService(secret string, opts ...TokenOption) *TokenService {
	s := &TokenService{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TokenService) Configured() bool {
	return len(s.secret) > 0
}

func (s *TokenService) Issue(userID, email string, ttl time.Duration) (string, error) {
	if !s.Configured() {
		return "", ErrSecretNotConfigured
	}

	now := s.now()
	claims := JWTclaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenService) Verify(tokenString string) (*Identity, error) {
	if !s.Configured() {
		return nil, ErrSecretNotConfigured
	}

	claims := &JWTclaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrInvalidPayload
	}

	identity := &Identity{
		UserID: userID,
		Email:  claims.Email,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return ErrTokenNotActive
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenMalformed
	default:
		return ErrTokenInvalid
	}
}

package service

import (
	"errors"
	"time"

	apperrors "pharmacie-admin/pkg/errors"

	jwt "github.com/golang-jwt/jwt/v5"
)

// SessionClaims identify a shell session. The backend tokens never leave the
// BFF; the shell only holds this one.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type JWTService interface {
	GenerateSessionToken(sessionID, username string) (string, error)
	ValidateToken(tokenString string) (*SessionClaims, error)
	GetSessionTTL() time.Duration
}

type jwtService struct {
	SecretKey  string
	SessionExp time.Duration
}

func NewJWTService(secretKey string, sessionExp time.Duration) JWTService {
	return &jwtService{
		SecretKey:  secretKey,
		SessionExp: sessionExp,
	}
}

func (service *jwtService) GenerateSessionToken(sessionID, username string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(service.SessionExp)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(service.SecretKey))
}

func (s *jwtService) GetSessionTTL() time.Duration {
	return s.SessionExp
}

func (service *jwtService) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			return []byte(service.SecretKey), nil
		default:
			return nil, apperrors.ErrInvalidSigningMethod
		}
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, apperrors.ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, apperrors.ErrTokenNotYetValid
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}

// BackendTokenExpiry reads the exp claim of a backend access token without
// verifying it; the BFF does not know the backend signing key. ok is false
// when the token carries no readable expiry.
func BackendTokenExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

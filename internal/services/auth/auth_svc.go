package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingUser  = errors.New("token has no userId claim")
)

// Claims is the payload of the bearer tokens issued by the account API.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type IAuthService interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

type authService struct {
	secret []byte
	parser *jwt.Parser
}

var _ IAuthService = (*authService)(nil)

func NewAuthService(secret string) IAuthService {
	return &authService{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
	}
}

// VerifyToken checks signature and expiry and returns the user id.
func (svc *authService) VerifyToken(_ context.Context, token string) (string, error) {
	claims := &Claims{}
	_, err := svc.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return svc.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == "" {
		return "", ErrMissingUser
	}
	return claims.UserID, nil
}

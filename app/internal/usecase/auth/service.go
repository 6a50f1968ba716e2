package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrMalformedAuthorization = errors.New("authorization header must be a bearer token")
)

// Claims identifies a signed-in shopper. Checkout works without one.
type Claims struct {
	UserID string
	Email  string
	Name   string
}

type TokenService interface {
	GenerateToken(c Claims) (string, error)
	ParseToken(token string) (*Claims, error)
}

type Service struct {
	tokens TokenService
}

func NewService(tokens TokenService) *Service {
	return &Service{tokens: tokens}
}

// Identify resolves an Authorization header value. An empty header is an
// anonymous shopper and yields nil claims without error.
func (s *Service) Identify(ctx context.Context, header string) (*Claims, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return nil, ErrMalformedAuthorization
	}
	claims, err := s.tokens.ParseToken(strings.TrimSpace(token))
	if err != nil || claims == nil || claims.UserID == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}

type ctxKey struct{}

func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the shopper's claims, or nil for anonymous requests.
func FromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(ctxKey{}).(*Claims)
	return c
}

// UserID is empty for anonymous requests.
func UserID(ctx context.Context) string {
	if c := FromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}

package services

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidSession = errors.New("invalid or expired token")

// Claims carry the member's email; the auth provider signs them with a
// shared HS256 secret.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

type SessionService interface {
	Issue(email string) (string, *Claims, error)
	Parse(token string) (*Claims, error)
	Revoke(claims *Claims)
}

type sessionService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

func NewSessionService(secret, issuer string, ttl, leeway time.Duration) SessionService {
	return &sessionService{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     ttl,
		leeway:  leeway,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}
}

// Issue signs a token for local and development use.
func (s *sessionService) Issue(email string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Email: strings.ToLower(strings.TrimSpace(email)),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

func (s *sessionService) Parse(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}

	claims.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	if claims.Email == "" {
		return nil, ErrInvalidSession
	}
	if s.isRevoked(claims.ID) {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// Revoke blacklists the token id until the token would have expired anyway.
func (s *sessionService) Revoke(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	exp := s.now().Add(s.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time.Add(s.leeway)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, until := range s.revoked {
		if now.After(until) {
			delete(s.revoked, id)
		}
	}
	s.revoked[claims.ID] = exp
}

func (s *sessionService) isRevoked(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

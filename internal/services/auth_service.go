package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"auctionhouse/internal/domain"
)

const tokenIssuer = "auctionhouse"

var ErrBadCreds = fmt.Errorf("%w: invalid username or password", domain.ErrUnauthorized)

type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	UserType string `json:"userType"`
	jwt.RegisteredClaims
}

type AuthService struct {
	Users  UserStore
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewAuthService(users UserStore, secret string, ttl time.Duration) *AuthService {
	return &AuthService{Users: users, Secret: []byte(secret), TTL: ttl}
}

// Register creates a seller or buyer account. Admins are only seeded.
func (s *AuthService) Register(ctx context.Context, username, password string, userType domain.UserType) (*domain.User, error) {
	if userType != domain.UserSeller && userType != domain.UserBuyer {
		return nil, fmt.Errorf("%w: userType must be seller or buyer", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		ID:        uuid.NewString(),
		Username:  username,
		Hash:      string(hash),
		UserType:  userType,
		CreatedAt: clock(s.Now),
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	u, err := s.Users.ByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, ErrBadCreds
		}
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Hash), []byte(password)) != nil || u.Closed {
		return "", nil, ErrBadCreds
	}
	tok, err := s.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return tok, u, nil
}

func (s *AuthService) Issue(u *domain.User) (string, error) {
	now := clock(s.Now)
	claims := &Claims{
		UserID:   u.ID,
		Username: u.Username,
		UserType: string(u.UserType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// Verify checks signature and expiry, then resolves the claims against the store:
// the account must still exist, match the claimed username and not be closed.
func (s *AuthService) Verify(ctx context.Context, raw string) (*domain.User, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer)}
	if s.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(s.Now))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid claims", domain.ErrUnauthorized)
	}

	u, err := s.Users.ByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown account", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if u.Username != claims.Username || string(u.UserType) != claims.UserType {
		return nil, fmt.Errorf("%w: claims do not match account", domain.ErrUnauthorized)
	}
	if u.Closed {
		return nil, fmt.Errorf("%w: account closed", domain.ErrUnauthorized)
	}
	return u, nil
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/joelkehle/lossaudit/internal/store"
)

var (
	ErrInvalidCredentials  = errors.New("incorrect username or password")
	ErrInvalidRegistration = errors.New("invalid registration")
)

const (
	minPasswordLength = 8
	// bcrypt only hashes the first 72 bytes and rejects longer input.
	maxPasswordBytes = 72
)

type UserStore interface {
	CreateUser(ctx context.Context, username, hashedPassword string) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
}

type Service struct {
	users  UserStore
	tokens *TokenIssuer
	cost   int
}

func NewService(users UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func (s *Service) Tokens() *TokenIssuer { return s.tokens }

func (s *Service) Register(ctx context.Context, username, password string) (store.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return store.User{}, fmt.Errorf("%w: username is required", ErrInvalidRegistration)
	}
	if len(password) < minPasswordLength {
		return store.User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, minPasswordLength)
	}
	if len(password) > maxPasswordBytes {
		return store.User{}, fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidRegistration, maxPasswordBytes)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return store.User{}, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(ctx, username, string(hash))
}

// Login checks a username/password pair and returns a signed bearer token.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, username, password string) (string, store.User, error) {
	u, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, store.ErrNotFound) {
		return "", store.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", store.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte(password)); err != nil {
		return "", store.User{}, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return "", store.User{}, err
	}
	return token, u, nil
}

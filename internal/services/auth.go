package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"eventregistry/internal/domain"
)

const minPasswordLen = 8

var emailRegexp = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type authService struct {
	userRepo    domain.UserRepository
	hasher      domain.PasswordHasher
	issuer      domain.TokenIssuer
	verifier    domain.TokenVerifier
	tokenExpiry time.Duration
	nowFn       func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time // token id -> expiry
}

// NewAuthService creates an AuthService. Sessions are the unexpired tokens
// issued by Login that have not been logged out.
func NewAuthService(userRepo domain.UserRepository, hasher domain.PasswordHasher, issuer domain.TokenIssuer, verifier domain.TokenVerifier, tokenExpiry time.Duration) domain.AuthService {
	return &authService{
		userRepo:    userRepo,
		hasher:      hasher,
		issuer:      issuer,
		verifier:    verifier,
		tokenExpiry: tokenExpiry,
		nowFn:       time.Now,
		sessions:    make(map[string]time.Time),
	}
}

func (s *authService) SignUp(ctx context.Context, email, password, name string) (*domain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if !emailRegexp.MatchString(email) {
		return nil, fmt.Errorf("invalid email format")
	}
	if len(password) < minPasswordLen {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return nil, err
	}

	now := s.nowFn()
	user := domain.NewUser(email, strings.TrimSpace(name), now, now)
	user.PasswordHash = hash
	user.Salt = salt
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, tokenID, err := s.issuer.Issue(user.ID, user.Email, s.tokenExpiry)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.sessions[tokenID] = s.nowFn().Add(s.tokenExpiry)
	s.mu.Unlock()
	return token, nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	_, tokenID, err := s.verifier.Verify(token)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, tokenID)
	s.mu.Unlock()
	return nil
}

// Verify rejects tokens that are invalid, expired or logged out.
func (s *authService) Verify(ctx context.Context, token string) (string, error) {
	userID, tokenID, err := s.verifier.Verify(token)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	expiry, ok := s.sessions[tokenID]
	s.mu.Unlock()
	if !ok || !s.nowFn().Before(expiry) {
		return "", domain.ErrInvalidCredentials
	}
	return userID, nil
}

func (s *authService) CountUsers(ctx context.Context) (int, error) {
	n, err := s.userRepo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountActiveSessions prunes expired sessions before counting.
func (s *authService) CountActiveSessions(ctx context.Context) (int, error) {
	now := s.nowFn()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, expiry := range s.sessions {
		if !now.Before(expiry) {
			delete(s.sessions, id)
		}
	}
	return len(s.sessions), nil
}

func (s *authService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Package auth implements email/password accounts and bearer-token sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"kakeibo/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrSessionExpired     = errors.New("session expired or unknown")
)

// Store is the slice of the repository the auth service needs. Satisfied by
// *storage.SQLiteRepository; tests substitute a fake.
type Store interface {
	CreateUser(ctx context.Context, p storage.CreateUserParams) (storage.User, error)
	GetUserByEmail(ctx context.Context, email string) (storage.User, error)
	CreateSession(ctx context.Context, p storage.CreateSessionParams) error
	GetSession(ctx context.Context, token string) (storage.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Session is an authenticated principal: the token plus the owner it scopes.
type Session struct {
	Token     string
	UserID    int64
	ExpiresAt time.Time
}

type Service struct {
	store      Store
	sessionTTL time.Duration
	bcryptCost int
}

func NewService(store Store, sessionTTL time.Duration, bcryptCost int) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{store: store, sessionTTL: sessionTTL, bcryptCost: bcryptCost}
}

// SignUp registers a new account. It does not sign the user in; the caller
// follows up with SignIn.
func (s *Service) SignUp(ctx context.Context, email, password string) (storage.User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return storage.User{}, err
	}
	if len(password) < 8 {
		return storage.User{}, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return storage.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, storage.CreateUserParams{Email: email, PasswordHash: string(hash)})
	if errors.Is(err, storage.ErrEmailTaken) {
		return storage.User{}, ErrEmailTaken
	}
	if err != nil {
		return storage.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// SignIn verifies credentials and issues a fresh session token. Unknown
// email and wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)

	u, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("look up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return Session{}, ErrInvalidCredentials
	}

	sess := Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: time.Now().Add(s.sessionTTL),
	}
	err = s.store.CreateSession(ctx, storage.CreateSessionParams{
		Token:     sess.Token,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
	})
	if err != nil {
		return Session{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// SignOut revokes the token. Revoking an unknown token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	err := s.store.DeleteSession(ctx, token)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Lookup resolves a bearer token to its session. Expired sessions are
// reported as ErrSessionExpired and revoked opportunistically.
func (s *Service) Lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrSessionExpired
	}
	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return Session{}, ErrSessionExpired
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if time.Now().After(sess.ExpiresAt) {
		_ = s.store.DeleteSession(ctx, token)
		return Session{}, ErrSessionExpired
	}
	return Session{Token: sess.Token, UserID: sess.UserID, ExpiresAt: sess.ExpiresAt}, nil
}

// PruneExpired removes expired sessions; main runs this on a ticker.
func (s *Service) PruneExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, time.Now())
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || !strings.Contains(email[at+1:], ".") {
		return ErrInvalidEmail
	}
	return nil
}

package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/wishlist/internal/dependencies/clock"
	"github.com/mcoot/wishlist/internal/model"
	"github.com/mcoot/wishlist/internal/storage"
)

// Service handles account registration, login and per-connection sessions
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.RWMutex
	sessions map[model.ConnID]*model.Session

	bcryptCost int
}

// Config holds configuration for the auth service
type Config struct {
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		BcryptCost: bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, cfg Config, logger *slog.Logger) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = DefaultConfig().BcryptCost
	}
	return &Service{
		storage:    storage,
		clock:      clock,
		logger:     logger.With(slog.String("component", "auth")),
		sessions:   make(map[model.ConnID]*model.Session),
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates an account. The username must match the allowed
// character set and must not be taken.
func (s *Service) Register(ctx context.Context, username, password string) (*model.Account, error) {
	if !model.ValidUsername(username) {
		return nil, model.ErrInvalidUsername
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return s.CreateAccount(ctx, username, hash)
}

// HashPassword returns the stored form of password. It is the expensive
// half of Register and touches no shared state.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(prehash(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CreateAccount stores an account whose password was hashed with
// HashPassword. Validation and the taken check happen here.
func (s *Service) CreateAccount(ctx context.Context, username, hash string) (*model.Account, error) {
	if !model.ValidUsername(username) {
		return nil, model.ErrInvalidUsername
	}

	if _, err := s.storage.GetAccount(ctx, username); err == nil {
		return nil, model.ErrUsernameTaken
	} else if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, err
	}

	account := &model.Account{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.clock.Now(),
	}
	if err := s.storage.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", slog.String("username", username))
	return account, nil
}

// Login checks the credentials and binds the username to conn,
// replacing any session the connection already had
func (s *Service) Login(ctx context.Context, conn model.ConnID, username, password string) (*model.Session, error) {
	if err := s.VerifyPassword(ctx, username, password); err != nil {
		return nil, err
	}
	return s.BindSession(conn, username), nil
}

// VerifyPassword compares password with the stored hash for username.
// Accounts never change once created, so the result stays valid.
func (s *Service) VerifyPassword(ctx context.Context, username, password string) error {
	account, err := s.storage.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.ErrInvalidCredentials
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), prehash(password)); err != nil {
		return model.ErrInvalidCredentials
	}
	return nil
}

// BindSession binds username to conn without checking credentials
func (s *Service) BindSession(conn model.ConnID, username string) *model.Session {
	session := &model.Session{
		Conn:       conn,
		Username:   username,
		LoggedInAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.sessions[conn] = session
	s.mu.Unlock()

	s.logger.Info("user logged in",
		slog.String("username", username),
		slog.String("conn", conn.String()))
	return session
}

// Logout removes the session bound to conn
func (s *Service) Logout(conn model.ConnID) error {
	s.mu.Lock()
	session, ok := s.sessions[conn]
	delete(s.sessions, conn)
	s.mu.Unlock()

	if !ok {
		return model.ErrNotLoggedIn
	}

	s.logger.Info("user logged out",
		slog.String("username", session.Username),
		slog.String("conn", conn.String()),
		slog.Duration("session_duration", s.clock.Now().Sub(session.LoggedInAt)))
	return nil
}

// Session returns the session bound to conn
func (s *Service) Session(conn model.ConnID) (*model.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[conn]
	if !ok {
		return nil, model.ErrNotLoggedIn
	}
	return session, nil
}

// Drop forgets conn's session, if any. Called on connection teardown.
func (s *Service) Drop(conn model.ConnID) {
	s.mu.Lock()
	delete(s.sessions, conn)
	s.mu.Unlock()
}

// AccountExists reports whether username is registered
func (s *Service) AccountExists(ctx context.Context, username string) (bool, error) {
	_, err := s.storage.GetAccount(ctx, username)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, model.ErrAccountNotFound) {
		return false, nil
	}
	return false, err
}

// SessionCount returns the number of live sessions
func (s *Service) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// prehash maps any password to 64 hex bytes, inside bcrypt's 72-byte input limit
func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	return []byte(hex.EncodeToString(sum[:]))
}

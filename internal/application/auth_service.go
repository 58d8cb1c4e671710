package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// PasswordVerifier compares a stored hash with a candidate password.
type PasswordVerifier func(hashedPassword, password string) error

// AuthService coordinates authentication flows such as login and session refresh.
type AuthService struct {
	accounts       persistence.AccountRepository
	sessions       persistence.SessionRepository
	verifyPassword PasswordVerifier
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(accounts persistence.AccountRepository, sessions persistence.SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(accounts, sessions, verify, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(accounts persistence.AccountRepository, sessions persistence.SessionRepository, verify PasswordVerifier, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if verify == nil {
		verify = VerifyPassword
	}
	if tokenGenerator == nil {
		tokenGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		accounts:       accounts,
		sessions:       sessions,
		verifyPassword: verify,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"email", email,
	)
	defer func() {
		logOutcome(ctx, logger, err, "authentication failed", "authentication succeeded",
			"account_id", result.Account.ID,
			"session_id", result.Session.ID,
		)
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	record, err := s.accounts.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if record.Disabled {
		err = ErrAccountDisabled
		return
	}

	if err = s.verifyPassword(record.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	now := s.now()
	session := Session{
		ID:          s.tokenGenerator(),
		AccountID:   record.ID,
		Token:       s.tokenGenerator(),
		Fingerprint: strings.TrimSpace(params.Fingerprint),
		CreatedAt:   now,
		UpdatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}

	if err = s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return
	}

	persisted, err := s.sessions.CreateSession(ctx, sessionToRecord(session))
	if err != nil {
		return
	}

	result = AuthenticateResult{Account: accountFromRecord(record), Session: sessionFromRecord(persisted)}
	return
}

// RefreshSession rotates an existing session token, extending its validity window.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession",
		"token_provided", token != "",
	)
	defer func() {
		logOutcome(ctx, logger, err, "session refresh failed", "session refreshed",
			"session_id", result.Session.ID,
			"account_id", result.Session.AccountID,
		)
	}()

	if token == "" {
		err = ErrInvalidCredentials
		return
	}

	session, err := s.activeSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) {
			err = ErrInvalidCredentials
		}
		return
	}

	now := s.now()
	session.Token = s.tokenGenerator()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)
	if fp := strings.TrimSpace(params.Fingerprint); fp != "" {
		session.Fingerprint = fp
	}

	updated, err := s.sessions.UpdateSession(ctx, sessionToRecord(session))
	if err != nil {
		return
	}

	result = RefreshSessionResult{Session: sessionFromRecord(updated)}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrInvalidCredentials
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", trimmed != "")

	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logOutcome(ctx, logger, ErrInvalidCredentials, "failed to revoke session", "")
			return ErrInvalidCredentials
		}
		logOutcome(ctx, logger, err, "failed to revoke session", "")
		return err
	}

	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active
// session of an enabled account and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logOutcome(ctx, logger, err, "session validation failed", "")
			return
		}
		logger.With("principal_id", principal.AccountID).DebugContext(ctx, "session validated")
	}()

	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	session, err := s.activeSession(ctx, trimmed)
	if err != nil {
		return
	}

	account, err := s.accounts.GetAccount(ctx, session.AccountID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrUnauthorized
		}
		return
	}
	if account.Disabled {
		err = ErrAccountDisabled
		return
	}

	role, ok := ParseRole(account.Role)
	if !ok {
		err = fmt.Errorf("account %s has unknown role %q", account.ID, account.Role)
		return
	}

	principal = Principal{AccountID: account.ID, Role: role}
	return
}

// PruneSessions removes sessions that expired before now.
func (s *AuthService) PruneSessions(ctx context.Context) error {
	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		s.loggerWith(ctx, "PruneSessions").ErrorContext(ctx, "failed to prune expired sessions", "error", err)
		return err
	}
	return nil
}

func (s *AuthService) activeSession(ctx context.Context, token string) (Session, error) {
	record, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}

	session := sessionFromRecord(record)
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Session{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(s.now()) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

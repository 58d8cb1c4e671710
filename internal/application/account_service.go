package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/example/lodging-scheduler/internal/persistence"
)

// minPasswordLength is the shortest password accepted for new accounts.
const minPasswordLength = 8

// AccountService orchestrates validation, authorization, and persistence for
// staff and guest accounts.
type AccountService struct {
	accounts    persistence.AccountRepository
	idGenerator func() string
	now         func() time.Time
	hashParams  Argon2idParams
	logger      *slog.Logger
}

// NewAccountService wires dependencies for the account service.
func NewAccountService(accounts persistence.AccountRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AccountService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AccountService{
		accounts:    accounts,
		idGenerator: idGenerator,
		now:         now,
		hashParams:  DefaultArgon2idParams,
		logger:      defaultLogger(logger),
	}
}

// WithHashParams overrides the argon2id parameters used for new passwords.
func (s *AccountService) WithHashParams(params Argon2idParams) *AccountService {
	s.hashParams = params
	return s
}

func (s *AccountService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AccountService", operation, attrs...)
}

// CreateAccount validates input and persists a new account for staff.
func (s *AccountService) CreateAccount(ctx context.Context, params CreateAccountParams) (account Account, err error) {
	if s == nil {
		err = fmt.Errorf("AccountService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateAccount", "principal_id", params.Principal.AccountID)
	defer func() {
		logOutcome(ctx, logger, err, "failed to create account", "account created", "account_id", account.ID)
	}()

	if !params.Principal.IsStaff() {
		err = ErrForbidden
		return
	}

	account, err = s.create(ctx, params.Input)
	return
}

func (s *AccountService) create(ctx context.Context, input AccountInput) (Account, error) {
	normalized := normalizeAccountInput(input)
	if vErr := validateAccountInput(normalized); vErr.HasErrors() {
		return Account{}, vErr
	}

	hash, err := CreatePasswordHash(normalized.Password, s.hashParams)
	if err != nil {
		return Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	record := persistence.Account{
		ID:           s.idGenerator(),
		Email:        normalized.Email,
		DisplayName:  normalized.DisplayName,
		Role:         normalized.Role,
		PasswordHash: hash,
		Disabled:     normalized.Disabled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.accounts.CreateAccount(ctx, record); err != nil {
		return Account{}, mapRepoError(err)
	}
	return accountFromRecord(record), nil
}

// GetAccount returns an account. Guests may only read their own.
func (s *AccountService) GetAccount(ctx context.Context, principal Principal, accountID string) (Account, error) {
	if !principal.IsStaff() && principal.AccountID != accountID {
		return Account{}, ErrForbidden
	}
	record, err := s.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return Account{}, mapRepoError(err)
	}
	return accountFromRecord(record), nil
}

// ListAccounts returns all accounts ordered by email for staff.
func (s *AccountService) ListAccounts(ctx context.Context, principal Principal) ([]Account, error) {
	if s == nil {
		return nil, fmt.Errorf("AccountService is nil")
	}
	if !principal.IsStaff() {
		return nil, ErrForbidden
	}

	records, err := s.accounts.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Account, len(records))
	for i, r := range records {
		out[i] = accountFromRecord(r)
	}

	sort.Slice(out, func(i, j int) bool {
		if strings.EqualFold(out[i].Email, out[j].Email) {
			return out[i].ID < out[j].ID
		}
		return strings.ToLower(out[i].Email) < strings.ToLower(out[j].Email)
	})

	return out, nil
}

// EnsureBootstrapStaff creates a staff account for email unless one already
// exists. It reports whether an account was created.
func (s *AccountService) EnsureBootstrapStaff(ctx context.Context, email, password string) (created bool, err error) {
	logger := s.loggerWith(ctx, "EnsureBootstrapStaff", "email", strings.ToLower(strings.TrimSpace(email)))
	defer func() {
		logOutcome(ctx, logger, err, "failed to bootstrap staff account", "bootstrap staff account checked", "created", created)
	}()

	_, err = s.accounts.GetAccountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, persistence.ErrNotFound):
		return false, err
	}

	_, err = s.create(ctx, AccountInput{
		Email:       email,
		DisplayName: "Staff",
		Role:        string(RoleStaff),
		Password:    password,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func normalizeAccountInput(input AccountInput) AccountInput {
	return AccountInput{
		Email:       strings.ToLower(strings.TrimSpace(input.Email)),
		DisplayName: strings.TrimSpace(input.DisplayName),
		Role:        strings.ToLower(strings.TrimSpace(input.Role)),
		Password:    input.Password,
		Disabled:    input.Disabled,
	}
}

func validateAccountInput(input AccountInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}

	if input.DisplayName == "" {
		vErr.add("display_name", "display name is required")
	}

	if _, ok := ParseRole(input.Role); !ok {
		vErr.add("role", "role must be staff or guest")
	}

	if len(input.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	return vErr
}

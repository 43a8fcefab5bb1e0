// internal/service/account_service.go
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"wallet-ledger/internal/auth"
	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/repository"
	"wallet-ledger/internal/util"
)

const minPasswordLength = 8

// AccountService defines the interface for sign-up, login and account reads.
type AccountService interface {
	SignUp(ctx context.Context, email, password, fullName string) (*domain.Account, error)
	Login(ctx context.Context, email, password string) (*domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
}

type accountService struct {
	dbExecutor  repository.DBExecutor
	accountRepo repository.AccountRepository
	logger      *zap.Logger
}

func NewAccountService(dbExecutor repository.DBExecutor, accountRepo repository.AccountRepository, logger *zap.Logger) AccountService {
	return &accountService{
		dbExecutor:  dbExecutor,
		accountRepo: accountRepo,
		logger:      componentLogger(logger, "accounts"),
	}
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates an account with a zero balance. A taken email yields ErrDuplicateEntry.
func (s *accountService) SignUp(ctx context.Context, email, password, fullName string) (*domain.Account, error) {
	email = NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || password == "" || fullName == "" {
		return nil, fmt.Errorf("email, password and fullname are required: %w", util.ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("email is not valid: %w", util.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters: %w", minPasswordLength, util.ErrInvalidInput)
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, fmt.Errorf("password must be at most %d bytes: %w", auth.MaxPasswordBytes, util.ErrInvalidInput)
	}

	_, err := s.accountRepo.GetAccountByEmail(ctx, s.dbExecutor, email)
	if err == nil {
		return nil, fmt.Errorf("user already exists: %w", util.ErrDuplicateEntry)
	}
	if !util.IsError(err, util.ErrNotFound) {
		return nil, fmt.Errorf("sign up: failed to check existing account: %w", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	account := domain.NewAccount(email, fullName, hash)
	if err := s.accountRepo.CreateAccount(ctx, s.dbExecutor, account); err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			return nil, fmt.Errorf("user already exists: %w", util.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("sign up: failed to create account: %w", err)
	}

	s.logger.Info("Account created", zap.String("account_id", account.ID))
	return account, nil
}

// Login checks credentials. Unknown emails and wrong passwords are indistinguishable.
func (s *accountService) Login(ctx context.Context, email, password string) (*domain.Account, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required: %w", util.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetAccountByEmail(ctx, s.dbExecutor, email)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: failed to get account: %w", err)
	}

	ok, err := auth.CheckPassword(account.PasswordHash, password)
	if err != nil {
		s.logger.Error("Stored password hash is unreadable", zap.String("account_id", account.ID), zap.Error(err))
		return nil, util.ErrInvalidCredentials
	}
	if !ok {
		return nil, util.ErrInvalidCredentials
	}
	return account, nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.GetAccountByID(ctx, s.dbExecutor, accountID)
	if err != nil {
		if util.IsError(err, util.ErrNotFound) {
			return nil, util.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

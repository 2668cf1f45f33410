package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/repository"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthAccountRepository interface {
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
}

// AuthService verifies credentials against the stored bcrypt hash. A
// missing user and a wrong password produce the same error so the login
// endpoint does not leak which usernames exist.
type AuthService struct {
	accountRepo AuthAccountRepository
}

func NewAuthService(accountRepo AuthAccountRepository) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
	}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*model.Account, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", ErrValidation)
	}

	acct, err := s.accountRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return acct, nil
}

func (s *AuthService) GetUserInfo(ctx context.Context, id int64) (*model.Account, error) {
	acct, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

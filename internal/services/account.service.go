package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/repository"
)

var (
	ErrUsernameTaken = errors.New("username already exists")
	ErrPhoneTaken    = errors.New("phone number already registered")
)

type AccountCRUDRepository interface {
	Create(ctx context.Context, acct *model.Account) (*model.Account, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	UpdateProfile(ctx context.Context, id int64, p model.AccountUpdateRequest) error
	Delete(ctx context.Context, id int64) error
}

// AccountService provisions and maintains accounts. It never touches
// balances beyond the opening balance at creation; every later balance
// change goes through the LedgerService.
type AccountService struct {
	accountRepo AccountCRUDRepository
}

func NewAccountService(accountRepo AccountCRUDRepository) *AccountService {
	return &AccountService{
		accountRepo: accountRepo,
	}
}

func (s *AccountService) Create(ctx context.Context, p model.AccountCreateRequest) (*model.Account, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acct := &model.Account{
		Username:     p.Username,
		PasswordHash: string(hash),
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Age:          p.Age,
		Phone:        p.Phone,
		Balance:      p.OpeningBalance,
	}

	created, err := s.accountRepo.Create(ctx, acct)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return nil, ErrUsernameTaken
		}
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}
	return created, nil
}

func (s *AccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	acct, err := s.accountRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acct, nil
}

func (s *AccountService) List(ctx context.Context) ([]*model.Account, error) {
	return s.accountRepo.List(ctx)
}

func (s *AccountService) Update(ctx context.Context, id int64, p model.AccountUpdateRequest) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	err := s.accountRepo.UpdateProfile(ctx, id, p)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		if errors.Is(err, repository.ErrDuplicatePhone) {
			return ErrPhoneTaken
		}
		return err
	}
	return nil
}

func (s *AccountService) Delete(ctx context.Context, id int64) error {
	err := s.accountRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

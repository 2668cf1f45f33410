package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/repository"
)

type MockAccountCRUDRepository struct {
	mock.Mock
}

func (m *MockAccountCRUDRepository) Create(ctx context.Context, acct *model.Account) (*model.Account, error) {
	args := m.Called(ctx, acct)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountCRUDRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountCRUDRepository) List(ctx context.Context) ([]*model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

func (m *MockAccountCRUDRepository) UpdateProfile(ctx context.Context, id int64, p model.AccountUpdateRequest) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

func (m *MockAccountCRUDRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func validCreateRequest() model.AccountCreateRequest {
	return model.AccountCreateRequest{
		Username:       "ada",
		Password:       "s3cret",
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Age:            36,
		Phone:          "+15550001",
		OpeningBalance: decimal.RequireFromString("1000.00"),
	}
}

func TestAccountService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a bcrypt hash, never the password", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		repo.On("Create", ctx, mock.MatchedBy(func(acct *model.Account) bool {
			if acct.PasswordHash == "" || acct.PasswordHash == "s3cret" {
				return false
			}
			return bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte("s3cret")) == nil
		})).Return(&model.Account{ID: 1, Username: "ada"}, nil)

		created, err := svc.Create(ctx, validCreateRequest())
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
		repo.AssertExpectations(t)
	})

	t.Run("validation failures", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		for _, mutate := range []func(*model.AccountCreateRequest){
			func(p *model.AccountCreateRequest) { p.Username = "" },
			func(p *model.AccountCreateRequest) { p.Password = "" },
			func(p *model.AccountCreateRequest) { p.Phone = "" },
			func(p *model.AccountCreateRequest) { p.OpeningBalance = decimal.RequireFromString("-1") },
		} {
			p := validCreateRequest()
			mutate(&p)
			_, err := svc.Create(ctx, p)
			assert.ErrorIs(t, err, ErrValidation)
		}

		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicateUsername)

		_, err := svc.Create(ctx, validCreateRequest())
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("duplicate phone", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		repo.On("Create", ctx, mock.Anything).Return(nil, repository.ErrDuplicatePhone)

		_, err := svc.Create(ctx, validCreateRequest())
		assert.ErrorIs(t, err, ErrPhoneTaken)
	})
}

func TestAccountService_Get(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountCRUDRepository)
	svc := NewAccountService(repo)

	repo.On("GetByID", ctx, int64(1)).Return(&model.Account{ID: 1, Username: "ada"}, nil)
	repo.On("GetByID", ctx, int64(2)).Return(nil, repository.ErrAccountNotFound)

	acct, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "ada", acct.Username)

	_, err = svc.Get(ctx, 2)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("valid update", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		p := model.AccountUpdateRequest{FirstName: "Ada", LastName: "King", Age: 37, Phone: "+15550009"}
		repo.On("UpdateProfile", ctx, int64(1), p).Return(nil)

		require.NoError(t, svc.Update(ctx, 1, p))
	})

	t.Run("missing account", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		p := model.AccountUpdateRequest{FirstName: "Ada", LastName: "King", Age: 37, Phone: "+15550009"}
		repo.On("UpdateProfile", ctx, int64(9), p).Return(repository.ErrAccountNotFound)

		assert.ErrorIs(t, svc.Update(ctx, 9, p), ErrAccountNotFound)
	})

	t.Run("phone already registered to another account", func(t *testing.T) {
		repo := new(MockAccountCRUDRepository)
		svc := NewAccountService(repo)

		p := model.AccountUpdateRequest{FirstName: "Ada", LastName: "King", Age: 37, Phone: "+15550002"}
		repo.On("UpdateProfile", ctx, int64(1), p).Return(repository.ErrDuplicatePhone)

		assert.ErrorIs(t, svc.Update(ctx, 1, p), ErrPhoneTaken)
	})
}

func TestAccountService_Delete(t *testing.T) {
	ctx := context.Background()
	repo := new(MockAccountCRUDRepository)
	svc := NewAccountService(repo)

	repo.On("Delete", ctx, int64(1)).Return(nil)
	repo.On("Delete", ctx, int64(2)).Return(repository.ErrAccountNotFound)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.ErrorIs(t, svc.Delete(ctx, 2), ErrAccountNotFound)
}

package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/services"
)

type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Create(ctx context.Context, p model.AccountCreateRequest) (*model.Account, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountService) Get(ctx context.Context, id int64) (*model.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Account), args.Error(1)
}

func (m *MockAccountService) List(ctx context.Context) ([]*model.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Account), args.Error(1)
}

func (m *MockAccountService) Update(ctx context.Context, id int64, p model.AccountUpdateRequest) error {
	args := m.Called(ctx, id, p)
	return args.Error(0)
}

func (m *MockAccountService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAccountHandler_CreateAccount(t *testing.T) {
	t.Run("successful creation", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{
			"username": "ada", "password": "s3cret",
			"first_name": "Ada", "last_name": "Lovelace",
			"age": 36, "phone": "+15550001", "opening_balance": "1000.00",
		})

		svc.On("Create", mock.Anything, mock.Anything).Return(&model.Account{
			ID:       1,
			Username: "ada",
			Balance:  decimal.RequireFromString("1000.00"),
		}, nil)

		ctx := setupTestContext("POST", "/api/v1/accounts", body)
		handler.CreateAccount(ctx)

		assert.Equal(t, 201, ctx.Response.StatusCode())
		env := decodeEnvelope(t, ctx)
		assert.True(t, env.Success)

		var acct model.Account
		require.NoError(t, json.Unmarshal(env.Data, &acct))
		assert.Equal(t, int64(1), acct.ID)
		// The hash never leaves the server.
		assert.NotContains(t, string(ctx.Response.Body()), "password")
	})

	t.Run("username taken maps to 400", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{"username": "ada"})
		svc.On("Create", mock.Anything, mock.Anything).Return(nil, services.ErrUsernameTaken)

		ctx := setupTestContext("POST", "/api/v1/accounts", body)
		handler.CreateAccount(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestAccountHandler_GetAccount(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		svc.On("Get", mock.Anything, int64(1)).Return(&model.Account{ID: 1, Username: "ada"}, nil)

		ctx := setupTestContext("GET", "/api/v1/accounts/1", nil)
		ctx.SetUserValue("id", "1")
		handler.GetAccount(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("missing maps to 404", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		svc.On("Get", mock.Anything, int64(9)).Return(nil, services.ErrAccountNotFound)

		ctx := setupTestContext("GET", "/api/v1/accounts/9", nil)
		ctx.SetUserValue("id", "9")
		handler.GetAccount(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})

	t.Run("bad id", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		ctx := setupTestContext("GET", "/api/v1/accounts/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetAccount(ctx)

		assert.Equal(t, 400, ctx.Response.StatusCode())
		svc.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})
}

func TestAccountHandler_UpdateAndDelete(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		body, _ := json.Marshal(map[string]interface{}{
			"first_name": "Augusta", "last_name": "King", "age": 37, "phone": "+15550099",
		})
		svc.On("Update", mock.Anything, int64(1), mock.Anything).Return(nil)

		ctx := setupTestContext("PUT", "/api/v1/accounts/1", body)
		ctx.SetUserValue("id", "1")
		handler.UpdateAccount(ctx)

		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("delete missing account", func(t *testing.T) {
		svc := new(MockAccountService)
		handler := NewAccountHandler(svc)

		svc.On("Delete", mock.Anything, int64(9)).Return(services.ErrAccountNotFound)

		ctx := setupTestContext("DELETE", "/api/v1/accounts/9", nil)
		ctx.SetUserValue("id", "9")
		handler.DeleteAccount(ctx)

		assert.Equal(t, 404, ctx.Response.StatusCode())
	})
}

package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bancoapp/banco-ledger/internal/model"
)

func TestMovementRepository_Create(t *testing.T) {
	db := setupTestDB(t).DB
	accounts := NewAccountRepository(db)
	movements := NewMovementRepository(db)
	ctx := context.Background()

	acct, err := accounts.Create(ctx, newTestAccount("ada", "+15550001", "1000.00"))
	require.NoError(t, err)

	t.Run("create deposit movement", func(t *testing.T) {
		mv := &model.Movement{
			AccountID:    acct.ID,
			Kind:         model.MovementKindDeposit,
			Direction:    model.DirectionIncoming,
			Amount:       decimal.RequireFromString("150.00"),
			BalanceAfter: decimal.RequireFromString("1150.00"),
			Memo:         "Deposit",
		}

		created, err := movements.Create(ctx, mv)
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, acct.ID, created.AccountID)
		assert.NotZero(t, created.OccurredAt)
		assert.Nil(t, created.RelatedAccountID)
	})

	t.Run("create transfer movement with related account", func(t *testing.T) {
		other, err := accounts.Create(ctx, newTestAccount("grace", "+15550002", "2000.00"))
		require.NoError(t, err)

		mv := &model.Movement{
			AccountID:        acct.ID,
			Kind:             model.MovementKindTransfer,
			Direction:        model.DirectionOutgoing,
			Amount:           decimal.RequireFromString("30.00"),
			BalanceAfter:     decimal.RequireFromString("1120.00"),
			Memo:             "Transfer to Grace Hopper",
			RelatedAccountID: &other.ID,
		}

		created, err := movements.Create(ctx, mv)
		require.NoError(t, err)
		require.NotNil(t, created.RelatedAccountID)
		assert.Equal(t, other.ID, *created.RelatedAccountID)
	})
}

func TestMovementRepository_ListAll(t *testing.T) {
	db := setupTestDB(t).DB
	accounts := NewAccountRepository(db)
	movements := NewMovementRepository(db)
	ctx := context.Background()

	src, err := accounts.Create(ctx, &model.Account{
		Username: "ada", PasswordHash: "x", FirstName: "Ada", LastName: "Lovelace",
		Age: 36, Phone: "+15550001", Balance: decimal.RequireFromString("1000"),
	})
	require.NoError(t, err)

	dst, err := accounts.Create(ctx, &model.Account{
		Username: "grace", PasswordHash: "x", FirstName: "Grace", LastName: "Hopper",
		Age: 40, Phone: "+15550002", Balance: decimal.RequireFromString("2000"),
	})
	require.NoError(t, err)

	_, err = movements.Create(ctx, &model.Movement{
		AccountID: src.ID, Kind: model.MovementKindDeposit, Direction: model.DirectionIncoming,
		Amount: decimal.RequireFromString("150"), BalanceAfter: decimal.RequireFromString("1150"),
		Memo: "Deposit",
	})
	require.NoError(t, err)

	_, err = movements.Create(ctx, &model.Movement{
		AccountID: src.ID, Kind: model.MovementKindTransfer, Direction: model.DirectionOutgoing,
		Amount: decimal.RequireFromString("30"), BalanceAfter: decimal.RequireFromString("1120"),
		Memo: "Transfer to Grace Hopper", RelatedAccountID: &dst.ID,
	})
	require.NoError(t, err)

	_, err = movements.Create(ctx, &model.Movement{
		AccountID: dst.ID, Kind: model.MovementKindTransfer, Direction: model.DirectionIncoming,
		Amount: decimal.RequireFromString("30"), BalanceAfter: decimal.RequireFromString("2030"),
		Memo: "Transfer from Ada Lovelace", RelatedAccountID: &src.ID,
	})
	require.NoError(t, err)

	t.Run("includes owner and counterparty names", func(t *testing.T) {
		all, err := movements.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 3)

		byMemo := make(map[string]*model.MovementWithNames, len(all))
		for _, m := range all {
			byMemo[m.Memo] = m
		}

		dep := byMemo["Deposit"]
		require.NotNil(t, dep)
		assert.Equal(t, "Ada Lovelace", dep.AccountName)
		assert.Empty(t, dep.RelatedName)

		out := byMemo["Transfer to Grace Hopper"]
		require.NotNil(t, out)
		assert.Equal(t, "Ada Lovelace", out.AccountName)
		assert.Equal(t, "Grace Hopper", out.RelatedName)

		in := byMemo["Transfer from Ada Lovelace"]
		require.NotNil(t, in)
		assert.Equal(t, "Grace Hopper", in.AccountName)
		assert.Equal(t, "Ada Lovelace", in.RelatedName)
	})
}

func TestMovementRepository_ListByAccount(t *testing.T) {
	db := setupTestDB(t).DB
	accounts := NewAccountRepository(db)
	movements := NewMovementRepository(db)
	ctx := context.Background()

	first, err := accounts.Create(ctx, newTestAccount("ada", "+15550001", "1000"))
	require.NoError(t, err)
	second, err := accounts.Create(ctx, newTestAccount("grace", "+15550002", "500"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := movements.Create(ctx, &model.Movement{
			AccountID: first.ID, Kind: model.MovementKindDeposit, Direction: model.DirectionIncoming,
			Amount: decimal.NewFromInt(10), BalanceAfter: decimal.NewFromInt(int64(1010 + 10*i)),
			Memo: "Deposit",
		})
		require.NoError(t, err)
	}
	_, err = movements.Create(ctx, &model.Movement{
		AccountID: second.ID, Kind: model.MovementKindWithdrawal, Direction: model.DirectionOutgoing,
		Amount: decimal.NewFromInt(50), BalanceAfter: decimal.NewFromInt(450),
		Memo: "Withdrawal",
	})
	require.NoError(t, err)

	t.Run("only the requested account's movements", func(t *testing.T) {
		got, err := movements.ListByAccount(ctx, first.ID)
		require.NoError(t, err)
		assert.Len(t, got, 3)
		for _, m := range got {
			assert.Equal(t, first.ID, m.AccountID)
		}
	})

	t.Run("empty for account without movements", func(t *testing.T) {
		none, err := movements.ListByAccount(ctx, 99999)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("count by account", func(t *testing.T) {
		n, err := movements.CountByAccount(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})
}

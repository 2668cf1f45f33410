package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/queue"
	"github.com/bancoapp/banco-ledger/internal/repository"
	"github.com/bancoapp/banco-ledger/internal/services"
	"github.com/bancoapp/banco-ledger/pkg/pg"
	"github.com/bancoapp/banco-ledger/pkg/redis"
	"github.com/bancoapp/banco-ledger/test/fixtures"
)

type TestEnvironment struct {
	DB             *pg.DB
	Redis          *miniredis.Miniredis
	RedisAdapter   redis.RedisAdapter
	Queue          *queue.Queue
	AccountRepo    *repository.AccountRepository
	MovementRepo   *repository.MovementRepository
	AccountService *services.AccountService
	AuthService    *services.AuthService
	LedgerService  *services.LedgerService
}

func setupE2EEnvironment(t *testing.T) *TestEnvironment {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&repository.AccountEntity{},
		&repository.MovementEntity{},
	)
	require.NoError(t, err)

	pgDB := &pg.DB{}
	pgDBValue := reflect.ValueOf(pgDB).Elem()

	readField := pgDBValue.FieldByName("read")
	writeField := pgDBValue.FieldByName("write")

	readField = reflect.NewAt(readField.Type(), readField.Addr().UnsafePointer()).Elem()
	writeField = reflect.NewAt(writeField.Type(), writeField.Addr().UnsafePointer()).Elem()

	readField.Set(reflect.ValueOf(db))
	writeField.Set(reflect.ValueOf(db))

	mr, err := miniredis.Run()
	require.NoError(t, err)

	// Use unique connection name per test to avoid global adapter caching issues
	connName := fmt.Sprintf("test-%d", time.Now().UnixNano())
	redisAdapter, err := redis.NewRedisAdapter(connName, "", &goredis.UniversalOptions{
		Addrs: []string{mr.Addr()},
	})
	require.NoError(t, err)

	queueConfig := queue.Config{
		Stream:            "test:movements",
		ConsumerGroup:     "test-group",
		ConsumerName:      "test-consumer",
		MaxRetries:        3,
		VisibilityTimeout: 5 * time.Second,
		PollInterval:      100 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	}

	q, err := queue.New(redisAdapter, queueConfig)
	require.NoError(t, err)

	accountRepo := repository.NewAccountRepository(pgDB)
	movementRepo := repository.NewMovementRepository(pgDB)

	return &TestEnvironment{
		DB:             pgDB,
		Redis:          mr,
		RedisAdapter:   redisAdapter,
		Queue:          q,
		AccountRepo:    accountRepo,
		MovementRepo:   movementRepo,
		AccountService: services.NewAccountService(accountRepo),
		AuthService:    services.NewAuthService(accountRepo),
		LedgerService:  services.NewLedgerService(accountRepo, movementRepo, q),
	}
}

func (env *TestEnvironment) Cleanup() {
	if env.Queue != nil {
		_ = env.Queue.Stop(5 * time.Second)
	}
	time.Sleep(100 * time.Millisecond)
	if env.Redis != nil {
		env.Redis.Close()
	}
}

func (env *TestEnvironment) createAccount(t *testing.T, username, phone, balance string) *model.Account {
	t.Helper()
	acct, err := env.AccountService.Create(context.Background(),
		fixtures.NewAccountCreateRequest(username, phone, balance))
	require.NoError(t, err)
	return acct
}

func (env *TestEnvironment) balanceOf(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	acct, err := env.AccountRepo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return acct.Balance
}

func TestE2E_DepositFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	acct := env.createAccount(t, "ada", "+15550000001", "1000.00")

	res, err := env.LedgerService.Deposit(ctx, fixtures.NewDepositRequest(acct.ID, "150.00"))
	require.NoError(t, err)
	assert.NotZero(t, res.MovementID)
	assert.True(t, res.PreviousBalance.Equal(decimal.RequireFromString("1000.00")))
	assert.True(t, res.NewBalance.Equal(decimal.RequireFromString("1150.00")))

	assert.True(t, env.balanceOf(t, acct.ID).Equal(decimal.RequireFromString("1150.00")))

	movements, err := env.MovementRepo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementKindDeposit, movements[0].Kind)
	assert.Equal(t, model.DirectionIncoming, movements[0].Direction)
	assert.True(t, movements[0].BalanceAfter.Equal(decimal.RequireFromString("1150.00")))

	stats, err := env.Queue.GetStats()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.TotalEntries, int64(1))
}

func TestE2E_WithdrawalFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	acct := env.createAccount(t, "grace", "+15550000002", "500.00")

	res, err := env.LedgerService.Withdraw(ctx, fixtures.NewWithdrawRequest(acct.ID, "50.00"))
	require.NoError(t, err)
	assert.True(t, res.NewBalance.Equal(decimal.RequireFromString("450.00")))

	assert.True(t, env.balanceOf(t, acct.ID).Equal(decimal.RequireFromString("450.00")))
}

func TestE2E_WithdrawalInsufficientFundsLeavesStateUntouched(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	acct := env.createAccount(t, "alan", "+15550000003", "450.00")

	res, err := env.LedgerService.Withdraw(ctx, fixtures.NewWithdrawRequest(acct.ID, "99999.00"))
	assert.ErrorIs(t, err, services.ErrInsufficientFunds)
	assert.Nil(t, res)

	assert.True(t, env.balanceOf(t, acct.ID).Equal(decimal.RequireFromString("450.00")))

	movements, err := env.MovementRepo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Empty(t, movements)
}

func TestE2E_TransferFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	source := env.createAccount(t, "ada", "+15550000001", "1150.00")
	dest := env.createAccount(t, "grace", "+15550000002", "2000.00")

	res, err := env.LedgerService.Transfer(ctx,
		fixtures.NewTransferRequest(source.ID, dest.Phone, "30.00"))
	require.NoError(t, err)

	assert.Equal(t, source.ID, res.Source.AccountID)
	assert.True(t, res.Source.NewBalance.Equal(decimal.RequireFromString("1120.00")))
	assert.Equal(t, dest.ID, res.Destination.AccountID)
	assert.True(t, res.Destination.NewBalance.Equal(decimal.RequireFromString("2030.00")))

	assert.True(t, env.balanceOf(t, source.ID).Equal(decimal.RequireFromString("1120.00")))
	assert.True(t, env.balanceOf(t, dest.ID).Equal(decimal.RequireFromString("2030.00")))

	sourceMovements, err := env.MovementRepo.ListByAccount(ctx, source.ID)
	require.NoError(t, err)
	require.Len(t, sourceMovements, 1)
	assert.Equal(t, model.DirectionOutgoing, sourceMovements[0].Direction)
	assert.Equal(t, "Transfer to Test grace", sourceMovements[0].Memo)
	require.NotNil(t, sourceMovements[0].RelatedAccountID)
	assert.Equal(t, dest.ID, *sourceMovements[0].RelatedAccountID)

	destMovements, err := env.MovementRepo.ListByAccount(ctx, dest.ID)
	require.NoError(t, err)
	require.Len(t, destMovements, 1)
	assert.Equal(t, model.DirectionIncoming, destMovements[0].Direction)
	assert.Equal(t, "Transfer from Test ada", destMovements[0].Memo)
	require.NotNil(t, destMovements[0].RelatedAccountID)
	assert.Equal(t, source.ID, *destMovements[0].RelatedAccountID)
}

func TestE2E_TransferToUnregisteredPhone(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	source := env.createAccount(t, "ada", "+15550000001", "100.00")

	res, err := env.LedgerService.Transfer(ctx,
		fixtures.NewTransferRequest(source.ID, "+19990000000", "10.00"))
	assert.ErrorIs(t, err, services.ErrPhoneNotRegistered)
	assert.Nil(t, res)

	assert.True(t, env.balanceOf(t, source.ID).Equal(decimal.RequireFromString("100.00")))
}

func TestE2E_TransferToSelf(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	source := env.createAccount(t, "ada", "+15550000001", "100.00")

	res, err := env.LedgerService.Transfer(ctx,
		fixtures.NewTransferRequest(source.ID, source.Phone, "10.00"))
	assert.ErrorIs(t, err, services.ErrSelfTransfer)
	assert.Nil(t, res)

	assert.True(t, env.balanceOf(t, source.ID).Equal(decimal.RequireFromString("100.00")))
}

func TestE2E_MovementEventConsumption(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	acct := env.createAccount(t, "ada", "+15550000001", "0")

	res, err := env.LedgerService.Deposit(ctx, fixtures.NewDepositRequest(acct.ID, "25.00"))
	require.NoError(t, err)

	received := make(chan bool, 1)
	handler := func(ctx context.Context, d *queue.Delivery) error {
		var event model.MovementEvent
		err := json.Unmarshal(d.Body, &event)
		assert.NoError(t, err)
		assert.Equal(t, res.MovementID, event.MovementID)
		assert.Equal(t, acct.ID, event.AccountID)
		assert.Equal(t, model.MovementKindDeposit, event.Kind)
		assert.True(t, event.Amount.Equal(decimal.RequireFromString("25.00")))
		received <- true
		return nil
	}

	err = env.Queue.Consume(handler)
	require.NoError(t, err)

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("movement event not consumed within timeout")
	}
}

func TestE2E_AuthFlow(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	acct := env.createAccount(t, "ada", "+15550000001", "0")

	loggedIn, err := env.AuthService.Login(ctx, "ada", "s3cret-ada")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, loggedIn.ID)

	_, err = env.AuthService.Login(ctx, "ada", "wrong-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestE2E_MovementListingJoinsNames(t *testing.T) {
	env := setupE2EEnvironment(t)
	defer env.Cleanup()

	ctx := context.Background()

	source := env.createAccount(t, "ada", "+15550000001", "100.00")
	dest := env.createAccount(t, "grace", "+15550000002", "0")

	_, err := env.LedgerService.Transfer(ctx,
		fixtures.NewTransferRequest(source.ID, dest.Phone, "40.00"))
	require.NoError(t, err)

	all, err := env.LedgerService.ListMovements(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byDirection := make(map[model.MovementDirection]*model.MovementWithNames)
	for _, mv := range all {
		byDirection[mv.Direction] = mv
	}

	out := byDirection[model.DirectionOutgoing]
	require.NotNil(t, out)
	assert.Equal(t, "Test ada", out.AccountName)
	assert.Equal(t, "Test grace", out.RelatedName)

	in := byDirection[model.DirectionIncoming]
	require.NotNil(t, in)
	assert.Equal(t, "Test grace", in.AccountName)
	assert.Equal(t, "Test ada", in.RelatedName)
}

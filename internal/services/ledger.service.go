package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/internal/repository"
	"github.com/bancoapp/banco-ledger/pkg/logger"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrAccountNotFound    = errors.New("account not found")
	ErrPhoneNotRegistered = errors.New("destination phone is not registered")
	ErrSelfTransfer       = errors.New("cannot transfer to the same account")
	ErrInsufficientFunds  = errors.New("insufficient funds")
)

type AccountRepository interface {
	GetByIDForUpdate(ctx context.Context, id int64) (*model.Account, error)
	GetByPhoneForUpdate(ctx context.Context, phone string) (*model.Account, error)
	UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type MovementRepository interface {
	Create(ctx context.Context, mv *model.Movement) (*model.Movement, error)
	ListAll(ctx context.Context) ([]*model.MovementWithNames, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*model.MovementWithNames, error)
}

// EventPublisher pushes movement events onto the notification stream.
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}, metadata map[string]string) (string, error)
}

// LedgerService owns every balance mutation. Each operation runs its
// read-check-write sequence inside one database transaction with the
// involved account rows locked, so concurrent movements on the same account
// serialize at the store and a failure at any step rolls everything back.
type LedgerService struct {
	accountRepo  AccountRepository
	movementRepo MovementRepository
	events       EventPublisher
}

func NewLedgerService(accountRepo AccountRepository, movementRepo MovementRepository, events EventPublisher) *LedgerService {
	return &LedgerService{
		accountRepo:  accountRepo,
		movementRepo: movementRepo,
		events:       events,
	}
}

func (s *LedgerService) Deposit(ctx context.Context, p model.DepositRequest) (*model.MovementResult, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	memo := p.Memo
	if memo == "" {
		memo = "Deposit"
	}

	var result *model.MovementResult
	var created *model.Movement
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		acct, err := s.accountRepo.GetByIDForUpdate(ctx, p.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("fetch account: %w", err)
		}

		newBalance := acct.Balance.Add(p.Amount)
		if err := s.accountRepo.UpdateBalance(ctx, acct.ID, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		created, err = s.movementRepo.Create(ctx, &model.Movement{
			AccountID:    acct.ID,
			Kind:         model.MovementKindDeposit,
			Direction:    model.DirectionIncoming,
			Amount:       p.Amount,
			BalanceAfter: newBalance,
			Memo:         memo,
		})
		if err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		result = &model.MovementResult{
			MovementID:      created.ID,
			PreviousBalance: acct.Balance,
			NewBalance:      newBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, created)
	return result, nil
}

func (s *LedgerService) Withdraw(ctx context.Context, p model.WithdrawRequest) (*model.MovementResult, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	memo := p.Memo
	if memo == "" {
		memo = "Withdrawal"
	}

	var result *model.MovementResult
	var created *model.Movement
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		acct, err := s.accountRepo.GetByIDForUpdate(ctx, p.AccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("fetch account: %w", err)
		}

		if acct.Balance.LessThan(p.Amount) {
			return ErrInsufficientFunds
		}

		newBalance := acct.Balance.Sub(p.Amount)
		if err := s.accountRepo.UpdateBalance(ctx, acct.ID, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		created, err = s.movementRepo.Create(ctx, &model.Movement{
			AccountID:    acct.ID,
			Kind:         model.MovementKindWithdrawal,
			Direction:    model.DirectionOutgoing,
			Amount:       p.Amount,
			BalanceAfter: newBalance,
			Memo:         memo,
		})
		if err != nil {
			return fmt.Errorf("create movement: %w", err)
		}

		result = &model.MovementResult{
			MovementID:      created.ID,
			PreviousBalance: acct.Balance,
			NewBalance:      newBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, created)
	return result, nil
}

// Transfer moves value between two accounts, the destination resolved by
// phone. Precondition order is part of the contract: validation, source
// lookup, destination lookup, self-transfer, funds. The two movement rows
// reference each other through RelatedAccountID and are written in the same
// transaction as both balance updates.
func (s *LedgerService) Transfer(ctx context.Context, p model.TransferRequest) (*model.TransferResult, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var result *model.TransferResult
	var outgoing, incoming *model.Movement
	err := s.accountRepo.WithinTransaction(ctx, func(ctx context.Context) error {
		src, err := s.accountRepo.GetByIDForUpdate(ctx, p.SourceAccountID)
		if err != nil {
			if errors.Is(err, repository.ErrAccountNotFound) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("fetch source account: %w", err)
		}

		dst, err := s.accountRepo.GetByPhoneForUpdate(ctx, p.DestinationPhone)
		if err != nil {
			if errors.Is(err, repository.ErrPhoneNotRegistered) {
				return ErrPhoneNotRegistered
			}
			return fmt.Errorf("fetch destination account: %w", err)
		}

		if dst.ID == src.ID {
			return ErrSelfTransfer
		}

		if src.Balance.LessThan(p.Amount) {
			return ErrInsufficientFunds
		}

		srcBalance := src.Balance.Sub(p.Amount)
		dstBalance := dst.Balance.Add(p.Amount)

		if err := s.accountRepo.UpdateBalance(ctx, src.ID, srcBalance); err != nil {
			return fmt.Errorf("update source balance: %w", err)
		}
		if err := s.accountRepo.UpdateBalance(ctx, dst.ID, dstBalance); err != nil {
			return fmt.Errorf("update destination balance: %w", err)
		}

		outMemo := p.Memo
		if outMemo == "" {
			outMemo = "Transfer to " + dst.DisplayName()
		}
		inMemo := p.Memo
		if inMemo == "" {
			inMemo = "Transfer from " + src.DisplayName()
		}

		outgoing, err = s.movementRepo.Create(ctx, &model.Movement{
			AccountID:        src.ID,
			Kind:             model.MovementKindTransfer,
			Direction:        model.DirectionOutgoing,
			Amount:           p.Amount,
			BalanceAfter:     srcBalance,
			Memo:             outMemo,
			RelatedAccountID: &dst.ID,
		})
		if err != nil {
			return fmt.Errorf("create outgoing movement: %w", err)
		}

		incoming, err = s.movementRepo.Create(ctx, &model.Movement{
			AccountID:        dst.ID,
			Kind:             model.MovementKindTransfer,
			Direction:        model.DirectionIncoming,
			Amount:           p.Amount,
			BalanceAfter:     dstBalance,
			Memo:             inMemo,
			RelatedAccountID: &src.ID,
		})
		if err != nil {
			return fmt.Errorf("create incoming movement: %w", err)
		}

		result = &model.TransferResult{
			Source: model.TransferParty{
				AccountID:       src.ID,
				Name:            src.DisplayName(),
				PreviousBalance: src.Balance,
				NewBalance:      srcBalance,
			},
			Destination: model.TransferParty{
				AccountID:       dst.ID,
				Name:            dst.DisplayName(),
				Phone:           dst.Phone,
				PreviousBalance: dst.Balance,
				NewBalance:      dstBalance,
			},
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, outgoing)
	s.publish(ctx, incoming)
	return result, nil
}

func (s *LedgerService) ListMovements(ctx context.Context) ([]*model.MovementWithNames, error) {
	return s.movementRepo.ListAll(ctx)
}

func (s *LedgerService) ListAccountMovements(ctx context.Context, accountID int64) ([]*model.MovementWithNames, error) {
	return s.movementRepo.ListByAccount(ctx, accountID)
}

// publish pushes a movement event to the notification stream. It runs after
// the transaction committed; a publish failure is logged and swallowed, the
// committed movement wins.
func (s *LedgerService) publish(ctx context.Context, mv *model.Movement) {
	if s.events == nil || mv == nil {
		return
	}
	event := model.MovementEvent{
		MovementID:       mv.ID,
		AccountID:        mv.AccountID,
		Kind:             mv.Kind,
		Direction:        mv.Direction,
		Amount:           mv.Amount,
		Memo:             mv.Memo,
		RelatedAccountID: mv.RelatedAccountID,
		CommittedAt:      time.Now(),
	}
	if _, err := s.events.PublishJSON(ctx, event, nil); err != nil {
		logger.Error("failed to publish movement event", "movement_id", mv.ID, "error", err)
	}
}

package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind is the cause of a balance change.
type MovementKind string

const (
	MovementKindDeposit    MovementKind = "deposit"
	MovementKindWithdrawal MovementKind = "withdrawal"
	MovementKindTransfer   MovementKind = "transfer"
)

// MovementDirection is which way the money went from the owning account's
// point of view.
type MovementDirection string

const (
	DirectionIncoming MovementDirection = "incoming"
	DirectionOutgoing MovementDirection = "outgoing"
)

// Movement is one immutable entry in the append-only ledger. A transfer
// always produces exactly two of these in the same transaction, one per
// account, each pointing at the other through RelatedAccountID. Deposits and
// withdrawals produce exactly one with no related account.
type Movement struct {
	ID               int64             `json:"id"                 db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	AccountID        int64             `json:"account_id"         db:"account_id"         gorm:"column:account_id;not null;index"`
	Account          *Account          `json:"-"                                           gorm:"foreignKey:AccountID;references:ID;constraint:OnDelete:CASCADE"`
	OccurredAt       time.Time         `json:"occurred_at"        db:"occurred_at"        gorm:"column:occurred_at;autoCreateTime"`
	Kind             MovementKind      `json:"kind"               db:"kind"               gorm:"column:kind;not null"`
	Direction        MovementDirection `json:"direction"          db:"direction"          gorm:"column:direction;not null"`
	Amount           decimal.Decimal   `json:"amount"             db:"amount"             gorm:"column:amount;type:decimal(18,2);not null"`
	BalanceAfter     decimal.Decimal   `json:"balance_after"      db:"balance_after"      gorm:"column:balance_after;type:decimal(18,2);not null"`
	Memo             string            `json:"memo"               db:"memo"               gorm:"column:memo"`
	RelatedAccountID *int64            `json:"related_account_id" db:"related_account_id" gorm:"column:related_account_id;index"`
}

func (Movement) TableName() string { return "movements" }

// MovementWithNames is a movement joined with the display names needed by
// the listing endpoints.
type MovementWithNames struct {
	Movement
	AccountName string `json:"account_name"`
	RelatedName string `json:"related_name,omitempty"`
}

// DepositRequest / WithdrawRequest are the inputs for the single-account
// money movements.
type DepositRequest struct {
	AccountID int64
	Amount    decimal.Decimal
	Memo      string
}

func (p DepositRequest) Validate() error {
	if p.AccountID == 0 {
		return errors.New("account_id is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

type WithdrawRequest struct {
	AccountID int64
	Amount    decimal.Decimal
	Memo      string
}

func (p WithdrawRequest) Validate() error {
	if p.AccountID == 0 {
		return errors.New("account_id is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

// TransferRequest moves value between two accounts, the destination being
// resolved by its phone number.
type TransferRequest struct {
	SourceAccountID  int64
	DestinationPhone string
	Amount           decimal.Decimal
	Memo             string
}

func (p TransferRequest) Validate() error {
	if p.SourceAccountID == 0 {
		return errors.New("source_account_id is required")
	}
	if p.DestinationPhone == "" {
		return errors.New("destination_phone is required")
	}
	if !p.Amount.IsPositive() {
		return errors.New("amount must be greater than zero")
	}
	return nil
}

// MovementResult reports back a single-account movement.
type MovementResult struct {
	MovementID      int64           `json:"movement_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}

// TransferParty is one side of a completed transfer.
type TransferParty struct {
	AccountID       int64           `json:"account_id"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone,omitempty"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}

type TransferResult struct {
	Source      TransferParty `json:"source"`
	Destination TransferParty `json:"destination"`
}

// MovementEvent is published to the movement stream after a successful
// commit, consumed by the notification dispatcher.
type MovementEvent struct {
	MovementID       int64             `json:"movement_id"`
	AccountID        int64             `json:"account_id"`
	Kind             MovementKind      `json:"kind"`
	Direction        MovementDirection `json:"direction"`
	Amount           decimal.Decimal   `json:"amount"`
	Memo             string            `json:"memo"`
	RelatedAccountID *int64            `json:"related_account_id,omitempty"`
	CommittedAt      time.Time         `json:"committed_at"`
}

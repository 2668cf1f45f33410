package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancoapp/banco-ledger/internal/model"
)

type MovementEntity struct {
	ID               int64           `db:"id"                 gorm:"primaryKey;autoIncrement;column:id"`
	AccountID        int64           `db:"account_id"         gorm:"column:account_id;not null;index"`
	OccurredAt       time.Time       `db:"occurred_at"        gorm:"column:occurred_at;autoCreateTime"`
	Kind             string          `db:"kind"               gorm:"column:kind;not null"`
	Direction        string          `db:"direction"          gorm:"column:direction;not null"`
	Amount           decimal.Decimal `db:"amount"             gorm:"column:amount;type:decimal(18,2);not null"`
	BalanceAfter     decimal.Decimal `db:"balance_after"      gorm:"column:balance_after;type:decimal(18,2);not null"`
	Memo             string          `db:"memo"               gorm:"column:memo"`
	RelatedAccountID *int64          `db:"related_account_id" gorm:"column:related_account_id;index"`
}

func (MovementEntity) TableName() string {
	return "movements"
}

// movementWithNamesRow is the shape of the joined listing query. Kept flat
// so gorm scans it column by column.
type movementWithNamesRow struct {
	ID               int64           `gorm:"column:id"`
	AccountID        int64           `gorm:"column:account_id"`
	OccurredAt       time.Time       `gorm:"column:occurred_at"`
	Kind             string          `gorm:"column:kind"`
	Direction        string          `gorm:"column:direction"`
	Amount           decimal.Decimal `gorm:"column:amount"`
	BalanceAfter     decimal.Decimal `gorm:"column:balance_after"`
	Memo             string          `gorm:"column:memo"`
	RelatedAccountID *int64          `gorm:"column:related_account_id"`
	AccountFirstName string          `gorm:"column:account_first_name"`
	AccountLastName  string          `gorm:"column:account_last_name"`
	RelatedFirstName string          `gorm:"column:related_first_name"`
	RelatedLastName  string          `gorm:"column:related_last_name"`
}

func toMovementEntity(m *model.Movement) *MovementEntity {
	if m == nil {
		return nil
	}
	return &MovementEntity{
		ID:               m.ID,
		AccountID:        m.AccountID,
		OccurredAt:       m.OccurredAt,
		Kind:             string(m.Kind),
		Direction:        string(m.Direction),
		Amount:           m.Amount,
		BalanceAfter:     m.BalanceAfter,
		Memo:             m.Memo,
		RelatedAccountID: m.RelatedAccountID,
	}
}

func toMovementModel(e *MovementEntity) *model.Movement {
	if e == nil {
		return nil
	}
	return &model.Movement{
		ID:               e.ID,
		AccountID:        e.AccountID,
		OccurredAt:       e.OccurredAt,
		Kind:             model.MovementKind(e.Kind),
		Direction:        model.MovementDirection(e.Direction),
		Amount:           e.Amount,
		BalanceAfter:     e.BalanceAfter,
		Memo:             e.Memo,
		RelatedAccountID: e.RelatedAccountID,
	}
}

func toMovementModels(entities []*MovementEntity) []*model.Movement {
	if entities == nil {
		return nil
	}
	models := make([]*model.Movement, len(entities))
	for i, e := range entities {
		models[i] = toMovementModel(e)
	}
	return models
}

func toMovementWithNames(rows []*movementWithNamesRow) []*model.MovementWithNames {
	if rows == nil {
		return nil
	}
	models := make([]*model.MovementWithNames, len(rows))
	for i, row := range rows {
		m := &model.MovementWithNames{
			Movement: model.Movement{
				ID:               row.ID,
				AccountID:        row.AccountID,
				OccurredAt:       row.OccurredAt,
				Kind:             model.MovementKind(row.Kind),
				Direction:        model.MovementDirection(row.Direction),
				Amount:           row.Amount,
				BalanceAfter:     row.BalanceAfter,
				Memo:             row.Memo,
				RelatedAccountID: row.RelatedAccountID,
			},
			AccountName: joinName(row.AccountFirstName, row.AccountLastName),
		}
		if row.RelatedFirstName != "" || row.RelatedLastName != "" {
			m.RelatedName = joinName(row.RelatedFirstName, row.RelatedLastName)
		}
		models[i] = m
	}
	return models
}

func joinName(first, last string) string {
	if first == "" {
		return last
	}
	if last == "" {
		return first
	}
	return first + " " + last
}

package repository

import (
	"context"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/pkg/pg"
)

type MovementRepository struct {
	*pg.DB
}

func NewMovementRepository(db *pg.DB) *MovementRepository {
	return &MovementRepository{
		db,
	}
}

// Create appends one ledger entry. Entries are immutable: there is no
// update or delete on this repository on purpose.
func (r *MovementRepository) Create(ctx context.Context, mv *model.Movement) (*model.Movement, error) {
	entity := toMovementEntity(mv)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toMovementModel(entity), nil
}

// ListAll returns every movement, most recent first, with the owning and
// related accounts' display names resolved.
func (r *MovementRepository) ListAll(ctx context.Context) ([]*model.MovementWithNames, error) {
	var rows []*movementWithNamesRow
	err := r.Read(ctx).WithContext(ctx).
		Table("movements AS m").
		Select(`m.*,
            a.first_name  AS account_first_name,
            a.last_name   AS account_last_name,
            ra.first_name AS related_first_name,
            ra.last_name  AS related_last_name`).
		Joins("INNER JOIN accounts AS a ON m.account_id = a.id").
		Joins("LEFT JOIN accounts AS ra ON m.related_account_id = ra.id").
		Order("m.occurred_at DESC, m.id DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return toMovementWithNames(rows), nil
}

// ListByAccount returns one account's movements, most recent first.
func (r *MovementRepository) ListByAccount(ctx context.Context, accountID int64) ([]*model.MovementWithNames, error) {
	var rows []*movementWithNamesRow
	err := r.Read(ctx).WithContext(ctx).
		Table("movements AS m").
		Select(`m.*,
            a.first_name  AS account_first_name,
            a.last_name   AS account_last_name,
            ra.first_name AS related_first_name,
            ra.last_name  AS related_last_name`).
		Joins("INNER JOIN accounts AS a ON m.account_id = a.id").
		Joins("LEFT JOIN accounts AS ra ON m.related_account_id = ra.id").
		Where("m.account_id = ?", accountID).
		Order("m.occurred_at DESC, m.id DESC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	return toMovementWithNames(rows), nil
}

// CountByAccount is used by tests and the account deletion guard.
func (r *MovementRepository) CountByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.Read(ctx).WithContext(ctx).
		Model(&MovementEntity{}).
		Where("account_id = ?", accountID).
		Count(&count).
		Error
	return count, err
}

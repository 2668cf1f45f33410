package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bancoapp/banco-ledger/internal/model"
	"github.com/bancoapp/banco-ledger/pkg/pg"
)

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrPhoneNotRegistered = errors.New("phone number is not registered")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrDuplicatePhone     = errors.New("phone number already exists")
)

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Create(ctx context.Context, acct *model.Account) (*model.Account, error) {
	entity := toAccountEntity(acct)

	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		if dup := duplicateKeyError(err); dup != nil {
			return nil, dup
		}
		return nil, err
	}

	return toAccountModel(entity), nil
}

// duplicateKeyError maps a unique-constraint violation onto the sentinel
// for the column that caused it. Driver error text is the only reliable
// way to tell the username and phone constraints apart.
func duplicateKeyError(err error) error {
	msg := strings.ToLower(err.Error())
	if !errors.Is(err, gorm.ErrDuplicatedKey) &&
		!strings.Contains(msg, "unique") && !strings.Contains(msg, "duplicate") {
		return nil
	}
	if strings.Contains(msg, "phone") {
		return ErrDuplicatePhone
	}
	return ErrDuplicateUsername
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

// GetByIDForUpdate reads the account under a row lock. Must be called with
// a context carrying an open transaction; the lock serializes concurrent
// money movements touching the same account.
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

// GetByPhoneForUpdate resolves a transfer destination by phone, also under
// a row lock.
func (r *AccountRepository) GetByPhoneForUpdate(ctx context.Context, phone string) (*model.Account, error) {
	var entity AccountEntity
	err := r.Write(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("phone = ?", phone).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPhoneNotRegistered
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("username = ?", username).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*model.Account, error) {
	var entities []*AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Order("id").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toAccountModels(entities), nil
}

// UpdateBalance writes the account's new balance. Only the ledger service
// calls this, always inside a transaction that already holds the row lock.
func (r *AccountRepository) UpdateBalance(ctx context.Context, id int64, balance decimal.Decimal) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ?", id).
		Update("balance", balance)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateProfile edits the non-balance fields.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id int64, p model.AccountUpdateRequest) error {
	result := r.Write(ctx).WithContext(ctx).
		Model(&AccountEntity{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"first_name": p.FirstName,
			"last_name":  p.LastName,
			"age":        p.Age,
			"phone":      p.Phone,
		})
	if result.Error != nil {
		if dup := duplicateKeyError(result.Error); dup != nil {
			return dup
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	result := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&AccountEntity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

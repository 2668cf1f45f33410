package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bancoapp/banco-ledger/internal/model"
)

type AccountEntity struct {
	ID           int64           `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Username     string          `db:"username"      gorm:"column:username;not null;unique"`
	PasswordHash string          `db:"password_hash" gorm:"column:password_hash;not null"`
	FirstName    string          `db:"first_name"    gorm:"column:first_name;not null"`
	LastName     string          `db:"last_name"     gorm:"column:last_name;not null"`
	Age          int             `db:"age"           gorm:"column:age;not null"`
	Phone        string          `db:"phone"         gorm:"column:phone;not null;unique"`
	Balance      decimal.Decimal `db:"balance"       gorm:"column:balance;type:decimal(18,2);not null"`
	CreatedAt    time.Time       `db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (AccountEntity) TableName() string {
	return "accounts"
}

func toAccountEntity(m *model.Account) *AccountEntity {
	if m == nil {
		return nil
	}
	return &AccountEntity{
		ID:           m.ID,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Age:          m.Age,
		Phone:        m.Phone,
		Balance:      m.Balance,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:           e.ID,
		Username:     e.Username,
		PasswordHash: e.PasswordHash,
		FirstName:    e.FirstName,
		LastName:     e.LastName,
		Age:          e.Age,
		Phone:        e.Phone,
		Balance:      e.Balance,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func toAccountModels(entities []*AccountEntity) []*model.Account {
	if entities == nil {
		return nil
	}
	models := make([]*model.Account, len(entities))
	for i, e := range entities {
		models[i] = toAccountModel(e)
	}
	return models
}

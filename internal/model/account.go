package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a ledger-tracked entity with a balance and a contact phone
// number. The phone is the lookup key for incoming transfers and is unique
// across accounts. Balance is only ever changed by the ledger service.
type Account struct {
	ID           int64           `json:"id"            db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Username     string          `json:"username"      db:"username"      gorm:"column:username;not null;unique"`
	PasswordHash string          `json:"-"             db:"password_hash" gorm:"column:password_hash;not null"`
	FirstName    string          `json:"first_name"    db:"first_name"    gorm:"column:first_name;not null"`
	LastName     string          `json:"last_name"     db:"last_name"     gorm:"column:last_name;not null"`
	Age          int             `json:"age"           db:"age"           gorm:"column:age;not null"`
	Phone        string          `json:"phone"         db:"phone"         gorm:"column:phone;not null;unique"`
	Balance      decimal.Decimal `json:"balance"       db:"balance"       gorm:"column:balance;type:decimal(18,2);not null"`
	CreatedAt    time.Time       `json:"created_at"    db:"created_at"    gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `json:"updated_at"    db:"updated_at"    gorm:"column:updated_at;autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }

// DisplayName is how the account's owner appears in transfer memos and
// movement listings.
func (a Account) DisplayName() string {
	return a.FirstName + " " + a.LastName
}

// AccountCreateRequest is the input for provisioning an account.
type AccountCreateRequest struct {
	Username       string          `json:"username"`
	Password       string          `json:"password"`
	FirstName      string          `json:"first_name"`
	LastName       string          `json:"last_name"`
	Age            int             `json:"age"`
	Phone          string          `json:"phone"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

func (p AccountCreateRequest) Validate() error {
	if p.Username == "" {
		return errors.New("username is required")
	}
	if p.Password == "" {
		return errors.New("password is required")
	}
	if p.FirstName == "" {
		return errors.New("first_name is required")
	}
	if p.LastName == "" {
		return errors.New("last_name is required")
	}
	if p.Age <= 0 {
		return errors.New("age is required")
	}
	if p.Phone == "" {
		return errors.New("phone is required")
	}
	if p.OpeningBalance.IsNegative() {
		return errors.New("opening balance cannot be negative")
	}
	return nil
}

// AccountUpdateRequest updates profile fields only. Balance is out of reach
// on purpose: it moves exclusively through the ledger service.
type AccountUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Phone     string `json:"phone"`
}

func (p AccountUpdateRequest) Validate() error {
	if p.FirstName == "" {
		return errors.New("first_name is required")
	}
	if p.LastName == "" {
		return errors.New("last_name is required")
	}
	if p.Age <= 0 {
		return errors.New("age is required")
	}
	if p.Phone == "" {
		return errors.New("phone is required")
	}
	return nil
}

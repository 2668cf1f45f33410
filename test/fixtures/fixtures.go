package fixtures

import (
	"github.com/shopspring/decimal"

	"github.com/bancoapp/banco-ledger/internal/model"
)

func NewAccountCreateRequest(username, phone, openingBalance string) model.AccountCreateRequest {
	return model.AccountCreateRequest{
		Username:       username,
		Password:       "s3cret-" + username,
		FirstName:      "Test",
		LastName:       username,
		Age:            30,
		Phone:          phone,
		OpeningBalance: decimal.RequireFromString(openingBalance),
	}
}

func NewDepositRequest(accountID int64, amount string) model.DepositRequest {
	return model.DepositRequest{
		AccountID: accountID,
		Amount:    decimal.RequireFromString(amount),
	}
}

func NewWithdrawRequest(accountID int64, amount string) model.WithdrawRequest {
	return model.WithdrawRequest{
		AccountID: accountID,
		Amount:    decimal.RequireFromString(amount),
	}
}

func NewTransferRequest(sourceID int64, destPhone, amount string) model.TransferRequest {
	return model.TransferRequest{
		SourceAccountID:  sourceID,
		DestinationPhone: destPhone,
		Amount:           decimal.RequireFromString(amount),
	}
}

var (
	ValidPhoneNumbers = []string{
		"+15550000001",
		"+15550000002",
		"+442071234567",
		"+33123456789",
	}

	InvalidAmounts = []string{
		"0",
		"-1",
		"-0.01",
	}
)

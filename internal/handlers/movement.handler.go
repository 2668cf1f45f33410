package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"

	"github.com/bancoapp/banco-ledger/internal/model"
	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
)

type LedgerService interface {
	Deposit(ctx context.Context, p model.DepositRequest) (*model.MovementResult, error)
	Withdraw(ctx context.Context, p model.WithdrawRequest) (*model.MovementResult, error)
	Transfer(ctx context.Context, p model.TransferRequest) (*model.TransferResult, error)
	ListMovements(ctx context.Context) ([]*model.MovementWithNames, error)
	ListAccountMovements(ctx context.Context, accountID int64) ([]*model.MovementWithNames, error)
}

type MovementHandler struct {
	svc LedgerService
}

func NewMovementHandler(ledgerService LedgerService) *MovementHandler {
	return &MovementHandler{
		svc: ledgerService,
	}
}

func RegisterMovementRoutes(e *router.Group, h *MovementHandler) {
	e.GET("/movements", h.ListMovements)
	e.GET("/movements/account/{id}", h.ListAccountMovements)
	e.POST("/movements/deposit", h.CreateDeposit)
	e.POST("/movements/withdrawal", h.CreateWithdrawal)
	e.POST("/movements/transfer", h.CreateTransfer)
}

type depositRequest struct {
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
}

type withdrawalRequest struct {
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
}

type transferRequest struct {
	SourceAccountID  int64           `json:"source_account_id"`
	DestinationPhone string          `json:"destination_phone"`
	Amount           decimal.Decimal `json:"amount"`
	Memo             string          `json:"memo"`
}

func (h *MovementHandler) CreateDeposit(ctx *xhttp.RequestCtx) {
	var req depositRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.svc.Deposit(ctx, model.DepositRequest{
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Memo:      req.Memo,
	})
	if err != nil {
		writeServiceError(ctx, err, "failed to create deposit")
		return
	}
	writeData(ctx, xhttp.StatusCreated, result)
}

func (h *MovementHandler) CreateWithdrawal(ctx *xhttp.RequestCtx) {
	var req withdrawalRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.svc.Withdraw(ctx, model.WithdrawRequest{
		AccountID: req.AccountID,
		Amount:    req.Amount,
		Memo:      req.Memo,
	})
	if err != nil {
		writeServiceError(ctx, err, "failed to create withdrawal")
		return
	}
	writeData(ctx, xhttp.StatusCreated, result)
}

func (h *MovementHandler) CreateTransfer(ctx *xhttp.RequestCtx) {
	var req transferRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	result, err := h.svc.Transfer(ctx, model.TransferRequest{
		SourceAccountID:  req.SourceAccountID,
		DestinationPhone: req.DestinationPhone,
		Amount:           req.Amount,
		Memo:             req.Memo,
	})
	if err != nil {
		writeServiceError(ctx, err, "failed to create transfer")
		return
	}
	writeData(ctx, xhttp.StatusCreated, result)
}

func (h *MovementHandler) ListMovements(ctx *xhttp.RequestCtx) {
	items, err := h.svc.ListMovements(ctx)
	if err != nil {
		writeServiceError(ctx, err, "failed to list movements")
		return
	}
	writeData(ctx, xhttp.StatusOK, items)
}

func (h *MovementHandler) ListAccountMovements(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}

	items, err := h.svc.ListAccountMovements(ctx, id)
	if err != nil {
		writeServiceError(ctx, err, "failed to list account movements")
		return
	}
	writeData(ctx, xhttp.StatusOK, items)
}

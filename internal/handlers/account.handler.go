package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/bancoapp/banco-ledger/internal/model"
	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
)

type AccountService interface {
	Create(ctx context.Context, p model.AccountCreateRequest) (*model.Account, error)
	Get(ctx context.Context, id int64) (*model.Account, error)
	List(ctx context.Context) ([]*model.Account, error)
	Update(ctx context.Context, id int64, p model.AccountUpdateRequest) error
	Delete(ctx context.Context, id int64) error
}

type AccountHandler struct {
	svc AccountService
}

func NewAccountHandler(accountService AccountService) *AccountHandler {
	return &AccountHandler{
		svc: accountService,
	}
}

func RegisterAccountRoutes(e *router.Group, h *AccountHandler) {
	e.GET("/accounts", h.ListAccounts)
	e.GET("/accounts/{id}", h.GetAccount)
	e.POST("/accounts", h.CreateAccount)
	e.PUT("/accounts/{id}", h.UpdateAccount)
	e.DELETE("/accounts/{id}", h.DeleteAccount)
}

func (h *AccountHandler) CreateAccount(ctx *xhttp.RequestCtx) {
	var req model.AccountCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	acct, err := h.svc.Create(ctx, req)
	if err != nil {
		writeServiceError(ctx, err, "failed to create account")
		return
	}
	writeData(ctx, xhttp.StatusCreated, acct)
}

func (h *AccountHandler) GetAccount(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.svc.Get(ctx, id)
	if err != nil {
		writeServiceError(ctx, err, "failed to get account")
		return
	}
	writeData(ctx, xhttp.StatusOK, acct)
}

func (h *AccountHandler) ListAccounts(ctx *xhttp.RequestCtx) {
	accts, err := h.svc.List(ctx)
	if err != nil {
		writeServiceError(ctx, err, "failed to list accounts")
		return
	}
	writeData(ctx, xhttp.StatusOK, accts)
}

func (h *AccountHandler) UpdateAccount(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}

	var req model.AccountUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	if err := h.svc.Update(ctx, id, req); err != nil {
		writeServiceError(ctx, err, "failed to update account")
		return
	}
	writeData(ctx, xhttp.StatusOK, map[string]int64{"id": id})
}

func (h *AccountHandler) DeleteAccount(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.svc.Delete(ctx, id); err != nil {
		writeServiceError(ctx, err, "failed to delete account")
		return
	}
	writeData(ctx, xhttp.StatusOK, map[string]int64{"id": id})
}

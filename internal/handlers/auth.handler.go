package handlers

import (
	"context"

	"github.com/fasthttp/router"

	"github.com/bancoapp/banco-ledger/internal/model"
	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
)

type AuthService interface {
	Login(ctx context.Context, username, password string) (*model.Account, error)
	GetUserInfo(ctx context.Context, id int64) (*model.Account, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{
		svc: authService,
	}
}

func RegisterAuthRoutes(e *router.Group, h *AuthHandler) {
	e.POST("/auth/login", h.Login)
	e.GET("/auth/users/{id}", h.GetUserInfo)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(ctx *xhttp.RequestCtx) {
	var req loginRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	acct, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		writeServiceError(ctx, err, "login failed")
		return
	}
	writeData(ctx, xhttp.StatusOK, acct)
}

func (h *AuthHandler) GetUserInfo(ctx *xhttp.RequestCtx) {
	id, err := pathInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid user id")
		return
	}

	acct, err := h.svc.GetUserInfo(ctx, id)
	if err != nil {
		writeServiceError(ctx, err, "failed to get user info")
		return
	}
	writeData(ctx, xhttp.StatusOK, acct)
}

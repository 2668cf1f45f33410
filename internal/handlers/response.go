package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/bancoapp/banco-ledger/internal/services"
	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
)

// Every response uses the same envelope: {"success":true,"data":...} on
// success, {"success":false,"message":...} on failure. Internal errors also
// carry a diagnostic string; business failures never leak store errors.
type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	return json.Unmarshal(ctx.PostBody(), dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeData(ctx *xhttp.RequestCtx, status int, data interface{}) {
	writeJSON(ctx, status, successResponse{Success: true, Data: data})
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, errorResponse{Success: false, Message: msg})
}

func writeInternalError(ctx *xhttp.RequestCtx, msg string, err error) {
	writeJSON(ctx, xhttp.StatusInternalServerError, errorResponse{
		Success: false,
		Message: msg,
		Error:   err.Error(),
	})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses:
// unknown account or phone to 404, bad credentials to 401, validation and
// business-rule failures to 400, anything else to 500.
func writeServiceError(ctx *xhttp.RequestCtx, err error, internalMsg string) {
	switch {
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrPhoneNotRegistered):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(ctx, xhttp.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInsufficientFunds),
		errors.Is(err, services.ErrSelfTransfer),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrPhoneTaken):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	default:
		writeInternalError(ctx, internalMsg, err)
	}
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, errors.New("missing path parameter " + name)
	}
	return strconv.ParseInt(v, 10, 64)
}

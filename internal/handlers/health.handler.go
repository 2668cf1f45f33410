package handlers

import (
	"github.com/fasthttp/router"

	xhttp "github.com/bancoapp/banco-ledger/pkg/http"
)

func RegisterHealthRoutes(r *router.Router) {
	r.GET("/health", func(ctx *xhttp.RequestCtx) {
		writeData(ctx, xhttp.StatusOK, map[string]string{"status": "ok"})
	})
}

package handlers

import (
	"encoding/json"
	"errors"
	"strconv"

	"github.com/oxyplant/cylinder-ledger/internal/repository"
	"github.com/oxyplant/cylinder-ledger/internal/services"
	xhttp "github.com/oxyplant/cylinder-ledger/pkg/http"
)

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, msg string) {
	writeJSON(ctx, status, map[string]string{"error": msg})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Conflict
// errors come back 409, missing resources 404, resource shortfalls 422,
// bad input 400.
func writeDomainError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound) || errors.Is(err, services.ErrNotFound):
		writeError(ctx, 404, err.Error())
	case errors.Is(err, repository.ErrDuplicateSerial),
		errors.Is(err, repository.ErrStaleState),
		errors.Is(err, repository.ErrPlanApplied),
		errors.Is(err, repository.ErrConcurrentUpdate),
		errors.Is(err, repository.ErrMaxRetriesExceeded):
		writeError(ctx, 409, err.Error())
	case errors.Is(err, repository.ErrInsufficientLevel),
		errors.Is(err, repository.ErrCapacityExceeded),
		errors.Is(err, repository.ErrOverpayment),
		errors.Is(err, repository.ErrInvalidTransition),
		errors.Is(err, services.ErrBottleNotAvailable):
		writeError(ctx, 422, err.Error())
	default:
		writeError(ctx, 400, err.Error())
	}
}

func pathInt64(ctx *xhttp.RequestCtx, name string) (int64, error) {
	v, ok := ctx.UserValue(name).(string)
	if !ok {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseInt(v, 10, 64)
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Emmanuel246/natours/internal/apperr"
	"github.com/Emmanuel246/natours/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// Every response shares one envelope: "success" carries data, "fail" carries
// a caller-fixable message (4xx), "error" carries a generic message (5xx).

func RespondData(ctx *gin.Context, status int, data interface{}) {
	ctx.JSON(status, gin.H{
		"status": "success",
		"data":   data,
	})
}

func RespondCreated(ctx *gin.Context, data interface{}) {
	RespondData(ctx, http.StatusCreated, data)
}

func RespondOK(ctx *gin.Context, data interface{}) {
	RespondData(ctx, http.StatusOK, data)
}

// RespondList adds the result count alongside the documents so paginating
// clients don't have to count them.
func RespondList(ctx *gin.Context, key string, docs interface{}, results, total int) {
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": results,
		"total":   total,
		"data":    gin.H{key: docs},
	})
}

func RespondNoContent(ctx *gin.Context) {
	ctx.Status(http.StatusNoContent)
}

// RespondError is the single place errors become HTTP. Operational errors
// surface their own message; anything else is logged with the request id
// and hidden behind a generic line.
func RespondError(ctx *gin.Context, log *slog.Logger, err error) {
	status := apperr.StatusOf(err)

	if apperr.Operational(err) {
		ctx.JSON(status, gin.H{
			"status":  "fail",
			"message": errMessage(err),
		})
		return
	}

	if log != nil {
		log.ErrorContext(ctx.Request.Context(), "request failed",
			slog.String("request_id", requestIDFrom(ctx)),
			slog.String("route", ctx.FullPath()),
			slog.String("error", err.Error()),
		)
	}

	ctx.JSON(status, gin.H{
		"status":  "error",
		"message": "Something went very wrong!",
	})
}

func RespondFail(ctx *gin.Context, status int, message string) {
	ctx.JSON(status, gin.H{
		"status":  "fail",
		"message": message,
	})
}

func errMessage(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

func requestIDFrom(ctx *gin.Context) string {
	v, ok := ctx.Get(middlewares.CtxRequestID)

	if ok {
		s, ok := v.(string)
		if ok && s != "" {
			return s
		}
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

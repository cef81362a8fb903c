package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apperrors "github.com/nancymuyeh/SafeSpace/internal/errors"
)

// ErrorWriter writes an error response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Recovery turns a panic into a logged 500 with the standard error body.
func Recovery(logger *zap.Logger, writeError ErrorWriter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// Let the server abort the connection.
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("requestID", middleware.GetReqID(r.Context())),
					zap.ByteString("stack", debug.Stack()),
				)

				// Nothing can be written once headers are out.
				if w.Header().Get("Content-Type") == "" {
					writeError(w, r, apperrors.NewInternalError(fmt.Sprintf("panic: %v", rec)))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

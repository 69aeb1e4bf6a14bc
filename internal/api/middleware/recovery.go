package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/kiranshivaraju/bidhub/internal/api/response"
)

// Recovery converts a handler panic into a 500 envelope. http.ErrAbortHandler
// is re-raised so net/http drops the connection quietly. Nothing is written
// when the handler had already started its response.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(v)
			}

			attrs := []any{"panic", v, "method", r.Method, "path", r.URL.Path}
			attrs = append(attrs, requestAttrs(r, scopeOf(r.Context()))...)
			attrs = append(attrs, "stack", string(debug.Stack()))
			slog.Error("handler panicked", attrs...)

			if rec, ok := w.(*statusRecorder); ok && rec.wrote {
				return
			}
			response.Error(w, http.StatusInternalServerError,
				response.CodeInternal, "An unexpected error occurred")
		}()
		next.ServeHTTP(w, r)
	})
}

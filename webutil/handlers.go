package webutil

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// AppHandler represents a handler function that returns an error.
type AppHandler func(w http.ResponseWriter, r *http.Request) error

// MakeHandler adapts an AppHandler to the standard http.HandlerFunc
// signature, logging any returned error and sending a standardized JSON
// error response.
func MakeHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		err := handler(ww, r)
		if err == nil {
			// The handler is assumed to have written its own response.
			return
		}

		var httpErr *HTTPError
		var publicMessage string
		var statusCode int

		switch {
		case errors.As(err, &httpErr):
			statusCode = httpErr.Code
			publicMessage = httpErr.Message
			logLevel := slog.LevelWarn
			if statusCode >= 500 {
				logLevel = slog.LevelError
			}
			slog.Log(r.Context(), logLevel, "Error response",
				"code", httpErr.Code,
				"msg", httpErr.Message,
				"cause", errors.Unwrap(httpErr),
				"path", r.URL.Path,
				"method", r.Method,
			)

		case errors.Is(err, sql.ErrNoRows):
			statusCode = http.StatusNotFound
			publicMessage = "Resource not found"
			slog.Info("Resource not found", "path", r.URL.Path, "method", r.Method, "error", err)

		default:
			statusCode = http.StatusInternalServerError
			publicMessage = "Internal Server Error"
			slog.Error("Unhandled internal error", "path", r.URL.Path, "method", r.Method, "error", err)
		}

		// A status of zero means the handler never called WriteHeader or
		// Write, so the error response is still ours to send. Response
		// headers set by middleware do not count as a written response.
		if ww.Status() != 0 {
			slog.Warn("Handler returned error after writing response",
				"path", r.URL.Path,
				"method", r.Method,
				"error", err,
			)
			return
		}

		RespondWithJSON(ww, statusCode, map[string]string{"error": publicMessage})
	}
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	rh "github.com/shoplane/ordermail/route-handlers"
	"github.com/shoplane/ordermail/webutil"
)

const (
	apiBasePath            = "/api"
	ordersBasePath         = "/orders"
	failedMessagesBasePath = "/failed-messages"
)

const (
	attemptsSubPath     = "/attempts"
	emailsSubPath       = "/emails"
	confirmationSubPath = "/confirmation"
	statusSubPath       = "/status"
	requeueSubPath      = "/requeue"
)

const (
	paramID = "id"
)

func SetupRoutes(
	orderEmailHandler *rh.OrderEmailHandler,
	failedMessageHandler *rh.FailedMessageHandler,
) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(SetHeader(webutil.HeaderContentType, webutil.ContentTypeJSONUTF8))

	r.Route(apiBasePath, func(r chi.Router) {
		configureOrderRoutes(r, orderEmailHandler)
		configureFailedMessageRoutes(r, failedMessageHandler)
	})

	// Health check endpoint
	r.Get("/healthz", handleHealthCheck)

	return r
}

// Helper for constructing paths with a parameter
func pathWithParam(basePath string, paramName string) string {
	if basePath == "" {
		return "/{" + paramName + "}"
	}
	return basePath + "/{" + paramName + "}"
}

// --- Order Email Routes ---
func configureOrderRoutes(r chi.Router, handler *rh.OrderEmailHandler) {
	orderSpecificPath := pathWithParam("", paramID) // e.g., "/{id}"

	r.Route(ordersBasePath, func(r chi.Router) {
		r.Route(orderSpecificPath, func(r chi.Router) {
			// GET /orders/{id}/attempts: delivery history, newest first
			r.Get(attemptsSubPath, webutil.MakeHandler(handler.HandleGetOrderAttempts))

			r.Route(emailsSubPath, func(r chi.Router) {
				// POST /orders/{id}/emails/confirmation
				r.Post(confirmationSubPath, webutil.MakeHandler(handler.HandleSendConfirmation))
				// POST /orders/{id}/emails/status
				r.Post(statusSubPath, webutil.MakeHandler(handler.HandleSendStatusUpdate))
			})
		})
	})
}

// --- Failed Message Routes ---
func configureFailedMessageRoutes(r chi.Router, handler *rh.FailedMessageHandler) {
	failedSpecificPath := pathWithParam("", paramID)

	r.Route(failedMessagesBasePath, func(r chi.Router) {
		r.Get("/", webutil.MakeHandler(handler.HandleListFailed))
		// POST /failed-messages/{id}/requeue
		r.Post(failedSpecificPath+requeueSubPath, webutil.MakeHandler(handler.HandleRequeue))
	})
}

// --- Utility Functions ---

// handleHealthCheck responds to a health check request.
func handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(webutil.HeaderContentType, webutil.ContentTypeTextPlainUTF8)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// SetHeader is a middleware to set a response header.
func SetHeader(key, value string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, value)
			next.ServeHTTP(w, r)
		})
	}
}

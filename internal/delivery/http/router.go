package http

import (
	"log/slog"
	"net/http"

	"venuebooking/internal/delivery/http/controllers"
	"venuebooking/internal/delivery/http/middleware"
	"venuebooking/internal/domain"

	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps holds everything NewRouter wires into the mux.
type RouterDeps struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	Requests       *controllers.RequestController
	Calendar       *controllers.CalendarController
	Admin          *controllers.AdminController
	Metrics        http.Handler
	AllowedOrigins []string
}

// NewRouter initializes the HTTP router with all application routes
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	authed := middleware.RequireAuth(d.Verifier, d.Logger)
	optional := middleware.OptionalAuth(d.Verifier, d.Logger)
	admin := func(h http.HandlerFunc) http.HandlerFunc { return authed(middleware.RequireAdmin(h)) }

	// Requests
	mux.HandleFunc("POST /requests", d.Requests.SubmitInitial)
	mux.HandleFunc("GET /requests", admin(d.Requests.ListRequests))
	mux.HandleFunc("GET /me/requests", authed(d.Requests.ListMyRequests))
	mux.HandleFunc("GET /requests/{id}", authed(d.Requests.GetRequest))
	mux.HandleFunc("POST /requests/{id}/accept-initial", admin(d.Requests.AcceptInitial))
	mux.HandleFunc("POST /requests/{id}/details", authed(d.Requests.SubmitDetails))
	mux.HandleFunc("POST /requests/{id}/final-accept", admin(d.Requests.FinalAccept))
	mux.HandleFunc("POST /requests/{id}/reject", admin(d.Requests.Reject))
	mux.HandleFunc("POST /requests/{id}/cancel", authed(d.Requests.Cancel))

	// Calendar
	mux.HandleFunc("GET /calendar", optional(d.Calendar.Calendar))
	mux.HandleFunc("GET /calendar.ics", d.Calendar.ExportICS)
	mux.HandleFunc("POST /events", admin(d.Calendar.CreateEvent))
	mux.HandleFunc("PATCH /events/{id}", admin(d.Calendar.UpdateEvent))
	mux.HandleFunc("DELETE /events/{id}", admin(d.Calendar.DeleteEvent))

	// Admin
	mux.HandleFunc("POST /admin/reconcile-blocks", admin(d.Admin.ReconcileBlocks))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var h http.Handler = mux
	h = middleware.LoggingMiddleware(d.Logger, h)
	h = middleware.CORS(d.AllowedOrigins, h)
	return middleware.RequestID(h)
}

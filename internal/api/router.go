package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	mw "github.com/kiranshivaraju/bidhub/internal/api/middleware"
	"github.com/kiranshivaraju/bidhub/internal/api/response"
	"github.com/kiranshivaraju/bidhub/internal/authz"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	ListJobs  http.HandlerFunc
	GetJob    http.HandlerFunc
	CreateJob http.HandlerFunc
	MyJobs    http.HandlerFunc
	UpdateJob http.HandlerFunc
	CancelJob http.HandlerFunc

	PlaceBid    http.HandlerFunc
	ListJobBids http.HandlerFunc
	MyBids      http.HandlerFunc
	GetBid      http.HandlerFunc
	AcceptBid   http.HandlerFunc
	RejectBid   http.HandlerFunc
	WithdrawBid http.HandlerFunc

	GetProfile http.HandlerFunc
	PutProfile http.HandlerFunc
	CreateUser http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	r.Get("/api/v1/jobs", orNotImplemented(deps.ListJobs))
	r.Get("/api/v1/jobs/{jobID}", orNotImplemented(deps.GetJob))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)
		require := deps.Auth.Require

		r.Get("/api/v1/jobs/mine", orNotImplemented(deps.MyJobs))
		r.With(require(authz.OpCreateJob)).Post("/api/v1/jobs", orNotImplemented(deps.CreateJob))
		r.With(require(authz.OpEditJob)).Put("/api/v1/jobs/{jobID}", orNotImplemented(deps.UpdateJob))
		r.With(require(authz.OpCancelJob)).Delete("/api/v1/jobs/{jobID}", orNotImplemented(deps.CancelJob))
		r.With(require(authz.OpListJobBids)).Get("/api/v1/jobs/{jobID}/bids", orNotImplemented(deps.ListJobBids))

		r.With(require(authz.OpPlaceBid)).Post("/api/v1/bids", orNotImplemented(deps.PlaceBid))
		r.With(require(authz.OpListMyBids)).Get("/api/v1/bids/my", orNotImplemented(deps.MyBids))
		r.With(require(authz.OpViewBid)).Get("/api/v1/bids/{bidID}", orNotImplemented(deps.GetBid))
		r.With(require(authz.OpAcceptBid)).Put("/api/v1/bids/{bidID}/accept", orNotImplemented(deps.AcceptBid))
		r.With(require(authz.OpRejectBid)).Put("/api/v1/bids/{bidID}/reject", orNotImplemented(deps.RejectBid))
		r.With(require(authz.OpWithdrawBid)).Delete("/api/v1/bids/{bidID}", orNotImplemented(deps.WithdrawBid))

		r.Group(func(r chi.Router) {
			r.Use(require(authz.OpManageProfile))

			r.Get("/api/v1/profile/worker", orNotImplemented(deps.GetProfile))
			r.Put("/api/v1/profile/worker", orNotImplemented(deps.PutProfile))
		})

		// Admin routes
		r.With(require(authz.OpManageUsers)).Post("/api/v1/admin/users", orNotImplemented(deps.CreateUser))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented")
	}
}

package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	Router *chi.Mux
}

func NewServer(handler *Handler) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handler.Register)
		r.Post("/login", handler.Login)
	})

	r.Route("/users", func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Get("/me", handler.Me)
		r.Get("/bank-details", handler.GetBankDetails)
		r.Post("/bank-details", handler.SaveBankDetails)
		r.Post("/complete-onboarding", handler.CompleteOnboarding)
	})

	r.Route("/ads", func(r chi.Router) {
		r.Get("/", handler.ListAds)
		r.Get("/{adID}", handler.GetAd)
		r.Group(func(r chi.Router) {
			r.Use(handler.RequireAuth)
			r.Post("/", handler.CreateAd)
			r.Delete("/{adID}", handler.CancelAd)
		})
	})

	r.Route("/purchases", func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Post("/", handler.CreatePurchase)
		r.Get("/{txID}", handler.GetPurchase)
		r.Get("/{txID}/ws", handler.PurchaseStatusWS)
	})

	r.Post("/payments/verify", handler.VerifyPayment)
	r.Post("/webhooks/razorpay", handler.Webhook)

	r.Route("/payouts", func(r chi.Router) {
		r.Use(handler.RequireAuth)
		r.Post("/", handler.CreatePayout)
		r.Get("/", handler.ListPayouts)
	})

	return &Server{Router: r}
}

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/avkosorukov/taskora/docs"
	authhandlers "github.com/avkosorukov/taskora/internal/handlers/auth"
	contracthandlers "github.com/avkosorukov/taskora/internal/handlers/contracts"
	milestonehandlers "github.com/avkosorukov/taskora/internal/handlers/milestones"
	paymenthandlers "github.com/avkosorukov/taskora/internal/handlers/payments"
	payouthandlers "github.com/avkosorukov/taskora/internal/handlers/payouts"
	"github.com/avkosorukov/taskora/internal/service"
	"github.com/avkosorukov/taskora/pkg/auth"
)

//go:generate mockgen -source=handlers.go -destination=handlers_mock.go -package=handlers

type AuthHandler interface {
	Register(w http.ResponseWriter, r *http.Request)
	Login(w http.ResponseWriter, r *http.Request)
}

type ContractHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Sign(w http.ResponseWriter, r *http.Request)
	Cancel(w http.ResponseWriter, r *http.Request)
	Dispute(w http.ResponseWriter, r *http.Request)
}

type MilestoneHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Update(w http.ResponseWriter, r *http.Request)
	Start(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type PaymentHandler interface {
	Fund(w http.ResponseWriter, r *http.Request)
	Release(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Webhook(w http.ResponseWriter, r *http.Request)
}

type PayoutHandler interface {
	Account(w http.ResponseWriter, r *http.Request)
	Balance(w http.ResponseWriter, r *http.Request)
	Withdraw(w http.ResponseWriter, r *http.Request)
	Withdrawals(w http.ResponseWriter, r *http.Request)
}

type Handlers struct {
	AuthHandler      AuthHandler
	ContractHandler  ContractHandler
	MilestoneHandler MilestoneHandler
	PaymentHandler   PaymentHandler
	PayoutHandler    PayoutHandler
}

func New(s *service.Services, verifier paymenthandlers.Verifier) *Handlers {
	return &Handlers{
		AuthHandler:      authhandlers.New(s.AuthService),
		ContractHandler:  contracthandlers.New(s.ContractService),
		MilestoneHandler: milestonehandlers.New(s.MilestoneService),
		PaymentHandler:   paymenthandlers.New(s.EscrowService, s.WebhookService, verifier),
		PayoutHandler:    payouthandlers.New(s.PayoutService),
	}
}

func (h *Handlers) InitRoutes(r chi.Router) chi.Router {
	r.Use(
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
	)
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))
	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.AuthHandler.Register)
		r.Post("/user/login", h.AuthHandler.Login)

		// Signature-verified, not JWT-authenticated.
		r.Post("/webhooks/processor", h.PaymentHandler.Webhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.AuthMiddleware)
			r.Route("/contracts", func(r chi.Router) {
				r.Post("/", h.ContractHandler.Create)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.ContractHandler.Get)
					r.Patch("/", h.ContractHandler.Update)
					r.Post("/sign", h.ContractHandler.Sign)
					r.Post("/cancel", h.ContractHandler.Cancel)
					r.Post("/dispute", h.ContractHandler.Dispute)
					r.Post("/milestones", h.MilestoneHandler.Create)
					r.Get("/milestones", h.MilestoneHandler.List)
					r.Post("/fund", h.PaymentHandler.Fund)
					r.Get("/payments", h.PaymentHandler.List)
				})
			})
			r.Route("/milestones/{id}", func(r chi.Router) {
				r.Patch("/", h.MilestoneHandler.Update)
				r.Post("/start", h.MilestoneHandler.Start)
				r.Post("/submit", h.MilestoneHandler.Submit)
				r.Post("/reject", h.MilestoneHandler.Reject)
				r.Post("/release", h.PaymentHandler.Release)
			})
			r.Route("/payouts", func(r chi.Router) {
				r.Post("/account", h.PayoutHandler.Account)
				r.Get("/balance", h.PayoutHandler.Balance)
				r.Post("/withdraw", h.PayoutHandler.Withdraw)
				r.Get("/withdrawals", h.PayoutHandler.Withdrawals)
			})
		})
	})

	return r
}

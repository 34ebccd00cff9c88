package service

import (
	"github.com/avkosorukov/taskora/internal/config"
	"github.com/avkosorukov/taskora/internal/handlers/auth"
	"github.com/avkosorukov/taskora/internal/handlers/contracts"
	"github.com/avkosorukov/taskora/internal/handlers/milestones"
	"github.com/avkosorukov/taskora/internal/handlers/payments"
	"github.com/avkosorukov/taskora/internal/handlers/payouts"
	"github.com/avkosorukov/taskora/internal/notify"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/avkosorukov/taskora/internal/processor"
	"github.com/avkosorukov/taskora/internal/repo"
	"github.com/avkosorukov/taskora/internal/service/authservice"
	"github.com/avkosorukov/taskora/internal/service/contractservice"
	"github.com/avkosorukov/taskora/internal/service/escrowservice"
	"github.com/avkosorukov/taskora/internal/service/feecalc"
	"github.com/avkosorukov/taskora/internal/service/milestoneservice"
	"github.com/avkosorukov/taskora/internal/service/payoutservice"
	"github.com/avkosorukov/taskora/internal/service/webhookservice"

	pkgauth "github.com/avkosorukov/taskora/pkg/auth"
)

type Services struct {
	AuthService      auth.Service
	ContractService  contracts.Service
	MilestoneService milestones.Service
	EscrowService    payments.EscrowService
	PayoutService    payouts.Service
	WebhookService   payments.WebhookService
}

func New(cfg *config.Config, repo *repo.Repositories, txManager pg.TXManager, gateway *processor.Client, notifier *notify.Service) *Services {
	feeCalc := feecalc.New(cfg.PlatformFeeBPS)

	authService := authservice.New(repo.UserRepo, &pkgauth.HashService{}, &pkgauth.JWTService{})
	contractService := contractservice.New(repo.ContractRepo, repo.ApplicationRepo, txManager, notifier)
	milestoneService := milestoneservice.New(repo.MilestoneRepo, repo.ContractRepo, notifier)
	escrowService := escrowservice.New(
		repo.ContractRepo, repo.MilestoneRepo, repo.PaymentRepo, repo.AccountRepo, repo.UserRepo,
		gateway, feeCalc, txManager, notifier,
	)
	payoutService := payoutservice.New(
		repo.PaymentRepo, repo.WithdrawalRepo, repo.AccountRepo,
		gateway, txManager, notifier,
	)
	webhookService := webhookservice.New(repo.WebhookRepo, escrowService, repo.WithdrawalRepo, txManager)

	return &Services{
		AuthService:      authService,
		ContractService:  contractService,
		MilestoneService: milestoneService,
		EscrowService:    escrowService,
		PayoutService:    payoutService,
		WebhookService:   webhookService,
	}
}

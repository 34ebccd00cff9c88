package repo

import (
	"github.com/avkosorukov/taskora/internal/pg"
	accountrepo "github.com/avkosorukov/taskora/internal/repo/account-repo"
	applicationrepo "github.com/avkosorukov/taskora/internal/repo/application-repo"
	contractrepo "github.com/avkosorukov/taskora/internal/repo/contract-repo"
	milestonerepo "github.com/avkosorukov/taskora/internal/repo/milestone-repo"
	paymentrepo "github.com/avkosorukov/taskora/internal/repo/payment-repo"
	userrepo "github.com/avkosorukov/taskora/internal/repo/user-repo"
	webhookrepo "github.com/avkosorukov/taskora/internal/repo/webhook-repo"
	withdrawalrepo "github.com/avkosorukov/taskora/internal/repo/withdrawal-repo"
)

type Repositories struct {
	UserRepo        *userrepo.Repository
	ApplicationRepo *applicationrepo.Repository
	ContractRepo    *contractrepo.Repository
	MilestoneRepo   *milestonerepo.Repository
	PaymentRepo     *paymentrepo.Repository
	WithdrawalRepo  *withdrawalrepo.Repository
	AccountRepo     *accountrepo.Repository
	WebhookRepo     *webhookrepo.Repository
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		UserRepo:        userrepo.New(conn),
		ApplicationRepo: applicationrepo.New(conn),
		ContractRepo:    contractrepo.New(conn, txManager),
		MilestoneRepo:   milestonerepo.New(conn, txManager),
		PaymentRepo:     paymentrepo.New(conn, txManager),
		WithdrawalRepo:  withdrawalrepo.New(conn),
		AccountRepo:     accountrepo.New(conn),
		WebhookRepo:     webhookrepo.New(conn),
	}
}

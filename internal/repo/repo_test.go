package repo

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

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

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	mockTxManager := pg.NewMockTXManager(ctrl)
	assert.NoError(t, err)
	repo := New(mockDB, mockTxManager)
	defer mockDB.Close()

	return repo, mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.UserRepo)
	assert.NotNil(t, repo.ApplicationRepo)
	assert.NotNil(t, repo.ContractRepo)
	assert.NotNil(t, repo.MilestoneRepo)
	assert.NotNil(t, repo.PaymentRepo)
	assert.NotNil(t, repo.WithdrawalRepo)
	assert.NotNil(t, repo.AccountRepo)
	assert.NotNil(t, repo.WebhookRepo)

	assert.IsType(t, &userrepo.Repository{}, repo.UserRepo)
	assert.IsType(t, &applicationrepo.Repository{}, repo.ApplicationRepo)
	assert.IsType(t, &contractrepo.Repository{}, repo.ContractRepo)
	assert.IsType(t, &milestonerepo.Repository{}, repo.MilestoneRepo)
	assert.IsType(t, &paymentrepo.Repository{}, repo.PaymentRepo)
	assert.IsType(t, &withdrawalrepo.Repository{}, repo.WithdrawalRepo)
	assert.IsType(t, &accountrepo.Repository{}, repo.AccountRepo)
	assert.IsType(t, &webhookrepo.Repository{}, repo.WebhookRepo)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}

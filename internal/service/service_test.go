package service

import (
	"net/http"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/avkosorukov/taskora/internal/config"
	"github.com/avkosorukov/taskora/internal/notify"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/avkosorukov/taskora/internal/processor"
	"github.com/avkosorukov/taskora/internal/repo"
	"github.com/avkosorukov/taskora/pkg/clients"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer pool.Close()

	cfg := &config.Config{
		PlatformFeeBPS: 1000,
		NotifyAddress:  "http://localhost:8090",
	}

	txManager := pg.NewMockTXManager(ctrl)
	repos := repo.New(pool, txManager)
	gateway := processor.NewClient(http.DefaultClient, "https://api.processor.test", "sk_test", "whsec_test")
	notifier := notify.New(cfg, clients.NewMockHTTPClientI(ctrl))
	defer notifier.Close()

	services := New(cfg, repos, txManager, gateway, notifier)

	assert.NotNil(t, services.AuthService)
	assert.NotNil(t, services.ContractService)
	assert.NotNil(t, services.MilestoneService)
	assert.NotNil(t, services.EscrowService)
	assert.NotNil(t, services.PayoutService)
	assert.NotNil(t, services.WebhookService)
}

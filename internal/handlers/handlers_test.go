package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	_ "github.com/avkosorukov/taskora/docs"
	"github.com/avkosorukov/taskora/internal/handlers/auth"
	"github.com/avkosorukov/taskora/internal/handlers/contracts"
	"github.com/avkosorukov/taskora/internal/handlers/milestones"
	"github.com/avkosorukov/taskora/internal/handlers/payments"
	"github.com/avkosorukov/taskora/internal/handlers/payouts"
	"github.com/avkosorukov/taskora/internal/service"
)

func TestNew(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	services := &service.Services{
		AuthService:      auth.NewMockService(ctrl),
		ContractService:  contracts.NewMockService(ctrl),
		MilestoneService: milestones.NewMockService(ctrl),
		EscrowService:    payments.NewMockEscrowService(ctrl),
		PayoutService:    payouts.NewMockService(ctrl),
		WebhookService:   payments.NewMockWebhookService(ctrl),
	}

	h := New(services, payments.NewMockVerifier(ctrl))
	assert.NotNil(t, h, "Handlers should not be nil")
}

func TestInitRoutes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockAuthHandler := NewMockAuthHandler(ctrl)
	mockContractHandler := NewMockContractHandler(ctrl)
	mockMilestoneHandler := NewMockMilestoneHandler(ctrl)
	mockPaymentHandler := NewMockPaymentHandler(ctrl)
	mockPayoutHandler := NewMockPayoutHandler(ctrl)

	mockAuthHandler.EXPECT().Register(gomock.Any(), gomock.Any()).AnyTimes()
	mockAuthHandler.EXPECT().Login(gomock.Any(), gomock.Any()).AnyTimes()
	mockContractHandler.EXPECT().Create(gomock.Any(), gomock.Any()).AnyTimes()
	mockContractHandler.EXPECT().Get(gomock.Any(), gomock.Any()).AnyTimes()
	mockContractHandler.EXPECT().Update(gomock.Any(), gomock.Any()).AnyTimes()
	mockContractHandler.EXPECT().Sign(gomock.Any(), gomock.Any()).AnyTimes()
	mockContractHandler.EXPECT().Cancel(gomock.Any(), gomock.Any()).AnyTimes()
	mockContractHandler.EXPECT().Dispute(gomock.Any(), gomock.Any()).AnyTimes()
	mockMilestoneHandler.EXPECT().Create(gomock.Any(), gomock.Any()).AnyTimes()
	mockMilestoneHandler.EXPECT().List(gomock.Any(), gomock.Any()).AnyTimes()
	mockMilestoneHandler.EXPECT().Update(gomock.Any(), gomock.Any()).AnyTimes()
	mockMilestoneHandler.EXPECT().Start(gomock.Any(), gomock.Any()).AnyTimes()
	mockMilestoneHandler.EXPECT().Submit(gomock.Any(), gomock.Any()).AnyTimes()
	mockMilestoneHandler.EXPECT().Reject(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().Fund(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().Release(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().List(gomock.Any(), gomock.Any()).AnyTimes()
	mockPaymentHandler.EXPECT().Webhook(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Account(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Balance(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Withdraw(gomock.Any(), gomock.Any()).AnyTimes()
	mockPayoutHandler.EXPECT().Withdrawals(gomock.Any(), gomock.Any()).AnyTimes()

	h := &Handlers{
		AuthHandler:      mockAuthHandler,
		ContractHandler:  mockContractHandler,
		MilestoneHandler: mockMilestoneHandler,
		PaymentHandler:   mockPaymentHandler,
		PayoutHandler:    mockPayoutHandler,
	}

	router := chi.NewRouter()
	h.InitRoutes(router)

	tests := []struct {
		method string
		url    string
		status int
	}{
		{"POST", "/api/user/register", http.StatusOK},
		{"POST", "/api/user/login", http.StatusOK},
		{"POST", "/api/webhooks/processor", http.StatusOK},
		{"POST", "/api/contracts", http.StatusUnauthorized},
		{"GET", "/api/contracts/1", http.StatusUnauthorized},
		{"PATCH", "/api/contracts/1", http.StatusUnauthorized},
		{"POST", "/api/contracts/1/sign", http.StatusUnauthorized},
		{"POST", "/api/contracts/1/cancel", http.StatusUnauthorized},
		{"POST", "/api/contracts/1/dispute", http.StatusUnauthorized},
		{"POST", "/api/contracts/1/milestones", http.StatusUnauthorized},
		{"GET", "/api/contracts/1/milestones", http.StatusUnauthorized},
		{"POST", "/api/contracts/1/fund", http.StatusUnauthorized},
		{"GET", "/api/contracts/1/payments", http.StatusUnauthorized},
		{"PATCH", "/api/milestones/1", http.StatusUnauthorized},
		{"POST", "/api/milestones/1/start", http.StatusUnauthorized},
		{"POST", "/api/milestones/1/submit", http.StatusUnauthorized},
		{"POST", "/api/milestones/1/reject", http.StatusUnauthorized},
		{"POST", "/api/milestones/1/release", http.StatusUnauthorized},
		{"POST", "/api/payouts/account", http.StatusUnauthorized},
		{"GET", "/api/payouts/balance", http.StatusUnauthorized},
		{"POST", "/api/payouts/withdraw", http.StatusUnauthorized},
		{"GET", "/api/payouts/withdrawals", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.url, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.url, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

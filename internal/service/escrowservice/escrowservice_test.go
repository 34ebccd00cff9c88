package escrowservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/avkosorukov/taskora/internal/processor"
	paymentrepo "github.com/avkosorukov/taskora/internal/repo/payment-repo"
	"github.com/avkosorukov/taskora/internal/service/feecalc"
)

type mocks struct {
	contractRepo  *MockContractRepo
	milestoneRepo *MockMilestoneRepo
	paymentRepo   *MockPaymentRepo
	accountRepo   *MockAccountRepo
	userRepo      *MockUserRepo
	gateway       *MockGateway
	notifier      *MockNotifier
}

func NewMock(t *testing.T) (*Service, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		contractRepo:  NewMockContractRepo(ctrl),
		milestoneRepo: NewMockMilestoneRepo(ctrl),
		paymentRepo:   NewMockPaymentRepo(ctrl),
		accountRepo:   NewMockAccountRepo(ctrl),
		userRepo:      NewMockUserRepo(ctrl),
		gateway:       NewMockGateway(ctrl),
		notifier:      NewMockNotifier(ctrl),
	}
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	service := New(
		m.contractRepo, m.milestoneRepo, m.paymentRepo, m.accountRepo, m.userRepo,
		m.gateway, feecalc.New(feecalc.DefaultPlatformFeeBPS), txManager, m.notifier,
	)
	defer ctrl.Finish()
	return service, m
}

func activeContract() *domain.Contract {
	return &domain.Contract{
		ID: 1, BusinessID: 2, TalentID: 3, Currency: "CAD", Status: domain.ContractActive,
	}
}

func TestFundEscrow(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()
	milestoneID := 5
	talent := &domain.User{ID: 3, Jurisdiction: "CA-AB", TaxRegistered: true}

	tests := []struct {
		name          string
		milestoneID   *int
		amount        int64
		prepareMock   func()
		expectedError error
	}{
		{
			name:   "Contract-level funding",
			amount: 100000,
			prepareMock: func() {
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
				m.userRepo.EXPECT().FindByID(ctx, 3).Return(talent, nil)
				m.gateway.EXPECT().CreatePaymentIntent(ctx, int64(100000), "CAD", gomock.Any()).
					Return(processor.Intent{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)
				m.paymentRepo.EXPECT().Save(ctx, gomock.Any()).Return(nil)
			},
		},
		{
			name:        "Milestone funding",
			milestoneID: &milestoneID,
			amount:      50000,
			prepareMock: func() {
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
				m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(&domain.Milestone{
					ID: 5, ContractID: 1, Status: domain.MilestonePending,
				}, nil)
				m.paymentRepo.EXPECT().FindActiveByMilestoneID(ctx, 5).Return(nil, nil)
				m.userRepo.EXPECT().FindByID(ctx, 3).Return(talent, nil)
				m.gateway.EXPECT().CreatePaymentIntent(ctx, int64(50000), "CAD", gomock.Any()).
					Return(processor.Intent{ID: "pi_456", ClientSecret: "pi_456_secret"}, nil)
				m.paymentRepo.EXPECT().Save(ctx, gomock.Any()).Return(nil)
			},
		},
		{
			name:        "Milestone already funded",
			milestoneID: &milestoneID,
			amount:      50000,
			prepareMock: func() {
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
				m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(&domain.Milestone{
					ID: 5, ContractID: 1, Status: domain.MilestonePending,
				}, nil)
				m.paymentRepo.EXPECT().FindActiveByMilestoneID(ctx, 5).Return(&domain.Payment{ID: 8}, nil)
			},
			expectedError: ErrAlreadyFunded,
		},
		{
			name:        "Concurrent funding loses to the unique index",
			milestoneID: &milestoneID,
			amount:      50000,
			prepareMock: func() {
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
				m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(&domain.Milestone{
					ID: 5, ContractID: 1, Status: domain.MilestonePending,
				}, nil)
				m.paymentRepo.EXPECT().FindActiveByMilestoneID(ctx, 5).Return(nil, nil)
				m.userRepo.EXPECT().FindByID(ctx, 3).Return(talent, nil)
				m.gateway.EXPECT().CreatePaymentIntent(ctx, int64(50000), "CAD", gomock.Any()).
					Return(processor.Intent{ID: "pi_457", ClientSecret: "pi_457_secret"}, nil)
				m.paymentRepo.EXPECT().Save(ctx, gomock.Any()).Return(paymentrepo.ErrDuplicateActive)
			},
			expectedError: ErrAlreadyFunded,
		},
		{
			name:   "Contract not active",
			amount: 100000,
			prepareMock: func() {
				c := activeContract()
				c.Status = domain.ContractPendingSignatures
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(c, nil)
			},
			expectedError: ErrInvalidState,
		},
		{
			name:   "Talent can't fund",
			amount: 100000,
			prepareMock: func() {
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
			},
			expectedError: ErrForbidden,
		},
		{
			name:          "Non-positive amount",
			amount:        0,
			prepareMock:   func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:   "Processor down",
			amount: 100000,
			prepareMock: func() {
				m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
				m.userRepo.EXPECT().FindByID(ctx, 3).Return(talent, nil)
				m.gateway.EXPECT().CreatePaymentIntent(ctx, int64(100000), "CAD", gomock.Any()).
					Return(processor.Intent{}, errors.New("connection refused"))
			},
			expectedError: ErrExternalService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			businessID := 2
			if tt.name == "Talent can't fund" {
				businessID = 3
			}
			payment, secret, err := service.FundEscrow(ctx, businessID, 1, tt.milestoneID, tt.amount)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, payment)
				return
			}
			assert.NoError(t, err)
			assert.NotEmpty(t, secret)
			assert.Equal(t, domain.PaymentPending, payment.Status)
			assert.Equal(t, tt.amount, payment.Amount)
			// GST at 5% on an 8% fee, everything sums back to gross
			assert.Equal(t, payment.Amount, payment.PlatformFee+payment.NetAmount)
		})
	}
}

func TestFundEscrowFeeBreakdown(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()

	m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
	m.userRepo.EXPECT().FindByID(ctx, 3).Return(&domain.User{
		ID: 3, Jurisdiction: "CA-AB", TaxRegistered: false,
	}, nil)
	m.gateway.EXPECT().CreatePaymentIntent(ctx, int64(100000), "CAD", gomock.Any()).
		Return(processor.Intent{ID: "pi_1", ClientSecret: "sec"}, nil)
	m.paymentRepo.EXPECT().Save(ctx, gomock.Any()).Return(nil)

	payment, _, err := service.FundEscrow(ctx, 2, 1, nil, 100000)
	assert.NoError(t, err)
	assert.Equal(t, int64(8400), payment.PlatformFee)
	assert.Equal(t, int64(91600), payment.NetAmount)
}

func TestReleaseMilestonePayment(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()

	submitted := func() *domain.Milestone {
		return &domain.Milestone{ID: 5, ContractID: 1, Amount: 50000, Status: domain.MilestoneSubmitted}
	}
	readyAccount := &domain.ConnectedAccount{
		ID: 1, UserID: 3, ExternalAccountID: "acct_9", PayoutsEnabled: true,
	}
	escrowed := func() *domain.Payment {
		return &domain.Payment{
			ID: 8, ContractID: 1, MilestoneID: intPtr(5), PayeeID: 3,
			Amount: 50000, PlatformFee: 4200, NetAmount: 45800,
			Status: domain.PaymentProcessing, ExternalPaymentRef: "pi_456",
		}
	}

	t.Run("Successful release completes contract when last milestone", func(t *testing.T) {
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(readyAccount, nil)
		m.paymentRepo.EXPECT().FindEscrowedByMilestoneForUpdate(gomock.Any(), 5).Return(escrowed(), nil)
		m.gateway.EXPECT().CreateTransfer(gomock.Any(), int64(45800), "acct_9", gomock.Any()).Return("tr_789", nil)
		m.paymentRepo.EXPECT().MarkReleased(gomock.Any(), 8, "tr_789").Return(true, nil)
		m.milestoneRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		m.milestoneRepo.EXPECT().CountUnapproved(gomock.Any(), 1).Return(0, nil)
		m.contractRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		m.notifier.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(3)

		payment, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.NoError(t, err)
		assert.Equal(t, domain.PaymentCompleted, payment.Status)
		assert.Equal(t, "tr_789", *payment.ExternalTransferRef)
		assert.NotNil(t, payment.ProcessedAt)
	})

	t.Run("Contract stays active while milestones remain", func(t *testing.T) {
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(readyAccount, nil)
		m.paymentRepo.EXPECT().FindEscrowedByMilestoneForUpdate(gomock.Any(), 5).Return(escrowed(), nil)
		m.gateway.EXPECT().CreateTransfer(gomock.Any(), int64(45800), "acct_9", gomock.Any()).Return("tr_790", nil)
		m.paymentRepo.EXPECT().MarkReleased(gomock.Any(), 8, "tr_790").Return(true, nil)
		m.milestoneRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
		m.milestoneRepo.EXPECT().CountUnapproved(gomock.Any(), 1).Return(2, nil)
		m.notifier.EXPECT().Emit(gomock.Any(), gomock.Any()).Times(2)

		_, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.NoError(t, err)
	})

	t.Run("Second release loses the race", func(t *testing.T) {
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(readyAccount, nil)
		m.paymentRepo.EXPECT().FindEscrowedByMilestoneForUpdate(gomock.Any(), 5).Return(escrowed(), nil)
		m.gateway.EXPECT().CreateTransfer(gomock.Any(), int64(45800), "acct_9", gomock.Any()).Return("tr_791", nil)
		m.paymentRepo.EXPECT().MarkReleased(gomock.Any(), 8, "tr_791").Return(false, nil)

		payment, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.ErrorIs(t, err, ErrAlreadyReleased)
		assert.Nil(t, payment)
	})

	t.Run("Already released payment short-circuits", func(t *testing.T) {
		released := escrowed()
		ref := "tr_old"
		released.ExternalTransferRef = &ref
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(readyAccount, nil)
		m.paymentRepo.EXPECT().FindEscrowedByMilestoneForUpdate(gomock.Any(), 5).Return(released, nil)

		_, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.ErrorIs(t, err, ErrAlreadyReleased)
	})

	t.Run("No escrow for milestone", func(t *testing.T) {
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(readyAccount, nil)
		m.paymentRepo.EXPECT().FindEscrowedByMilestoneForUpdate(gomock.Any(), 5).Return(nil, nil)

		_, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.ErrorIs(t, err, ErrEscrowNotFunded)
	})

	t.Run("Transfer failure leaves milestone untouched", func(t *testing.T) {
		milestone := submitted()
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(milestone, nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(readyAccount, nil)
		m.paymentRepo.EXPECT().FindEscrowedByMilestoneForUpdate(gomock.Any(), 5).Return(escrowed(), nil)
		m.gateway.EXPECT().CreateTransfer(gomock.Any(), int64(45800), "acct_9", gomock.Any()).
			Return("", errors.New("timeout"))

		_, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.ErrorIs(t, err, ErrExternalService)
		assert.Equal(t, domain.MilestoneSubmitted, milestone.Status)
	})

	t.Run("Account not payout ready", func(t *testing.T) {
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
		m.accountRepo.EXPECT().FindByUserID(ctx, 3).Return(&domain.ConnectedAccount{
			ID: 1, UserID: 3, PayoutsEnabled: false,
		}, nil)

		_, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.ErrorIs(t, err, ErrAccountNotReady)
	})

	t.Run("Milestone not submitted", func(t *testing.T) {
		pending := submitted()
		pending.Status = domain.MilestoneInProgress
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(pending, nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)

		_, err := service.ReleaseMilestonePayment(ctx, 2, 5)
		assert.ErrorIs(t, err, ErrInvalidState)
	})

	t.Run("Talent can't release", func(t *testing.T) {
		m.milestoneRepo.EXPECT().FindByID(ctx, 5).Return(submitted(), nil)
		m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)

		_, err := service.ReleaseMilestonePayment(ctx, 3, 5)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestConfirmAndFailPayment(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()

	m.paymentRepo.EXPECT().UpdateStatusByPaymentRef(ctx, "pi_123", domain.PaymentPending, domain.PaymentProcessing).Return(true, nil)
	assert.NoError(t, service.ConfirmPayment(ctx, "pi_123"))

	// unknown intent is logged, not an error, so webhook redeliveries settle
	m.paymentRepo.EXPECT().UpdateStatusByPaymentRef(ctx, "pi_999", domain.PaymentPending, domain.PaymentProcessing).Return(false, nil)
	assert.NoError(t, service.ConfirmPayment(ctx, "pi_999"))

	m.paymentRepo.EXPECT().UpdateStatusByPaymentRef(ctx, "pi_123", domain.PaymentPending, domain.PaymentFailed).Return(true, nil)
	assert.NoError(t, service.FailPayment(ctx, "pi_123"))

	m.paymentRepo.EXPECT().UpdateStatusByPaymentRef(ctx, "pi_42", domain.PaymentPending, domain.PaymentFailed).Return(false, errors.New("database error"))
	assert.Error(t, service.FailPayment(ctx, "pi_42"))
}

func TestRefundTransfer(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()

	m.paymentRepo.EXPECT().MarkRefundedByTransferRef(ctx, "tr_789").Return(true, nil)
	assert.NoError(t, service.RefundTransfer(ctx, "tr_789"))

	m.paymentRepo.EXPECT().MarkRefundedByTransferRef(ctx, "tr_000").Return(false, nil)
	assert.NoError(t, service.RefundTransfer(ctx, "tr_000"))
}

func TestListContractPayments(t *testing.T) {
	service, m := NewMock(t)
	ctx := context.Background()

	m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
	m.paymentRepo.EXPECT().FindByContractID(ctx, 1).Return([]domain.Payment{{ID: 1}, {ID: 2}}, nil)
	payments, err := service.ListContractPayments(ctx, 3, 1)
	assert.NoError(t, err)
	assert.Len(t, payments, 2)

	m.contractRepo.EXPECT().FindByID(ctx, 1).Return(activeContract(), nil)
	_, err = service.ListContractPayments(ctx, 42, 1)
	assert.ErrorIs(t, err, ErrForbidden)
}

func intPtr(v int) *int { return &v }

package contractservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
)

func NewMock(t *testing.T) (*Service, *MockContractRepo, *MockApplicationRepo, *MockNotifier) {
	ctrl := gomock.NewController(t)
	contractRepo := NewMockContractRepo(ctrl)
	applicationRepo := NewMockApplicationRepo(ctrl)
	notifier := NewMockNotifier(ctrl)
	txManager := pg.NewMockTXManager(ctrl)
	txManager.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	).AnyTimes()

	service := New(contractRepo, applicationRepo, txManager, notifier)
	defer ctrl.Finish()
	return service, contractRepo, applicationRepo, notifier
}

func TestCreate(t *testing.T) {
	service, contractRepo, applicationRepo, _ := NewMock(t)
	ctx := context.Background()

	acceptedApp := &domain.Application{
		ID:         17,
		ProjectID:  5,
		BusinessID: 2,
		TalentID:   3,
		Status:     domain.ApplicationAccepted,
	}

	tests := []struct {
		name          string
		businessID    int
		in            CreateInput
		prepareMock   func()
		expectedError error
	}{
		{
			name:       "Successful creation",
			businessID: 2,
			in:         CreateInput{ApplicationID: 17, TotalAmount: 100000},
			prepareMock: func() {
				applicationRepo.EXPECT().FindByID(ctx, 17).Return(acceptedApp, nil)
				contractRepo.EXPECT().FindByApplicationID(ctx, 17).Return(nil, nil)
				contractRepo.EXPECT().Save(ctx, gomock.Any()).DoAndReturn(
					func(ctx context.Context, c *domain.Contract) error {
						c.ID = 1
						return nil
					})
			},
			expectedError: nil,
		},
		{
			name:          "Non-positive amount",
			businessID:    2,
			in:            CreateInput{ApplicationID: 17, TotalAmount: 0},
			prepareMock:   func() {},
			expectedError: ErrInvalidAmount,
		},
		{
			name:       "Application not found",
			businessID: 2,
			in:         CreateInput{ApplicationID: 99, TotalAmount: 100000},
			prepareMock: func() {
				applicationRepo.EXPECT().FindByID(ctx, 99).Return(nil, nil)
			},
			expectedError: ErrApplicationNotFound,
		},
		{
			name:       "Caller is not the application's business",
			businessID: 7,
			in:         CreateInput{ApplicationID: 17, TotalAmount: 100000},
			prepareMock: func() {
				applicationRepo.EXPECT().FindByID(ctx, 17).Return(acceptedApp, nil)
			},
			expectedError: ErrForbidden,
		},
		{
			name:       "Application not accepted",
			businessID: 2,
			in:         CreateInput{ApplicationID: 17, TotalAmount: 100000},
			prepareMock: func() {
				applicationRepo.EXPECT().FindByID(ctx, 17).Return(&domain.Application{
					ID:         17,
					BusinessID: 2,
					Status:     "PENDING",
				}, nil)
			},
			expectedError: ErrApplicationNotAccepted,
		},
		{
			name:       "Contract already exists for application",
			businessID: 2,
			in:         CreateInput{ApplicationID: 17, TotalAmount: 100000},
			prepareMock: func() {
				applicationRepo.EXPECT().FindByID(ctx, 17).Return(acceptedApp, nil)
				contractRepo.EXPECT().FindByApplicationID(ctx, 17).Return(&domain.Contract{ID: 4}, nil)
			},
			expectedError: ErrContractExists,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			contract, err := service.Create(ctx, tt.businessID, tt.in)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, contract)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, domain.ContractDraft, contract.Status)
			assert.Equal(t, "CAD", contract.Currency)
			assert.Equal(t, acceptedApp.TalentID, contract.TalentID)
		})
	}
}

func TestSign(t *testing.T) {
	service, contractRepo, _, notifier := NewMock(t)
	ctx := context.Background()
	now := time.Now()

	draft := func() *domain.Contract {
		return &domain.Contract{
			ID:          1,
			BusinessID:  2,
			TalentID:    3,
			TotalAmount: 100000,
			Status:      domain.ContractDraft,
		}
	}

	tests := []struct {
		name           string
		signerID       int
		prepareMock    func()
		expectedError  error
		expectedStatus string
	}{
		{
			name:     "First signature moves draft to pending",
			signerID: 2,
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(draft(), nil)
				contractRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
			},
			expectedStatus: domain.ContractPendingSignatures,
		},
		{
			name:     "Second signature activates",
			signerID: 3,
			prepareMock: func() {
				c := draft()
				c.Status = domain.ContractPendingSignatures
				c.BusinessSignedAt = &now
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(c, nil)
				contractRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
				notifier.EXPECT().Emit(gomock.Any(), gomock.Any())
			},
			expectedStatus: domain.ContractActive,
		},
		{
			name:     "Re-signing by the same role is a no-op",
			signerID: 2,
			prepareMock: func() {
				c := draft()
				c.Status = domain.ContractPendingSignatures
				c.BusinessSignedAt = &now
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(c, nil)
			},
			expectedStatus: domain.ContractPendingSignatures,
		},
		{
			name:     "Re-signing an active contract is a no-op",
			signerID: 3,
			prepareMock: func() {
				c := draft()
				c.Status = domain.ContractActive
				c.BusinessSignedAt = &now
				c.TalentSignedAt = &now
				c.ActivatedAt = &now
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(c, nil)
			},
			expectedStatus: domain.ContractActive,
		},
		{
			name:     "Stranger can't sign",
			signerID: 42,
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(draft(), nil)
			},
			expectedError: ErrForbidden,
		},
		{
			name:     "Cancelled contract can't be signed",
			signerID: 2,
			prepareMock: func() {
				c := draft()
				c.Status = domain.ContractCancelled
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(c, nil)
			},
			expectedError: ErrInvalidState,
		},
		{
			name:     "Contract not found",
			signerID: 2,
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(nil, nil)
			},
			expectedError: ErrContractNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			contract, err := service.Sign(ctx, 1, tt.signerID)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, contract)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedStatus, contract.Status)
			if tt.expectedStatus == domain.ContractActive {
				assert.NotNil(t, contract.BusinessSignedAt)
				assert.NotNil(t, contract.TalentSignedAt)
				assert.NotNil(t, contract.ActivatedAt)
			} else {
				assert.Nil(t, contract.ActivatedAt)
			}
		})
	}
}

func TestSignOrderIndependence(t *testing.T) {
	service, contractRepo, _, notifier := NewMock(t)
	ctx := context.Background()

	// talent first, business second: same outcome as the reverse order
	c := &domain.Contract{ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractDraft}
	contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(c, nil).Times(2)
	contractRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	notifier.EXPECT().Emit(gomock.Any(), gomock.Any())

	first, err := service.Sign(ctx, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, domain.ContractPendingSignatures, first.Status)

	second, err := service.Sign(ctx, 1, 2)
	assert.NoError(t, err)
	assert.Equal(t, domain.ContractActive, second.Status)
	assert.NotNil(t, second.ActivatedAt)
}

func TestUpdate(t *testing.T) {
	service, contractRepo, _, _ := NewMock(t)
	ctx := context.Background()
	now := time.Now()
	amount := int64(120000)

	tests := []struct {
		name          string
		businessID    int
		in            UpdateInput
		prepareMock   func()
		expectedError error
	}{
		{
			name:       "Successful update",
			businessID: 2,
			in:         UpdateInput{TotalAmount: &amount},
			prepareMock: func() {
				contractRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractDraft, TotalAmount: 100000,
				}, nil)
				contractRepo.EXPECT().Update(ctx, gomock.Any()).Return(nil)
			},
		},
		{
			name:       "Frozen after first signature",
			businessID: 2,
			in:         UpdateInput{TotalAmount: &amount},
			prepareMock: func() {
				contractRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractDraft, TalentSignedAt: &now,
				}, nil)
			},
			expectedError: ErrInvalidState,
		},
		{
			name:       "Only the business can edit",
			businessID: 3,
			in:         UpdateInput{TotalAmount: &amount},
			prepareMock: func() {
				contractRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractDraft,
				}, nil)
			},
			expectedError: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			contract, err := service.Update(ctx, 1, tt.businessID, tt.in)
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, amount, contract.TotalAmount)
		})
	}
}

func TestCancelAndDispute(t *testing.T) {
	service, contractRepo, _, _ := NewMock(t)
	ctx := context.Background()

	tests := []struct {
		name          string
		op            func() (*domain.Contract, error)
		prepareMock   func()
		expectedError error
		expected      string
	}{
		{
			name: "Cancel a pending contract",
			op:   func() (*domain.Contract, error) { return service.Cancel(ctx, 1, 3) },
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractPendingSignatures,
				}, nil)
				contractRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
			},
			expected: domain.ContractCancelled,
		},
		{
			name: "Dispute an active contract",
			op:   func() (*domain.Contract, error) { return service.Dispute(ctx, 1, 2) },
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractActive,
				}, nil)
				contractRepo.EXPECT().Update(gomock.Any(), gomock.Any()).Return(nil)
			},
			expected: domain.ContractDisputed,
		},
		{
			name: "Completed contract can't be cancelled",
			op:   func() (*domain.Contract, error) { return service.Cancel(ctx, 1, 2) },
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractCompleted,
				}, nil)
			},
			expectedError: ErrInvalidState,
		},
		{
			name: "Draft contract can't be disputed",
			op:   func() (*domain.Contract, error) { return service.Dispute(ctx, 1, 2) },
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractDraft,
				}, nil)
			},
			expectedError: ErrInvalidState,
		},
		{
			name: "Stranger can't cancel",
			op:   func() (*domain.Contract, error) { return service.Cancel(ctx, 1, 42) },
			prepareMock: func() {
				contractRepo.EXPECT().FindByIDForUpdate(gomock.Any(), 1).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractActive,
				}, nil)
			},
			expectedError: ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()
			contract, err := tt.op()
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, contract.Status)
		})
	}
}

func TestGetByID(t *testing.T) {
	service, contractRepo, _, _ := NewMock(t)
	ctx := context.Background()

	contractRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Contract{
		ID: 1, BusinessID: 2, TalentID: 3,
	}, nil)
	contract, err := service.GetByID(ctx, 1, 3)
	assert.NoError(t, err)
	assert.Equal(t, 1, contract.ID)

	contractRepo.EXPECT().FindByID(ctx, 1).Return(&domain.Contract{
		ID: 1, BusinessID: 2, TalentID: 3,
	}, nil)
	_, err = service.GetByID(ctx, 1, 42)
	assert.ErrorIs(t, err, ErrForbidden)

	contractRepo.EXPECT().FindByID(ctx, 9).Return(nil, errors.New("database error"))
	_, err = service.GetByID(ctx, 9, 3)
	assert.Error(t, err)
}

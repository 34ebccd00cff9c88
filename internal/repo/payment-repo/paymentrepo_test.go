package paymentrepo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
)

func NewMock(t *testing.T) (*Repository, pgxmock.PgxPoolIface, *pg.MockTXManager) {
	ctrl := gomock.NewController(t)
	mockTxManager := pg.NewMockTXManager(ctrl)

	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	repo := New(mockDB, mockTxManager)
	defer mockDB.Close()
	defer ctrl.Finish()

	return repo, mockDB, mockTxManager
}

var paymentCols = []string{
	"id", "contract_id", "milestone_id", "payer_id", "payee_id", "amount", "platform_fee", "net_amount",
	"currency", "status", "external_payment_ref", "external_transfer_ref", "processed_at", "created_at",
}

func TestRepository_Save(t *testing.T) {
	repo, mock, tx := NewMock(t)
	now := time.Now()
	milestoneID := 10

	insert := `
		INSERT INTO payments (contract_id, milestone_id, payer_id, payee_id, amount, platform_fee, net_amount, currency, status, external_payment_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	tests := []struct {
		name        string
		payment     *domain.Payment
		mockSetup   func()
		expectErr   bool
		expectedErr error
	}{
		{
			name: "Save escrow payment successfully",
			payment: &domain.Payment{
				ContractID: 1, MilestoneID: &milestoneID, PayerID: 2, PayeeID: 3,
				Amount: 100000, PlatformFee: 8400, NetAmount: 91600, Currency: "CAD",
				Status: domain.PaymentPending, ExternalPaymentRef: "pi_123",
			},
			mockSetup: func() {
				tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
					rows := pgxmock.NewRows([]string{"id", "created_at"}).AddRow(1, now)
					mock.ExpectQuery(regexp.QuoteMeta(insert)).
						WithArgs(1, &milestoneID, 2, 3, int64(100000), int64(8400), int64(91600), "CAD", "PENDING", "pi_123").
						WillReturnRows(rows)
					return fn(ctx)
				})
			},
		},
		{
			name: "Database error",
			payment: &domain.Payment{
				ContractID: 1, PayerID: 2, PayeeID: 3,
				Amount: 100000, PlatformFee: 8400, NetAmount: 91600, Currency: "CAD",
				Status: domain.PaymentPending, ExternalPaymentRef: "pi_123",
			},
			mockSetup: func() {
				tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
					mock.ExpectQuery(regexp.QuoteMeta(insert)).
						WithArgs(1, (*int)(nil), 2, 3, int64(100000), int64(8400), int64(91600), "CAD", "PENDING", "pi_123").
						WillReturnError(errors.New("database error"))
					return fn(ctx)
				})
			},
			expectErr: true,
		},
		{
			name: "Second live payment for milestone rejected",
			payment: &domain.Payment{
				ContractID: 1, MilestoneID: &milestoneID, PayerID: 2, PayeeID: 3,
				Amount: 100000, PlatformFee: 8400, NetAmount: 91600, Currency: "CAD",
				Status: domain.PaymentPending, ExternalPaymentRef: "pi_124",
			},
			mockSetup: func() {
				tx.EXPECT().Begin(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn pg.TransactionalFn) error {
					mock.ExpectQuery(regexp.QuoteMeta(insert)).
						WithArgs(1, &milestoneID, 2, 3, int64(100000), int64(8400), int64(91600), "CAD", "PENDING", "pi_124").
						WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_payments_active_milestone"})
					return fn(ctx)
				})
			},
			expectErr:   true,
			expectedErr: ErrDuplicateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			err := repo.Save(context.Background(), tt.payment)
			if tt.expectErr {
				assert.Error(t, err)
				if tt.expectedErr != nil {
					assert.ErrorIs(t, err, tt.expectedErr)
				}
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 1, tt.payment.ID)
			}
		})
	}
}

func TestRepository_FindByContractID(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()
	milestoneID := 10
	transferRef := "tr_55"

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE contract_id = $1 ORDER BY created_at DESC`

	tests := []struct {
		name       string
		contractID int
		mockSetup  func()
		expectErr  bool
		result     []domain.Payment
	}{
		{
			name:       "Payments found",
			contractID: 1,
			mockSetup: func() {
				rows := pgxmock.NewRows(paymentCols).
					AddRow(2, 1, &milestoneID, 2, 3, int64(50000), int64(4200), int64(45800), "CAD", "COMPLETED", "pi_2", &transferRef, &now, now).
					AddRow(1, 1, nil, 2, 3, int64(100000), int64(8400), int64(91600), "CAD", "PROCESSING", "pi_1", nil, nil, now)
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(1).
					WillReturnRows(rows)
			},
			result: []domain.Payment{
				{
					ID: 2, ContractID: 1, MilestoneID: &milestoneID, PayerID: 2, PayeeID: 3,
					Amount: 50000, PlatformFee: 4200, NetAmount: 45800, Currency: "CAD",
					Status: "COMPLETED", ExternalPaymentRef: "pi_2", ExternalTransferRef: &transferRef,
					ProcessedAt: &now, CreatedAt: now,
				},
				{
					ID: 1, ContractID: 1, PayerID: 2, PayeeID: 3,
					Amount: 100000, PlatformFee: 8400, NetAmount: 91600, Currency: "CAD",
					Status: "PROCESSING", ExternalPaymentRef: "pi_1", CreatedAt: now,
				},
			},
		},
		{
			name:       "Database error",
			contractID: 1,
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(1).
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
		{
			name:       "Scan row error",
			contractID: 1,
			mockSetup: func() {
				rows := pgxmock.NewRows(paymentCols).
					AddRow(1, 1, nil, 2, 3, "invalid_value", int64(8400), int64(91600), "CAD", "PROCESSING", "pi_1", nil, nil, now)
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(1).
					WillReturnRows(rows)
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			result, err := repo.FindByContractID(context.Background(), tt.contractID)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.result, result)
			}
		})
	}
}

func TestRepository_FindEscrowedByMilestoneForUpdate(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()
	milestoneID := 10

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE milestone_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`

	rows := pgxmock.NewRows(paymentCols).
		AddRow(1, 1, &milestoneID, 2, 3, int64(50000), int64(4200), int64(45800), "CAD", "PROCESSING", "pi_1", nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(10, "PROCESSING").
		WillReturnRows(rows)

	payment, err := repo.FindEscrowedByMilestoneForUpdate(context.Background(), 10)
	assert.NoError(t, err)
	assert.NotNil(t, payment)
	assert.Equal(t, domain.PaymentProcessing, payment.Status)
	assert.Nil(t, payment.ExternalTransferRef)

	// Nothing escrowed for the milestone.
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(11, "PROCESSING").
		WillReturnError(pgx.ErrNoRows)

	payment, err = repo.FindEscrowedByMilestoneForUpdate(context.Background(), 11)
	assert.NoError(t, err)
	assert.Nil(t, payment)
}

func TestRepository_FindActiveByMilestoneID(t *testing.T) {
	repo, mock, _ := NewMock(t)
	now := time.Now()
	milestoneID := 10

	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE milestone_id = $1 AND status IN ($2, $3, $4)
		ORDER BY created_at DESC
		LIMIT 1
	`

	rows := pgxmock.NewRows(paymentCols).
		AddRow(1, 1, &milestoneID, 2, 3, int64(50000), int64(4200), int64(45800), "CAD", "PENDING", "pi_1", nil, nil, now)
	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(10, "PENDING", "PROCESSING", "COMPLETED").
		WillReturnRows(rows)

	payment, err := repo.FindActiveByMilestoneID(context.Background(), 10)
	assert.NoError(t, err)
	assert.NotNil(t, payment)

	mock.ExpectQuery(regexp.QuoteMeta(query)).
		WithArgs(11, "PENDING", "PROCESSING", "COMPLETED").
		WillReturnError(pgx.ErrNoRows)

	payment, err = repo.FindActiveByMilestoneID(context.Background(), 11)
	assert.NoError(t, err)
	assert.Nil(t, payment)
}

func TestRepository_MarkReleased(t *testing.T) {
	repo, mock, _ := NewMock(t)

	query := `
		UPDATE payments
		SET status = $1, external_transfer_ref = $2, processed_at = now()
		WHERE id = $3 AND status = $4 AND external_transfer_ref IS NULL
	`

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		released  bool
	}{
		{
			name: "First release wins",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(query)).
					WithArgs("COMPLETED", "tr_55", 1, "PROCESSING").
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
			released: true,
		},
		{
			name: "Second release touches no rows",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(query)).
					WithArgs("COMPLETED", "tr_55", 1, "PROCESSING").
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			released: false,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectExec(regexp.QuoteMeta(query)).
					WithArgs("COMPLETED", "tr_55", 1, "PROCESSING").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			released, err := repo.MarkReleased(context.Background(), 1, "tr_55")
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.released, released)
		})
	}
}

func TestRepository_UpdateStatusByPaymentRef(t *testing.T) {
	repo, mock, _ := NewMock(t)

	query := `
		UPDATE payments
		SET status = $1
		WHERE external_payment_ref = $2 AND status = $3
	`

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("PROCESSING", "pi_1", "PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	moved, err := repo.UpdateStatusByPaymentRef(context.Background(), "pi_1", domain.PaymentPending, domain.PaymentProcessing)
	assert.NoError(t, err)
	assert.True(t, moved)

	// Unknown reference or wrong prior status.
	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("PROCESSING", "pi_unknown", "PENDING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	moved, err = repo.UpdateStatusByPaymentRef(context.Background(), "pi_unknown", domain.PaymentPending, domain.PaymentProcessing)
	assert.NoError(t, err)
	assert.False(t, moved)
}

func TestRepository_MarkRefundedByTransferRef(t *testing.T) {
	repo, mock, _ := NewMock(t)

	query := `
		UPDATE payments
		SET status = $1, processed_at = now()
		WHERE external_transfer_ref = $2 AND status = $3
	`

	mock.ExpectExec(regexp.QuoteMeta(query)).
		WithArgs("REFUNDED", "tr_55", "COMPLETED").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	refunded, err := repo.MarkRefundedByTransferRef(context.Background(), "tr_55")
	assert.NoError(t, err)
	assert.True(t, refunded)
}

func TestRepository_CompletedNetTotal(t *testing.T) {
	repo, mock, _ := NewMock(t)

	query := `
		SELECT coalesce(sum(net_amount), 0)
		FROM payments
		WHERE payee_id = $1 AND status = $2
	`

	tests := []struct {
		name      string
		mockSetup func()
		expectErr bool
		total     int64
	}{
		{
			name: "Released earnings summed",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(91600))
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(3, "COMPLETED").
					WillReturnRows(rows)
			},
			total: 91600,
		},
		{
			name: "No completed payments",
			mockSetup: func() {
				rows := pgxmock.NewRows([]string{"coalesce"}).AddRow(int64(0))
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(3, "COMPLETED").
					WillReturnRows(rows)
			},
			total: 0,
		},
		{
			name: "Database error",
			mockSetup: func() {
				mock.ExpectQuery(regexp.QuoteMeta(query)).
					WithArgs(3, "COMPLETED").
					WillReturnError(errors.New("database error"))
			},
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockSetup()
			total, err := repo.CompletedNetTotal(context.Background(), 3)
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.total, total)
		})
	}
}

// Package payoutservice computes withdrawable balances from the ledger and
// issues payouts through the processor.
package payoutservice

import (
	"context"
	"errors"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/notify"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/avkosorukov/taskora/internal/processor"
	"go.uber.org/zap"
)

//go:generate mockgen -source=payoutservice.go -destination=payoutservice_mock.go -package=payoutservice

type PaymentRepo interface {
	CompletedNetTotal(ctx context.Context, payeeID int) (int64, error)
}

type WithdrawalRepo interface {
	Save(ctx context.Context, withdrawal *domain.Withdrawal) error
	FindByUserID(ctx context.Context, userID int) ([]domain.Withdrawal, error)
	ActiveTotal(ctx context.Context, userID int) (int64, error)
}

type AccountRepo interface {
	FindByUserID(ctx context.Context, userID int) (*domain.ConnectedAccount, error)
	LockByUserID(ctx context.Context, userID int) (*domain.ConnectedAccount, error)
	Save(ctx context.Context, account *domain.ConnectedAccount) error
	UpdateStatus(ctx context.Context, account *domain.ConnectedAccount) error
}

type Gateway interface {
	CreateConnectedAccount(ctx context.Context, userID int) (processor.Account, error)
	CreatePayout(ctx context.Context, amount int64, currency, account string) (string, error)
	RetrieveAccount(ctx context.Context, id string) (processor.Account, error)
}

type Notifier interface {
	Emit(ctx context.Context, event notify.Event)
}

var (
	ErrInvalidAmount       = errors.New("withdrawal amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient available balance")
	ErrAccountNotReady     = errors.New("connected account is not payout ready")
	ErrExternalService     = errors.New("payment processor request failed")
)

const defaultCurrency = "CAD"

type Service struct {
	paymentRepo    PaymentRepo
	withdrawalRepo WithdrawalRepo
	accountRepo    AccountRepo
	gateway        Gateway
	txManager      pg.TXManager
	notifier       Notifier
}

func New(
	paymentRepo PaymentRepo,
	withdrawalRepo WithdrawalRepo,
	accountRepo AccountRepo,
	gateway Gateway,
	txManager pg.TXManager,
	notifier Notifier,
) *Service {
	return &Service{
		paymentRepo:    paymentRepo,
		withdrawalRepo: withdrawalRepo,
		accountRepo:    accountRepo,
		gateway:        gateway,
		txManager:      txManager,
		notifier:       notifier,
	}
}

// AvailableBalance is always recomputed from the ledger: released net
// amounts minus every withdrawal that has not failed.
func (s *Service) AvailableBalance(ctx context.Context, talentID int) (int64, error) {
	earned, err := s.paymentRepo.CompletedNetTotal(ctx, talentID)
	if err != nil {
		return 0, err
	}
	withdrawn, err := s.withdrawalRepo.ActiveTotal(ctx, talentID)
	if err != nil {
		return 0, err
	}
	return earned - withdrawn, nil
}

// Withdraw issues a payout for the requested amount. The balance check, the
// payout call and the withdrawal record form one transaction serialized on
// the talent's connected account row, so the balance can never go negative.
func (s *Service) Withdraw(ctx context.Context, talentID int, amount int64) (*domain.Withdrawal, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var withdrawal *domain.Withdrawal
	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		account, err := s.accountRepo.LockByUserID(ctx, talentID)
		if err != nil {
			return err
		}
		if account == nil || !account.PayoutsEnabled || len(account.Requirements) > 0 {
			return ErrAccountNotReady
		}

		balance, err := s.AvailableBalance(ctx, talentID)
		if err != nil {
			return err
		}
		if amount > balance {
			zap.L().Info("withdrawal exceeds balance",
				zap.Int("talent_id", talentID), zap.Int64("amount", amount), zap.Int64("balance", balance))
			return ErrInsufficientBalance
		}

		payoutRef, err := s.gateway.CreatePayout(ctx, amount, defaultCurrency, account.ExternalAccountID)
		if err != nil {
			zap.L().Error("can't create payout", zap.Int("talent_id", talentID), zap.Error(err))
			return errors.Join(ErrExternalService, err)
		}

		withdrawal = &domain.Withdrawal{
			UserID:            talentID,
			Amount:            amount,
			Currency:          defaultCurrency,
			Status:            domain.WithdrawalPending,
			ExternalPayoutRef: payoutRef,
		}
		return s.withdrawalRepo.Save(ctx, withdrawal)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:    notify.EventWithdrawalRequested,
		UserID:  talentID,
		Payload: map[string]any{"withdrawal_id": withdrawal.ID, "amount": withdrawal.Amount},
	})
	return withdrawal, nil
}

// EnsureAccount creates the talent's connected account on first use and
// refreshes its verification status from the processor afterwards.
func (s *Service) EnsureAccount(ctx context.Context, userID int) (*domain.ConnectedAccount, error) {
	account, err := s.accountRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if account == nil {
		created, err := s.gateway.CreateConnectedAccount(ctx, userID)
		if err != nil {
			zap.L().Error("can't create connected account", zap.Int("user_id", userID), zap.Error(err))
			return nil, errors.Join(ErrExternalService, err)
		}
		account = &domain.ConnectedAccount{
			UserID:            userID,
			ExternalAccountID: created.ID,
			PayoutsEnabled:    created.PayoutsEnabled,
			DetailsSubmitted:  created.DetailsSubmitted,
			Requirements:      created.Requirements,
		}
		if err := s.accountRepo.Save(ctx, account); err != nil {
			return nil, err
		}
		return account, nil
	}

	remote, err := s.gateway.RetrieveAccount(ctx, account.ExternalAccountID)
	if err != nil {
		zap.L().Error("can't retrieve connected account", zap.Int("user_id", userID), zap.Error(err))
		return nil, errors.Join(ErrExternalService, err)
	}
	account.PayoutsEnabled = remote.PayoutsEnabled
	account.DetailsSubmitted = remote.DetailsSubmitted
	account.Requirements = remote.Requirements
	if err := s.accountRepo.UpdateStatus(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// GetWithdrawals returns the talent's withdrawal history.
func (s *Service) GetWithdrawals(ctx context.Context, userID int) ([]domain.Withdrawal, error) {
	withdrawals, err := s.withdrawalRepo.FindByUserID(ctx, userID)
	if err != nil {
		zap.L().Error("failed to fetch withdrawals", zap.Error(err))
		return nil, err
	}
	return withdrawals, nil
}

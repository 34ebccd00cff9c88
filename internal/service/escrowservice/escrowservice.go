// Package escrowservice owns the payment ledger: escrow funding through the
// processor, the exactly-once release of milestone funds to the talent and
// the reconciler-driven status moves.
package escrowservice

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/notify"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/avkosorukov/taskora/internal/processor"
	paymentrepo "github.com/avkosorukov/taskora/internal/repo/payment-repo"
	"github.com/avkosorukov/taskora/internal/service/feecalc"
	"go.uber.org/zap"
)

//go:generate mockgen -source=escrowservice.go -destination=escrowservice_mock.go -package=escrowservice

type ContractRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Contract, error)
	Update(ctx context.Context, contract *domain.Contract) error
}

type MilestoneRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Milestone, error)
	Update(ctx context.Context, milestone *domain.Milestone) error
	CountUnapproved(ctx context.Context, contractID int) (int, error)
}

type PaymentRepo interface {
	Save(ctx context.Context, payment *domain.Payment) error
	FindByContractID(ctx context.Context, contractID int) ([]domain.Payment, error)
	FindActiveByMilestoneID(ctx context.Context, milestoneID int) (*domain.Payment, error)
	FindEscrowedByMilestoneForUpdate(ctx context.Context, milestoneID int) (*domain.Payment, error)
	MarkReleased(ctx context.Context, paymentID int, transferRef string) (bool, error)
	UpdateStatusByPaymentRef(ctx context.Context, paymentRef, from, to string) (bool, error)
	MarkRefundedByTransferRef(ctx context.Context, transferRef string) (bool, error)
}

type AccountRepo interface {
	FindByUserID(ctx context.Context, userID int) (*domain.ConnectedAccount, error)
}

type UserRepo interface {
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// Gateway is the processor capability the ledger consumes.
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (processor.Intent, error)
	CreateTransfer(ctx context.Context, amount int64, destination string, metadata map[string]string) (string, error)
}

type Notifier interface {
	Emit(ctx context.Context, event notify.Event)
}

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrInvalidState      = errors.New("invalid state for this payment action")
	ErrForbidden         = errors.New("caller is not the authorized party")
	ErrInvalidAmount     = errors.New("payment amount must be positive")
	ErrAlreadyFunded     = errors.New("milestone already has an active payment")
	ErrEscrowNotFunded   = errors.New("no confirmed escrow payment for milestone")
	ErrAlreadyReleased   = errors.New("milestone payment already released")
	ErrAccountNotReady   = errors.New("talent connected account is not payout ready")
	ErrExternalService   = errors.New("payment processor request failed")
)

type Service struct {
	contractRepo  ContractRepo
	milestoneRepo MilestoneRepo
	paymentRepo   PaymentRepo
	accountRepo   AccountRepo
	userRepo      UserRepo
	gateway       Gateway
	feeCalc       *feecalc.Calculator
	txManager     pg.TXManager
	notifier      Notifier
}

func New(
	contractRepo ContractRepo,
	milestoneRepo MilestoneRepo,
	paymentRepo PaymentRepo,
	accountRepo AccountRepo,
	userRepo UserRepo,
	gateway Gateway,
	feeCalc *feecalc.Calculator,
	txManager pg.TXManager,
	notifier Notifier,
) *Service {
	return &Service{
		contractRepo:  contractRepo,
		milestoneRepo: milestoneRepo,
		paymentRepo:   paymentRepo,
		accountRepo:   accountRepo,
		userRepo:      userRepo,
		gateway:       gateway,
		feeCalc:       feeCalc,
		txManager:     txManager,
		notifier:      notifier,
	}
}

// FundEscrow creates a payment intent for the gross amount and records a
// PENDING payment. The returned secret lets the payer's client complete
// authorization; the payment is confirmed later by the webhook reconciler,
// never by this call.
func (s *Service) FundEscrow(ctx context.Context, businessID, contractID int, milestoneID *int, amount int64) (*domain.Payment, string, error) {
	if amount <= 0 {
		return nil, "", ErrInvalidAmount
	}

	contract, err := s.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, "", err
	}
	if contract == nil {
		return nil, "", ErrContractNotFound
	}
	if contract.BusinessID != businessID {
		return nil, "", ErrForbidden
	}
	if contract.Status != domain.ContractActive {
		return nil, "", ErrInvalidState
	}

	metadata := map[string]string{"contract_id": strconv.Itoa(contract.ID)}
	if milestoneID != nil {
		milestone, err := s.milestoneRepo.FindByID(ctx, *milestoneID)
		if err != nil {
			return nil, "", err
		}
		if milestone == nil || milestone.ContractID != contract.ID {
			return nil, "", ErrMilestoneNotFound
		}
		if milestone.Status == domain.MilestoneApproved {
			return nil, "", ErrInvalidState
		}

		existing, err := s.paymentRepo.FindActiveByMilestoneID(ctx, *milestoneID)
		if err != nil {
			return nil, "", err
		}
		if existing != nil {
			return nil, "", ErrAlreadyFunded
		}
		metadata["milestone_id"] = strconv.Itoa(*milestoneID)
	}

	talent, err := s.userRepo.FindByID(ctx, contract.TalentID)
	if err != nil {
		return nil, "", err
	}
	if talent == nil {
		return nil, "", fmt.Errorf("contract %d references missing talent %d", contract.ID, contract.TalentID)
	}
	fee := s.feeCalc.Calculate(amount, talent.Jurisdiction, talent.TaxRegistered)

	intent, err := s.gateway.CreatePaymentIntent(ctx, amount, contract.Currency, metadata)
	if err != nil {
		zap.L().Error("can't create payment intent", zap.Int("contract_id", contract.ID), zap.Error(err))
		return nil, "", errors.Join(ErrExternalService, err)
	}

	payment := &domain.Payment{
		ContractID:         contract.ID,
		MilestoneID:        milestoneID,
		PayerID:            contract.BusinessID,
		PayeeID:            contract.TalentID,
		Amount:             amount,
		PlatformFee:        fee.TotalFee,
		NetAmount:          fee.NetAmount,
		Currency:           contract.Currency,
		Status:             domain.PaymentPending,
		ExternalPaymentRef: intent.ID,
	}
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		// A concurrent funding call can pass the read check above; the
		// ledger's unique index decides the winner.
		if errors.Is(err, paymentrepo.ErrDuplicateActive) {
			return nil, "", ErrAlreadyFunded
		}
		return nil, "", err
	}
	return payment, intent.ClientSecret, nil
}

// ReleaseMilestonePayment transfers escrowed net funds to the talent and
// approves the milestone. The precondition check, the transfer and the state
// writes run as one transaction over a locked payment row, so concurrent
// releases for the same milestone cannot both succeed.
func (s *Service) ReleaseMilestonePayment(ctx context.Context, businessID, milestoneID int) (*domain.Payment, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if milestone == nil {
		return nil, ErrMilestoneNotFound
	}

	contract, err := s.contractRepo.FindByID(ctx, milestone.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if contract.BusinessID != businessID {
		return nil, ErrForbidden
	}
	if contract.Status != domain.ContractActive {
		return nil, ErrInvalidState
	}
	if milestone.Status != domain.MilestoneSubmitted {
		return nil, ErrInvalidState
	}

	account, err := s.accountRepo.FindByUserID(ctx, contract.TalentID)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.PayoutsEnabled {
		return nil, ErrAccountNotReady
	}

	var (
		released  *domain.Payment
		completed bool
	)
	err = s.txManager.Begin(ctx, func(ctx context.Context) error {
		payment, err := s.paymentRepo.FindEscrowedByMilestoneForUpdate(ctx, milestoneID)
		if err != nil {
			return err
		}
		if payment == nil {
			return ErrEscrowNotFunded
		}
		if payment.ExternalTransferRef != nil {
			return ErrAlreadyReleased
		}

		transferRef, err := s.gateway.CreateTransfer(ctx, payment.NetAmount, account.ExternalAccountID, map[string]string{
			"payment_id":   strconv.Itoa(payment.ID),
			"milestone_id": strconv.Itoa(milestoneID),
		})
		if err != nil {
			zap.L().Error("can't create transfer", zap.Int("payment_id", payment.ID), zap.Error(err))
			return errors.Join(ErrExternalService, err)
		}

		ok, err := s.paymentRepo.MarkReleased(ctx, payment.ID, transferRef)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyReleased
		}

		now := time.Now()
		milestone.Status = domain.MilestoneApproved
		milestone.ApprovedAt = &now
		if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
			return err
		}

		unapproved, err := s.milestoneRepo.CountUnapproved(ctx, contract.ID)
		if err != nil {
			return err
		}
		if unapproved == 0 {
			contract.Status = domain.ContractCompleted
			if err := s.contractRepo.Update(ctx, contract); err != nil {
				return err
			}
			completed = true
		}

		payment.Status = domain.PaymentCompleted
		payment.ExternalTransferRef = &transferRef
		payment.ProcessedAt = &now
		released = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:    notify.EventMilestoneApproved,
		UserID:  contract.TalentID,
		Payload: map[string]any{"milestone_id": milestone.ID, "contract_id": contract.ID},
	})
	s.notifier.Emit(ctx, notify.Event{
		Type:    notify.EventPaymentCompleted,
		UserID:  contract.TalentID,
		Payload: map[string]any{"payment_id": released.ID, "net_amount": released.NetAmount},
	})
	if completed {
		s.notifier.Emit(ctx, notify.Event{
			Type:    notify.EventContractCompleted,
			UserID:  contract.BusinessID,
			Payload: map[string]any{"contract_id": contract.ID},
		})
	}
	return released, nil
}

// ConfirmPayment moves a funding payment to PROCESSING. Only the webhook
// reconciler calls this; an unknown or already confirmed intent is a no-op
// so redeliveries stay safe.
func (s *Service) ConfirmPayment(ctx context.Context, paymentRef string) error {
	ok, err := s.paymentRepo.UpdateStatusByPaymentRef(ctx, paymentRef, domain.PaymentPending, domain.PaymentProcessing)
	if err != nil {
		return err
	}
	if !ok {
		zap.L().Warn("confirm for unknown or settled payment intent", zap.String("payment_ref", paymentRef))
	}
	return nil
}

// FailPayment marks a funding payment FAILED. Reconciler only.
func (s *Service) FailPayment(ctx context.Context, paymentRef string) error {
	ok, err := s.paymentRepo.UpdateStatusByPaymentRef(ctx, paymentRef, domain.PaymentPending, domain.PaymentFailed)
	if err != nil {
		return err
	}
	if !ok {
		zap.L().Warn("failure report for unknown or settled payment intent", zap.String("payment_ref", paymentRef))
	}
	return nil
}

// RefundTransfer records a processor-reversed transfer. Reconciler only.
func (s *Service) RefundTransfer(ctx context.Context, transferRef string) error {
	ok, err := s.paymentRepo.MarkRefundedByTransferRef(ctx, transferRef)
	if err != nil {
		return err
	}
	if !ok {
		zap.L().Warn("reversal for unknown transfer", zap.String("transfer_ref", transferRef))
	}
	return nil
}

// ListContractPayments returns the contract's ledger entries to either party.
func (s *Service) ListContractPayments(ctx context.Context, callerID, contractID int) ([]domain.Payment, error) {
	contract, err := s.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if callerID != contract.BusinessID && callerID != contract.TalentID {
		return nil, ErrForbidden
	}
	return s.paymentRepo.FindByContractID(ctx, contractID)
}

// Package webhookservice reconciles asynchronous processor events with the
// ledger. Every event id is processed at most once.
package webhookservice

import (
	"context"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/pg"
	"github.com/avkosorukov/taskora/internal/processor"
	"go.uber.org/zap"
)

//go:generate mockgen -source=webhookservice.go -destination=webhookservice_mock.go -package=webhookservice

// EventRepo records processed event ids inside the reconciling transaction.
type EventRepo interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
}

// EscrowLedger is the slice of the escrow service the reconciler drives.
type EscrowLedger interface {
	ConfirmPayment(ctx context.Context, paymentRef string) error
	FailPayment(ctx context.Context, paymentRef string) error
	RefundTransfer(ctx context.Context, transferRef string) error
}

type WithdrawalRepo interface {
	UpdateStatusByPayoutRef(ctx context.Context, payoutRef, to string) (bool, error)
}

type Service struct {
	events      EventRepo
	ledger      EscrowLedger
	withdrawals WithdrawalRepo
	txManager   pg.TXManager
}

func New(events EventRepo, ledger EscrowLedger, withdrawals WithdrawalRepo, txManager pg.TXManager) *Service {
	return &Service{
		events:      events,
		ledger:      ledger,
		withdrawals: withdrawals,
		txManager:   txManager,
	}
}

// Process routes a verified processor event. The idempotency record and the
// state transition commit atomically, so an at-least-once sender can replay
// any delivery: the second one is a no-op.
func (s *Service) Process(ctx context.Context, event processor.Event) error {
	return s.txManager.Begin(ctx, func(ctx context.Context) error {
		first, err := s.events.Record(ctx, event.ID, event.Type)
		if err != nil {
			return err
		}
		if !first {
			zap.L().Info("duplicate webhook delivery", zap.String("event_id", event.ID), zap.String("type", event.Type))
			return nil
		}

		switch event.Type {
		case processor.EventPaymentSucceeded:
			return s.ledger.ConfirmPayment(ctx, event.Data.PaymentIntentID)
		case processor.EventPaymentFailed:
			return s.ledger.FailPayment(ctx, event.Data.PaymentIntentID)
		case processor.EventTransferReversed:
			return s.ledger.RefundTransfer(ctx, event.Data.TransferID)
		case processor.EventPayoutPaid:
			return s.settleWithdrawal(ctx, event.Data.PayoutID, domain.WithdrawalCompleted)
		case processor.EventPayoutFailed:
			return s.settleWithdrawal(ctx, event.Data.PayoutID, domain.WithdrawalFailed)
		default:
			// acknowledged so the sender stops retrying
			zap.L().Info("ignoring unknown webhook event", zap.String("event_id", event.ID), zap.String("type", event.Type))
			return nil
		}
	})
}

func (s *Service) settleWithdrawal(ctx context.Context, payoutRef, status string) error {
	ok, err := s.withdrawals.UpdateStatusByPayoutRef(ctx, payoutRef, status)
	if err != nil {
		return err
	}
	if !ok {
		zap.L().Warn("payout event for unknown or settled withdrawal", zap.String("payout_ref", payoutRef))
	}
	return nil
}

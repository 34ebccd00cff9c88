// Package notify publishes domain events to the notification collaborator.
// Delivery is fire-and-forget: a failed or dropped event is logged and never
// surfaces into the operation that produced it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/avkosorukov/taskora/internal/config"
	"github.com/avkosorukov/taskora/pkg/clients"
	"github.com/avkosorukov/taskora/pkg/workers"
	"go.uber.org/zap"
)

// Event types published by the escrow core.
const (
	EventContractActivated   = "contract.activated"
	EventContractCompleted   = "contract.completed"
	EventMilestoneSubmitted  = "milestone.submitted"
	EventMilestoneApproved   = "milestone.approved"
	EventMilestoneRejected   = "milestone.rejected"
	EventPaymentCompleted    = "payment.completed"
	EventWithdrawalRequested = "withdrawal.requested"
)

type Event struct {
	Type    string         `json:"type"`
	UserID  int            `json:"user_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Service struct {
	url    string
	client clients.HTTPClientI
	pool   workers.PoolI
}

func New(cfg *config.Config, client clients.HTTPClientI) *Service {
	return &Service{
		url:    cfg.NotifyAddress + "/api/events",
		client: client,
		pool:   workers.NewPool(10),
	}
}

// Emit queues the event for delivery. The caller never blocks on the
// collaborator and never observes its failures.
func (s *Service) Emit(ctx context.Context, event Event) {
	err := s.pool.AddTask(ctx, func() error {
		return s.send(event)
	})
	if err != nil {
		zap.L().Warn("dropped notification event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *Service) send(event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("can't marshal event %s: %w", event.Type, err)
	}

	status, _, err := s.client.Post(context.Background(), s.url, body, nil)
	if err != nil {
		return fmt.Errorf("can't deliver event %s: %w", event.Type, err)
	}
	if status >= 300 {
		return fmt.Errorf("event %s rejected with status %d", event.Type, status)
	}
	return nil
}

func (s *Service) Close() {
	s.pool.Close()
}

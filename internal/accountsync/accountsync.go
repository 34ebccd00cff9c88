// Package accountsync periodically refreshes connected accounts that are not
// payout-ready yet, so release and withdrawal gates open without waiting for
// a processor webhook.
package accountsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/processor"
	"github.com/avkosorukov/taskora/pkg/workers"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

//go:generate mockgen -source=accountsync.go -destination=accountsync_mock.go -package=accountsync

type AccountRepo interface {
	FindPendingVerification(ctx context.Context, limit uint32) ([]domain.ConnectedAccount, error)
	UpdateStatus(ctx context.Context, account *domain.ConnectedAccount) error
}

type Gateway interface {
	RetrieveAccount(ctx context.Context, id string) (processor.Account, error)
}

var syncing sync.Map

type Service struct {
	repo         AccountRepo
	gateway      Gateway
	limit        uint32
	pool         workers.PoolI
	syncInterval time.Duration
}

func New(repo AccountRepo, gateway Gateway) *Service {
	return &Service{
		repo:         repo,
		gateway:      gateway,
		limit:        500,
		pool:         workers.NewPool(5),
		syncInterval: time.Minute,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Account sync service started")
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping account sync")
			return
		case <-ticker.C:
			s.syncAccounts(ctx)
		}
	}
}

func (s *Service) syncAccounts(ctx context.Context) {
	accounts, err := s.repo.FindPendingVerification(ctx, s.limit)
	if err != nil {
		zap.L().Error("Failed to fetch accounts for sync", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, account := range accounts {
		account := account

		if _, loaded := syncing.LoadOrStore(account.ExternalAccountID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.pool.AddTask(ctx, func() error {
				defer syncing.Delete(account.ExternalAccountID)
				return s.syncAccount(ctx, account)
			})
			if err != nil {
				syncing.Delete(account.ExternalAccountID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error syncing accounts", zap.Error(err))
	}
}

func (s *Service) syncAccount(ctx context.Context, account domain.ConnectedAccount) error {
	remote, err := s.gateway.RetrieveAccount(ctx, account.ExternalAccountID)
	if err != nil {
		return fmt.Errorf("can't retrieve account %s: %w", account.ExternalAccountID, err)
	}

	if remote.PayoutsEnabled == account.PayoutsEnabled &&
		remote.DetailsSubmitted == account.DetailsSubmitted &&
		len(remote.Requirements) == len(account.Requirements) {
		return nil
	}

	account.PayoutsEnabled = remote.PayoutsEnabled
	account.DetailsSubmitted = remote.DetailsSubmitted
	account.Requirements = remote.Requirements
	if err := s.repo.UpdateStatus(ctx, &account); err != nil {
		return fmt.Errorf("can't update account %s: %w", account.ExternalAccountID, err)
	}

	if remote.PayoutsEnabled {
		zap.L().Info("Connected account became payout ready",
			zap.Int("user_id", account.UserID), zap.String("account", account.ExternalAccountID))
	}
	return nil
}

package contractservice

import (
	"context"
	"errors"
	"time"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/notify"
	"github.com/avkosorukov/taskora/internal/pg"
	"go.uber.org/zap"
)

//go:generate mockgen -source=contractservice.go -destination=contractservice_mock.go -package=contractservice

type ContractRepo interface {
	Save(ctx context.Context, contract *domain.Contract) error
	FindByID(ctx context.Context, id int) (*domain.Contract, error)
	FindByIDForUpdate(ctx context.Context, id int) (*domain.Contract, error)
	FindByApplicationID(ctx context.Context, applicationID int) (*domain.Contract, error)
	Update(ctx context.Context, contract *domain.Contract) error
}

type ApplicationRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Application, error)
}

type Notifier interface {
	Emit(ctx context.Context, event notify.Event)
}

var (
	ErrApplicationNotFound    = errors.New("application not found")
	ErrApplicationNotAccepted = errors.New("application is not accepted")
	ErrContractNotFound       = errors.New("contract not found")
	ErrContractExists         = errors.New("contract already exists for application")
	ErrInvalidState           = errors.New("contract is not in a valid state for this action")
	ErrForbidden              = errors.New("caller is not a party to this contract")
	ErrInvalidAmount          = errors.New("contract amount must be positive")
)

// Allowed contract status transitions. Signing moves DRAFT through
// PENDING_SIGNATURES to ACTIVE; the terminal states have no exits.
var transitions = map[string]map[string]struct{}{
	domain.ContractDraft: {
		domain.ContractPendingSignatures: {},
		domain.ContractActive:            {},
		domain.ContractCancelled:         {},
	},
	domain.ContractPendingSignatures: {
		domain.ContractActive:    {},
		domain.ContractCancelled: {},
	},
	domain.ContractActive: {
		domain.ContractCompleted: {},
		domain.ContractCancelled: {},
		domain.ContractDisputed:  {},
	},
}

func canTransition(from, to string) bool {
	_, ok := transitions[from][to]
	return ok
}

type CreateInput struct {
	ApplicationID int
	TotalAmount   int64
	Currency      string
	StartDate     *time.Time
	EndDate       *time.Time
}

type UpdateInput struct {
	TotalAmount *int64
	StartDate   *time.Time
	EndDate     *time.Time
}

type Service struct {
	contractRepo    ContractRepo
	applicationRepo ApplicationRepo
	txManager       pg.TXManager
	notifier        Notifier
}

func New(contractRepo ContractRepo, applicationRepo ApplicationRepo, txManager pg.TXManager, notifier Notifier) *Service {
	return &Service{
		contractRepo:    contractRepo,
		applicationRepo: applicationRepo,
		txManager:       txManager,
		notifier:        notifier,
	}
}

// Create drafts a contract from an accepted application. An application
// carries at most one contract.
func (s *Service) Create(ctx context.Context, businessID int, in CreateInput) (*domain.Contract, error) {
	if in.TotalAmount <= 0 {
		return nil, ErrInvalidAmount
	}

	app, err := s.applicationRepo.FindByID(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}
	if app == nil {
		return nil, ErrApplicationNotFound
	}
	if app.BusinessID != businessID {
		return nil, ErrForbidden
	}
	if app.Status != domain.ApplicationAccepted {
		return nil, ErrApplicationNotAccepted
	}

	existing, err := s.contractRepo.FindByApplicationID(ctx, in.ApplicationID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		zap.L().Info("contract already exists for application", zap.Int("application_id", in.ApplicationID))
		return nil, ErrContractExists
	}

	currency := in.Currency
	if currency == "" {
		currency = "CAD"
	}
	contract := &domain.Contract{
		BusinessID:    app.BusinessID,
		TalentID:      app.TalentID,
		ProjectID:     app.ProjectID,
		ApplicationID: app.ID,
		TotalAmount:   in.TotalAmount,
		Currency:      currency,
		Status:        domain.ContractDraft,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
	}
	if err := s.contractRepo.Save(ctx, contract); err != nil {
		zap.L().Error("can't save contract", zap.Error(err))
		return nil, err
	}
	return contract, nil
}

// Sign records the caller's signature. Signing is idempotent per role; when
// the second role signs, the contract activates. The contract row is locked
// so two concurrent signatures serialize.
func (s *Service) Sign(ctx context.Context, contractID, signerID int) (*domain.Contract, error) {
	var (
		signed    *domain.Contract
		activated bool
	)

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		contract, err := s.contractRepo.FindByIDForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return ErrContractNotFound
		}

		var signedAt **time.Time
		switch signerID {
		case contract.BusinessID:
			signedAt = &contract.BusinessSignedAt
		case contract.TalentID:
			signedAt = &contract.TalentSignedAt
		default:
			return ErrForbidden
		}

		// re-signing by the same role is a no-op
		if *signedAt != nil {
			signed = contract
			return nil
		}

		if contract.Status != domain.ContractDraft && contract.Status != domain.ContractPendingSignatures {
			return ErrInvalidState
		}

		now := time.Now()
		*signedAt = &now

		if contract.BusinessSignedAt != nil && contract.TalentSignedAt != nil {
			contract.Status = domain.ContractActive
			contract.ActivatedAt = &now
			activated = true
		} else {
			contract.Status = domain.ContractPendingSignatures
		}

		if err := s.contractRepo.Update(ctx, contract); err != nil {
			return err
		}
		signed = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Emitted only for the call that performed the transition, so an
	// idempotent re-sign stays silent.
	if activated {
		s.notifier.Emit(ctx, notify.Event{
			Type:    notify.EventContractActivated,
			UserID:  signed.TalentID,
			Payload: map[string]any{"contract_id": signed.ID},
		})
	}
	return signed, nil
}

// Update changes draft terms. Once any signature exists the terms are frozen.
func (s *Service) Update(ctx context.Context, contractID, businessID int, in UpdateInput) (*domain.Contract, error) {
	contract, err := s.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if contract.BusinessID != businessID {
		return nil, ErrForbidden
	}
	if contract.Status != domain.ContractDraft || contract.BusinessSignedAt != nil || contract.TalentSignedAt != nil {
		return nil, ErrInvalidState
	}

	if in.TotalAmount != nil {
		if *in.TotalAmount <= 0 {
			return nil, ErrInvalidAmount
		}
		contract.TotalAmount = *in.TotalAmount
	}
	if in.StartDate != nil {
		contract.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		contract.EndDate = in.EndDate
	}

	if err := s.contractRepo.Update(ctx, contract); err != nil {
		return nil, err
	}
	return contract, nil
}

// Cancel terminates the contract. Allowed for either party before completion.
func (s *Service) Cancel(ctx context.Context, contractID, callerID int) (*domain.Contract, error) {
	return s.transition(ctx, contractID, callerID, domain.ContractCancelled)
}

// Dispute freezes an active contract pending resolution.
func (s *Service) Dispute(ctx context.Context, contractID, callerID int) (*domain.Contract, error) {
	return s.transition(ctx, contractID, callerID, domain.ContractDisputed)
}

func (s *Service) transition(ctx context.Context, contractID, callerID int, to string) (*domain.Contract, error) {
	var updated *domain.Contract

	err := s.txManager.Begin(ctx, func(ctx context.Context) error {
		contract, err := s.contractRepo.FindByIDForUpdate(ctx, contractID)
		if err != nil {
			return err
		}
		if contract == nil {
			return ErrContractNotFound
		}
		if callerID != contract.BusinessID && callerID != contract.TalentID {
			return ErrForbidden
		}
		if !canTransition(contract.Status, to) {
			return ErrInvalidState
		}

		contract.Status = to
		if err := s.contractRepo.Update(ctx, contract); err != nil {
			return err
		}
		updated = contract
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// GetByID returns the contract to either of its parties.
func (s *Service) GetByID(ctx context.Context, contractID, callerID int) (*domain.Contract, error) {
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
	return contract, nil
}

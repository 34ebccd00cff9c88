package milestoneservice

import (
	"context"
	"errors"
	"time"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/notify"
	"go.uber.org/zap"
)

//go:generate mockgen -source=milestoneservice.go -destination=milestoneservice_mock.go -package=milestoneservice

type MilestoneRepo interface {
	Save(ctx context.Context, milestone *domain.Milestone) error
	FindByID(ctx context.Context, id int) (*domain.Milestone, error)
	FindByContractID(ctx context.Context, contractID int) ([]domain.Milestone, error)
	Update(ctx context.Context, milestone *domain.Milestone) error
}

type ContractRepo interface {
	FindByID(ctx context.Context, id int) (*domain.Contract, error)
}

type Notifier interface {
	Emit(ctx context.Context, event notify.Event)
}

var (
	ErrContractNotFound  = errors.New("contract not found")
	ErrMilestoneNotFound = errors.New("milestone not found")
	ErrInvalidState      = errors.New("milestone is not in a valid state for this action")
	ErrForbidden         = errors.New("caller is not the authorized party")
	ErrInvalidAmount     = errors.New("milestone amount must be positive")
)

type CreateInput struct {
	Title    string
	Amount   int64
	Position int
}

type UpdateInput struct {
	Title    *string
	Amount   *int64
	Position *int
}

type Service struct {
	milestoneRepo MilestoneRepo
	contractRepo  ContractRepo
	notifier      Notifier
}

func New(milestoneRepo MilestoneRepo, contractRepo ContractRepo, notifier Notifier) *Service {
	return &Service{
		milestoneRepo: milestoneRepo,
		contractRepo:  contractRepo,
		notifier:      notifier,
	}
}

// Create adds a milestone to a draft contract.
func (s *Service) Create(ctx context.Context, businessID, contractID int, in CreateInput) (*domain.Milestone, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

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
	if contract.Status != domain.ContractDraft {
		return nil, ErrInvalidState
	}

	position := in.Position
	if position == 0 {
		existing, err := s.milestoneRepo.FindByContractID(ctx, contractID)
		if err != nil {
			return nil, err
		}
		position = len(existing) + 1
	}

	milestone := &domain.Milestone{
		ContractID: contractID,
		Title:      in.Title,
		Amount:     in.Amount,
		Position:   position,
		Status:     domain.MilestonePending,
	}
	if err := s.milestoneRepo.Save(ctx, milestone); err != nil {
		zap.L().Error("can't save milestone", zap.Error(err))
		return nil, err
	}
	return milestone, nil
}

// Update changes a milestone while the parent contract is still a draft.
func (s *Service) Update(ctx context.Context, businessID, milestoneID int, in UpdateInput) (*domain.Milestone, error) {
	milestone, contract, err := s.lookup(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if contract.BusinessID != businessID {
		return nil, ErrForbidden
	}
	if contract.Status != domain.ContractDraft {
		return nil, ErrInvalidState
	}

	if in.Title != nil {
		milestone.Title = *in.Title
	}
	if in.Amount != nil {
		if *in.Amount <= 0 {
			return nil, ErrInvalidAmount
		}
		milestone.Amount = *in.Amount
	}
	if in.Position != nil {
		milestone.Position = *in.Position
	}

	if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// Start marks a pending milestone as in progress. Talent only, contract must
// be active.
func (s *Service) Start(ctx context.Context, talentID, milestoneID int) (*domain.Milestone, error) {
	milestone, contract, err := s.lookup(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if contract.TalentID != talentID {
		return nil, ErrForbidden
	}
	if contract.Status != domain.ContractActive {
		return nil, ErrInvalidState
	}
	if milestone.Status != domain.MilestonePending {
		return nil, ErrInvalidState
	}

	milestone.Status = domain.MilestoneInProgress
	if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
		return nil, err
	}
	return milestone, nil
}

// Submit hands the milestone to the business for review. A rejected
// milestone re-enters the cycle here.
func (s *Service) Submit(ctx context.Context, talentID, milestoneID int) (*domain.Milestone, error) {
	milestone, contract, err := s.lookup(ctx, milestoneID)
	if err != nil {
		return nil, err
	}
	if contract.TalentID != talentID {
		return nil, ErrForbidden
	}
	if contract.Status != domain.ContractActive {
		return nil, ErrInvalidState
	}
	switch milestone.Status {
	case domain.MilestonePending, domain.MilestoneInProgress, domain.MilestoneRejected:
	default:
		return nil, ErrInvalidState
	}

	now := time.Now()
	milestone.Status = domain.MilestoneSubmitted
	milestone.SubmittedAt = &now
	if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:    notify.EventMilestoneSubmitted,
		UserID:  contract.BusinessID,
		Payload: map[string]any{"milestone_id": milestone.ID, "contract_id": contract.ID},
	})
	return milestone, nil
}

// Reject returns a submitted milestone to the talent for rework. No funds
// move.
func (s *Service) Reject(ctx context.Context, businessID, milestoneID int) (*domain.Milestone, error) {
	milestone, contract, err := s.lookup(ctx, milestoneID)
	if err != nil {
		return nil, err
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

	milestone.Status = domain.MilestoneRejected
	if err := s.milestoneRepo.Update(ctx, milestone); err != nil {
		return nil, err
	}

	s.notifier.Emit(ctx, notify.Event{
		Type:    notify.EventMilestoneRejected,
		UserID:  contract.TalentID,
		Payload: map[string]any{"milestone_id": milestone.ID, "contract_id": contract.ID},
	})
	return milestone, nil
}

// List returns the contract's milestones to either party.
func (s *Service) List(ctx context.Context, callerID, contractID int) ([]domain.Milestone, error) {
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
	return s.milestoneRepo.FindByContractID(ctx, contractID)
}

// lookup loads the milestone and its parent contract. Authorization is
// always checked against the parent contract, never a cached copy.
func (s *Service) lookup(ctx context.Context, milestoneID int) (*domain.Milestone, *domain.Contract, error) {
	milestone, err := s.milestoneRepo.FindByID(ctx, milestoneID)
	if err != nil {
		return nil, nil, err
	}
	if milestone == nil {
		return nil, nil, ErrMilestoneNotFound
	}

	contract, err := s.contractRepo.FindByID(ctx, milestone.ContractID)
	if err != nil {
		return nil, nil, err
	}
	if contract == nil {
		return nil, nil, ErrContractNotFound
	}
	return milestone, contract, nil
}

package milestones

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/dto"
	"github.com/avkosorukov/taskora/internal/service/milestoneservice"
	"github.com/avkosorukov/taskora/pkg/auth"
	"github.com/avkosorukov/taskora/pkg/utils"
)

//go:generate mockgen -source=milestones.go -destination=milestones_mock.go -package=milestones

type Service interface {
	Create(ctx context.Context, businessID, contractID int, in milestoneservice.CreateInput) (*domain.Milestone, error)
	Update(ctx context.Context, businessID, milestoneID int, in milestoneservice.UpdateInput) (*domain.Milestone, error)
	Start(ctx context.Context, talentID, milestoneID int) (*domain.Milestone, error)
	Submit(ctx context.Context, talentID, milestoneID int) (*domain.Milestone, error)
	Reject(ctx context.Context, businessID, milestoneID int) (*domain.Milestone, error)
	List(ctx context.Context, callerID, contractID int) ([]domain.Milestone, error)
}

type MilestoneHandler struct {
	milestoneService Service
}

func New(milestoneService Service) *MilestoneHandler {
	return &MilestoneHandler{
		milestoneService: milestoneService,
	}
}

// Create godoc
//
//	@Summary		Add a milestone
//	@Description	Add a milestone to a draft contract
//	@Tags			Milestones
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Contract ID"
//	@Param			request	body		dto.CreateMilestoneRequestDTO	true	"Milestone body"
//	@Success		201		{object}	dto.MilestoneResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		404		{object}	utils.Response	"Contract not found"
//	@Failure		409		{object}	utils.Response	"Contract is not editable"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/milestones [post]
func (h *MilestoneHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(auth.UserIDKey).(int)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid contract id")
		return
	}
	var req dto.CreateMilestoneRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	milestone, err := h.milestoneService.Create(r.Context(), userID, contractID, milestoneservice.CreateInput{
		Title:    req.Title,
		Amount:   req.Amount,
		Position: req.Position,
	})
	if err != nil {
		respondMilestoneError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toMilestoneDTO(milestone))
}

// List godoc
//
//	@Summary		List contract milestones
//	@Tags			Milestones
//	@Produce		json
//	@Param			id	path		int	true	"Contract ID"
//	@Success		200	{array}		dto.MilestoneResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Contract not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/milestones [get]
func (h *MilestoneHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(auth.UserIDKey).(int)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	contractID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid contract id")
		return
	}
	milestones, err := h.milestoneService.List(r.Context(), userID, contractID)
	if err != nil {
		respondMilestoneError(w, err)
		return
	}
	resp := make([]dto.MilestoneResponseDTO, 0, len(milestones))
	for i := range milestones {
		resp = append(resp, toMilestoneDTO(&milestones[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Update godoc
//
//	@Summary		Update a milestone
//	@Description	Edit a milestone while its contract is still a draft
//	@Tags			Milestones
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int							true	"Milestone ID"
//	@Param			request	body		dto.UpdateMilestoneRequestDTO	true	"Fields to update"
//	@Success		200		{object}	dto.MilestoneResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		404		{object}	utils.Response	"Milestone not found"
//	@Failure		409		{object}	utils.Response	"Milestone is not editable"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/milestones/{id} [patch]
func (h *MilestoneHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(auth.UserIDKey).(int)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	milestoneID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid milestone id")
		return
	}
	var req dto.UpdateMilestoneRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	milestone, err := h.milestoneService.Update(r.Context(), userID, milestoneID, milestoneservice.UpdateInput{
		Title:    req.Title,
		Amount:   req.Amount,
		Position: req.Position,
	})
	if err != nil {
		respondMilestoneError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

// Start godoc
//
//	@Summary		Start a milestone
//	@Description	Talent marks a pending milestone as in progress
//	@Tags			Milestones
//	@Produce		json
//	@Param			id	path		int	true	"Milestone ID"
//	@Success		200	{object}	dto.MilestoneResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Milestone not found"
//	@Failure		409	{object}	utils.Response	"Milestone is not startable"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/milestones/{id}/start [post]
func (h *MilestoneHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.milestoneService.Start)
}

// Submit godoc
//
//	@Summary		Submit a milestone
//	@Description	Talent submits milestone work for review
//	@Tags			Milestones
//	@Produce		json
//	@Param			id	path		int	true	"Milestone ID"
//	@Success		200	{object}	dto.MilestoneResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Milestone not found"
//	@Failure		409	{object}	utils.Response	"Milestone is not submittable"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/milestones/{id}/submit [post]
func (h *MilestoneHandler) Submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.milestoneService.Submit)
}

// Reject godoc
//
//	@Summary		Reject a submitted milestone
//	@Description	Business sends a submitted milestone back for rework
//	@Tags			Milestones
//	@Produce		json
//	@Param			id	path		int	true	"Milestone ID"
//	@Success		200	{object}	dto.MilestoneResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Milestone not found"
//	@Failure		409	{object}	utils.Response	"Milestone is not rejectable"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/milestones/{id}/reject [post]
func (h *MilestoneHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.milestoneService.Reject)
}

func (h *MilestoneHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, callerID, milestoneID int) (*domain.Milestone, error)) {
	userID, ok := r.Context().Value(auth.UserIDKey).(int)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	milestoneID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid milestone id")
		return
	}
	milestone, err := op(r.Context(), userID, milestoneID)
	if err != nil {
		respondMilestoneError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toMilestoneDTO(milestone))
}

func respondMilestoneError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, milestoneservice.ErrContractNotFound),
		errors.Is(err, milestoneservice.ErrMilestoneNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, milestoneservice.ErrForbidden):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, milestoneservice.ErrInvalidState):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, milestoneservice.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toMilestoneDTO(m *domain.Milestone) dto.MilestoneResponseDTO {
	return dto.MilestoneResponseDTO{
		ID:          m.ID,
		ContractID:  m.ContractID,
		Title:       m.Title,
		Amount:      m.Amount,
		Position:    m.Position,
		Status:      m.Status,
		SubmittedAt: m.SubmittedAt,
		ApprovedAt:  m.ApprovedAt,
	}
}

package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/dto"
	"github.com/avkosorukov/taskora/internal/service/contractservice"
	"github.com/avkosorukov/taskora/pkg/auth"
	"github.com/avkosorukov/taskora/pkg/utils"
)

//go:generate mockgen -source=contracts.go -destination=contracts_mock.go -package=contracts

type Service interface {
	Create(ctx context.Context, businessID int, in contractservice.CreateInput) (*domain.Contract, error)
	GetByID(ctx context.Context, contractID, callerID int) (*domain.Contract, error)
	Update(ctx context.Context, contractID, businessID int, in contractservice.UpdateInput) (*domain.Contract, error)
	Sign(ctx context.Context, contractID, signerID int) (*domain.Contract, error)
	Cancel(ctx context.Context, contractID, callerID int) (*domain.Contract, error)
	Dispute(ctx context.Context, contractID, callerID int) (*domain.Contract, error)
}

type ContractHandler struct {
	contractService Service
}

func New(contractService Service) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
	}
}

// Create godoc
//
//	@Summary		Create a contract
//	@Description	Create a draft contract from an accepted application
//	@Tags			Contracts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.CreateContractRequestDTO	true	"Contract body"
//	@Success		201		{object}	dto.ContractResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		404		{object}	utils.Response	"Application not found"
//	@Failure		409		{object}	utils.Response	"Contract already exists"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts [post]
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(auth.UserIDKey).(int)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	var req dto.CreateContractRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	contract, err := h.contractService.Create(r.Context(), userID, contractservice.CreateInput{
		ApplicationID: req.ApplicationID,
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
	})
	if err != nil {
		respondContractError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toContractDTO(contract))
}

// Get godoc
//
//	@Summary		Get a contract
//	@Description	Fetch a contract visible to one of its parties
//	@Tags			Contracts
//	@Produce		json
//	@Param			id	path		int	true	"Contract ID"
//	@Success		200	{object}	dto.ContractResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Contract not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id} [get]
func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
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
	contract, err := h.contractService.GetByID(r.Context(), contractID, userID)
	if err != nil {
		respondContractError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toContractDTO(contract))
}

// Update godoc
//
//	@Summary		Update a draft contract
//	@Description	Change amount or dates while the contract is still an unsigned draft
//	@Tags			Contracts
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int								true	"Contract ID"
//	@Param			request	body		dto.UpdateContractRequestDTO	true	"Fields to update"
//	@Success		200		{object}	dto.ContractResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		404		{object}	utils.Response	"Contract not found"
//	@Failure		409		{object}	utils.Response	"Contract is not editable"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id} [patch]
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	var req dto.UpdateContractRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	contract, err := h.contractService.Update(r.Context(), contractID, userID, contractservice.UpdateInput{
		TotalAmount: req.TotalAmount,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondContractError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toContractDTO(contract))
}

// Sign godoc
//
//	@Summary		Sign a contract
//	@Description	Record the caller's signature; the contract activates once both parties have signed
//	@Tags			Contracts
//	@Produce		json
//	@Param			id	path		int	true	"Contract ID"
//	@Success		200	{object}	dto.ContractResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Contract not found"
//	@Failure		409	{object}	utils.Response	"Contract is not signable"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/sign [post]
func (h *ContractHandler) Sign(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.contractService.Sign)
}

// Cancel godoc
//
//	@Summary		Cancel a contract
//	@Description	Cancel a contract that has not been activated yet
//	@Tags			Contracts
//	@Produce		json
//	@Param			id	path		int	true	"Contract ID"
//	@Success		200	{object}	dto.ContractResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Contract not found"
//	@Failure		409	{object}	utils.Response	"Contract is not cancellable"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/cancel [post]
func (h *ContractHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.contractService.Cancel)
}

// Dispute godoc
//
//	@Summary		Dispute a contract
//	@Description	Move an active contract into dispute
//	@Tags			Contracts
//	@Produce		json
//	@Param			id	path		int	true	"Contract ID"
//	@Success		200	{object}	dto.ContractResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Contract not found"
//	@Failure		409	{object}	utils.Response	"Contract is not disputable"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/dispute [post]
func (h *ContractHandler) Dispute(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.contractService.Dispute)
}

func (h *ContractHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, contractID, callerID int) (*domain.Contract, error)) {
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
	contract, err := op(r.Context(), contractID, userID)
	if err != nil {
		respondContractError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toContractDTO(contract))
}

func respondContractError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, contractservice.ErrContractNotFound),
		errors.Is(err, contractservice.ErrApplicationNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, contractservice.ErrForbidden):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, contractservice.ErrContractExists),
		errors.Is(err, contractservice.ErrApplicationNotAccepted),
		errors.Is(err, contractservice.ErrInvalidState):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, contractservice.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toContractDTO(c *domain.Contract) dto.ContractResponseDTO {
	return dto.ContractResponseDTO{
		ID:               c.ID,
		BusinessID:       c.BusinessID,
		TalentID:         c.TalentID,
		ProjectID:        c.ProjectID,
		ApplicationID:    c.ApplicationID,
		TotalAmount:      c.TotalAmount,
		Currency:         c.Currency,
		Status:           c.Status,
		BusinessSignedAt: c.BusinessSignedAt,
		TalentSignedAt:   c.TalentSignedAt,
		ActivatedAt:      c.ActivatedAt,
		StartDate:        c.StartDate,
		EndDate:          c.EndDate,
		CreatedAt:        c.CreatedAt,
	}
}

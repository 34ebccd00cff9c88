package payouts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/dto"
	"github.com/avkosorukov/taskora/internal/service/payoutservice"
	"github.com/avkosorukov/taskora/pkg/auth"
	"github.com/avkosorukov/taskora/pkg/utils"
)

//go:generate mockgen -source=payouts.go -destination=payouts_mock.go -package=payouts

type Service interface {
	EnsureAccount(ctx context.Context, userID int) (*domain.ConnectedAccount, error)
	AvailableBalance(ctx context.Context, talentID int) (int64, error)
	Withdraw(ctx context.Context, talentID int, amount int64) (*domain.Withdrawal, error)
	GetWithdrawals(ctx context.Context, userID int) ([]domain.Withdrawal, error)
}

type PayoutHandler struct {
	payoutService Service
}

func New(payoutService Service) *PayoutHandler {
	return &PayoutHandler{
		payoutService: payoutService,
	}
}

// Account godoc
//
//	@Summary		Create or refresh the connected account
//	@Description	Provision the talent's payout account at the payment processor, or refresh its status
//	@Tags			Payouts
//	@Produce		json
//	@Success		200	{object}	dto.ConnectedAccountResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		502	{object}	utils.Response	"Payment processor unavailable"
//	@Security		BearerAuth
//	@Router			/api/payouts/account [post]
func (h *PayoutHandler) Account(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.talent(w, r)
	if !ok {
		return
	}
	account, err := h.payoutService.EnsureAccount(r.Context(), userID)
	if err != nil {
		respondPayoutError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.ConnectedAccountResponseDTO{
		ExternalAccountID: account.ExternalAccountID,
		PayoutsEnabled:    account.PayoutsEnabled,
		DetailsSubmitted:  account.DetailsSubmitted,
		Requirements:      account.Requirements,
	})
}

// Balance godoc
//
//	@Summary		Get available balance
//	@Description	Released earnings minus withdrawals already requested
//	@Tags			Payouts
//	@Produce		json
//	@Success		200	{object}	dto.BalanceResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/payouts/balance [get]
func (h *PayoutHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.talent(w, r)
	if !ok {
		return
	}
	available, err := h.payoutService.AvailableBalance(r.Context(), userID)
	if err != nil {
		respondPayoutError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, dto.BalanceResponseDTO{
		Available: available,
	})
}

// Withdraw godoc
//
//	@Summary		Request a withdrawal
//	@Description	Send part of the available balance to the talent's bank account
//	@Tags			Payouts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.WithdrawRequestDTO	true	"Withdrawal body"
//	@Success		201		{object}	dto.WithdrawalResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		402		{object}	utils.Response	"Insufficient balance"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		412		{object}	utils.Response	"Connected account not payout ready"
//	@Failure		502		{object}	utils.Response	"Payment processor unavailable"
//	@Security		BearerAuth
//	@Router			/api/payouts/withdraw [post]
func (h *PayoutHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.talent(w, r)
	if !ok {
		return
	}
	var req dto.WithdrawRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	withdrawal, err := h.payoutService.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		respondPayoutError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, toWithdrawalDTO(withdrawal))
}

// Withdrawals godoc
//
//	@Summary		List withdrawals
//	@Tags			Payouts
//	@Produce		json
//	@Success		200	{array}		dto.WithdrawalResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/payouts/withdrawals [get]
func (h *PayoutHandler) Withdrawals(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.talent(w, r)
	if !ok {
		return
	}
	withdrawals, err := h.payoutService.GetWithdrawals(r.Context(), userID)
	if err != nil {
		respondPayoutError(w, err)
		return
	}
	resp := make([]dto.WithdrawalResponseDTO, 0, len(withdrawals))
	for i := range withdrawals {
		resp = append(resp, toWithdrawalDTO(&withdrawals[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// talent authenticates the request and restricts it to the talent role.
func (h *PayoutHandler) talent(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, ok := r.Context().Value(auth.UserIDKey).(int)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return 0, false
	}
	role, _ := r.Context().Value(auth.RoleKey).(string)
	if role != domain.RoleTalent {
		utils.RespondWithError(w, http.StatusForbidden, "Payouts are available to talent accounts only")
		return 0, false
	}
	return userID, true
}

func respondPayoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, payoutservice.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payoutservice.ErrInsufficientBalance):
		utils.RespondWithError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, payoutservice.ErrAccountNotReady):
		utils.RespondWithError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, payoutservice.ErrExternalService):
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toWithdrawalDTO(wd *domain.Withdrawal) dto.WithdrawalResponseDTO {
	return dto.WithdrawalResponseDTO{
		ID:                wd.ID,
		Amount:            wd.Amount,
		Currency:          wd.Currency,
		Status:            wd.Status,
		ExternalPayoutRef: wd.ExternalPayoutRef,
		ProcessedAt:       wd.ProcessedAt,
		CreatedAt:         wd.CreatedAt,
	}
}

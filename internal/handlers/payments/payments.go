package payments

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/dto"
	"github.com/avkosorukov/taskora/internal/processor"
	"github.com/avkosorukov/taskora/internal/service/escrowservice"
	"github.com/avkosorukov/taskora/pkg/auth"
	"github.com/avkosorukov/taskora/pkg/utils"
)

//go:generate mockgen -source=payments.go -destination=payments_mock.go -package=payments

// Max accepted webhook payload, matches the processor's own limit.
const maxWebhookBody = 1 << 16

type EscrowService interface {
	FundEscrow(ctx context.Context, businessID, contractID int, milestoneID *int, amount int64) (*domain.Payment, string, error)
	ReleaseMilestonePayment(ctx context.Context, businessID, milestoneID int) (*domain.Payment, error)
	ListContractPayments(ctx context.Context, callerID, contractID int) ([]domain.Payment, error)
}

type WebhookService interface {
	Process(ctx context.Context, event processor.Event) error
}

// Verifier checks the processor's webhook signature and decodes the event.
type Verifier interface {
	ConstructWebhookEvent(payload []byte, signature string) (processor.Event, error)
}

type PaymentHandler struct {
	escrowService  EscrowService
	webhookService WebhookService
	verifier       Verifier
}

func New(escrowService EscrowService, webhookService WebhookService, verifier Verifier) *PaymentHandler {
	return &PaymentHandler{
		escrowService:  escrowService,
		webhookService: webhookService,
		verifier:       verifier,
	}
}

// Fund godoc
//
//	@Summary		Fund escrow
//	@Description	Create an escrow payment intent for a contract or one of its milestones
//	@Tags			Payments
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Contract ID"
//	@Param			request	body		dto.FundEscrowRequestDTO	true	"Funding body"
//	@Success		201		{object}	dto.FundEscrowResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		401		{object}	utils.Response	"Unauthorized"
//	@Failure		403		{object}	utils.Response	"Forbidden"
//	@Failure		404		{object}	utils.Response	"Contract not found"
//	@Failure		409		{object}	utils.Response	"Milestone already funded"
//	@Failure		502		{object}	utils.Response	"Payment processor unavailable"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/fund [post]
func (h *PaymentHandler) Fund(w http.ResponseWriter, r *http.Request) {
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
	var req dto.FundEscrowRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	payment, clientSecret, err := h.escrowService.FundEscrow(r.Context(), userID, contractID, req.MilestoneID, req.Amount)
	if err != nil {
		respondEscrowError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, dto.FundEscrowResponseDTO{
		Payment:      toPaymentDTO(payment),
		ClientSecret: clientSecret,
	})
}

// Release godoc
//
//	@Summary		Release a milestone payment
//	@Description	Approve a submitted milestone and transfer its escrowed funds to the talent
//	@Tags			Payments
//	@Produce		json
//	@Param			id	path		int	true	"Milestone ID"
//	@Success		200	{object}	dto.PaymentResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Milestone not found"
//	@Failure		409	{object}	utils.Response	"Already released"
//	@Failure		412	{object}	utils.Response	"Escrow not funded or account not ready"
//	@Failure		502	{object}	utils.Response	"Payment processor unavailable"
//	@Security		BearerAuth
//	@Router			/api/milestones/{id}/release [post]
func (h *PaymentHandler) Release(w http.ResponseWriter, r *http.Request) {
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
	payment, err := h.escrowService.ReleaseMilestonePayment(r.Context(), userID, milestoneID)
	if err != nil {
		respondEscrowError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toPaymentDTO(payment))
}

// List godoc
//
//	@Summary		List contract payments
//	@Tags			Payments
//	@Produce		json
//	@Param			id	path		int	true	"Contract ID"
//	@Success		200	{array}		dto.PaymentResponseDTO
//	@Failure		401	{object}	utils.Response	"Unauthorized"
//	@Failure		403	{object}	utils.Response	"Forbidden"
//	@Failure		404	{object}	utils.Response	"Contract not found"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Security		BearerAuth
//	@Router			/api/contracts/{id}/payments [get]
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
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
	payments, err := h.escrowService.ListContractPayments(r.Context(), userID, contractID)
	if err != nil {
		respondEscrowError(w, err)
		return
	}
	resp := make([]dto.PaymentResponseDTO, 0, len(payments))
	for i := range payments {
		resp = append(resp, toPaymentDTO(&payments[i]))
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// Webhook godoc
//
//	@Summary		Payment processor webhook
//	@Description	Receive signed processor events; duplicate event ids are acknowledged without reprocessing
//	@Tags			Payments
//	@Accept			json
//	@Success		200	"Event processed"
//	@Failure		400	{object}	utils.Response	"Unreadable payload"
//	@Failure		401	{object}	utils.Response	"Invalid signature"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/webhooks/processor [post]
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unreadable payload")
		return
	}
	event, err := h.verifier.ConstructWebhookEvent(payload, r.Header.Get("Processor-Signature"))
	if err != nil {
		zap.L().Warn("rejected webhook", zap.Error(err))
		utils.RespondWithError(w, http.StatusUnauthorized, "Invalid signature")
		return
	}
	if err := h.webhookService.Process(r.Context(), event); err != nil {
		// Non-2xx makes the processor redeliver, which is safe:
		// the event id dedup swallows the replay once we succeed.
		zap.L().Error("webhook processing failed", zap.String("event_id", event.ID), zap.Error(err))
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.WriteHeader(http.StatusOK)
}

func respondEscrowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, escrowservice.ErrContractNotFound),
		errors.Is(err, escrowservice.ErrMilestoneNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, escrowservice.ErrForbidden):
		utils.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, escrowservice.ErrInvalidState),
		errors.Is(err, escrowservice.ErrAlreadyFunded),
		errors.Is(err, escrowservice.ErrAlreadyReleased):
		utils.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, escrowservice.ErrEscrowNotFunded),
		errors.Is(err, escrowservice.ErrAccountNotReady):
		utils.RespondWithError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, escrowservice.ErrInvalidAmount):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, escrowservice.ErrExternalService):
		utils.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func toPaymentDTO(p *domain.Payment) dto.PaymentResponseDTO {
	return dto.PaymentResponseDTO{
		ID:                  p.ID,
		ContractID:          p.ContractID,
		MilestoneID:         p.MilestoneID,
		Amount:              p.Amount,
		PlatformFee:         p.PlatformFee,
		NetAmount:           p.NetAmount,
		Currency:            p.Currency,
		Status:              p.Status,
		ExternalPaymentRef:  p.ExternalPaymentRef,
		ExternalTransferRef: p.ExternalTransferRef,
		ProcessedAt:         p.ProcessedAt,
		CreatedAt:           p.CreatedAt,
	}
}

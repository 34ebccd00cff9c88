package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/processor"
	"github.com/avkosorukov/taskora/internal/service/escrowservice"
	"github.com/avkosorukov/taskora/pkg/auth"
	"github.com/avkosorukov/taskora/pkg/utils"
)

func NewMock(t *testing.T) (*PaymentHandler, *MockEscrowService, *MockWebhookService, *MockVerifier) {
	ctrl := gomock.NewController(t)
	escrow := NewMockEscrowService(ctrl)
	webhook := NewMockWebhookService(ctrl)
	verifier := NewMockVerifier(ctrl)
	handler := New(escrow, webhook, verifier)
	defer ctrl.Finish()
	return handler, escrow, webhook, verifier
}

func newRequest(method, target, body string, userID int, params map[string]string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), auth.UserIDKey, userID)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func TestFundHandler(t *testing.T) {
	handler, escrow, _, _ := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful funding",
			body: `{"milestone_id":5,"amount":50000}`,
			prepareMock: func() {
				milestoneID := 5
				escrow.EXPECT().FundEscrow(gomock.Any(), 2, 1, &milestoneID, int64(50000)).Return(&domain.Payment{
					ID: 8, ContractID: 1, Amount: 50000, PlatformFee: 4200, NetAmount: 45800,
					Status: domain.PaymentPending, ExternalPaymentRef: "pi_456",
				}, "pi_456_secret", nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Milestone already funded",
			body: `{"milestone_id":5,"amount":50000}`,
			prepareMock: func() {
				escrow.EXPECT().FundEscrow(gomock.Any(), 2, 1, gomock.Any(), int64(50000)).
					Return(nil, "", escrowservice.ErrAlreadyFunded)
			},
			expectedCode:  http.StatusConflict,
			expectedError: escrowservice.ErrAlreadyFunded.Error(),
		},
		{
			name: "Processor unavailable",
			body: `{"amount":100000}`,
			prepareMock: func() {
				escrow.EXPECT().FundEscrow(gomock.Any(), 2, 1, nil, int64(100000)).
					Return(nil, "", escrowservice.ErrExternalService)
			},
			expectedCode:  http.StatusBadGateway,
			expectedError: escrowservice.ErrExternalService.Error(),
		},
		{
			name:          "Invalid request body",
			body:          `{invalid`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := newRequest("POST", "/api/contracts/1/fund", tt.body, 2, map[string]string{"id": "1"})
			rr := httptest.NewRecorder()

			handler.Fund(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedCode == http.StatusCreated {
				var resp map[string]any
				assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
				assert.Equal(t, "pi_456_secret", resp["client_secret"])
			}
			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestReleaseHandler(t *testing.T) {
	handler, escrow, _, _ := NewMock(t)

	tests := []struct {
		name         string
		prepareMock  func()
		expectedCode int
	}{
		{
			name: "Successful release",
			prepareMock: func() {
				ref := "tr_789"
				escrow.EXPECT().ReleaseMilestonePayment(gomock.Any(), 2, 5).Return(&domain.Payment{
					ID: 8, Status: domain.PaymentCompleted, ExternalTransferRef: &ref,
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name: "Escrow not funded",
			prepareMock: func() {
				escrow.EXPECT().ReleaseMilestonePayment(gomock.Any(), 2, 5).
					Return(nil, escrowservice.ErrEscrowNotFunded)
			},
			expectedCode: http.StatusPreconditionFailed,
		},
		{
			name: "Account not ready",
			prepareMock: func() {
				escrow.EXPECT().ReleaseMilestonePayment(gomock.Any(), 2, 5).
					Return(nil, escrowservice.ErrAccountNotReady)
			},
			expectedCode: http.StatusPreconditionFailed,
		},
		{
			name: "Already released",
			prepareMock: func() {
				escrow.EXPECT().ReleaseMilestonePayment(gomock.Any(), 2, 5).
					Return(nil, escrowservice.ErrAlreadyReleased)
			},
			expectedCode: http.StatusConflict,
		},
		{
			name: "Talent can't release",
			prepareMock: func() {
				escrow.EXPECT().ReleaseMilestonePayment(gomock.Any(), 2, 5).
					Return(nil, escrowservice.ErrForbidden)
			},
			expectedCode: http.StatusForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := newRequest("POST", "/api/milestones/5/release", "", 2, map[string]string{"id": "5"})
			rr := httptest.NewRecorder()

			handler.Release(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
		})
	}
}

func TestWebhookHandler(t *testing.T) {
	handler, _, webhook, verifier := NewMock(t)

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"payment_intent_id":"pi_123"}}`
	event := processor.Event{
		ID:   "evt_1",
		Type: processor.EventPaymentSucceeded,
		Data: processor.EventData{PaymentIntentID: "pi_123"},
	}

	t.Run("Valid signature processes the event", func(t *testing.T) {
		verifier.EXPECT().ConstructWebhookEvent([]byte(payload), "goodsig").Return(event, nil)
		webhook.EXPECT().Process(gomock.Any(), event).Return(nil)

		req := httptest.NewRequest("POST", "/api/webhooks/processor", bytes.NewReader([]byte(payload)))
		req.Header.Set("Processor-Signature", "goodsig")
		rr := httptest.NewRecorder()

		handler.Webhook(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Invalid signature is rejected before processing", func(t *testing.T) {
		verifier.EXPECT().ConstructWebhookEvent([]byte(payload), "badsig").
			Return(processor.Event{}, processor.ErrInvalidSignature)

		req := httptest.NewRequest("POST", "/api/webhooks/processor", bytes.NewReader([]byte(payload)))
		req.Header.Set("Processor-Signature", "badsig")
		rr := httptest.NewRecorder()

		handler.Webhook(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Processing failure asks the sender to redeliver", func(t *testing.T) {
		verifier.EXPECT().ConstructWebhookEvent([]byte(payload), "goodsig").Return(event, nil)
		webhook.EXPECT().Process(gomock.Any(), event).Return(assert.AnError)

		req := httptest.NewRequest("POST", "/api/webhooks/processor", bytes.NewReader([]byte(payload)))
		req.Header.Set("Processor-Signature", "goodsig")
		rr := httptest.NewRecorder()

		handler.Webhook(rr, req)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

// End to end through the real verifier: sign the payload the way the
// processor does and let the client check it.
func TestWebhookSignatureRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	webhook := NewMockWebhookService(ctrl)
	client := processor.NewClient(nil, "http://processor", "key", "whsec_test")
	handler := New(NewMockEscrowService(ctrl), webhook, client)
	defer ctrl.Finish()

	payload := []byte(`{"id":"evt_9","type":"payout.paid","data":{"payout_id":"po_123"}}`)
	mac := hmac.New(sha256.New, []byte("whsec_test"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	webhook.EXPECT().Process(gomock.Any(), gomock.Any()).Return(nil)

	req := httptest.NewRequest("POST", "/api/webhooks/processor", bytes.NewReader(payload))
	req.Header.Set("Processor-Signature", signature)
	rr := httptest.NewRecorder()
	handler.Webhook(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	// tampered payload fails verification
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = '4'
	req = httptest.NewRequest("POST", "/api/webhooks/processor", bytes.NewReader(tampered))
	req.Header.Set("Processor-Signature", signature)
	rr = httptest.NewRecorder()
	handler.Webhook(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListHandler(t *testing.T) {
	handler, escrow, _, _ := NewMock(t)

	escrow.EXPECT().ListContractPayments(gomock.Any(), 3, 1).Return([]domain.Payment{
		{ID: 1, Status: domain.PaymentProcessing},
		{ID: 2, Status: domain.PaymentCompleted},
	}, nil)

	req := newRequest("GET", "/api/contracts/1/payments", "", 3, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.List(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp []map[string]any
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Len(t, resp, 2)
}

package contracts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/avkosorukov/taskora/internal/domain"
	"github.com/avkosorukov/taskora/internal/service/contractservice"
	"github.com/avkosorukov/taskora/pkg/auth"
	"github.com/avkosorukov/taskora/pkg/utils"
)

func NewMock(t *testing.T) (*ContractHandler, *MockService) {
	ctrl := gomock.NewController(t)
	service := NewMockService(ctrl)
	handler := New(service)
	defer ctrl.Finish()
	return handler, service
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

func TestCreateHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		body          string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name: "Successful creation",
			body: `{"application_id":17,"total_amount":100000}`,
			prepareMock: func() {
				service.EXPECT().Create(gomock.Any(), 2, contractservice.CreateInput{
					ApplicationID: 17,
					TotalAmount:   100000,
				}).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, TotalAmount: 100000,
					Currency: "CAD", Status: domain.ContractDraft,
				}, nil)
			},
			expectedCode: http.StatusCreated,
		},
		{
			name: "Application not found",
			body: `{"application_id":99,"total_amount":100000}`,
			prepareMock: func() {
				service.EXPECT().Create(gomock.Any(), 2, gomock.Any()).
					Return(nil, contractservice.ErrApplicationNotFound)
			},
			expectedCode:  http.StatusNotFound,
			expectedError: contractservice.ErrApplicationNotFound.Error(),
		},
		{
			name: "Contract already exists",
			body: `{"application_id":17,"total_amount":100000}`,
			prepareMock: func() {
				service.EXPECT().Create(gomock.Any(), 2, gomock.Any()).
					Return(nil, contractservice.ErrContractExists)
			},
			expectedCode:  http.StatusConflict,
			expectedError: contractservice.ErrContractExists.Error(),
		},
		{
			name: "Non-positive amount",
			body: `{"application_id":17,"total_amount":0}`,
			prepareMock: func() {
				service.EXPECT().Create(gomock.Any(), 2, gomock.Any()).
					Return(nil, contractservice.ErrInvalidAmount)
			},
			expectedCode:  http.StatusBadRequest,
			expectedError: contractservice.ErrInvalidAmount.Error(),
		},
		{
			name:          "Invalid request body",
			body:          `{invalid json`,
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := newRequest("POST", "/api/contracts", tt.body, 2, nil)
			rr := httptest.NewRecorder()

			handler.Create(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestSignHandler(t *testing.T) {
	handler, service := NewMock(t)

	tests := []struct {
		name          string
		contractID    string
		prepareMock   func()
		expectedCode  int
		expectedError string
	}{
		{
			name:       "Successful signature",
			contractID: "1",
			prepareMock: func() {
				service.EXPECT().Sign(gomock.Any(), 1, 3).Return(&domain.Contract{
					ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractPendingSignatures,
				}, nil)
			},
			expectedCode: http.StatusOK,
		},
		{
			name:       "Not a party",
			contractID: "1",
			prepareMock: func() {
				service.EXPECT().Sign(gomock.Any(), 1, 3).Return(nil, contractservice.ErrForbidden)
			},
			expectedCode:  http.StatusForbidden,
			expectedError: contractservice.ErrForbidden.Error(),
		},
		{
			name:       "Cancelled contract",
			contractID: "1",
			prepareMock: func() {
				service.EXPECT().Sign(gomock.Any(), 1, 3).Return(nil, contractservice.ErrInvalidState)
			},
			expectedCode:  http.StatusConflict,
			expectedError: contractservice.ErrInvalidState.Error(),
		},
		{
			name:          "Malformed id",
			contractID:    "abc",
			prepareMock:   func() {},
			expectedCode:  http.StatusBadRequest,
			expectedError: "Invalid contract id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.prepareMock()

			req := newRequest("POST", "/api/contracts/"+tt.contractID+"/sign", "", 3, map[string]string{"id": tt.contractID})
			rr := httptest.NewRecorder()

			handler.Sign(rr, req)

			assert.Equal(t, tt.expectedCode, rr.Code)
			if tt.expectedError != "" {
				var resp utils.Response
				err := json.NewDecoder(rr.Body).Decode(&resp)
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedError, resp.Message)
			}
		})
	}
}

func TestGetHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().GetByID(gomock.Any(), 1, 3).Return(&domain.Contract{
		ID: 1, BusinessID: 2, TalentID: 3, Status: domain.ContractActive, TotalAmount: 100000,
	}, nil)

	req := newRequest("GET", "/api/contracts/1", "", 3, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	assert.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, float64(100000), resp["total_amount"])
	assert.Equal(t, domain.ContractActive, resp["status"])
}

func TestCancelAndDisputeHandlers(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Cancel(gomock.Any(), 1, 2).Return(&domain.Contract{
		ID: 1, Status: domain.ContractCancelled,
	}, nil)
	req := newRequest("POST", "/api/contracts/1/cancel", "", 2, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.Cancel(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	service.EXPECT().Dispute(gomock.Any(), 1, 2).Return(nil, contractservice.ErrContractNotFound)
	req = newRequest("POST", "/api/contracts/1/dispute", "", 2, map[string]string{"id": "1"})
	rr = httptest.NewRecorder()
	handler.Dispute(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateHandler(t *testing.T) {
	handler, service := NewMock(t)

	service.EXPECT().Update(gomock.Any(), 1, 2, gomock.Any()).Return(nil, contractservice.ErrInvalidState)
	req := newRequest("PATCH", "/api/contracts/1", `{"total_amount":120000}`, 2, map[string]string{"id": "1"})
	rr := httptest.NewRecorder()
	handler.Update(rr, req)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestUnauthorized(t *testing.T) {
	handler, _ := NewMock(t)

	// no user id in the request context
	req := httptest.NewRequest("POST", "/api/contracts", bytes.NewReader([]byte(`{}`)))
	rr := httptest.NewRecorder()
	handler.Create(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	handlerHTTP "github.com/vasiliy-maslov/shop-backend/internal/handler/http"
	"github.com/vasiliy-maslov/shop-backend/internal/order"
	"github.com/vasiliy-maslov/shop-backend/internal/payment"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, userID uuid.UUID, itemIDs []uuid.UUID) (*order.PlacedOrder, error) {
	args := m.Called(ctx, userID, itemIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.PlacedOrder), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) AttachReceipt(ctx context.Context, userID, orderID uuid.UUID, filename string, size int64, r io.Reader) (*order.Order, error) {
	args := m.Called(ctx, userID, orderID, filename, size, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) TransitionStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error {
	args := m.Called(ctx, orderID, newStatus)
	return args.Error(0)
}

func (m *MockOrderService) BulkTransition(ctx context.Context, orderIDs []uuid.UUID, newStatus order.Status) []order.TransitionResult {
	args := m.Called(ctx, orderIDs, newStatus)
	return args.Get(0).([]order.TransitionResult)
}

func newOrderRouter(handler *handlerHTTP.OrderHandler) chi.Router {
	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(handlerHTTP.RequireUser)
		handler.RegisterRoutes(r)
	})
	handler.RegisterAdminRoutes(router)
	return router
}

func TestOrderHandler_handleCreateOrder_EmptyBodyOrdersWholeCart(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	placed := &order.PlacedOrder{
		Order: &order.Order{
			ID:     uuid.Must(uuid.NewV4()),
			UserID: userID,
			Total:  decimal.RequireFromString("30.00"),
			Status: order.StatusInProgress,
		},
		PaymentQRs: []payment.QR{},
	}

	mockService.On("PlaceOrder", mock.Anything, userID, []uuid.UUID(nil)).Return(placed, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var actual order.PlacedOrder
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	assert.Equal(t, placed.ID, actual.ID)
	assert.Equal(t, order.StatusInProgress, actual.Status)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleCreateOrder_WithItemSubset(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	itemID := uuid.Must(uuid.NewV4())

	placed := &order.PlacedOrder{
		Order:      &order.Order{ID: uuid.Must(uuid.NewV4()), UserID: userID, Status: order.StatusInProgress},
		PaymentQRs: []payment.QR{},
	}
	mockService.On("PlaceOrder", mock.Anything, userID, []uuid.UUID{itemID}).Return(placed, nil).Once()

	jsonBody, err := json.Marshal(handlerHTTP.CreateOrderRequest{ItemIDs: []string{itemID.String()}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleCreateOrder_EmptyCart(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	mockService.On("PlaceOrder", mock.Anything, userID, []uuid.UUID(nil)).
		Return(nil, order.ErrEmptyCart).
		Once()

	req := httptest.NewRequest(http.MethodPost, "/orders", nil)
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var errorResponse map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse["error"], "cart is empty")

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleGetOrder_NotFound(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	mockService.On("GetOrder", mock.Anything, userID, orderID).
		Return(nil, order.ErrOrderNotFound).
		Once()

	req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotFound, rr.Code)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleUploadReceipt_Success(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	receiptPath := "receipts/" + orderID.String() + "_check.jpg"
	updated := &order.Order{
		ID:          orderID,
		UserID:      userID,
		Status:      order.StatusInProgress,
		ReceiptPath: &receiptPath,
	}

	mockService.On("AttachReceipt", mock.Anything, userID, orderID, "check.jpg", mock.AnythingOfType("int64"), mock.Anything).
		Return(updated, nil).
		Once()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("receipt", "check.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/receipt", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	require.NotNil(t, actual.ReceiptPath)
	assert.Equal(t, receiptPath, *actual.ReceiptPath)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleUploadReceipt_MissingFile(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("unrelated", "value"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/receipt", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	mockService.AssertNotCalled(t, "AttachReceipt")
}

func TestOrderHandler_handleUploadReceipt_OrderNotEditable(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	mockService.On("AttachReceipt", mock.Anything, userID, orderID, "check.jpg", mock.AnythingOfType("int64"), mock.Anything).
		Return(nil, order.ErrOrderNotEditable).
		Once()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("receipt", "check.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("jpeg bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/orders/"+orderID.String()+"/receipt", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-User-ID", userID.String())
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusConflict, rr.Code)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleBulkTransition_Success(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	okID := uuid.Must(uuid.NewV4())
	failedID := uuid.Must(uuid.NewV4())

	results := []order.TransitionResult{
		{OrderID: okID, OK: true},
		{OrderID: failedID, OK: false, Error: order.ErrOrderNotEditable.Error()},
	}
	mockService.On("BulkTransition", mock.Anything, []uuid.UUID{okID, failedID}, order.StatusAccepted).
		Return(results).
		Once()

	jsonBody, err := json.Marshal(handlerHTTP.BulkTransitionRequest{
		OrderIDs: []string{okID.String(), failedID.String()},
		Status:   "accepted",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/transition", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var response struct {
		Succeeded int                      `json:"succeeded"`
		Failed    int                      `json:"failed"`
		Results   []order.TransitionResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, 1, response.Succeeded)
	assert.Equal(t, 1, response.Failed)

	diff := cmp.Diff(results, response.Results)
	require.Empty(t, diff, "TransitionResult mismatch (-expected +got):\n%s", diff)

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleBulkTransition_RejectsUnknownStatus(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	jsonBody, err := json.Marshal(handlerHTTP.BulkTransitionRequest{
		OrderIDs: []string{uuid.Must(uuid.NewV4()).String()},
		Status:   "shipped",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/transition", bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var errorResponse handlerHTTP.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse))
	assert.Contains(t, errorResponse.Details, "Status")

	mockService.AssertNotCalled(t, "BulkTransition")
}

func TestOrderHandler_handleBulkTransition_RequiresOrderIDs(t *testing.T) {
	mockService := new(MockOrderService)
	handler := handlerHTTP.NewOrderHandler(mockService)

	req := httptest.NewRequest(http.MethodPost, "/admin/orders/transition", bytes.NewBufferString(`{"status":"accepted"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	newOrderRouter(handler).ServeHTTP(rr, req)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	mockService.AssertNotCalled(t, "BulkTransition")
}

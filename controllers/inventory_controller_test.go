package controllers_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	apperrors "grocery-service/common/errors"
	"grocery-service/controllers"
	"grocery-service/models"
	"grocery-service/routes"
)

// --- Mock services ---

type MockInventoryService struct {
	mock.Mock
}

func (m *MockInventoryService) List(ctx context.Context, caller models.Identity) ([]models.InventoryItem, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}
func (m *MockInventoryService) ListLowStock(ctx context.Context, caller models.Identity) ([]models.InventoryItem, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.InventoryItem), args.Error(1)
}
func (m *MockInventoryService) Create(ctx context.Context, caller models.Identity, req models.CreateItemRequest) (*models.InventoryItem, error) {
	args := m.Called(ctx, caller, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}
func (m *MockInventoryService) Update(ctx context.Context, caller models.Identity, itemID string, req models.UpdateItemRequest) (*models.InventoryItem, error) {
	args := m.Called(ctx, caller, itemID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}
func (m *MockInventoryService) AdjustQuantity(ctx context.Context, caller models.Identity, itemID string, delta int) (*models.InventoryItem, error) {
	args := m.Called(ctx, caller, itemID, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}
func (m *MockInventoryService) Delete(ctx context.Context, caller models.Identity, itemID string) (*models.InventoryItem, error) {
	args := m.Called(ctx, caller, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.InventoryItem), args.Error(1)
}

type MockBulkService struct {
	mock.Mock
}

func (m *MockBulkService) Reconcile(ctx context.Context, caller models.Identity, rows []models.BulkImportRow) (*models.BulkReconcileResult, error) {
	args := m.Called(ctx, caller, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BulkReconcileResult), args.Error(1)
}

// --- Router helpers ---

func newTestRouter(inv controllers.InventoryServiceAPI, bulk controllers.BulkImportServiceAPI, orders controllers.OrderServiceAPI) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cache := controllers.NewCacheManager(nil, nil)
	routes.RegisterRoutes(r,
		controllers.NewInventoryController(inv, cache),
		controllers.NewBulkImportHandler(bulk, nil, cache),
		controllers.NewOrderController(orders),
	)
	return r
}

func authedRequest(method, path string, body []byte, user, role string) *http.Request {
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	if role != "" {
		req.Header.Set("X-User-Role", role)
	}
	return req
}

// --- Tests ---

func TestIdentityEnforcement(t *testing.T) {
	router := newTestRouter(new(MockInventoryService), new(MockBulkService), new(MockOrderService))

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/inventory"},
		{http.MethodGet, "/inventory/low-stock"},
		{http.MethodPost, "/inventory"},
		{http.MethodPost, "/inventory/item-1/adjust"},
		{http.MethodGet, "/orders"},
		{http.MethodPost, "/orders"},
	}

	for _, ep := range endpoints {
		req := authedRequest(ep.method, ep.path, []byte(`{}`), "", "")
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code, "%s %s", ep.method, ep.path)
		assert.Contains(t, recorder.Body.String(), "unauthorized")
	}
}

func TestListItems(t *testing.T) {
	t.Run("Success - 200 OK", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("List", mock.Anything, models.Identity{ID: "u1", Role: "user"}).
			Return([]models.InventoryItem{{ID: "item-1", Name: "Apples"}}, nil).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/inventory", nil, "u1", "user"))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "Apples")
		mockService.AssertExpectations(t)
	})

	t.Run("Role defaults to user when header missing", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("List", mock.Anything, models.Identity{ID: "u1", Role: "user"}).
			Return([]models.InventoryItem{}, nil).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodGet, "/inventory", nil, "u1", ""))

		assert.Equal(t, http.StatusOK, recorder.Code)
		mockService.AssertExpectations(t)
	})
}

func TestCreateItemEndpoint(t *testing.T) {
	t.Run("Success - 201 Created", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(&models.InventoryItem{ID: "item-1", Name: "Apples"}, nil).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		payload := `{"name": "Apples", "description": "Fresh", "price": "2.99", "quantity": 100, "category": "Fruits"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/inventory", []byte(payload), "u1", "user"))

		assert.Equal(t, http.StatusCreated, recorder.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - duplicate name - 409 Conflict", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.DuplicateName("Apples")).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		payload := `{"name": "Apples", "description": "Fresh", "category": "Fruits"}`
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/inventory", []byte(payload), "u1", "user"))

		assert.Equal(t, http.StatusConflict, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "duplicate_name")
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - validation - 400 with field errors", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperrors.Validation("invalid inventory item",
				apperrors.FieldError{Field: "name", Message: "name is required"})).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/inventory", []byte(`{}`), "u1", "user"))

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "name is required")
		mockService.AssertExpectations(t)
	})
}

func TestAdjustQuantityEndpoint(t *testing.T) {
	t.Run("Success - 200 OK", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("AdjustQuantity", mock.Anything, mock.Anything, "item-1", -3).
			Return(&models.InventoryItem{ID: "item-1", Quantity: 7}, nil).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/inventory/item-1/adjust", []byte(`{"delta": -3}`), "u1", "user"))

		assert.Equal(t, http.StatusOK, recorder.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - would go negative - 409 Conflict", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("AdjustQuantity", mock.Anything, mock.Anything, "item-1", -50).
			Return(nil, apperrors.InvalidAdjustment("adjustment of -50 would reduce quantity below zero")).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/inventory/item-1/adjust", []byte(`{"delta": -50}`), "u1", "user"))

		assert.Equal(t, http.StatusConflict, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "invalid_adjustment")
		mockService.AssertExpectations(t)
	})

	t.Run("Failure - datastore down - 503", func(t *testing.T) {
		mockService := new(MockInventoryService)
		mockService.On("AdjustQuantity", mock.Anything, mock.Anything, "item-1", 1).
			Return(nil, apperrors.Unavailable(context.DeadlineExceeded)).Once()

		router := newTestRouter(mockService, new(MockBulkService), new(MockOrderService))
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, authedRequest(http.MethodPost, "/inventory/item-1/adjust", []byte(`{"delta": 1}`), "u1", "user"))

		assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		mockService.AssertExpectations(t)
	})
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "grocery-service/common/errors"
	"grocery-service/kafka"
	"grocery-service/models"
	awspkg "grocery-service/pkg/aws"
	"grocery-service/repository"
)

// PaymentPending is the initial payment status on a new order.
const PaymentPending = "pending"

// OrderService owns the order lifecycle: creation with price snapshots, the
// status state machine, owner-scoped reads and the administrative override.
type OrderService struct {
	orderRepo     repository.OrderRepository
	inventoryRepo repository.InventoryRepository
	producer      kafka.ProducerAPI
	snsClient     awspkg.SNSPublisher
	snsTopicArn   string
	metrics       *awspkg.MetricsClient
	logger        *zap.Logger
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	inventoryRepo repository.InventoryRepository,
	producer kafka.ProducerAPI,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	metrics *awspkg.MetricsClient,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		inventoryRepo: inventoryRepo,
		producer:      producer,
		snsClient:     snsClient,
		snsTopicArn:   snsTopicArn,
		metrics:       metrics,
		logger:        logger,
	}
}

// Create places a new order in state pending. Unit prices are copied from the
// referenced inventory items at this moment and never re-read; the stored
// total is Σ quantity × unit price. Inventory quantities are not decremented
// here — stock deduction is a separate, caller-initiated adjustment.
func (s *OrderService) Create(ctx context.Context, caller models.Identity, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, apperrors.Validation("at least one item is required",
			apperrors.FieldError{Field: "items", Message: "must not be empty"})
	}

	var lineItems []models.OrderItem
	var total float64
	for i, reqItem := range req.Items {
		if reqItem.Quantity < 1 {
			return nil, apperrors.Validation("invalid order item",
				apperrors.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be at least 1"})
		}

		product, err := s.inventoryRepo.FindByID(ctx, caller.ID, reqItem.ProductID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.Validation("unknown product reference",
					apperrors.FieldError{Field: fmt.Sprintf("items[%d].productId", i), Message: "no such inventory item"})
			}
			return nil, mapRepoErr(err, "inventory item")
		}

		lineItems = append(lineItems, models.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Quantity:  reqItem.Quantity,
			UnitPrice: product.Price,
		})
		total += float64(reqItem.Quantity) * product.Price
	}

	now := time.Now().UTC()
	order := &models.Order{
		ID:              uuid.NewString(),
		UserID:          caller.ID,
		Items:           lineItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   PaymentPending,
		TotalAmount:     total,
		Status:          models.StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.orderRepo.Insert(ctx, order); err != nil {
		return nil, mapRepoErr(err, "order")
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", caller.ID),
		zap.Float64("total", order.TotalAmount))
	s.recordOrderMetric(awspkg.MetricOrdersCreated)
	s.publishEvent(kafka.EventOrderCreated, order)

	return order, nil
}

// Get returns one order. Non-admin callers only see their own.
func (s *OrderService) Get(ctx context.Context, caller models.Identity, orderID string) (*models.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	var order *models.Order
	var err error
	if caller.IsAdmin() {
		order, err = s.orderRepo.FindByID(ctx, orderID)
	} else {
		order, err = s.orderRepo.FindByIDAndUser(ctx, orderID, caller.ID)
	}
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	return order, nil
}

// List returns all orders for administrators and the caller's own otherwise.
func (s *OrderService) List(ctx context.Context, caller models.Identity) ([]models.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	if caller.IsAdmin() {
		orders, err := s.orderRepo.FindAll(ctx)
		if err != nil {
			return nil, mapRepoErr(err, "order")
		}
		return orders, nil
	}

	orders, err := s.orderRepo.FindByUser(ctx, caller.ID)
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}
	return orders, nil
}

// SetStatusAdmin overwrites the status with any of the five enumerated
// values, without transition validation. This administrative override is
// deliberately a distinct operation so the forward-only state machine stays
// checkable on the non-admin paths.
func (s *OrderService) SetStatusAdmin(ctx context.Context, caller models.Identity, orderID string, status string) (*models.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		return nil, apperrors.Forbidden("only administrators may set order status")
	}

	newStatus := models.OrderStatus(status)
	if !newStatus.Valid() {
		return nil, apperrors.Validation("invalid order status",
			apperrors.FieldError{Field: "status", Message: fmt.Sprintf("%q is not a valid status", status)})
	}

	order, err := s.orderRepo.UpdateStatus(ctx, orderID, newStatus)
	if err != nil {
		return nil, mapRepoErr(err, "order")
	}

	s.logger.Info("Order status overwritten",
		zap.String("order_id", orderID),
		zap.String("status", status),
		zap.String("admin_id", caller.ID))
	s.recordOrderMetric(awspkg.MetricOrderStatusMoves)
	s.publishEvent(kafka.EventOrderStatusChanged, order)

	return order, nil
}

// Cancel transitions the caller's own pending order to cancelled. Any other
// state rejects with InvalidState and leaves the order unchanged.
func (s *OrderService) Cancel(ctx context.Context, caller models.Identity, orderID string) (*models.Order, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.CancelIfPending(ctx, orderID, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.InvalidState("only pending orders can be cancelled")
		}
		return nil, mapRepoErr(err, "order")
	}

	s.logger.Info("Order cancelled",
		zap.String("order_id", orderID),
		zap.String("user_id", caller.ID))
	s.recordOrderMetric(awspkg.MetricOrdersCancelled)
	s.publishEvent(kafka.EventOrderCancelled, order)

	return order, nil
}

// publishEvent sends the lifecycle event to Kafka and SNS, both best-effort:
// a broker outage never fails the request.
func (s *OrderService) publishEvent(eventType string, order *models.Order) {
	event := kafka.OrderEvent{
		Type:      eventType,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    order.Status,
		Total:     order.TotalAmount,
		Timestamp: time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if s.producer != nil {
			if err := s.producer.PublishOrderEvent(ctx, event); err != nil {
				s.logger.Warn("Kafka publish failed", zap.String("order_id", order.ID), zap.Error(err))
			}
		}
		if s.snsClient != nil && s.snsTopicArn != "" {
			payload, err := json.Marshal(event)
			if err == nil {
				if err := s.snsClient.Publish(ctx, s.snsTopicArn, payload); err != nil {
					s.logger.Warn("SNS publish failed", zap.String("order_id", order.ID), zap.Error(err))
				}
			}
		}
	}()
}

func (s *OrderService) recordOrderMetric(metric string) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordCount(mctx, metric, map[string]string{"Service": "grocery-service"})
	}()
}

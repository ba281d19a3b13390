package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	apperrors "grocery-service/common/errors"
	"grocery-service/models"
	awspkg "grocery-service/pkg/aws"
	"grocery-service/repository"
)

// InventoryService owns the inventory ledger rules: per-owner name
// uniqueness, quantity non-negativity, low-stock derivation and the atomic
// quantity adjustment path.
type InventoryService struct {
	repo    repository.InventoryRepository
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewInventoryService(repo repository.InventoryRepository, metrics *awspkg.MetricsClient, logger *zap.Logger) *InventoryService {
	return &InventoryService{repo: repo, metrics: metrics, logger: logger}
}

// requireIdentity treats a missing identity as a boundary precondition
// violation, not a domain error.
func requireIdentity(caller models.Identity) error {
	if caller.ID == "" {
		return apperrors.Unauthorized("missing identity context")
	}
	return nil
}

// List returns the caller's items, most recently created first.
func (s *InventoryService) List(ctx context.Context, caller models.Identity) ([]models.InventoryItem, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	items, err := s.repo.FindByOwner(ctx, caller.ID)
	if err != nil {
		return nil, mapRepoErr(err, "inventory item")
	}
	return items, nil
}

// ListLowStock returns the caller's items with quantity <= threshold. The
// boundary is inclusive and the predicate is evaluated by the datastore.
func (s *InventoryService) ListLowStock(ctx context.Context, caller models.Identity) ([]models.InventoryItem, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}
	items, err := s.repo.FindLowStock(ctx, caller.ID)
	if err != nil {
		return nil, mapRepoErr(err, "inventory item")
	}
	s.recordCount(awspkg.MetricLowStockReads)
	return items, nil
}

// Create validates and inserts a new item. Numeric fields coerce (absent or
// non-numeric → 0); name and description are required strings.
func (s *InventoryService) Create(ctx context.Context, caller models.Identity, req models.CreateItemRequest) (*models.InventoryItem, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	description := strings.TrimSpace(req.Description)
	price := models.CoerceFloat(req.Price)
	quantity := models.CoerceInt(req.Quantity)
	threshold := models.CoerceInt(req.Threshold)
	unit := strings.TrimSpace(req.Unit)
	category := strings.TrimSpace(req.Category)

	var fields []apperrors.FieldError
	if name == "" {
		fields = append(fields, apperrors.FieldError{Field: "name", Message: "name is required"})
	}
	if description == "" {
		fields = append(fields, apperrors.FieldError{Field: "description", Message: "description is required"})
	}
	if category == "" {
		fields = append(fields, apperrors.FieldError{Field: "category", Message: "category is required"})
	}
	if price < 0 {
		fields = append(fields, apperrors.FieldError{Field: "price", Message: "price cannot be negative"})
	}
	if quantity < 0 {
		fields = append(fields, apperrors.FieldError{Field: "quantity", Message: "quantity cannot be negative"})
	}
	if threshold < 0 {
		fields = append(fields, apperrors.FieldError{Field: "threshold", Message: "threshold cannot be negative"})
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid inventory item", fields...)
	}
	if unit == "" {
		unit = models.DefaultUnit
	}

	now := time.Now().UTC()
	item := &models.InventoryItem{
		ID:             uuid.NewString(),
		Name:           name,
		Description:    description,
		Price:          price,
		Quantity:       quantity,
		Threshold:      threshold,
		Unit:           unit,
		Category:       category,
		CreatedBy:      caller.ID,
		LastModifiedBy: caller.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, item); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.DuplicateName(name)
		}
		return nil, mapRepoErr(err, "inventory item")
	}

	s.logger.Info("Inventory item created",
		zap.String("item_id", item.ID),
		zap.String("owner_id", caller.ID),
		zap.String("name", item.Name))
	s.recordCount(awspkg.MetricItemsCreated)
	return item, nil
}

// Update applies a partial update. Only quantity, threshold, unit and
// category are mutable through this path.
func (s *InventoryService) Update(ctx context.Context, caller models.Identity, itemID string, req models.UpdateItemRequest) (*models.InventoryItem, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	var fields []apperrors.FieldError
	updates := bson.M{}
	if req.Quantity != nil {
		if *req.Quantity < 0 {
			fields = append(fields, apperrors.FieldError{Field: "quantity", Message: "quantity cannot be negative"})
		}
		updates["quantity"] = *req.Quantity
	}
	if req.Threshold != nil {
		if *req.Threshold < 0 {
			fields = append(fields, apperrors.FieldError{Field: "threshold", Message: "threshold cannot be negative"})
		}
		updates["threshold"] = *req.Threshold
	}
	if req.Unit != nil {
		updates["unit"] = strings.TrimSpace(*req.Unit)
	}
	if req.Category != nil {
		updates["category"] = strings.TrimSpace(*req.Category)
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation("invalid inventory update", fields...)
	}
	if len(updates) == 0 {
		return nil, apperrors.Validation("no updatable fields provided")
	}
	updates["last_modified_by"] = caller.ID

	item, err := s.repo.Update(ctx, caller.ID, itemID, updates)
	if err != nil {
		return nil, mapRepoErr(err, "inventory item")
	}
	return item, nil
}

// AdjustQuantity is the sole quantity read-modify-write path. The repository
// performs it as a single conditional update, so concurrent adjustments
// serialize per item and an adjustment below zero leaves the item unchanged.
func (s *InventoryService) AdjustQuantity(ctx context.Context, caller models.Identity, itemID string, delta int) (*models.InventoryItem, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	item, err := s.repo.AdjustQuantity(ctx, caller.ID, itemID, delta, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperrors.InvalidAdjustment(
				fmt.Sprintf("adjustment of %d would reduce quantity below zero", delta))
		}
		return nil, mapRepoErr(err, "inventory item")
	}

	s.recordCount(awspkg.MetricItemsAdjusted)
	return item, nil
}

// Delete removes an item. The owner may delete their own items; an
// administrator may delete anyone's.
func (s *InventoryService) Delete(ctx context.Context, caller models.Identity, itemID string) (*models.InventoryItem, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	ownerScope := caller.ID
	if caller.IsAdmin() {
		ownerScope = ""
	}

	item, err := s.repo.Delete(ctx, ownerScope, itemID)
	if err != nil {
		return nil, mapRepoErr(err, "inventory item")
	}

	s.logger.Info("Inventory item deleted",
		zap.String("item_id", itemID),
		zap.String("deleted_by", caller.ID),
		zap.String("role", caller.Role))
	return item, nil
}

func (s *InventoryService) recordCount(metric string) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.metrics.RecordCount(mctx, metric, map[string]string{"Service": "grocery-service"})
	}()
}

// mapRepoErr translates repository sentinels into the application taxonomy.
func mapRepoErr(err error, entity string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound(entity)
	case errors.Is(err, repository.ErrUnavailable):
		return apperrors.Unavailable(err)
	default:
		return apperrors.Internal(err)
	}
}

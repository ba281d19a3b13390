package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"grocery-service/kafka"
	"grocery-service/models"
	"grocery-service/repository"
)

// fakeInventoryRepository is an in-memory InventoryRepository with the same
// conditional-update contract as the Mongo implementation.
type fakeInventoryRepository struct {
	mu    sync.Mutex
	items map[string]*models.InventoryItem

	failWith error // when set, every call returns this error
}

func newFakeInventoryRepository() *fakeInventoryRepository {
	return &fakeInventoryRepository{items: make(map[string]*models.InventoryItem)}
}

func (f *fakeInventoryRepository) EnsureIndexes(ctx context.Context) error {
	return f.failWith
}

func (f *fakeInventoryRepository) FindByOwner(ctx context.Context, ownerID string) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	out := []models.InventoryItem{}
	for _, it := range f.items {
		if it.CreatedBy == ownerID {
			cp := *it
			cp.ComputeDerived()
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepository) FindLowStock(ctx context.Context, ownerID string) ([]models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	out := []models.InventoryItem{}
	for _, it := range f.items {
		if it.CreatedBy == ownerID && it.Quantity <= it.Threshold {
			cp := *it
			cp.ComputeDerived()
			out = append(out, cp)
		}
	}
	return out, nil
}

func (f *fakeInventoryRepository) FindByID(ctx context.Context, ownerID, id string) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	return f.lookupLocked(ownerID, id)
}

func (f *fakeInventoryRepository) lookupLocked(ownerID, id string) (*models.InventoryItem, error) {
	it, ok := f.items[id]
	if !ok || (ownerID != "" && it.CreatedBy != ownerID) {
		return nil, repository.ErrNotFound
	}
	cp := *it
	cp.ComputeDerived()
	return &cp, nil
}

func (f *fakeInventoryRepository) Insert(ctx context.Context, item *models.InventoryItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}

	for _, existing := range f.items {
		if existing.CreatedBy == item.CreatedBy && existing.Name == item.Name {
			return repository.ErrDuplicate
		}
	}
	cp := *item
	f.items[item.ID] = &cp
	return nil
}

func (f *fakeInventoryRepository) Update(ctx context.Context, ownerID, id string, updates bson.M) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	it, ok := f.items[id]
	if !ok || it.CreatedBy != ownerID {
		return nil, repository.ErrNotFound
	}
	for k, v := range updates {
		switch k {
		case "quantity":
			it.Quantity = v.(int)
		case "threshold":
			it.Threshold = v.(int)
		case "unit":
			it.Unit = v.(string)
		case "category":
			it.Category = v.(string)
		case "last_modified_by":
			it.LastModifiedBy = v.(string)
		}
	}
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	cp.ComputeDerived()
	return &cp, nil
}

func (f *fakeInventoryRepository) AdjustQuantity(ctx context.Context, ownerID, id string, delta int, modifiedBy string) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	it, ok := f.items[id]
	if !ok || it.CreatedBy != ownerID {
		return nil, repository.ErrNotFound
	}
	if it.Quantity+delta < 0 {
		return nil, repository.ErrConflict
	}
	it.Quantity += delta
	it.LastModifiedBy = modifiedBy
	it.UpdatedAt = time.Now().UTC()
	cp := *it
	cp.ComputeDerived()
	return &cp, nil
}

func (f *fakeInventoryRepository) Delete(ctx context.Context, ownerID, id string) (*models.InventoryItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}

	it, ok := f.items[id]
	if !ok || (ownerID != "" && it.CreatedBy != ownerID) {
		return nil, repository.ErrNotFound
	}
	delete(f.items, id)
	cp := *it
	cp.ComputeDerived()
	return &cp, nil
}

func (f *fakeInventoryRepository) UpsertByName(ctx context.Context, ownerID string, row models.BulkImportRow, modifiedBy string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}

	now := time.Now().UTC()
	name := strings.TrimSpace(row.Name)
	for _, it := range f.items {
		if it.CreatedBy == ownerID && it.Name == name {
			it.Description = row.Description
			it.Price = row.Price
			it.Quantity = row.Quantity
			it.Threshold = row.Threshold
			it.Unit = row.Unit
			it.Category = row.Category
			it.LastModifiedBy = modifiedBy
			it.UpdatedAt = now
			return nil
		}
	}
	id := uuid.NewString()
	f.items[id] = &models.InventoryItem{
		ID:             id,
		Name:           name,
		Description:    row.Description,
		Price:          row.Price,
		Quantity:       row.Quantity,
		Threshold:      row.Threshold,
		Unit:           row.Unit,
		Category:       row.Category,
		CreatedBy:      ownerID,
		LastModifiedBy: modifiedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

// seed inserts an item directly, bypassing validation.
func (f *fakeInventoryRepository) seed(item models.InventoryItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := item
	f.items[item.ID] = &cp
}

// fakeOrderRepository is an in-memory OrderRepository.
type fakeOrderRepository struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{orders: make(map[string]*models.Order)}
}

func (f *fakeOrderRepository) Insert(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *order
	f.orders[order.ID] = &cp
	return nil
}

func (f *fakeOrderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepository) FindByIDAndUser(ctx context.Context, id, userID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Order{}
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepository) CancelIfPending(ctx context.Context, id, userID string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok || o.UserID != userID {
		return nil, repository.ErrNotFound
	}
	if o.Status != models.StatusPending {
		return nil, repository.ErrConflict
	}
	o.Status = models.StatusCancelled
	o.UpdatedAt = time.Now().UTC()
	cp := *o
	return &cp, nil
}

// fakeProducer records published event types.
type fakeProducer struct {
	mu     sync.Mutex
	events []kafka.OrderEvent
}

func (p *fakeProducer) PublishOrderEvent(ctx context.Context, event kafka.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeProducer) Close() error { return nil }

// recorded snapshots the published events; publishing is asynchronous so
// readers poll this.
func (p *fakeProducer) recorded() []kafka.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.OrderEvent(nil), p.events...)
}

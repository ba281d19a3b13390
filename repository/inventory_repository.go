package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"grocery-service/database"
	"grocery-service/models"
)

var (
	// ErrNotFound means no record matched the id (or it belongs to someone else).
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate means the (name, owner) uniqueness constraint was violated.
	ErrDuplicate = errors.New("duplicate name for owner")
	// ErrConflict means a conditional update was rejected by the current state.
	ErrConflict = errors.New("conditional update rejected")
	// ErrUnavailable means the datastore could not be reached in time.
	ErrUnavailable = errors.New("datastore unavailable")
)

// InventoryRepository defines the interface for inventory data access.
type InventoryRepository interface {
	EnsureIndexes(ctx context.Context) error
	FindByOwner(ctx context.Context, ownerID string) ([]models.InventoryItem, error)
	FindLowStock(ctx context.Context, ownerID string) ([]models.InventoryItem, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.InventoryItem, error)
	Insert(ctx context.Context, item *models.InventoryItem) error
	Update(ctx context.Context, ownerID, id string, updates bson.M) (*models.InventoryItem, error)
	AdjustQuantity(ctx context.Context, ownerID, id string, delta int, modifiedBy string) (*models.InventoryItem, error)
	Delete(ctx context.Context, ownerID, id string) (*models.InventoryItem, error)
	UpsertByName(ctx context.Context, ownerID string, row models.BulkImportRow, modifiedBy string) error
}

// MongoInventoryRepository implements InventoryRepository on a MongoDB
// collection keyed by generated uuid ids.
type MongoInventoryRepository struct {
	collection *mongo.Collection
}

// NewMongoInventoryRepository creates a repository over db's "inventory"
// collection.
func NewMongoInventoryRepository(db *mongo.Database) *MongoInventoryRepository {
	return &MongoInventoryRepository{collection: db.Collection("inventory")}
}

// EnsureIndexes creates the unique (name, created_by) index. Safe to call on
// every startup.
func (r *MongoInventoryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "created_by", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create inventory indexes: %w", mapErr(err))
	}
	return nil
}

func (r *MongoInventoryRepository) FindByOwner(ctx context.Context, ownerID string) ([]models.InventoryItem, error) {
	return r.findItems(ctx, bson.M{"created_by": ownerID})
}

// FindLowStock evaluates quantity <= threshold server-side so the result is
// consistent under concurrent mutation.
func (r *MongoInventoryRepository) FindLowStock(ctx context.Context, ownerID string) ([]models.InventoryItem, error) {
	filter := bson.M{
		"created_by": ownerID,
		"$expr":      bson.M{"$lte": bson.A{"$quantity", "$threshold"}},
	}
	return r.findItems(ctx, filter)
}

func (r *MongoInventoryRepository) findItems(ctx context.Context, filter bson.M) ([]models.InventoryItem, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, mapErr(err)
	}
	defer cursor.Close(ctx)

	items := []models.InventoryItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, mapErr(err)
	}
	for i := range items {
		items[i].ComputeDerived()
	}
	return items, nil
}

func (r *MongoInventoryRepository) FindByID(ctx context.Context, ownerID, id string) (*models.InventoryItem, error) {
	filter := bson.M{"_id": id}
	if ownerID != "" {
		filter["created_by"] = ownerID
	}

	var item models.InventoryItem
	if err := r.collection.FindOne(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mapErr(err)
	}
	item.ComputeDerived()
	return &item, nil
}

func (r *MongoInventoryRepository) Insert(ctx context.Context, item *models.InventoryItem) error {
	if _, err := r.collection.InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return mapErr(err)
	}
	item.ComputeDerived()
	return nil
}

func (r *MongoInventoryRepository) Update(ctx context.Context, ownerID, id string, updates bson.M) (*models.InventoryItem, error) {
	updates["updated_at"] = time.Now().UTC()
	filter := bson.M{"_id": id, "created_by": ownerID}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item models.InventoryItem
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": updates}, opts).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mapErr(err)
	}
	item.ComputeDerived()
	return &item, nil
}

// AdjustQuantity applies delta as one conditional update: the filter admits
// the document only when the resulting quantity stays non-negative, so two
// concurrent adjustments can never lose an update or observe a negative
// value. Returns ErrConflict when the condition rejects an existing item.
func (r *MongoInventoryRepository) AdjustQuantity(ctx context.Context, ownerID, id string, delta int, modifiedBy string) (*models.InventoryItem, error) {
	filter := bson.M{
		"_id":        id,
		"created_by": ownerID,
		"quantity":   bson.M{"$gte": -delta},
	}
	update := bson.M{
		"$inc": bson.M{"quantity": delta},
		"$set": bson.M{"last_modified_by": modifiedBy, "updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var item models.InventoryItem
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if err == nil {
		item.ComputeDerived()
		return &item, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, mapErr(err)
	}

	// No match: either the item is missing or the adjustment would go negative.
	if _, lookupErr := r.FindByID(ctx, ownerID, id); lookupErr != nil {
		return nil, lookupErr
	}
	return nil, ErrConflict
}

func (r *MongoInventoryRepository) Delete(ctx context.Context, ownerID, id string) (*models.InventoryItem, error) {
	filter := bson.M{"_id": id}
	if ownerID != "" {
		filter["created_by"] = ownerID
	}

	var item models.InventoryItem
	if err := r.collection.FindOneAndDelete(ctx, filter).Decode(&item); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, mapErr(err)
	}
	item.ComputeDerived()
	return &item, nil
}

// UpsertByName is the reconciler's per-row operation: create-or-replace keyed
// by (trimmed name, owner) as a single indivisible update, so it composes with
// the uniqueness index without ever raising a duplicate error.
func (r *MongoInventoryRepository) UpsertByName(ctx context.Context, ownerID string, row models.BulkImportRow, modifiedBy string) error {
	now := time.Now().UTC()
	filter := bson.M{"name": strings.TrimSpace(row.Name), "created_by": ownerID}
	update := bson.M{
		"$set": bson.M{
			"description":      row.Description,
			"price":            row.Price,
			"quantity":         row.Quantity,
			"threshold":        row.Threshold,
			"unit":             row.Unit,
			"category":         row.Category,
			"last_modified_by": modifiedBy,
			"updated_at":       now,
		},
		"$setOnInsert": bson.M{
			"_id":        uuid.NewString(),
			"created_by": ownerID,
			"created_at": now,
		},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return mapErr(err)
	}
	return nil
}

// mapErr translates transient driver failures into ErrUnavailable so callers
// can distinguish retryable infrastructure errors from domain errors.
func mapErr(err error) error {
	if database.IsUnavailable(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

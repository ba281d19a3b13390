// Command seed loads a starter inventory into MongoDB. Rows are upserted by
// (name, owner), so re-running it is safe.
package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"grocery-service/database"
	"grocery-service/models"
	"grocery-service/repository"
)

var seedItems = []models.BulkImportRow{
	{Name: "Apples", Description: "Fresh red apples", Price: 2.99, Quantity: 100, Threshold: 20, Unit: "kg", Category: "Fruits"},
	{Name: "Milk", Description: "Fresh whole milk", Price: 3.99, Quantity: 50, Threshold: 10, Unit: "L", Category: "Dairy"},
	{Name: "Bread", Description: "Fresh baked bread", Price: 2.49, Quantity: 75, Threshold: 15, Unit: "pieces", Category: "Bakery"},
	{Name: "Eggs", Description: "Farm fresh eggs", Price: 4.99, Quantity: 60, Threshold: 12, Unit: "dozen", Category: "Dairy"},
	{Name: "Rice", Description: "Long grain rice", Price: 5.99, Quantity: 80, Threshold: 15, Unit: "kg", Category: "Grains"},
}

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()

	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "grocery"
	}
	ownerID := os.Getenv("SEED_OWNER_ID")
	if ownerID == "" {
		logger.Fatal("SEED_OWNER_ID is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	manager := database.NewManager(database.Options{URI: uri, Database: dbName}, logger)
	if err := manager.Start(ctx); err != nil {
		logger.Fatal("MongoDB connection failed", zap.Error(err))
	}
	defer manager.Close(context.Background())

	repo := repository.NewMongoInventoryRepository(manager.Database())
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}

	for _, row := range seedItems {
		if err := repo.UpsertByName(ctx, ownerID, row, ownerID); err != nil {
			logger.Fatal("Seed upsert failed", zap.String("name", row.Name), zap.Error(err))
		}
		logger.Info("Seeded item", zap.String("name", row.Name))
	}

	logger.Info("Seeding completed", zap.Int("items", len(seedItems)), zap.String("owner_id", ownerID))
}

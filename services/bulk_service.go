package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "grocery-service/common/errors"
	"grocery-service/models"
	awspkg "grocery-service/pkg/aws"
	"grocery-service/repository"
)

// BulkImportService reconciles a parsed row set against the caller's
// inventory. Each row is one indivisible upsert keyed by (trimmed name,
// owner); the batch as a whole is not atomic but re-running it converges to
// the same end state.
type BulkImportService struct {
	repo    repository.InventoryRepository
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewBulkImportService(repo repository.InventoryRepository, metrics *awspkg.MetricsClient, logger *zap.Logger) *BulkImportService {
	return &BulkImportService{repo: repo, metrics: metrics, logger: logger}
}

// Reconcile applies rows sequentially in input order; a later row for the
// same name overwrites an earlier one's effect. Rows that fail validation are
// skipped and counted, never aborting the batch. Returns the applied count
// and the owner's full inventory snapshot.
func (s *BulkImportService) Reconcile(ctx context.Context, caller models.Identity, rows []models.BulkImportRow) (*models.BulkReconcileResult, error) {
	if err := requireIdentity(caller); err != nil {
		return nil, err
	}

	result := &models.BulkReconcileResult{}
	for i, row := range rows {
		rowNum := i + 1

		row.Name = strings.TrimSpace(row.Name)
		if row.Name == "" {
			result.SkippedCount++
			result.Errors = append(result.Errors, models.RowError{Row: rowNum, Error: "name is required"})
			continue
		}
		if row.Price < 0 || row.Quantity < 0 || row.Threshold < 0 {
			result.SkippedCount++
			result.Errors = append(result.Errors, models.RowError{Row: rowNum, Error: "negative price, quantity or threshold"})
			continue
		}
		if row.Unit == "" {
			row.Unit = models.DefaultUnit
		}

		if err := s.repo.UpsertByName(ctx, caller.ID, row, caller.ID); err != nil {
			// Infrastructure failure mid-batch: stop here. The batch is safely
			// re-runnable, so the caller retries the whole row set.
			if errors.Is(err, repository.ErrUnavailable) {
				return nil, apperrors.Unavailable(err)
			}
			result.SkippedCount++
			result.Errors = append(result.Errors, models.RowError{Row: rowNum, Error: err.Error()})
			continue
		}
		result.ProcessedCount++
	}

	inventory, err := s.repo.FindByOwner(ctx, caller.ID)
	if err != nil {
		return nil, mapRepoErr(err, "inventory item")
	}
	result.Inventory = inventory

	s.logger.Info("Bulk reconciliation finished",
		zap.String("owner_id", caller.ID),
		zap.Int("processed", result.ProcessedCount),
		zap.Int("skipped", result.SkippedCount))
	s.recordBulkMetrics(result)

	return result, nil
}

func (s *BulkImportService) recordBulkMetrics(result *models.BulkReconcileResult) {
	if !s.metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		dims := map[string]string{"Service": "grocery-service"}
		_ = s.metrics.RecordValue(mctx, awspkg.MetricBulkRowsApplied, float64(result.ProcessedCount), dims)
		_ = s.metrics.RecordValue(mctx, awspkg.MetricBulkRowsSkipped, float64(result.SkippedCount), dims)
	}()
}

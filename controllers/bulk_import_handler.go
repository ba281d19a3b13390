package controllers

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "grocery-service/common/errors"
	"grocery-service/middleware"
	"grocery-service/models"
)

// MaxBulkImportFileSize caps uploaded CSV files at 10MB.
const MaxBulkImportFileSize = 10 << 20

const bulkJobKeyPrefix = "bulk_import:job:"

// BulkImportHandler accepts inventory row sets as CSV uploads or JSON arrays
// and reconciles them against the caller's inventory, synchronously or as a
// Redis-tracked background job.
type BulkImportHandler struct {
	service BulkImportServiceAPI
	redis   *redis.Client
	cache   *CacheManager
	timeout time.Duration
}

func NewBulkImportHandler(service BulkImportServiceAPI, redisClient *redis.Client, cache *CacheManager) *BulkImportHandler {
	return &BulkImportHandler{
		service: service,
		redis:   redisClient,
		cache:   cache,
		timeout: DefaultContextTimeout,
	}
}

// ImportInventory reconciles a row set into the caller's inventory.
// POST /inventory/bulk-import        (multipart CSV or JSON array)
// POST /inventory/bulk-import?async=true
func (h *BulkImportHandler) ImportInventory(c *gin.Context) {
	caller := middleware.GetIdentity(c)

	rows, err := h.parseRows(c)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	async := strings.ToLower(strings.TrimSpace(c.Query("async"))) == "true"
	if async {
		h.handleAsyncImport(c, caller, rows)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	result, err := h.service.Reconcile(ctx, caller, rows)
	if err != nil {
		apperrors.Respond(c, err)
		return
	}

	if result.ProcessedCount > 0 {
		if err := h.cache.Invalidate(ctx); err != nil {
			zap.L().Error("Failed to invalidate cache after bulk import", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, result)
}

// GetImportJobStatus returns the status of a queued import job.
// GET /inventory/bulk-import/jobs/:id
func (h *BulkImportHandler) GetImportJobStatus(c *gin.Context) {
	jobID := strings.TrimSpace(c.Param("id"))
	if jobID == "" {
		apperrors.Respond(c, apperrors.Validation("job id is required"))
		return
	}

	if h.redis == nil {
		apperrors.Respond(c, apperrors.Unavailable(fmt.Errorf("job tracking is not configured")))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	val, err := h.redis.Get(ctx, bulkJobKeyPrefix+jobID).Result()
	if err == redis.Nil {
		apperrors.Respond(c, apperrors.NotFound("import job"))
		return
	}
	if err != nil {
		zap.L().Error("Failed to get import job status", zap.Error(err))
		apperrors.Respond(c, apperrors.Unavailable(err))
		return
	}

	var jobStatus map[string]interface{}
	if err := json.Unmarshal([]byte(val), &jobStatus); err != nil {
		zap.L().Error("Failed to parse import job status", zap.Error(err))
		apperrors.Respond(c, apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, jobStatus)
}

func (h *BulkImportHandler) handleAsyncImport(c *gin.Context, caller models.Identity, rows []models.BulkImportRow) {
	if h.redis == nil {
		apperrors.Respond(c, apperrors.Unavailable(fmt.Errorf("job tracking is not configured")))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	jobID := uuid.NewString()
	if err := h.storeJobStatus(ctx, jobID, map[string]interface{}{
		"status":     "pending",
		"row_count":  len(rows),
		"created_at": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		zap.L().Error("Failed to enqueue bulk import job", zap.Error(err))
		apperrors.Respond(c, apperrors.Unavailable(err))
		return
	}

	go h.runImportJob(jobID, caller, rows)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":  jobID,
		"message": "Import queued for processing",
	})
}

func (h *BulkImportHandler) runImportJob(jobID string, caller models.Identity, rows []models.BulkImportRow) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := h.service.Reconcile(ctx, caller, rows)
	if err != nil {
		zap.L().Error("Bulk import job failed", zap.String("job_id", jobID), zap.Error(err))
		_ = h.storeJobStatus(ctx, jobID, map[string]interface{}{
			"status":      "failed",
			"error":       err.Error(),
			"finished_at": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	if result.ProcessedCount > 0 {
		if err := h.cache.Invalidate(ctx); err != nil {
			zap.L().Error("Failed to invalidate cache after bulk import job", zap.Error(err))
		}
	}

	_ = h.storeJobStatus(ctx, jobID, map[string]interface{}{
		"status":          "completed",
		"processed_count": result.ProcessedCount,
		"skipped_count":   result.SkippedCount,
		"errors":          result.Errors,
		"finished_at":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *BulkImportHandler) storeJobStatus(ctx context.Context, jobID string, status map[string]interface{}) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal job status: %w", err)
	}
	if err := h.redis.Set(ctx, bulkJobKeyPrefix+jobID, data, 24*time.Hour).Err(); err != nil {
		return fmt.Errorf("failed to store job status: %w", err)
	}
	return nil
}

// parseRows extracts the row set from the request: a multipart CSV upload
// when present, a JSON array body otherwise.
func (h *BulkImportHandler) parseRows(c *gin.Context) ([]models.BulkImportRow, error) {
	if file, err := c.FormFile("file"); err == nil {
		return h.parseCSVFile(file)
	}

	var payload []map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		return nil, apperrors.Validation("request must be a CSV upload or a JSON array of rows")
	}

	rows := make([]models.BulkImportRow, 0, len(payload))
	for _, m := range payload {
		rows = append(rows, models.RowFromMap(m))
	}
	return rows, nil
}

func (h *BulkImportHandler) parseCSVFile(file *multipart.FileHeader) ([]models.BulkImportRow, error) {
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".csv" {
		return nil, apperrors.Validation("invalid file type, only CSV files are allowed")
	}
	if file.Size > MaxBulkImportFileSize {
		return nil, apperrors.Validation("file exceeds the 10MB size limit")
	}

	fileHandle, err := file.Open()
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to open upload: %w", err))
	}
	defer fileHandle.Close()

	return ParseCSVRows(fileHandle)
}

// ParseCSVRows reads a header row then maps each record through the same
// case-insensitive column resolution the JSON path uses.
func ParseCSVRows(r io.Reader) ([]models.BulkImportRow, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, apperrors.Validation("CSV file is empty")
	}
	if err != nil {
		return nil, apperrors.Validation("malformed CSV header")
	}

	var rows []models.BulkImportRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.Validation("malformed CSV record")
		}

		m := make(map[string]interface{}, len(header))
		for i, col := range header {
			if i < len(record) {
				m[strings.TrimSpace(col)] = record[i]
			}
		}
		rows = append(rows, models.RowFromMap(m))
	}
	return rows, nil
}

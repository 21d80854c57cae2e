// usage_log_repository.go implements UsageLogRepository, providing database queries for writing
// and retrieving API key request logs with optional filtering by key, method, and time range.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sundai/hackathon-api/internal/db/models"
)

// UsageLogRepository handles api_usage_logs database operations
type UsageLogRepository struct {
	db *sql.DB
}

// NewUsageLogRepository creates a new UsageLogRepository
func NewUsageLogRepository(db *sql.DB) *UsageLogRepository {
	return &UsageLogRepository{db: db}
}

// UsageLogFilters contains filters for querying usage logs
type UsageLogFilters struct {
	APIKeyID  *string
	Method    *string
	StartDate *time.Time
	EndDate   *time.Time
}

// CreateUsageLog records one API-key-authenticated request
func (r *UsageLogRepository) CreateUsageLog(ctx context.Context, log *models.APIUsageLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now()

	query := `
		INSERT INTO api_usage_logs (id, api_key_id, endpoint, method, status_code, response_time_ms, user_agent, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.APIKeyID,
		log.Endpoint,
		log.Method,
		log.StatusCode,
		log.ResponseTimeMS,
		log.UserAgent,
		log.IPAddress,
		log.CreatedAt,
	)

	return err
}

// ListUsageLogs retrieves usage logs with optional filters and pagination, newest first
func (r *UsageLogRepository) ListUsageLogs(ctx context.Context, filters UsageLogFilters, limit, offset int) ([]*models.APIUsageLog, int, error) {
	countQuery := `SELECT COUNT(*) FROM api_usage_logs WHERE 1=1`
	query := `
		SELECT id, api_key_id, endpoint, method, status_code, response_time_ms, user_agent, host(ip_address), created_at
		FROM api_usage_logs
		WHERE 1=1
	`
	args := make([]interface{}, 0)
	paramIndex := 1

	if filters.APIKeyID != nil {
		countQuery += fmt.Sprintf(` AND api_key_id = $%d`, paramIndex)
		query += fmt.Sprintf(` AND api_key_id = $%d`, paramIndex)
		args = append(args, *filters.APIKeyID)
		paramIndex++
	}

	if filters.Method != nil {
		countQuery += fmt.Sprintf(` AND method = $%d`, paramIndex)
		query += fmt.Sprintf(` AND method = $%d`, paramIndex)
		args = append(args, *filters.Method)
		paramIndex++
	}

	if filters.StartDate != nil {
		countQuery += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		query += fmt.Sprintf(` AND created_at >= $%d`, paramIndex)
		args = append(args, *filters.StartDate)
		paramIndex++
	}

	if filters.EndDate != nil {
		countQuery += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		query += fmt.Sprintf(` AND created_at <= $%d`, paramIndex)
		args = append(args, *filters.EndDate)
		paramIndex++
	}

	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, paramIndex, paramIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := make([]*models.APIUsageLog, 0)
	for rows.Next() {
		log := &models.APIUsageLog{}
		var status, responseMS sql.NullInt64

		err := rows.Scan(
			&log.ID,
			&log.APIKeyID,
			&log.Endpoint,
			&log.Method,
			&status,
			&responseMS,
			&log.UserAgent,
			&log.IPAddress,
			&log.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		log.StatusCode = int(status.Int64)
		log.ResponseTimeMS = int(responseMS.Int64)

		logs = append(logs, log)
	}

	return logs, total, rows.Err()
}

package sqlite

import (
	"fmt"
	"strings"

	"github.com/crolens/crolens-api/internal/catalog/models"
)

// LogRequest inserts one request log row; every call is persisted and
// no sampling is applied here. The gateway does not call it, and
// config.RequestLogSampleRate is not read by any code.
func (s *Storage) LogRequest(l *models.RequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStorageClosed
	}

	_, err := s.db.Exec(`
		INSERT INTO request_logs (id, trace_id, api_key, tool_name, latency_ms, status, error_code, ip_address, request_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.TraceID, l.APIKey, l.ToolName, l.LatencyMs, l.Status, l.ErrorCode, l.IPAddress, l.RequestSize, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert request log: %w", err)
	}
	return nil
}

// GetRequestLogs returns recent request logs matching the filter, newest
// first, capped by f.Limit (default 50).
func (s *Storage) GetRequestLogs(f models.LogFilter) ([]*models.RequestLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStorageClosed
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var conds []string
	var args []any
	if f.ToolName != "" {
		conds = append(conds, "tool_name = ?")
		args = append(args, f.ToolName)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}

	query := "SELECT id, trace_id, api_key, tool_name, latency_ms, status, error_code, ip_address, request_size, created_at FROM request_logs"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query request logs: %w", err)
	}
	defer rows.Close()

	var out []*models.RequestLog
	for rows.Next() {
		l := &models.RequestLog{}
		if err := rows.Scan(&l.ID, &l.TraceID, &l.APIKey, &l.ToolName, &l.LatencyMs, &l.Status, &l.ErrorCode, &l.IPAddress, &l.RequestSize, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan request log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

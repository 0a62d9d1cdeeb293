package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository создаёт PostgreSQL-реализацию AuditRepository.
func NewAuditRepository(store *Store) domain.AuditRepository {
	return &auditRepository{db: store.DB()}
}

func (r *auditRepository) Append(record domain.AuditRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	details := record.Details
	if details == nil {
		details = map[string]any{}
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, action, order_id, details, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		record.ID, record.ActorID, string(record.Action), record.OrderID,
		payload, record.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (r *auditRepository) ListByOrder(orderID string) ([]domain.AuditRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, actor_id, action, order_id, details, created_at
		FROM audit_log
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.AuditRecord, 0)
	for rows.Next() {
		var record domain.AuditRecord
		var action string
		var payload []byte
		if err := rows.Scan(&record.ID, &record.ActorID, &action, &record.OrderID, &payload, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.Action = domain.Operation(action)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &record.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}

	return records, nil
}

var _ domain.AuditRepository = (*auditRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

type returnRepository struct {
	db *sql.DB
}

// NewReturnRepository создаёт PostgreSQL-реализацию ReturnRepository.
func NewReturnRepository(store *Store) domain.ReturnRepository {
	return &returnRepository{db: store.DB()}
}

func (r *returnRepository) Create(request domain.ReturnRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO return_requests (id, order_id, customer_id, reason, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`,
		request.ID, request.OrderID, request.CustomerID, request.Reason,
		string(request.Status), request.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.Errorf(domain.KindInvalidInput, "return request %s already exists", request.ID)
		}
		return fmt.Errorf("insert return request: %w", err)
	}
	return nil
}

func (r *returnRepository) ListByOrder(orderID string) ([]domain.ReturnRequest, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, customer_id, reason, status, created_at
		FROM return_requests
		WHERE order_id = $1
		ORDER BY created_at ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list return requests: %w", err)
	}
	defer rows.Close()

	requests := make([]domain.ReturnRequest, 0)
	for rows.Next() {
		var request domain.ReturnRequest
		var status string
		if err := rows.Scan(&request.ID, &request.OrderID, &request.CustomerID, &request.Reason, &status, &request.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan return request: %w", err)
		}
		request.Status = domain.ReturnStatus(status)
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate return requests: %w", err)
	}

	return requests, nil
}

var _ domain.ReturnRepository = (*returnRepository)(nil)

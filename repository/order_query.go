package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"campusDeliveryBot/models"
)

// ListByStatus returns all orders in the given status ordered by creation time asc.
func (r *OrderRepository) ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ? ORDER BY created_at ASC, id ASC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// ListByUserID returns all orders for a user ordered by creation time desc.
func (r *OrderRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// ListAssignedBefore returns assigned orders created before the cutoff.
// The maintenance job uses it to find assignments whose offer vanished
// (process restart, dropped registry entry) and return them to the pool.
func (r *OrderRepository) ListAssignedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE status = 'assigned'
  AND CAST(strftime('%s', created_at) AS INTEGER) < ?
ORDER BY created_at ASC, id ASC`, cutoff.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// ListExpiredPending returns pending orders whose expires_at has passed.
func (r *OrderRepository) ListExpiredPending(ctx context.Context, now time.Time) ([]models.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rows, err := r.db.QueryContext(ctx, `
SELECT `+orderColumns+` FROM orders
WHERE status = 'pending'
  AND expires_at IS NOT NULL
  AND CAST(strftime('%s', expires_at) AS INTEGER) < ?
ORDER BY created_at ASC, id ASC`, now.UTC().Unix())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

// ListAdminParams represents filters and pagination for ListAdmin.
type ListAdminParams struct {
	Statuses  []models.OrderStatus
	UserID    *int64
	CourierID *int64
	PageSize  int
	AfterID   int64
}

// ListAdmin returns orders matching filters ordered by id desc with keyset pagination by id.
func (r *OrderRepository) ListAdmin(ctx context.Context, p ListAdminParams) ([]models.Order, error) {
	if p.PageSize <= 0 {
		p.PageSize = 20
	}
	if p.PageSize > 100 {
		p.PageSize = 100
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var where []string
	var args []any

	if len(p.Statuses) > 0 {
		placeholders := make([]string, len(p.Statuses))
		for i, s := range p.Statuses {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "status IN ("+strings.Join(placeholders, ",")+")")
	}
	if p.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, *p.UserID)
	}
	if p.CourierID != nil {
		where = append(where, "courier_id = ?")
		args = append(args, *p.CourierID)
	}
	if p.AfterID > 0 {
		where = append(where, "id < ?")
		args = append(args, p.AfterID)
	}

	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, p.PageSize)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrderRows(rows)
}

func scanOrderRows(rows *sql.Rows) ([]models.Order, error) {
	var out []models.Order
	for rows.Next() {
		var o models.Order
		if err := scanOrderInto(rows, &o); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

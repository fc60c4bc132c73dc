package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusDeliveryBot/models"
)

// CounterField names a courier statistics column that may be incremented.
type CounterField string

const (
	CounterTotalRequests    CounterField = "total_requests"
	CounterAcceptedRequests CounterField = "accepted_requests"
	CounterSkippedRequests  CounterField = "skipped_requests"
	CounterTotalDeliveries  CounterField = "total_deliveries"
)

type CourierRepository struct {
	db *sql.DB
}

func NewCourierRepository(db *sql.DB) *CourierRepository {
	return &CourierRepository{db: db}
}

const courierColumns = `id, telegram_id, name, campus, gender, active, blocked,
total_requests, accepted_requests, skipped_requests, total_deliveries,
last_lat, last_lon, last_online_at, last_skip_at`

// Create inserts a new courier. New couriers start offline and unblocked.
func (r *CourierRepository) Create(ctx context.Context, c *models.Courier) (*models.Courier, error) {
	if c == nil {
		return nil, errors.New("courier is nil")
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO couriers (telegram_id, name, campus, gender, active, blocked) VALUES (?,?,?,?,?,?)`,
		c.TelegramID, c.Name, c.Campus, c.Gender, c.Active, c.Blocked)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	c.ID = id
	return c, nil
}

func (r *CourierRepository) GetByID(ctx context.Context, id int64) (*models.Courier, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+courierColumns+` FROM couriers WHERE id = ?`, id)
	return scanCourier(row)
}

func (r *CourierRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Courier, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	row := r.db.QueryRowContext(ctx, `SELECT `+courierColumns+` FROM couriers WHERE telegram_id = ?`, telegramID)
	return scanCourier(row)
}

// ListEligible returns couriers that may receive a new offer: online, not
// blocked, not in excludeIDs, fewer than maxActive concurrently active orders
// and no order currently in progress. Active/in-progress counts are joined in
// so the matcher can log and rank without extra queries. Ordered by id asc.
func (r *CourierRepository) ListEligible(ctx context.Context, excludeIDs []int64, maxActive int) ([]models.Courier, error) {
	if maxActive <= 0 {
		maxActive = 5
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	query := `
SELECT ` + prefixed("c", courierColumns) + `,
       COALESCE(oc.active_count, 0) AS active_orders,
       COALESCE(oc.in_progress_count, 0) AS in_progress_orders
FROM couriers c
LEFT JOIN (
    SELECT courier_id,
           SUM(CASE WHEN status IN ('assigned','preparing','ready','in_progress') THEN 1 ELSE 0 END) AS active_count,
           SUM(CASE WHEN status = 'in_progress' THEN 1 ELSE 0 END) AS in_progress_count
    FROM orders
    WHERE courier_id IS NOT NULL
    GROUP BY courier_id
) oc ON oc.courier_id = c.id
WHERE c.active = 1
  AND c.blocked = 0
  AND COALESCE(oc.active_count, 0) < ?
  AND COALESCE(oc.in_progress_count, 0) = 0`
	args := []any{maxActive}

	if len(excludeIDs) > 0 {
		placeholders := make([]string, len(excludeIDs))
		for i, id := range excludeIDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		query += " AND c.id NOT IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY c.id ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Courier
	for rows.Next() {
		c, err := scanCourierRowWithCounts(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// IncrementCounter bumps one of the courier statistics columns. The field is
// validated against a whitelist since column names cannot be parameterized.
func (r *CourierRepository) IncrementCounter(ctx context.Context, id int64, field CounterField) error {
	switch field {
	case CounterTotalRequests, CounterAcceptedRequests, CounterSkippedRequests, CounterTotalDeliveries:
	default:
		return fmt.Errorf("unknown counter field: %s", field)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	q := `UPDATE couriers SET ` + string(field) + ` = ` + string(field) + ` + 1 WHERE id = ?`
	if field == CounterSkippedRequests {
		q = `UPDATE couriers SET skipped_requests = skipped_requests + 1, last_skip_at = CURRENT_TIMESTAMP WHERE id = ?`
	}
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// SetActive toggles the courier online/offline. Going online stamps last_online_at.
func (r *CourierRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if active {
		_, err := r.db.ExecContext(ctx,
			`UPDATE couriers SET active = 1, last_online_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
		return err
	}
	_, err := r.db.ExecContext(ctx, `UPDATE couriers SET active = 0 WHERE id = ?`, id)
	return err
}

func (r *CourierRepository) SetBlocked(ctx context.Context, id int64, blocked bool) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE couriers SET blocked = ? WHERE id = ?`, blocked, id)
	return err
}

func (r *CourierRepository) UpdateLocation(ctx context.Context, id int64, lat, lon float64) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE couriers SET last_lat = ?, last_lon = ? WHERE id = ?`, lat, lon, id)
	return err
}

// ActiveOrderCount returns how many orders the courier currently has in an
// active status (assigned, preparing, ready or in_progress).
func (r *CourierRepository) ActiveOrderCount(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE courier_id = ? AND status IN ('assigned','preparing','ready','in_progress')`, id).Scan(&n)
	return n, err
}

// ResetAllSkipCounts zeroes skipped_requests for every courier (daily job).
func (r *CourierRepository) ResetAllSkipCounts(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := r.db.ExecContext(ctx, `UPDATE couriers SET skipped_requests = 0`)
	return err
}

func (r *CourierRepository) List(ctx context.Context, limit, offset int) ([]models.Courier, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `SELECT `+courierColumns+` FROM couriers ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Courier
	for rows.Next() {
		c, err := scanCourierRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// prefixed rewrites a comma-separated column list to alias-qualified form.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCourierInto(s rowScanner, c *models.Courier, extra ...any) error {
	var lastLat, lastLon sql.NullFloat64
	var lastOnline, lastSkip sql.NullString
	dest := []any{
		&c.ID, &c.TelegramID, &c.Name, &c.Campus, &c.Gender, &c.Active, &c.Blocked,
		&c.TotalRequests, &c.AcceptedRequests, &c.SkippedRequests, &c.TotalDeliveries,
		&lastLat, &lastLon, &lastOnline, &lastSkip,
	}
	dest = append(dest, extra...)
	if err := s.Scan(dest...); err != nil {
		return err
	}
	if lastLat.Valid {
		v := lastLat.Float64
		c.LastLat = &v
	}
	if lastLon.Valid {
		v := lastLon.Float64
		c.LastLon = &v
	}
	if lastOnline.Valid {
		if t, err := parseDBTime(lastOnline.String); err == nil {
			c.LastOnlineAt = &t
		}
	}
	if lastSkip.Valid {
		if t, err := parseDBTime(lastSkip.String); err == nil {
			c.LastSkipAt = &t
		}
	}
	return nil
}

func scanCourier(row *sql.Row) (*models.Courier, error) {
	var c models.Courier
	if err := scanCourierInto(row, &c); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

func scanCourierRow(rows *sql.Rows) (*models.Courier, error) {
	var c models.Courier
	if err := scanCourierInto(rows, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanCourierRowWithCounts(rows *sql.Rows) (*models.Courier, error) {
	var c models.Courier
	if err := scanCourierInto(rows, &c, &c.ActiveOrders, &c.InProgressOrders); err != nil {
		return nil, err
	}
	return &c, nil
}

// parseDBTime accepts the formats sqlite's CURRENT_TIMESTAMP and Go's
// driver-side time writes produce.
func parseDBTime(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, "2006-01-02T15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time: %q", s)
}

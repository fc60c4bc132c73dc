package repository

import (
	"context"
	"time"

	"campusDeliveryBot/models"
)

// UserRepositoryI defines operations on User (student) entities.
type UserRepositoryI interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// OrderRepositoryI defines operations on Order entities.
// The guarded mutators return false when the optimistic state check fails
// (the row was not in the expected status/assignment), without error.
type OrderRepositoryI interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	GetByID(ctx context.Context, id int64) (*models.Order, error)
	AssignCourier(ctx context.Context, orderID, courierID int64) (bool, error)
	AcceptAssignment(ctx context.Context, orderID, courierID int64, status models.OrderStatus) (bool, error)
	ResetToPending(ctx context.Context, orderID, courierID int64) (bool, error)
	AppendRejectedCourier(ctx context.Context, orderID, courierID int64) (bool, error)
	UpdateStatus(ctx context.Context, id int64, status models.OrderStatus) error
	Cancel(ctx context.Context, id int64, reason string) (bool, error)
	ListByStatus(ctx context.Context, status models.OrderStatus) ([]models.Order, error)
	ListAssignedBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
	ListExpiredPending(ctx context.Context, now time.Time) ([]models.Order, error)
	ListByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	ListAdmin(ctx context.Context, p ListAdminParams) ([]models.Order, error)
}

// CourierRepositoryI defines operations on Courier entities.
type CourierRepositoryI interface {
	Create(ctx context.Context, c *models.Courier) (*models.Courier, error)
	GetByID(ctx context.Context, id int64) (*models.Courier, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Courier, error)
	ListEligible(ctx context.Context, excludeIDs []int64, maxActive int) ([]models.Courier, error)
	IncrementCounter(ctx context.Context, id int64, field CounterField) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetBlocked(ctx context.Context, id int64, blocked bool) error
	UpdateLocation(ctx context.Context, id int64, lat, lon float64) error
	ActiveOrderCount(ctx context.Context, id int64) (int64, error)
	ResetAllSkipCounts(ctx context.Context) error
	List(ctx context.Context, limit, offset int) ([]models.Courier, error)
}

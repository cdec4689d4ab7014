package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"city_parking/internal/domain"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("record already exists")

	// Allocation / release guards, detected inside the engine transactions.
	ErrLotInactive     = errors.New("parking lot is not active")
	ErrNoCapacity      = errors.New("parking lot has no available capacity")
	ErrNoFreeSpot      = errors.New("no free spot in parking lot")
	ErrAlreadyActive   = errors.New("user already has an active reservation")
	ErrNotActive       = errors.New("reservation is not active")
	ErrLotHasActiveRes = errors.New("parking lot has active reservations")

	// ErrTxConflict marks retryable store failures (serialization or
	// deadlock). Callers may retry the whole operation before commit,
	// never after.
	ErrTxConflict = errors.New("transaction conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) (*domain.Admin, error)
	FindByUsername(ctx context.Context, username string) (*domain.Admin, error)
	UpdateLastLogin(ctx context.Context, id int, at time.Time) error
}

type ParkingLotRepository interface {
	// CreateWithSpots inserts the lot row plus its sequentially numbered
	// spots (S1..Sn, all available) in a single transaction and sets the
	// availability counter to the capacity.
	CreateWithSpots(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	// DeleteCascade removes the lot and its spots in one transaction. The
	// lot row is locked for the duration so no reservation can be opened
	// mid-deletion; returns ErrLotHasActiveRes when any spot is still held.
	DeleteCascade(ctx context.Context, id int) error
}

type ParkingSpotRepository interface {
	FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error)
}

type ReservationRepository interface {
	// Allocate claims the lowest-id available spot of the lot, decrements
	// the lot counter and opens an active reservation with the lot's
	// current rate snapshotted — all in one transaction. No partial state
	// is ever visible: on any guard failure (ErrNoCapacity, ErrNoFreeSpot,
	// ErrAlreadyActive, ErrLotInactive, ErrNotFound) nothing is written.
	Allocate(ctx context.Context, userID, lotID int, bookingRef, vehicleNumber string, now time.Time) (*domain.Reservation, error)
	// Complete closes an active reservation: sets the leaving timestamp,
	// total cost and completed status, frees the spot and increments the
	// lot counter (bounded at the maximum) in one transaction. Returns
	// ErrNotActive when the row is not active anymore.
	Complete(ctx context.Context, id int, leavingAt time.Time, totalCost decimal.Decimal) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	FindActiveByUserID(ctx context.Context, userID int) (*domain.Reservation, error)
	FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error)
	CountActiveByLotID(ctx context.Context, lotID int) (int, error)
}

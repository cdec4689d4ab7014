package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

type pgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

// reservationColumns aliases r for joined queries. spot_id/lot_id go
// NULL only after a historical lot teardown, never on an active row.
const reservationColumns = `r.id, r.booking_ref, r.user_id, r.spot_id, r.lot_id,
	r.parking_timestamp, r.leaving_timestamp, r.booking_timestamp,
	r.hourly_rate, r.total_cost, r.status, r.vehicle_number, COALESCE(s.spot_number, '')`

func scanReservation(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var spotID, lotID sql.NullInt64
	err := row.Scan(
		&res.ID, &res.BookingRef, &res.UserID, &spotID, &lotID,
		&res.ParkingTimestamp, &res.LeavingTimestamp, &res.BookingTimestamp,
		&res.HourlyRate, &res.TotalCost, &res.Status, &res.VehicleNumber, &res.SpotNumber,
	)
	if err != nil {
		return nil, err
	}
	res.SpotID = int(spotID.Int64)
	res.LotID = int(lotID.Int64)
	res.ParkingTimestamp = res.ParkingTimestamp.In(time.UTC)
	res.BookingTimestamp = res.BookingTimestamp.In(time.UTC)
	if res.LeavingTimestamp.Valid {
		res.LeavingTimestamp.Time = res.LeavingTimestamp.Time.In(time.UTC)
	}
	return res, nil
}

// Allocate runs the whole claim inside one transaction. The lot row is
// locked first, which serializes concurrent Reserve calls on the same
// lot and excludes a concurrent DeleteCascade. The partial unique index
// on active reservations per user backstops the AlreadyActive guard for
// the same user racing itself across lots.
func (r *pgReservationRepository) Allocate(ctx context.Context, userID, lotID int, bookingRef, vehicleNumber string, now time.Time) (*domain.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Allocate (begin): %w", err)
	}
	defer tx.Rollback()

	var (
		rate      decimal.Decimal
		isActive  bool
		available int
	)
	err = tx.QueryRowContext(ctx,
		`SELECT price_per_hour, is_active, current_available_spots FROM parking_lots WHERE id = $1 FOR UPDATE`,
		lotID,
	).Scan(&rate, &isActive, &available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, txError("ReservationRepository.Allocate (lock lot)", err)
	}
	if !isActive {
		return nil, repository.ErrLotInactive
	}
	if available < 1 {
		return nil, repository.ErrNoCapacity
	}

	var hasActive bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM reservations WHERE user_id = $1 AND status = $2)`,
		userID, domain.ReservationActive,
	).Scan(&hasActive)
	if err != nil {
		return nil, txError("ReservationRepository.Allocate (active check)", err)
	}
	if hasActive {
		return nil, repository.ErrAlreadyActive
	}

	// Lowest-id free spot; SKIP LOCKED lets a racing claim that slipped
	// past the lot lock move on to the next spot instead of blocking.
	var (
		spotID     int
		spotNumber string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, spot_number FROM parking_spots
		  WHERE lot_id = $1 AND status = $2 AND is_active
		  ORDER BY id ASC LIMIT 1
		  FOR UPDATE SKIP LOCKED`,
		lotID, domain.SpotAvailable,
	).Scan(&spotID, &spotNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoFreeSpot
		}
		return nil, txError("ReservationRepository.Allocate (select spot)", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE parking_spots SET status = $1, last_occupied = $2 WHERE id = $3`,
		domain.SpotOccupied, now, spotID,
	); err != nil {
		return nil, txError("ReservationRepository.Allocate (occupy spot)", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE parking_lots SET current_available_spots = current_available_spots - 1 WHERE id = $1`,
		lotID,
	); err != nil {
		return nil, txError("ReservationRepository.Allocate (decrement counter)", err)
	}

	res := &domain.Reservation{
		BookingRef:       bookingRef,
		UserID:           userID,
		SpotID:           spotID,
		LotID:            lotID,
		ParkingTimestamp: now,
		HourlyRate:       rate,
		Status:           domain.ReservationActive,
		SpotNumber:       spotNumber,
	}
	if vehicleNumber != "" {
		res.VehicleNumber.SetValid(vehicleNumber)
	}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO reservations
		   (booking_ref, user_id, spot_id, lot_id, parking_timestamp, booking_timestamp, hourly_rate, status, vehicle_number)
		  VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP, $6, $7, $8)
		  RETURNING id, booking_timestamp`,
		res.BookingRef, res.UserID, res.SpotID, res.LotID, res.ParkingTimestamp,
		res.HourlyRate, res.Status, res.VehicleNumber,
	).Scan(&res.ID, &res.BookingTimestamp)
	if err != nil {
		if isUniqueViolation(err, "uniq_active_reservation_per_user") {
			return nil, repository.ErrAlreadyActive
		}
		return nil, txError("ReservationRepository.Allocate (insert)", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, txError("ReservationRepository.Allocate (commit)", err)
	}
	res.BookingTimestamp = res.BookingTimestamp.In(time.UTC)
	return res, nil
}

// Complete closes the reservation and restores spot and counter in the
// same transaction. The status guard re-runs under the row lock, so a
// second Release of the same id always gets ErrNotActive and changes
// nothing.
func (r *pgReservationRepository) Complete(ctx context.Context, id int, leavingAt time.Time, totalCost decimal.Decimal) (*domain.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Complete (begin): %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + reservationColumns + `
	           FROM reservations r
	           LEFT JOIN parking_spots s ON s.id = r.spot_id
	           WHERE r.id = $1
	           FOR UPDATE OF r`
	res, err := scanReservation(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, txError("ReservationRepository.Complete (lock)", err)
	}
	if res.Status != domain.ReservationActive {
		return nil, repository.ErrNotActive
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE reservations SET leaving_timestamp = $1, total_cost = $2, status = $3 WHERE id = $4`,
		leavingAt, totalCost, domain.ReservationCompleted, id,
	); err != nil {
		return nil, txError("ReservationRepository.Complete (close)", err)
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE parking_spots SET status = $1 WHERE id = $2`,
		domain.SpotAvailable, res.SpotID,
	); err != nil {
		return nil, txError("ReservationRepository.Complete (free spot)", err)
	}

	// Bounded increment: a repaired row can never exceed capacity.
	if _, err = tx.ExecContext(ctx,
		`UPDATE parking_lots
		  SET current_available_spots = LEAST(current_available_spots + 1, maximum_number_of_spots)
		  WHERE id = $1`,
		res.LotID,
	); err != nil {
		return nil, txError("ReservationRepository.Complete (increment counter)", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, txError("ReservationRepository.Complete (commit)", err)
	}

	res.LeavingTimestamp.SetValid(leavingAt.In(time.UTC))
	res.TotalCost = decimal.NewNullDecimal(totalCost)
	res.Status = domain.ReservationCompleted
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	           FROM reservations r
	           LEFT JOIN parking_spots s ON s.id = r.spot_id
	           WHERE r.id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindActiveByUserID(ctx context.Context, userID int) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	           FROM reservations r
	           LEFT JOIN parking_spots s ON s.id = r.spot_id
	           WHERE r.user_id = $1 AND r.status = $2
	           ORDER BY r.parking_timestamp DESC LIMIT 1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, userID, domain.ReservationActive))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindActiveByUserID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) FindByUserID(ctx context.Context, userID int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	           FROM reservations r
	           LEFT JOIN parking_spots s ON s.id = r.spot_id
	           WHERE r.user_id = $1
	           ORDER BY r.booking_timestamp DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUserID: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("ReservationRepository.FindByUserID (scanning row): %w", err)
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUserID (rows error): %w", err)
	}
	return reservations, nil
}

func (r *pgReservationRepository) CountActiveByLotID(ctx context.Context, lotID int) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM reservations WHERE lot_id = $1 AND status = $2`
	err := r.db.QueryRowContext(ctx, query, lotID, domain.ReservationActive).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ReservationRepository.CountActiveByLotID: %w", err)
	}
	return count, nil
}

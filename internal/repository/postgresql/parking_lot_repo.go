package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

type pgParkingLotRepository struct {
	db *sql.DB
}

func NewPgParkingLotRepository(db *sql.DB) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `id, prime_location_name, address, pin_code, price_per_hour,
	maximum_number_of_spots, current_available_spots, is_active, created_by, created_date, last_modified`

func scanLot(row interface {
	Scan(dest ...interface{}) error
}) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	err := row.Scan(
		&lot.ID, &lot.PrimeLocationName, &lot.Address, &lot.PinCode, &lot.PricePerHour,
		&lot.MaximumNumberOfSpots, &lot.CurrentAvailableSpots, &lot.IsActive,
		&lot.CreatedBy, &lot.CreatedDate, &lot.LastModified,
	)
	if err != nil {
		return nil, err
	}
	lot.CreatedDate = lot.CreatedDate.In(time.UTC)
	lot.LastModified = lot.LastModified.In(time.UTC)
	return lot, nil
}

// CreateWithSpots inserts the lot and its spots S1..Sn in one transaction.
// The availability counter starts equal to the capacity, so invariant
// "counter == count of available spots" holds from the first commit.
func (r *pgParkingLotRepository) CreateWithSpots(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.CreateWithSpots (begin): %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO parking_lots
	           (prime_location_name, address, pin_code, price_per_hour, maximum_number_of_spots,
	            current_available_spots, is_active, created_by, created_date, last_modified)
	           VALUES ($1, $2, $3, $4, $5, $5, TRUE, $6, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	           RETURNING id, is_active, created_date, last_modified`
	err = tx.QueryRowContext(ctx, query,
		lot.PrimeLocationName, lot.Address, lot.PinCode, lot.PricePerHour,
		lot.MaximumNumberOfSpots, lot.CreatedBy,
	).Scan(&lot.ID, &lot.IsActive, &lot.CreatedDate, &lot.LastModified)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: parking lot '%s' already exists", repository.ErrDuplicateEntry, lot.PrimeLocationName)
		}
		return nil, txError("ParkingLotRepository.CreateWithSpots (lot)", err)
	}

	spotQuery := `INSERT INTO parking_spots (lot_id, spot_number, status, is_active, created_date)
	               VALUES ($1, $2, $3, TRUE, CURRENT_TIMESTAMP)`
	for i := 1; i <= lot.MaximumNumberOfSpots; i++ {
		if _, err = tx.ExecContext(ctx, spotQuery, lot.ID, domain.SpotNumber(i), domain.SpotAvailable); err != nil {
			return nil, txError("ParkingLotRepository.CreateWithSpots (spots)", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, txError("ParkingLotRepository.CreateWithSpots (commit)", err)
	}
	lot.CurrentAvailableSpots = lot.MaximumNumberOfSpots
	lot.CreatedDate = lot.CreatedDate.In(time.UTC)
	lot.LastModified = lot.LastModified.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1`
	lot, err := scanLot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots ORDER BY prime_location_name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lots = append(lots, *lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

// Update writes the mutable metadata only. Capacity and the availability
// counter are owned by lot creation and the reservation engines.
func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `UPDATE parking_lots
	           SET prime_location_name = $1, address = $2, pin_code = $3, price_per_hour = $4,
	               last_modified = CURRENT_TIMESTAMP
	           WHERE id = $5
	           RETURNING last_modified`
	err := r.db.QueryRowContext(ctx, query,
		lot.PrimeLocationName, lot.Address, lot.PinCode, lot.PricePerHour, lot.ID,
	).Scan(&lot.LastModified)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		if isUniqueViolation(err, "") {
			return nil, fmt.Errorf("%w: parking lot '%s' already exists", repository.ErrDuplicateEntry, lot.PrimeLocationName)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}
	lot.LastModified = lot.LastModified.In(time.UTC)
	return lot, nil
}

// DeleteCascade locks the lot row, refuses while any reservation on its
// spots is still active, then removes spots and lot together. The row
// lock excludes a concurrent Allocate on the same lot, so no reservation
// can be opened mid-deletion.
func (r *pgParkingLotRepository) DeleteCascade(ctx context.Context, id int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.DeleteCascade (begin): %w", err)
	}
	defer tx.Rollback()

	var lotID int
	err = tx.QueryRowContext(ctx, `SELECT id FROM parking_lots WHERE id = $1 FOR UPDATE`, id).Scan(&lotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return txError("ParkingLotRepository.DeleteCascade (lock)", err)
	}

	var activeCount int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reservations WHERE lot_id = $1 AND status = $2`,
		id, domain.ReservationActive,
	).Scan(&activeCount)
	if err != nil {
		return txError("ParkingLotRepository.DeleteCascade (active check)", err)
	}
	if activeCount > 0 {
		return fmt.Errorf("%w: lot %d has %d active reservation(s)", repository.ErrLotHasActiveRes, id, activeCount)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM parking_spots WHERE lot_id = $1`, id); err != nil {
		return txError("ParkingLotRepository.DeleteCascade (spots)", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, id); err != nil {
		return txError("ParkingLotRepository.DeleteCascade (lot)", err)
	}

	if err = tx.Commit(); err != nil {
		return txError("ParkingLotRepository.DeleteCascade (commit)", err)
	}
	return nil
}

package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

type pgParkingSpotRepository struct {
	db *sql.DB
}

func NewPgParkingSpotRepository(db *sql.DB) repository.ParkingSpotRepository {
	return &pgParkingSpotRepository{db: db}
}

func (r *pgParkingSpotRepository) FindByLotID(ctx context.Context, lotID int) ([]domain.ParkingSpot, error) {
	query := `SELECT id, lot_id, spot_number, status, is_active, created_date, last_occupied
	           FROM parking_spots WHERE lot_id = $1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID: %w", err)
	}
	defer rows.Close()

	var spots []domain.ParkingSpot
	for rows.Next() {
		var spot domain.ParkingSpot
		if err := rows.Scan(
			&spot.ID, &spot.LotID, &spot.SpotNumber, &spot.Status,
			&spot.IsActive, &spot.CreatedDate, &spot.LastOccupied,
		); err != nil {
			return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID (scanning row): %w", err)
		}
		spot.CreatedDate = spot.CreatedDate.In(time.UTC)
		spots = append(spots, spot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingSpotRepository.FindByLotID (rows error): %w", err)
	}
	return spots, nil
}

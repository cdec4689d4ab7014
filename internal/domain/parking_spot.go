package domain

import (
	"fmt"
	"time"

	"gopkg.in/guregu/null.v4"
)

type SpotStatus string

const (
	SpotAvailable SpotStatus = "available"
	SpotOccupied  SpotStatus = "occupied"
)

type ParkingSpot struct {
	ID           int        `json:"id"`
	LotID        int        `json:"lot_id"`
	SpotNumber   string     `json:"spot_number"`
	Status       SpotStatus `json:"status"`
	IsActive     bool       `json:"is_active"`
	CreatedDate  time.Time  `json:"created_date"`
	LastOccupied null.Time  `json:"last_occupied"`
}

// SpotNumber returns the sequential label given to the n-th spot of a
// lot at creation time (1-based): S1, S2, ...
func SpotNumber(n int) string {
	return fmt.Sprintf("S%d", n)
}

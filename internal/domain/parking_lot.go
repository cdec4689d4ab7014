package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ParkingLot struct {
	ID                    int             `json:"id"`
	PrimeLocationName     string          `json:"prime_location_name"`
	Address               string          `json:"address"`
	PinCode               string          `json:"pin_code"`
	PricePerHour          decimal.Decimal `json:"price_per_hour"`
	MaximumNumberOfSpots  int             `json:"maximum_number_of_spots"`
	CurrentAvailableSpots int             `json:"current_available_spots"`
	IsActive              bool            `json:"is_active"`
	CreatedBy             int             `json:"created_by"`
	CreatedDate           time.Time       `json:"created_date"`
	LastModified          time.Time       `json:"last_modified"`
}

type CreateParkingLotDTO struct {
	PrimeLocationName string `json:"prime_location_name" binding:"required,max=100"`
	Address           string `json:"address" binding:"required"`
	PinCode           string `json:"pin_code" binding:"required,max=10"`
	PricePerHour      string `json:"price_per_hour" binding:"required"`
	Capacity          int    `json:"capacity" binding:"required"`
}

// UpdateParkingLotDTO covers the mutable lot metadata. Capacity is fixed
// at creation: spots are created with the lot and destroyed with it.
type UpdateParkingLotDTO struct {
	PrimeLocationName *string `json:"prime_location_name" binding:"omitempty,max=100"`
	Address           *string `json:"address"`
	PinCode           *string `json:"pin_code" binding:"omitempty,max=10"`
	PricePerHour      *string `json:"price_per_hour"`
}

// ParkingLotDetail is the GetLot response: the lot plus its spots.
type ParkingLotDetail struct {
	ParkingLot
	Spots []ParkingSpot `json:"spots"`
}

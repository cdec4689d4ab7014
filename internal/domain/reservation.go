package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a user's claim on one spot for an open-ended interval.
// HourlyRate is snapshotted from the lot when the reservation is opened,
// so later price edits never change what an open reservation will be
// billed at. Rows are never deleted; completed reservations are the
// audit trail.
type Reservation struct {
	ID               int                 `json:"id"`
	BookingRef       string              `json:"booking_ref"`
	UserID           int                 `json:"user_id"`
	SpotID           int                 `json:"spot_id"`
	LotID            int                 `json:"lot_id"`
	ParkingTimestamp time.Time           `json:"parking_timestamp"`
	LeavingTimestamp null.Time           `json:"leaving_timestamp"`
	BookingTimestamp time.Time           `json:"booking_timestamp"`
	HourlyRate       decimal.Decimal     `json:"hourly_rate"`
	TotalCost        decimal.NullDecimal `json:"total_cost"`
	Status           ReservationStatus   `json:"status"`
	VehicleNumber    null.String         `json:"vehicle_number"`

	// Filled for API responses, not stored on the reservation row.
	SpotNumber string `json:"spot_number,omitempty"`
}

type ReserveSpotDTO struct {
	LotID         int    `json:"lot_id" binding:"required"`
	VehicleNumber string `json:"vehicle_number" binding:"omitempty,max=20"`
}

// ReceiptDTO is what Release hands back to the caller.
type ReceiptDTO struct {
	ReservationID int             `json:"reservation_id"`
	BookingRef    string          `json:"booking_ref"`
	SpotNumber    string          `json:"spot_number"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	ParkedAt      time.Time       `json:"parked_at"`
	LeftAt        time.Time       `json:"left_at"`
}

package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

// LotService is the lot lifecycle manager. All mutations are admin-only;
// reads are open to any authenticated caller.
type LotService struct {
	lotRepo  repository.ParkingLotRepository
	spotRepo repository.ParkingSpotRepository
	resRepo  repository.ReservationRepository
}

func NewLotService(lotRepo repository.ParkingLotRepository, spotRepo repository.ParkingSpotRepository, resRepo repository.ReservationRepository) *LotService {
	return &LotService{lotRepo: lotRepo, spotRepo: spotRepo, resRepo: resRepo}
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: price_per_hour '%s' is not a number", ErrValidation, raw)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("%w: price_per_hour must not be negative", ErrValidation)
	}
	if price.Exponent() < -2 {
		return decimal.Decimal{}, fmt.Errorf("%w: price_per_hour has more than 2 decimal places", ErrValidation)
	}
	return price, nil
}

// CreateLot inserts the lot together with its capacity spots, numbered
// S1..Sn and all available, in one transaction.
func (s *LotService) CreateLot(ctx context.Context, caller domain.Caller, dto domain.CreateParkingLotDTO) (*domain.ParkingLot, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can create parking lots", ErrForbidden)
	}
	if dto.Capacity < 1 {
		return nil, fmt.Errorf("%w: capacity must be a positive integer", ErrValidation)
	}
	price, err := parsePrice(dto.PricePerHour)
	if err != nil {
		return nil, err
	}

	lot := &domain.ParkingLot{
		PrimeLocationName:    dto.PrimeLocationName,
		Address:              dto.Address,
		PinCode:              dto.PinCode,
		PricePerHour:         price,
		MaximumNumberOfSpots: dto.Capacity,
		CreatedBy:            caller.ID,
	}
	return s.lotRepo.CreateWithSpots(ctx, lot)
}

// EditLot updates mutable lot metadata. A price change affects future
// reservations only: open reservations keep their snapshotted rate.
func (s *LotService) EditLot(ctx context.Context, caller domain.Caller, lotID int, dto domain.UpdateParkingLotDTO) (*domain.ParkingLot, error) {
	if !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins can edit parking lots", ErrForbidden)
	}

	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	if dto.PrimeLocationName != nil {
		if *dto.PrimeLocationName == "" {
			return nil, fmt.Errorf("%w: prime_location_name must not be empty", ErrValidation)
		}
		lot.PrimeLocationName = *dto.PrimeLocationName
	}
	if dto.Address != nil {
		lot.Address = *dto.Address
	}
	if dto.PinCode != nil {
		lot.PinCode = *dto.PinCode
	}
	if dto.PricePerHour != nil {
		price, err := parsePrice(*dto.PricePerHour)
		if err != nil {
			return nil, err
		}
		lot.PricePerHour = price
	}

	return s.lotRepo.Update(ctx, lot)
}

// DeleteLot removes the lot and its spots. Refused while any reservation
// in the lot is still active; historical reservations survive deletion.
// The occupancy pre-check gives a precise count in the error; the
// cascade re-checks under the lot row lock before anything is removed.
func (s *LotService) DeleteLot(ctx context.Context, caller domain.Caller, lotID int) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("%w: only admins can delete parking lots", ErrForbidden)
	}
	active, err := s.resRepo.CountActiveByLotID(ctx, lotID)
	if err != nil {
		return fmt.Errorf("checking active reservations: %w", err)
	}
	if active > 0 {
		return fmt.Errorf("%w: lot %d has %d active reservation(s)", repository.ErrLotHasActiveRes, lotID, active)
	}
	return s.lotRepo.DeleteCascade(ctx, lotID)
}

func (s *LotService) ListLots(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.lotRepo.FindAll(ctx)
}

// GetLot returns the lot with all of its spots.
func (s *LotService) GetLot(ctx context.Context, lotID int) (*domain.ParkingLotDetail, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	spots, err := s.spotRepo.FindByLotID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	return &domain.ParkingLotDetail{ParkingLot: *lot, Spots: spots}, nil
}

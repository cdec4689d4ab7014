package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

// txRetries bounds how often an engine operation is re-attempted after
// a retryable store conflict before ErrConcurrencyConflict is surfaced.
const txRetries = 2

// AvailabilityNotifier receives lot availability changes after an
// allocation or release commits. Implementations must not block.
type AvailabilityNotifier interface {
	NotifyLotAvailability(lotID, available, maximum int)
}

// ReservationService is the allocation and release/billing engine: it
// owns the reservation lifecycle and is, together with lot creation,
// the only writer of spot statuses and lot availability counters.
type ReservationService struct {
	lotRepo  repository.ParkingLotRepository
	resRepo  repository.ReservationRepository
	userRepo repository.UserRepository
	notifier AvailabilityNotifier

	now func() time.Time
}

func NewReservationService(
	lotRepo repository.ParkingLotRepository,
	resRepo repository.ReservationRepository,
	userRepo repository.UserRepository,
	notifier AvailabilityNotifier,
) *ReservationService {
	return &ReservationService{
		lotRepo:  lotRepo,
		resRepo:  resRepo,
		userRepo: userRepo,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reserve claims one available spot in the lot for the calling user and
// opens an active reservation with the lot's current rate snapshotted.
// Every precondition failure is a no-op with a distinct error: lot
// missing (ErrNotFound) or inactive (ErrLotInactive), counter exhausted
// (ErrNoCapacity), caller already holding a reservation
// (ErrAlreadyActive), no claimable spot (ErrNoFreeSpot). The counter
// check and the spot scan are both required: the cached counter can run
// ahead of spot state under contention.
func (s *ReservationService) Reserve(ctx context.Context, caller domain.Caller, dto domain.ReserveSpotDTO) (*domain.Reservation, error) {
	if caller.Role != domain.RoleUser {
		return nil, fmt.Errorf("%w: only users can reserve spots", ErrForbidden)
	}

	user, err := s.userRepo.FindByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user %d", ErrForbidden, caller.ID)
		}
		return nil, fmt.Errorf("checking user: %w", err)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("%w: user account is deactivated", ErrForbidden)
	}

	lot, err := s.lotRepo.FindByID(ctx, dto.LotID)
	if err != nil {
		return nil, err
	}
	if !lot.IsActive {
		return nil, repository.ErrLotInactive
	}
	if lot.CurrentAvailableSpots < 1 {
		return nil, repository.ErrNoCapacity
	}

	if _, err = s.resRepo.FindActiveByUserID(ctx, caller.ID); err == nil {
		return nil, repository.ErrAlreadyActive
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("checking active reservation: %w", err)
	}

	bookingRef := uuid.NewString()

	var res *domain.Reservation
	for attempt := 0; ; attempt++ {
		res, err = s.resRepo.Allocate(ctx, caller.ID, dto.LotID, bookingRef, dto.VehicleNumber, s.now())
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrTxConflict) && attempt < txRetries {
			continue
		}
		if errors.Is(err, repository.ErrTxConflict) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	log.Printf("reservation %d opened: user=%d lot=%d spot=%s rate=%s",
		res.ID, res.UserID, res.LotID, res.SpotNumber, res.HourlyRate)
	s.publishAvailability(ctx, res.LotID)
	return res, nil
}

// Release closes the caller's reservation and bills it. Checks run in
// order and each failure is reported distinctly: NotFound, Forbidden
// (not the owner), NotActive (never started or already released),
// NotStarted (defensive; allocation always sets the parking timestamp).
func (s *ReservationService) Release(ctx context.Context, caller domain.Caller, reservationID int) (*domain.ReceiptDTO, error) {
	res, err := s.resRepo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != caller.ID || caller.Role != domain.RoleUser {
		return nil, fmt.Errorf("%w: reservation %d belongs to another user", ErrForbidden, reservationID)
	}
	if res.Status != domain.ReservationActive {
		return nil, repository.ErrNotActive
	}
	if res.ParkingTimestamp.IsZero() {
		return nil, ErrNotStarted
	}

	leavingAt := s.now()
	if leavingAt.Before(res.ParkingTimestamp) {
		leavingAt = res.ParkingTimestamp
	}
	totalCost := CalculateCost(res.ParkingTimestamp, leavingAt, res.HourlyRate)

	var completed *domain.Reservation
	for attempt := 0; ; attempt++ {
		completed, err = s.resRepo.Complete(ctx, res.ID, leavingAt, totalCost)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrTxConflict) && attempt < txRetries {
			continue
		}
		if errors.Is(err, repository.ErrTxConflict) {
			return nil, fmt.Errorf("%w: %v", ErrConcurrencyConflict, err)
		}
		return nil, err
	}

	log.Printf("reservation %d released: user=%d lot=%d spot=%s cost=%s",
		completed.ID, completed.UserID, completed.LotID, completed.SpotNumber, totalCost)
	s.publishAvailability(ctx, completed.LotID)

	return &domain.ReceiptDTO{
		ReservationID: completed.ID,
		BookingRef:    completed.BookingRef,
		SpotNumber:    completed.SpotNumber,
		TotalCost:     totalCost,
		HourlyRate:    completed.HourlyRate,
		ParkedAt:      completed.ParkingTimestamp,
		LeftAt:        leavingAt,
	}, nil
}

// ActiveReservation returns the caller's open reservation, if any.
func (s *ReservationService) ActiveReservation(ctx context.Context, caller domain.Caller) (*domain.Reservation, error) {
	return s.resRepo.FindActiveByUserID(ctx, caller.ID)
}

// History lists a user's reservations, newest booking first. Users may
// read only their own history; admins may read anyone's.
func (s *ReservationService) History(ctx context.Context, caller domain.Caller, userID int) ([]domain.Reservation, error) {
	if caller.ID != userID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%w: cannot read another user's history", ErrForbidden)
	}
	return s.resRepo.FindByUserID(ctx, userID)
}

func (s *ReservationService) publishAvailability(ctx context.Context, lotID int) {
	if s.notifier == nil {
		return
	}
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		log.Printf("availability broadcast skipped for lot %d: %v", lotID, err)
		return
	}
	s.notifier.NotifyLotAvailability(lot.ID, lot.CurrentAvailableSpots, lot.MaximumNumberOfSpots)
}

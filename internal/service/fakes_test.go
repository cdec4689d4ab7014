package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"city_parking/internal/domain"
	"city_parking/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres repositories. One
// mutex guards all tables, so Allocate and Complete are as atomic here
// as their transactional counterparts.
type memStore struct {
	mu sync.Mutex

	users        map[int]*domain.User
	admins       map[int]*domain.Admin
	lots         map[int]*domain.ParkingLot
	spots        map[int]*domain.ParkingSpot
	reservations map[int]*domain.Reservation

	nextUserID  int
	nextAdminID int
	nextLotID   int
	nextSpotID  int
	nextResID   int
}

func newMemStore() *memStore {
	return &memStore{
		users:        make(map[int]*domain.User),
		admins:       make(map[int]*domain.Admin),
		lots:         make(map[int]*domain.ParkingLot),
		spots:        make(map[int]*domain.ParkingSpot),
		reservations: make(map[int]*domain.Reservation),
	}
}

func (m *memStore) addUser(username string) *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextUserID++
	u := &domain.User{
		ID:       m.nextUserID,
		Username: username,
		Email:    username + "@example.com",
		IsActive: true,
	}
	m.users[u.ID] = u
	return u
}

func (m *memStore) addLot(name string, capacity int, pricePerHour string) *domain.ParkingLot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextLotID++
	price, _ := decimal.NewFromString(pricePerHour)
	lot := &domain.ParkingLot{
		ID:                    m.nextLotID,
		PrimeLocationName:     name,
		Address:               "1 Test Street",
		PinCode:               "560001",
		PricePerHour:          price,
		MaximumNumberOfSpots:  capacity,
		CurrentAvailableSpots: capacity,
		IsActive:              true,
		CreatedBy:             1,
	}
	m.lots[lot.ID] = lot
	for i := 1; i <= capacity; i++ {
		m.nextSpotID++
		m.spots[m.nextSpotID] = &domain.ParkingSpot{
			ID:         m.nextSpotID,
			LotID:      lot.ID,
			SpotNumber: domain.SpotNumber(i),
			Status:     domain.SpotAvailable,
			IsActive:   true,
		}
	}
	return lot
}

// availableSpots counts spots in available state for a lot, bypassing
// the cached counter. Used by tests to cross-check the invariant.
func (m *memStore) availableSpots(lotID int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.spots {
		if s.LotID == lotID && s.Status == domain.SpotAvailable {
			n++
		}
	}
	return n
}

// --- UserRepository ---

type memUserRepo struct{ s *memStore }

func (r *memUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username || u.Email == user.Email {
			return nil, repository.ErrDuplicateEntry
		}
	}
	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.IsActive = true
	user.RegistrationDate = time.Now().UTC()
	cp := *user
	r.s.users[user.ID] = &cp
	return user, nil
}

func (r *memUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUserRepo) FindByID(_ context.Context, id int) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.LastLogin.SetValid(at)
	return nil
}

// --- AdminRepository ---

type memAdminRepo struct{ s *memStore }

func (r *memAdminRepo) Create(_ context.Context, admin *domain.Admin) (*domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Username == admin.Username {
			return nil, repository.ErrDuplicateEntry
		}
	}
	r.s.nextAdminID++
	admin.ID = r.s.nextAdminID
	admin.IsActive = true
	admin.CreatedDate = time.Now().UTC()
	r.s.admins[admin.ID] = admin
	return admin, nil
}

func (r *memAdminRepo) FindByUsername(_ context.Context, username string) (*domain.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.admins {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memAdminRepo) UpdateLastLogin(_ context.Context, id int, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.admins[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.LastLogin.SetValid(at)
	return nil
}

// --- ParkingLotRepository ---

type memLotRepo struct{ s *memStore }

func (r *memLotRepo) CreateWithSpots(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range r.s.lots {
		if l.PrimeLocationName == lot.PrimeLocationName {
			return nil, repository.ErrDuplicateEntry
		}
	}
	r.s.nextLotID++
	lot.ID = r.s.nextLotID
	lot.CurrentAvailableSpots = lot.MaximumNumberOfSpots
	lot.IsActive = true
	lot.CreatedDate = time.Now().UTC()
	lot.LastModified = lot.CreatedDate
	r.s.lots[lot.ID] = lot
	for i := 1; i <= lot.MaximumNumberOfSpots; i++ {
		r.s.nextSpotID++
		r.s.spots[r.s.nextSpotID] = &domain.ParkingSpot{
			ID:         r.s.nextSpotID,
			LotID:      lot.ID,
			SpotNumber: domain.SpotNumber(i),
			Status:     domain.SpotAvailable,
			IsActive:   true,
		}
	}
	cp := *lot
	return &cp, nil
}

func (r *memLotRepo) FindByID(_ context.Context, id int) (*domain.ParkingLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lot, ok := r.s.lots[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *lot
	return &cp, nil
}

func (r *memLotRepo) FindAll(_ context.Context) ([]domain.ParkingLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var lots []domain.ParkingLot
	for _, lot := range r.s.lots {
		lots = append(lots, *lot)
	}
	sort.Slice(lots, func(i, j int) bool { return lots[i].PrimeLocationName < lots[j].PrimeLocationName })
	return lots, nil
}

func (r *memLotRepo) Update(_ context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.lots[lot.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored.PrimeLocationName = lot.PrimeLocationName
	stored.Address = lot.Address
	stored.PinCode = lot.PinCode
	stored.PricePerHour = lot.PricePerHour
	stored.LastModified = time.Now().UTC()
	cp := *stored
	return &cp, nil
}

func (r *memLotRepo) DeleteCascade(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.lots[id]; !ok {
		return repository.ErrNotFound
	}
	for _, res := range r.s.reservations {
		if res.LotID == id && res.Status == domain.ReservationActive {
			return repository.ErrLotHasActiveRes
		}
	}
	for spotID, spot := range r.s.spots {
		if spot.LotID == id {
			delete(r.s.spots, spotID)
		}
	}
	delete(r.s.lots, id)
	return nil
}

// --- ParkingSpotRepository ---

type memSpotRepo struct{ s *memStore }

func (r *memSpotRepo) FindByLotID(_ context.Context, lotID int) ([]domain.ParkingSpot, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var spots []domain.ParkingSpot
	for _, spot := range r.s.spots {
		if spot.LotID == lotID {
			spots = append(spots, *spot)
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].ID < spots[j].ID })
	return spots, nil
}

// --- ReservationRepository ---

type memReservationRepo struct{ s *memStore }

func (r *memReservationRepo) Allocate(_ context.Context, userID, lotID int, bookingRef, vehicleNumber string, now time.Time) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	lot, ok := r.s.lots[lotID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !lot.IsActive {
		return nil, repository.ErrLotInactive
	}
	if lot.CurrentAvailableSpots < 1 {
		return nil, repository.ErrNoCapacity
	}
	for _, res := range r.s.reservations {
		if res.UserID == userID && res.Status == domain.ReservationActive {
			return nil, repository.ErrAlreadyActive
		}
	}

	var spot *domain.ParkingSpot
	for _, s := range r.s.spots {
		if s.LotID != lotID || s.Status != domain.SpotAvailable || !s.IsActive {
			continue
		}
		if spot == nil || s.ID < spot.ID {
			spot = s
		}
	}
	if spot == nil {
		return nil, repository.ErrNoFreeSpot
	}

	spot.Status = domain.SpotOccupied
	spot.LastOccupied.SetValid(now)
	lot.CurrentAvailableSpots--

	r.s.nextResID++
	res := &domain.Reservation{
		ID:               r.s.nextResID,
		BookingRef:       bookingRef,
		UserID:           userID,
		SpotID:           spot.ID,
		LotID:            lotID,
		ParkingTimestamp: now,
		BookingTimestamp: now,
		HourlyRate:       lot.PricePerHour,
		Status:           domain.ReservationActive,
		SpotNumber:       spot.SpotNumber,
	}
	if vehicleNumber != "" {
		res.VehicleNumber.SetValid(vehicleNumber)
	}
	r.s.reservations[res.ID] = res
	cp := *res
	return &cp, nil
}

func (r *memReservationRepo) Complete(_ context.Context, id int, leavingAt time.Time, totalCost decimal.Decimal) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	res, ok := r.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if res.Status != domain.ReservationActive {
		return nil, repository.ErrNotActive
	}

	res.LeavingTimestamp.SetValid(leavingAt)
	res.TotalCost = decimal.NewNullDecimal(totalCost)
	res.Status = domain.ReservationCompleted

	if spot, ok := r.s.spots[res.SpotID]; ok {
		spot.Status = domain.SpotAvailable
	}
	if lot, ok := r.s.lots[res.LotID]; ok {
		if lot.CurrentAvailableSpots < lot.MaximumNumberOfSpots {
			lot.CurrentAvailableSpots++
		}
	}
	cp := *res
	return &cp, nil
}

func (r *memReservationRepo) FindByID(_ context.Context, id int) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *memReservationRepo) FindActiveByUserID(_ context.Context, userID int) (*domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, res := range r.s.reservations {
		if res.UserID == userID && res.Status == domain.ReservationActive {
			cp := *res
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memReservationRepo) FindByUserID(_ context.Context, userID int) ([]domain.Reservation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Reservation
	for _, res := range r.s.reservations {
		if res.UserID == userID {
			out = append(out, *res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BookingTimestamp.After(out[j].BookingTimestamp) })
	return out, nil
}

func (r *memReservationRepo) CountActiveByLotID(_ context.Context, lotID int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, res := range r.s.reservations {
		if res.LotID == lotID && res.Status == domain.ReservationActive {
			n++
		}
	}
	return n, nil
}

// recordingNotifier captures availability broadcasts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []struct{ lotID, available, maximum int }
}

func (n *recordingNotifier) NotifyLotAvailability(lotID, available, maximum int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, struct{ lotID, available, maximum int }{lotID, available, maximum})
}

func (n *recordingNotifier) last() (struct{ lotID, available, maximum int }, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return struct{ lotID, available, maximum int }{}, false
	}
	return n.events[len(n.events)-1], true
}

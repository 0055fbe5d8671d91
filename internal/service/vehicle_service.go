package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/domain/parking"
	"parking-service/internal/storage"
	"parking-service/internal/utils"
)

// VehicleService owns the set of registered vehicles. All writes go
// through its mutex; other services only read through plate lookups.
type VehicleService struct {
	mu       sync.Mutex
	vehicles []parking.Vehicle
	store    storage.Gateway
	log      zerolog.Logger
	now      func() time.Time
}

func NewVehicleService(store storage.Gateway, log zerolog.Logger) *VehicleService {
	return &VehicleService{
		store: store,
		log:   log,
		now:   time.Now,
	}
}

// Load restores the persisted vehicle set. Called once at startup.
func (s *VehicleService) Load(ctx context.Context) error {
	var persisted []parking.Vehicle
	found, err := s.store.Load(ctx, storage.KeyVehicles, &persisted)
	if err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.vehicles = persisted
	}
	return nil
}

type RegisterVehicleInput struct {
	LicensePlate string              `json:"license_plate"`
	Type         parking.VehicleType `json:"type"`
	OwnerName    string              `json:"owner_name"`
	PhoneNumber  string              `json:"phone_number"`
	Email        string              `json:"email"`
	StudentID    string              `json:"student_id"`
	StaffID      string              `json:"staff_id"`
	Department   string              `json:"department"`
	VehicleModel string              `json:"vehicle_model"`
	Color        string              `json:"color"`
	ExpiryDate   time.Time           `json:"expiry_date"`
	Notes        string              `json:"notes"`
}

func (s *VehicleService) validateRegistration(in RegisterVehicleInput, now time.Time) error {
	if !utils.ValidLicensePlate(in.LicensePlate) {
		return fmt.Errorf("%w: license plate must match format 29A-12345", ErrInvalidInput)
	}
	if !utils.ValidOwnerName(in.OwnerName) {
		return fmt.Errorf("%w: owner name must be 3-50 characters", ErrInvalidInput)
	}
	if !utils.ValidPhoneNumber(in.PhoneNumber) {
		return fmt.Errorf("%w: phone number must be 10 digits starting with 0", ErrInvalidInput)
	}
	if in.Email != "" && !utils.ValidEmail(in.Email) {
		return fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	if !utils.ValidExpiryDate(in.ExpiryDate, now) {
		return fmt.Errorf("%w: expiry date must be after today", ErrInvalidInput)
	}

	switch in.Type {
	case parking.VehicleMonthlyStudent:
		if !utils.ValidStudentID(in.StudentID) {
			return fmt.Errorf("%w: student id must match format 202012345", ErrInvalidInput)
		}
	case parking.VehicleStaff:
		if !utils.ValidStaffID(in.StaffID) {
			return fmt.Errorf("%w: staff id must match format GV-0001 or NV-0001", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown vehicle type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

// Register validates, rejects duplicate plates (active or inactive) and
// persists the new record.
func (s *VehicleService) Register(ctx context.Context, in RegisterVehicleInput) (*parking.Vehicle, error) {
	now := s.now()
	if err := s.validateRegistration(in, now); err != nil {
		return nil, err
	}

	normalized := utils.NormalizePlate(in.LicensePlate)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.duplicateLocked(normalized, "") {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePlate, normalized)
	}

	ids := make([]string, 0, len(s.vehicles))
	for _, v := range s.vehicles {
		ids = append(ids, v.ID)
	}

	vehicle := parking.Vehicle{
		ID:               nextVehicleID(in.Type, ids),
		LicensePlate:     normalized,
		Type:             in.Type,
		OwnerName:        strings.TrimSpace(in.OwnerName),
		PhoneNumber:      strings.TrimSpace(in.PhoneNumber),
		Email:            strings.TrimSpace(in.Email),
		StudentID:        strings.TrimSpace(in.StudentID),
		StaffID:          strings.ToUpper(strings.TrimSpace(in.StaffID)),
		Department:       in.Department,
		VehicleModel:     in.VehicleModel,
		Color:            in.Color,
		RegistrationDate: now,
		ExpiryDate:       in.ExpiryDate,
		IsActive:         true,
		Notes:            in.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	s.vehicles = append(s.vehicles, vehicle)
	s.persistLocked()

	s.log.Info().
		Str("vehicle_id", vehicle.ID).
		Str("plate", vehicle.LicensePlate).
		Str("type", string(vehicle.Type)).
		Msg("registered vehicle")

	return &vehicle, nil
}

type UpdateVehicleInput struct {
	OwnerName    *string `json:"owner_name"`
	PhoneNumber  *string `json:"phone_number"`
	Email        *string `json:"email"`
	Department   *string `json:"department"`
	VehicleModel *string `json:"vehicle_model"`
	Color        *string `json:"color"`
	Notes        *string `json:"notes"`
}

func (s *VehicleService) Update(ctx context.Context, id string, in UpdateVehicleInput) (*parking.Vehicle, error) {
	if in.OwnerName != nil && !utils.ValidOwnerName(*in.OwnerName) {
		return nil, fmt.Errorf("%w: owner name must be 3-50 characters", ErrInvalidInput)
	}
	if in.PhoneNumber != nil && !utils.ValidPhoneNumber(*in.PhoneNumber) {
		return nil, fmt.Errorf("%w: phone number must be 10 digits starting with 0", ErrInvalidInput)
	}
	if in.Email != nil && *in.Email != "" && !utils.ValidEmail(*in.Email) {
		return nil, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}

	v := &s.vehicles[idx]
	if in.OwnerName != nil {
		v.OwnerName = strings.TrimSpace(*in.OwnerName)
	}
	if in.PhoneNumber != nil {
		v.PhoneNumber = strings.TrimSpace(*in.PhoneNumber)
	}
	if in.Email != nil {
		v.Email = strings.TrimSpace(*in.Email)
	}
	if in.Department != nil {
		v.Department = *in.Department
	}
	if in.VehicleModel != nil {
		v.VehicleModel = *in.VehicleModel
	}
	if in.Color != nil {
		v.Color = *in.Color
	}
	if in.Notes != nil {
		v.Notes = *in.Notes
	}
	v.UpdatedAt = s.now()

	s.persistLocked()

	updated := *v
	return &updated, nil
}

// Renew extends the expiry by the given months, counted from whichever is
// later: now or the current expiry. Renewing an expired registration
// therefore starts the new term today.
func (s *VehicleService) Renew(ctx context.Context, id string, months int) (*parking.Vehicle, error) {
	if months <= 0 {
		return nil, fmt.Errorf("%w: months must be positive", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}

	now := s.now()
	v := &s.vehicles[idx]
	base := v.ExpiryDate
	if base.Before(now) {
		base = now
	}
	v.ExpiryDate = base.AddDate(0, months, 0)
	v.UpdatedAt = now

	s.persistLocked()

	s.log.Info().
		Str("vehicle_id", v.ID).
		Int("months", months).
		Time("expiry_date", v.ExpiryDate).
		Msg("renewed vehicle registration")

	renewed := *v
	return &renewed, nil
}

// SetActive soft-toggles the registration. The plate stays reserved
// either way.
func (s *VehicleService) SetActive(ctx context.Context, id string, active bool) (*parking.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
	}

	v := &s.vehicles[idx]
	v.IsActive = active
	v.UpdatedAt = s.now()

	s.persistLocked()

	updated := *v
	return &updated, nil
}

// FindByPlate does a normalized lookup; nil when no record matches.
func (s *VehicleService) FindByPlate(plate string) *parking.Vehicle {
	normalized := utils.NormalizePlate(plate)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.vehicles {
		if utils.NormalizePlate(s.vehicles[i].LicensePlate) == normalized {
			v := s.vehicles[i]
			return &v
		}
	}
	return nil
}

func (s *VehicleService) FindByID(id string) *parking.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(id)
	if idx < 0 {
		return nil
	}
	v := s.vehicles[idx]
	return &v
}

func (s *VehicleService) IsDuplicate(plate string, excludeID string) bool {
	normalized := utils.NormalizePlate(plate)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duplicateLocked(normalized, excludeID)
}

type VehicleFilters struct {
	Type       parking.VehicleType
	Status     string // active, expired, inactive
	Department string
	Query      string
}

// List returns vehicles matching the filters, most recently updated first.
func (s *VehicleService) List(filters VehicleFilters) []parking.Vehicle {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.Vehicle, 0, len(s.vehicles))
	query := strings.ToLower(strings.TrimSpace(filters.Query))
	for _, v := range s.vehicles {
		if filters.Type != "" && v.Type != filters.Type {
			continue
		}
		switch filters.Status {
		case "active":
			if !v.IsActive || !v.ExpiryDate.After(now) {
				continue
			}
		case "expired":
			if v.ExpiryDate.After(now) {
				continue
			}
		case "inactive":
			if v.IsActive {
				continue
			}
		}
		if filters.Department != "" && v.Department != filters.Department {
			continue
		}
		if query != "" && !matchesQuery(v, query) {
			continue
		}
		out = append(out, v)
	}

	sortVehiclesByUpdated(out)
	return out
}

func matchesQuery(v parking.Vehicle, query string) bool {
	return strings.Contains(strings.ToLower(v.LicensePlate), query) ||
		strings.Contains(strings.ToLower(v.OwnerName), query) ||
		strings.Contains(strings.ToLower(v.StudentID), query) ||
		strings.Contains(strings.ToLower(v.StaffID), query) ||
		strings.Contains(strings.ToLower(v.Email), query) ||
		strings.Contains(v.PhoneNumber, query)
}

func sortVehiclesByUpdated(vehicles []parking.Vehicle) {
	for i := 1; i < len(vehicles); i++ {
		for j := i; j > 0 && vehicles[j].UpdatedAt.After(vehicles[j-1].UpdatedAt); j-- {
			vehicles[j], vehicles[j-1] = vehicles[j-1], vehicles[j]
		}
	}
}

// BulkRenew renews every listed vehicle; unknown ids abort before any
// mutation so the batch is all-or-nothing.
func (s *VehicleService) BulkRenew(ctx context.Context, ids []string, months int) error {
	if months <= 0 {
		return fmt.Errorf("%w: months must be positive", ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if s.indexByIDLocked(id) < 0 {
			return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
		}
	}

	now := s.now()
	for _, id := range ids {
		v := &s.vehicles[s.indexByIDLocked(id)]
		base := v.ExpiryDate
		if base.Before(now) {
			base = now
		}
		v.ExpiryDate = base.AddDate(0, months, 0)
		v.UpdatedAt = now
	}

	s.persistLocked()
	return nil
}

func (s *VehicleService) BulkDeactivate(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if s.indexByIDLocked(id) < 0 {
			return fmt.Errorf("%w: vehicle %s", ErrNotFound, id)
		}
	}

	now := s.now()
	for _, id := range ids {
		v := &s.vehicles[s.indexByIDLocked(id)]
		v.IsActive = false
		v.UpdatedAt = now
	}

	s.persistLocked()
	return nil
}

func (s *VehicleService) ActiveCount() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, v := range s.vehicles {
		if v.IsActive && v.ExpiryDate.After(now) {
			count++
		}
	}
	return count
}

func (s *VehicleService) ExpiredCount() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, v := range s.vehicles {
		if !v.ExpiryDate.After(now) {
			count++
		}
	}
	return count
}

// Snapshot returns a copy of all records, used by backups and statistics.
func (s *VehicleService) Snapshot() []parking.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.Vehicle, len(s.vehicles))
	copy(out, s.vehicles)
	return out
}

// Restore replaces the whole set from a backup.
func (s *VehicleService) Restore(ctx context.Context, vehicles []parking.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vehicles = make([]parking.Vehicle, len(vehicles))
	copy(s.vehicles, vehicles)
	s.persistLocked()
}

func (s *VehicleService) duplicateLocked(normalized, excludeID string) bool {
	for i := range s.vehicles {
		if s.vehicles[i].ID == excludeID {
			continue
		}
		if utils.NormalizePlate(s.vehicles[i].LicensePlate) == normalized {
			return true
		}
	}
	return false
}

func (s *VehicleService) indexByIDLocked(id string) int {
	for i := range s.vehicles {
		if s.vehicles[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *VehicleService) persistLocked() {
	snapshot := make([]parking.Vehicle, len(s.vehicles))
	copy(snapshot, s.vehicles)
	s.store.DebouncedSave(storage.KeyVehicles, snapshot)
}

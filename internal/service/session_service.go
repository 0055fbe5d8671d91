package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/config"
	"parking-service/internal/domain/parking"
	"parking-service/internal/storage"
	"parking-service/internal/utils"
)

// SessionService is the parking session ledger: entries, exits, fees and
// payments, plus the occupancy counters derived from open sessions.
type SessionService struct {
	mu       sync.Mutex
	sessions []parking.ParkingSession
	vehicles *VehicleService
	store    storage.Gateway
	log      zerolog.Logger
	capacity int
	pricing  config.PricingConfig
	now      func() time.Time
}

func NewSessionService(vehicles *VehicleService, store storage.Gateway, cfg config.ParkingConfig, log zerolog.Logger) *SessionService {
	return &SessionService{
		vehicles: vehicles,
		store:    store,
		log:      log,
		capacity: cfg.TotalSpots,
		pricing:  cfg.Pricing,
		now:      time.Now,
	}
}

func (s *SessionService) Load(ctx context.Context) error {
	var persisted []parking.ParkingSession
	found, err := s.store.Load(ctx, storage.KeySessions, &persisted)
	if err != nil {
		return fmt.Errorf("load sessions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.sessions = persisted
	}
	return nil
}

type EntryInput struct {
	LicensePlate string                `json:"license_plate"`
	Gate         string                `json:"gate"`
	Confidence   parking.LPRConfidence `json:"confidence"`
	Image        string                `json:"image"`
	Operator     string                `json:"operator"`
}

// AdmitEntry opens a session for a vehicle at a gate. The plate is
// classified against the registry: an active registration carries its
// type and fee exemption, anything else enters as a visitor. Fails hard
// when the lot is full.
//
// The caller is responsible for not admitting the same physical event
// twice; there is no dedup key on sessions.
func (s *SessionService) AdmitEntry(ctx context.Context, in EntryInput) (*parking.ParkingSession, error) {
	plate := utils.NormalizePlate(in.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: license plate is required", ErrInvalidInput)
	}
	if !parking.ValidGate(in.Gate) {
		return nil, fmt.Errorf("%w: unknown gate %q", ErrInvalidInput, in.Gate)
	}

	vehicleType := parking.VehicleVisitor
	vehicleID := ""
	if v := s.vehicles.FindByPlate(plate); v != nil && v.IsActive {
		vehicleType = v.Type
		vehicleID = v.ID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.occupiedLocked() >= s.capacity {
		return nil, fmt.Errorf("%w: all %d spots taken", ErrCapacityExceeded, s.capacity)
	}

	now := s.now()
	ids := make([]string, 0, len(s.sessions))
	for _, sess := range s.sessions {
		ids = append(ids, sess.ID)
	}

	paymentStatus := parking.PaymentUnpaid
	if vehicleType != parking.VehicleVisitor {
		paymentStatus = parking.PaymentExempted
	}

	session := parking.ParkingSession{
		ID:              nextSessionID(now, ids),
		VehicleID:       vehicleID,
		LicensePlate:    plate,
		VehicleType:     vehicleType,
		EntryTime:       now,
		EntryGate:       in.Gate,
		EntryImage:      in.Image,
		EntryConfidence: in.Confidence,
		EntryOperator:   in.Operator,
		Fee:             0,
		PaymentStatus:   paymentStatus,
		IsException:     in.Confidence == parking.ConfidenceFailed,
	}

	s.sessions = append(s.sessions, session)
	s.persistLocked()

	s.log.Info().
		Str("session_id", session.ID).
		Str("plate", plate).
		Str("gate", in.Gate).
		Str("vehicle_type", string(vehicleType)).
		Int("occupied", s.occupiedLocked()).
		Msg("vehicle admitted")

	return &session, nil
}

type ExitInput struct {
	Gate       string                `json:"gate"`
	Confidence parking.LPRConfidence `json:"confidence"`
	Image      string                `json:"image"`
	Operator   string                `json:"operator"`
}

// CompleteExit closes an open session: stamps the exit, computes the
// stay duration, the overnight flag and the fee. Closed sessions never
// reopen.
func (s *SessionService) CompleteExit(ctx context.Context, sessionID string, in ExitInput) (*parking.ParkingSession, error) {
	if !parking.ValidGate(in.Gate) {
		return nil, fmt.Errorf("%w: unknown gate %q", ErrInvalidInput, in.Gate)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(sessionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	sess := &s.sessions[idx]
	if sess.ExitTime != nil {
		return nil, fmt.Errorf("%w: session %s already closed", ErrInvalidState, sessionID)
	}

	now := s.now()
	exitTime := now
	sess.ExitTime = &exitTime
	sess.ExitGate = in.Gate
	sess.ExitImage = in.Image
	sess.ExitConfidence = in.Confidence
	sess.ExitOperator = in.Operator
	sess.ParkingDuration = DurationMinutes(sess.EntryTime, now)
	sess.IsOvernight = IsOvernight(sess.EntryTime, now)
	sess.Fee = CalculateFee(sess.EntryTime, now, sess.VehicleType, s.pricing)
	if in.Confidence == parking.ConfidenceFailed {
		sess.IsException = true
	}
	if sess.VehicleType != parking.VehicleVisitor {
		sess.PaymentStatus = parking.PaymentExempted
	} else {
		sess.PaymentStatus = parking.PaymentUnpaid
	}

	s.persistLocked()

	s.log.Info().
		Str("session_id", sess.ID).
		Str("plate", sess.LicensePlate).
		Str("gate", in.Gate).
		Int("duration_mins", sess.ParkingDuration).
		Int("fee", sess.Fee).
		Bool("overnight", sess.IsOvernight).
		Msg("vehicle exited")

	closed := *sess
	return &closed, nil
}

// ProcessPayment moves an unpaid session to paid. Paid and exempted
// sessions are rejected.
func (s *SessionService) ProcessPayment(ctx context.Context, sessionID string, method parking.PaymentMethod) (*parking.ParkingSession, error) {
	switch method {
	case parking.MethodCash, parking.MethodMomo, parking.MethodBanking, parking.MethodCard:
	default:
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrInvalidInput, method)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(sessionID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	sess := &s.sessions[idx]
	switch sess.PaymentStatus {
	case parking.PaymentPaid:
		return nil, fmt.Errorf("%w: session %s already paid", ErrInvalidState, sessionID)
	case parking.PaymentExempted:
		return nil, fmt.Errorf("%w: session %s is fee exempt", ErrInvalidState, sessionID)
	}

	now := s.now()
	sess.PaymentStatus = parking.PaymentPaid
	sess.PaymentMethod = method
	sess.PaymentTime = &now

	s.persistLocked()

	s.log.Info().
		Str("session_id", sess.ID).
		Int("fee", sess.Fee).
		Str("method", string(method)).
		Msg("payment processed")

	paid := *sess
	return &paid, nil
}

func (s *SessionService) OccupiedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupiedLocked()
}

func (s *SessionService) AvailableCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capacity - s.occupiedLocked()
}

func (s *SessionService) TotalCapacity() int {
	return s.capacity
}

func (s *SessionService) OccupancyRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float64(s.occupiedLocked()) / float64(s.capacity) * 100
}

func (s *SessionService) SessionByID(id string) *parking.ParkingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexByIDLocked(id)
	if idx < 0 {
		return nil
	}
	sess := s.sessions[idx]
	return &sess
}

// CurrentSessions lists open sessions, newest entry first.
func (s *SessionService) CurrentSessions() []parking.ParkingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.ParkingSession, 0)
	for _, sess := range s.sessions {
		if sess.Open() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	return out
}

// HistorySessions lists closed sessions, newest exit first.
func (s *SessionService) HistorySessions() []parking.ParkingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.ParkingSession, 0)
	for _, sess := range s.sessions {
		if !sess.Open() {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExitTime.After(*out[j].ExitTime)
	})
	return out
}

// SessionsByPlate lists a plate's sessions, newest entry first.
func (s *SessionService) SessionsByPlate(plate string) []parking.ParkingSession {
	normalized := utils.NormalizePlate(plate)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.ParkingSession, 0)
	for _, sess := range s.sessions {
		if sess.LicensePlate == normalized {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].EntryTime.After(out[j].EntryTime)
	})
	return out
}

// OpenSessionForPlate returns the most recent open session for a plate,
// nil when the vehicle is not inside.
func (s *SessionService) OpenSessionForPlate(plate string) *parking.ParkingSession {
	for _, sess := range s.SessionsByPlate(plate) {
		if sess.Open() {
			open := sess
			return &open
		}
	}
	return nil
}

// Search matches the query against plates and session ids.
func (s *SessionService) Search(query string) []parking.ParkingSession {
	trimmed := strings.ToLower(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.ParkingSession, 0)
	for _, sess := range s.sessions {
		if strings.Contains(strings.ToLower(sess.LicensePlate), trimmed) ||
			strings.Contains(strings.ToLower(sess.ID), trimmed) {
			out = append(out, sess)
		}
	}
	return out
}

// TodaySessions lists sessions that entered since local midnight.
func (s *SessionService) TodaySessions() []parking.ParkingSession {
	midnight := startOfDay(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.ParkingSession, 0)
	for _, sess := range s.sessions {
		if !sess.EntryTime.Before(midnight) {
			out = append(out, sess)
		}
	}
	return out
}

// TodayRevenue sums fees of sessions paid since local midnight.
func (s *SessionService) TodayRevenue() int {
	midnight := startOfDay(s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, sess := range s.sessions {
		if sess.PaymentStatus == parking.PaymentPaid &&
			sess.PaymentTime != nil && !sess.PaymentTime.Before(midnight) {
			total += sess.Fee
		}
	}
	return total
}

func (s *SessionService) Snapshot() []parking.ParkingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]parking.ParkingSession, len(s.sessions))
	copy(out, s.sessions)
	return out
}

func (s *SessionService) Restore(ctx context.Context, sessions []parking.ParkingSession) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make([]parking.ParkingSession, len(sessions))
	copy(s.sessions, sessions)
	s.persistLocked()
}

func (s *SessionService) occupiedLocked() int {
	count := 0
	for i := range s.sessions {
		if s.sessions[i].Open() {
			count++
		}
	}
	return count
}

func (s *SessionService) indexByIDLocked(id string) int {
	for i := range s.sessions {
		if s.sessions[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *SessionService) persistLocked() {
	snapshot := make([]parking.ParkingSession, len(s.sessions))
	copy(snapshot, s.sessions)
	s.store.DebouncedSave(storage.KeySessions, snapshot)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

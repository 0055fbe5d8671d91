package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/domain/parking"
	"parking-service/internal/storage"
)

// StatsService is the read side: every figure is derived on demand from
// the session ledger and the exception queue. Its only persisted state
// is the append-only daily rollup.
type StatsService struct {
	sessions   *SessionService
	exceptions *ExceptionService
	vehicles   *VehicleService
	store      storage.Gateway
	log        zerolog.Logger
	now        func() time.Time
}

func NewStatsService(sessions *SessionService, exceptions *ExceptionService, vehicles *VehicleService, store storage.Gateway, log zerolog.Logger) *StatsService {
	return &StatsService{
		sessions:   sessions,
		exceptions: exceptions,
		vehicles:   vehicles,
		store:      store,
		log:        log,
		now:        time.Now,
	}
}

type Overview struct {
	Occupied       int     `json:"occupied"`
	Available      int     `json:"available"`
	TotalCapacity  int     `json:"total_capacity"`
	OccupancyRate  float64 `json:"occupancy_rate"`
	TodaySessions  int     `json:"today_sessions"`
	TodayRevenue   int     `json:"today_revenue"`
	PendingQueue   int     `json:"pending_queue"`
	UrgentQueue    int     `json:"urgent_queue"`
	ActiveVehicles int     `json:"active_vehicles"`
}

func (s *StatsService) Overview() Overview {
	return Overview{
		Occupied:       s.sessions.OccupiedCount(),
		Available:      s.sessions.AvailableCount(),
		TotalCapacity:  s.sessions.TotalCapacity(),
		OccupancyRate:  s.sessions.OccupancyRate(),
		TodaySessions:  len(s.sessions.TodaySessions()),
		TodayRevenue:   s.sessions.TodayRevenue(),
		PendingQueue:   s.exceptions.QueueCount(),
		UrgentQueue:    s.exceptions.UrgentCount(),
		ActiveVehicles: s.vehicles.ActiveCount(),
	}
}

// PeakHourToday returns the entry hour with the most sessions today,
// formatted HH:00.
func (s *StatsService) PeakHourToday() string {
	var counts [24]int
	for _, sess := range s.sessions.TodaySessions() {
		counts[sess.EntryTime.Hour()]++
	}

	peak := 0
	for hour, count := range counts {
		if count > counts[peak] {
			peak = hour
		}
	}
	return fmt.Sprintf("%02d:00", peak)
}

func (s *StatsService) VehicleTypeDistribution() map[parking.VehicleType]int {
	dist := map[parking.VehicleType]int{
		parking.VehicleMonthlyStudent: 0,
		parking.VehicleStaff:          0,
		parking.VehicleVisitor:        0,
	}
	for _, sess := range s.sessions.TodaySessions() {
		dist[sess.VehicleType]++
	}
	return dist
}

func (s *StatsService) GateDistribution() map[string]int {
	dist := make(map[string]int, 4)
	for _, gate := range parking.Gates() {
		dist[gate] = 0
	}
	for _, sess := range s.sessions.TodaySessions() {
		dist[sess.EntryGate]++
	}
	return dist
}

func (s *StatsService) RevenueByMethod() map[string]int {
	midnight := startOfDay(s.now())
	revenue := make(map[string]int)
	for _, sess := range s.sessions.Snapshot() {
		if sess.PaymentStatus != parking.PaymentPaid || sess.PaymentTime == nil {
			continue
		}
		if sess.PaymentTime.Before(midnight) {
			continue
		}
		revenue[string(sess.PaymentMethod)] += sess.Fee
	}
	return revenue
}

type TopVehicle struct {
	LicensePlate string `json:"license_plate"`
	Visits       int    `json:"visits"`
	TotalMinutes int    `json:"total_minutes"`
}

// TopVehicles ranks plates by visit count or by cumulative parked
// minutes.
func (s *StatsService) TopVehicles(n int, byDuration bool) []TopVehicle {
	if n <= 0 {
		n = 10
	}

	byPlate := make(map[string]*TopVehicle)
	for _, sess := range s.sessions.Snapshot() {
		tv, ok := byPlate[sess.LicensePlate]
		if !ok {
			tv = &TopVehicle{LicensePlate: sess.LicensePlate}
			byPlate[sess.LicensePlate] = tv
		}
		tv.Visits++
		tv.TotalMinutes += sess.ParkingDuration
	}

	ranked := make([]TopVehicle, 0, len(byPlate))
	for _, tv := range byPlate {
		ranked = append(ranked, *tv)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if byDuration {
			return ranked[i].TotalMinutes > ranked[j].TotalMinutes
		}
		return ranked[i].Visits > ranked[j].Visits
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// AverageDurationToday is the mean stay length in minutes over sessions
// closed today.
func (s *StatsService) AverageDurationToday() int {
	total, count := 0, 0
	for _, sess := range s.sessions.TodaySessions() {
		if sess.Open() {
			continue
		}
		total += sess.ParkingDuration
		count++
	}
	if count == 0 {
		return 0
	}
	return total / count
}

// SnapshotDaily computes today's rollup and appends it to the persisted
// history, one record per day, newest record replacing an earlier
// snapshot of the same date.
func (s *StatsService) SnapshotDaily(ctx context.Context) (*parking.DailyStats, error) {
	now := s.now()
	today := s.sessions.TodaySessions()

	registered, visitors, staff := 0, 0, 0
	for _, sess := range today {
		switch sess.VehicleType {
		case parking.VehicleMonthlyStudent:
			registered++
		case parking.VehicleStaff:
			staff++
		default:
			visitors++
		}
	}

	excTotal, excResolved, excPending := 0, 0, 0
	for _, e := range s.exceptions.Snapshot() {
		if e.Timestamp.Before(startOfDay(now)) {
			continue
		}
		excTotal++
		switch e.Status {
		case parking.ExceptionResolved:
			excResolved++
		case parking.ExceptionPending:
			excPending++
		}
	}

	stats := parking.DailyStats{
		Date:                now.Format("2006-01-02"),
		TotalVehicles:       len(today),
		RegisteredVehicles:  registered,
		VisitorVehicles:     visitors,
		StaffVehicles:       staff,
		PeakHour:            s.PeakHourToday(),
		PeakOccupancy:       s.sessions.OccupiedCount(),
		Revenue:             s.sessions.TodayRevenue(),
		RevenueByMethod:     s.RevenueByMethod(),
		ExceptionsTotal:     excTotal,
		ExceptionsResolved:  excResolved,
		ExceptionsPending:   excPending,
		AverageDurationMins: s.AverageDurationToday(),
		TurnoverRate:        float64(len(today)) / float64(s.sessions.TotalCapacity()),
	}

	var history []parking.DailyStats
	if _, err := s.store.Load(ctx, storage.KeyDailyStats, &history); err != nil {
		return nil, err
	}

	replaced := false
	for i := range history {
		if history[i].Date == stats.Date {
			history[i] = stats
			replaced = true
			break
		}
	}
	if !replaced {
		history = append(history, stats)
	}

	if err := s.store.Save(ctx, storage.KeyDailyStats, history); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("date", stats.Date).
		Int("total_vehicles", stats.TotalVehicles).
		Int("revenue", stats.Revenue).
		Msg("daily stats snapshot saved")

	return &stats, nil
}

func (s *StatsService) DailyHistory(ctx context.Context) ([]parking.DailyStats, error) {
	var history []parking.DailyStats
	if _, err := s.store.Load(ctx, storage.KeyDailyStats, &history); err != nil {
		return nil, err
	}
	return history, nil
}

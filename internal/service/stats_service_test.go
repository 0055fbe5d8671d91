package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-service/internal/domain/parking"
)

func seedDay(t *testing.T, f *fixture, base time.Time) {
	t.Helper()
	ctx := context.Background()

	f.setClock(base)
	_, err := f.vehicles.Register(ctx, staffRegistration("30B-54321", base.AddDate(1, 0, 0)))
	require.NoError(t, err)

	// Staff in at 08:00, out at 17:00.
	f.setClock(base.Add(8 * time.Hour))
	staffSess, err := f.sessions.AdmitEntry(ctx, EntryInput{LicensePlate: "30B-54321", Gate: "A"})
	require.NoError(t, err)

	// Two visitors in at 09:00.
	f.setClock(base.Add(9 * time.Hour))
	v1, err := f.sessions.AdmitEntry(ctx, EntryInput{LicensePlate: "51F-11111", Gate: "B"})
	require.NoError(t, err)
	_, err = f.sessions.AdmitEntry(ctx, EntryInput{LicensePlate: "51F-22222", Gate: "B"})
	require.NoError(t, err)

	// First visitor out after two hours, pays cash.
	f.setClock(base.Add(11 * time.Hour))
	_, err = f.sessions.CompleteExit(ctx, v1.ID, ExitInput{Gate: "A", Confidence: parking.ConfidenceHigh})
	require.NoError(t, err)
	_, err = f.sessions.ProcessPayment(ctx, v1.ID, parking.MethodCash)
	require.NoError(t, err)

	f.setClock(base.Add(17 * time.Hour))
	_, err = f.sessions.CompleteExit(ctx, staffSess.ID, ExitInput{Gate: "A", Confidence: parking.ConfidenceHigh})
	require.NoError(t, err)
}

func TestOverview(t *testing.T) {
	f := newFixture(100)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	seedDay(t, f, base)

	ov := f.stats.Overview()
	assert.Equal(t, 1, ov.Occupied)
	assert.Equal(t, 99, ov.Available)
	assert.Equal(t, 100, ov.TotalCapacity)
	assert.Equal(t, 3, ov.TodaySessions)
	assert.Equal(t, 8000, ov.TodayRevenue)
	assert.Equal(t, 1, ov.ActiveVehicles)
	assert.Equal(t, 0, ov.PendingQueue)
}

func TestDistributions(t *testing.T) {
	f := newFixture(100)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	seedDay(t, f, base)

	assert.Equal(t, "09:00", f.stats.PeakHourToday())

	types := f.stats.VehicleTypeDistribution()
	assert.Equal(t, 1, types[parking.VehicleStaff])
	assert.Equal(t, 2, types[parking.VehicleVisitor])
	assert.Equal(t, 0, types[parking.VehicleMonthlyStudent])

	gates := f.stats.GateDistribution()
	assert.Equal(t, 1, gates["A"])
	assert.Equal(t, 2, gates["B"])
	assert.Equal(t, 0, gates["C"])

	revenue := f.stats.RevenueByMethod()
	assert.Equal(t, 8000, revenue[string(parking.MethodCash)])
}

func TestAverageDurationToday(t *testing.T) {
	f := newFixture(100)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	seedDay(t, f, base)

	// Closed sessions: 120 minutes and 540 minutes.
	assert.Equal(t, 330, f.stats.AverageDurationToday())
}

func TestSnapshotDaily(t *testing.T) {
	f := newFixture(100)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	seedDay(t, f, base)
	ctx := context.Background()

	stats, err := f.stats.SnapshotDaily(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", stats.Date)
	assert.Equal(t, 3, stats.TotalVehicles)
	assert.Equal(t, 2, stats.VisitorVehicles)
	assert.Equal(t, 1, stats.StaffVehicles)
	assert.Equal(t, 8000, stats.Revenue)
	assert.InDelta(t, 0.03, stats.TurnoverRate, 0.0001)

	// A second snapshot of the same day replaces the first.
	_, err = f.stats.SnapshotDaily(ctx)
	require.NoError(t, err)
	history, err := f.stats.DailyHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "2024-03-10", history[0].Date)
}

func TestTopVehicles(t *testing.T) {
	f := newFixture(100)
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for i, plate := range []string{"51F-11111", "51F-11111", "51F-22222"} {
		f.setClock(base.Add(time.Duration(8+i) * time.Hour))
		sess, err := f.sessions.AdmitEntry(ctx, EntryInput{LicensePlate: plate, Gate: "A"})
		require.NoError(t, err)
		f.setClock(base.Add(time.Duration(8+i)*time.Hour + 30*time.Minute))
		_, err = f.sessions.CompleteExit(ctx, sess.ID, ExitInput{Gate: "A", Confidence: parking.ConfidenceHigh})
		require.NoError(t, err)
	}

	top := f.stats.TopVehicles(2, false)
	require.Len(t, top, 2)
	assert.Equal(t, "51F-11111", top[0].LicensePlate)
	assert.Equal(t, 2, top[0].Visits)
	assert.Equal(t, 60, top[0].TotalMinutes)
}

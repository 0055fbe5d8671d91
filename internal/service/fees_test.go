package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parking-service/internal/domain/parking"
)

func at(day, hour, min int) time.Time {
	return time.Date(2024, 3, day, hour, min, 0, 0, time.UTC)
}

func TestCalculateFeeVisitorHourly(t *testing.T) {
	tests := []struct {
		name  string
		entry time.Time
		exit  time.Time
		want  int
	}{
		{"under an hour", at(10, 9, 0), at(10, 9, 30), 5000},
		{"exactly one hour", at(10, 9, 0), at(10, 10, 0), 5000},
		{"just over one hour", at(10, 9, 0), at(10, 10, 1), 8000},
		{"two hours five minutes", at(10, 9, 0), at(10, 11, 5), 11000},
		{"late evening before window", at(10, 22, 0), at(11, 6, 0), 26000},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateFee(tc.entry, tc.exit, parking.VehicleVisitor, testPricing)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCalculateFeeOvernight(t *testing.T) {
	// Entry at 23:00 or later, exit past 05:00 next morning.
	fee := CalculateFee(at(10, 23, 30), at(11, 6, 0), parking.VehicleVisitor, testPricing)
	assert.Equal(t, testPricing.Overnight, fee)

	// Any stay spanning a full day is overnight regardless of hours.
	fee = CalculateFee(at(10, 9, 0), at(11, 10, 0), parking.VehicleVisitor, testPricing)
	assert.Equal(t, testPricing.Overnight, fee)
}

func TestCalculateFeeRegisteredExempt(t *testing.T) {
	entry, exit := at(10, 9, 0), at(11, 10, 0)
	assert.Equal(t, 0, CalculateFee(entry, exit, parking.VehicleMonthlyStudent, testPricing))
	assert.Equal(t, 0, CalculateFee(entry, exit, parking.VehicleStaff, testPricing))
}

func TestCalculateFeeDeterministic(t *testing.T) {
	entry, exit := at(10, 9, 0), at(10, 12, 15)
	first := CalculateFee(entry, exit, parking.VehicleVisitor, testPricing)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, CalculateFee(entry, exit, parking.VehicleVisitor, testPricing))
	}
}

func TestIsOvernight(t *testing.T) {
	assert.True(t, IsOvernight(at(10, 23, 0), at(11, 5, 0)))
	assert.True(t, IsOvernight(at(10, 9, 0), at(11, 9, 0)))
	assert.False(t, IsOvernight(at(10, 22, 59), at(11, 4, 59)))
	assert.False(t, IsOvernight(at(10, 9, 0), at(10, 18, 0)))
}

func TestDurationMinutes(t *testing.T) {
	assert.Equal(t, 90, DurationMinutes(at(10, 9, 0), at(10, 10, 30)))
	assert.Equal(t, 0, DurationMinutes(at(10, 9, 0), at(10, 9, 0)))
}

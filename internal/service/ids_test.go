package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"parking-service/internal/domain/parking"
)

func TestNextVehicleID(t *testing.T) {
	assert.Equal(t, "VH-REG-0001", nextVehicleID(parking.VehicleMonthlyStudent, nil))
	assert.Equal(t, "VH-REG-0003",
		nextVehicleID(parking.VehicleMonthlyStudent, []string{"VH-REG-0002", "VH-STF-0005"}))
	assert.Equal(t, "VH-STF-0006",
		nextVehicleID(parking.VehicleStaff, []string{"VH-REG-0002", "VH-STF-0005"}))
	assert.Equal(t, "VH-VIS-0001", nextVehicleID(parking.VehicleVisitor, []string{"VH-REG-0002"}))
}

func TestNextSessionID(t *testing.T) {
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "SS-20240310-00001", nextSessionID(day, nil))
	assert.Equal(t, "SS-20240310-00003",
		nextSessionID(day, []string{"SS-20240310-00002", "SS-20240309-00044"}))

	// Sequence resets each day.
	next := day.AddDate(0, 0, 1)
	assert.Equal(t, "SS-20240311-00001",
		nextSessionID(next, []string{"SS-20240310-00002"}))
}

func TestNextExceptionID(t *testing.T) {
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "EX-202403-0001", nextExceptionID(day, nil))
	assert.Equal(t, "EX-202403-0008",
		nextExceptionID(day, []string{"EX-202403-0007", "EX-202402-0031"}))
}

package service

import (
	"time"

	"github.com/rs/zerolog"

	"parking-service/internal/config"
	"parking-service/internal/domain/parking"
	"parking-service/internal/storage"
)

var testPricing = config.PricingConfig{
	FirstHour:      5000,
	AdditionalHour: 3000,
	Overnight:      20000,
}

var testLPR = config.LPRConfig{
	HighThreshold:   95,
	MediumThreshold: 80,
	LowThreshold:    60,
}

type fixture struct {
	store      *storage.MemoryGateway
	vehicles   *VehicleService
	sessions   *SessionService
	exceptions *ExceptionService
	lpr        *LPRService
	stats      *StatsService
}

func newFixture(spots int) *fixture {
	store := storage.NewTestGateway()
	log := zerolog.Nop()

	vehicles := NewVehicleService(store, log)
	sessions := NewSessionService(vehicles, store, config.ParkingConfig{
		TotalSpots: spots,
		Pricing:    testPricing,
	}, log)
	exceptions := NewExceptionService(sessions, vehicles, store, log)
	lpr := NewLPRService(sessions, exceptions, testLPR, log)
	stats := NewStatsService(sessions, exceptions, vehicles, store, log)

	return &fixture{
		store:      store,
		vehicles:   vehicles,
		sessions:   sessions,
		exceptions: exceptions,
		lpr:        lpr,
		stats:      stats,
	}
}

func (f *fixture) setClock(t time.Time) {
	clock := func() time.Time { return t }
	f.vehicles.now = clock
	f.sessions.now = clock
	f.exceptions.now = clock
	f.stats.now = clock
}

func studentRegistration(plate string, expiry time.Time) RegisterVehicleInput {
	return RegisterVehicleInput{
		LicensePlate: plate,
		Type:         parking.VehicleMonthlyStudent,
		OwnerName:    "Nguyen Van An",
		PhoneNumber:  "0912345678",
		StudentID:    "202112345",
		ExpiryDate:   expiry,
	}
}

func staffRegistration(plate string, expiry time.Time) RegisterVehicleInput {
	return RegisterVehicleInput{
		LicensePlate: plate,
		Type:         parking.VehicleStaff,
		OwnerName:    "Tran Thi Binh",
		PhoneNumber:  "0987654321",
		StaffID:      "GV-0042",
		Department:   "Computer Science",
		ExpiryDate:   expiry,
	}
}

package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-service/internal/config"
	"parking-service/internal/service"
	"parking-service/internal/storage"
)

func newServices() (*service.VehicleService, *service.SessionService, *service.ExceptionService) {
	store := storage.NewTestGateway()
	log := zerolog.Nop()
	vehicles := service.NewVehicleService(store, log)
	sessions := service.NewSessionService(vehicles, store, config.ParkingConfig{
		TotalSpots: 500,
		Pricing:    config.PricingConfig{FirstHour: 5000, AdditionalHour: 3000, Overnight: 20000},
	}, log)
	exceptions := service.NewExceptionService(sessions, vehicles, store, log)
	return vehicles, sessions, exceptions
}

func TestRunPopulatesFixture(t *testing.T) {
	vehicles, sessions, exceptions := newServices()
	require.NoError(t, Run(context.Background(), 42, vehicles, sessions, exceptions, zerolog.Nop()))

	assert.Len(t, vehicles.Snapshot(), 30)
	assert.Len(t, sessions.Snapshot(), 12)
	assert.Len(t, exceptions.Snapshot(), 6)

	closed := 0
	for _, s := range sessions.Snapshot() {
		if !s.Open() {
			closed++
		}
	}
	assert.Equal(t, 6, closed)
}

func TestRunDeterministic(t *testing.T) {
	v1, s1, e1 := newServices()
	require.NoError(t, Run(context.Background(), 7, v1, s1, e1, zerolog.Nop()))
	v2, s2, e2 := newServices()
	require.NoError(t, Run(context.Background(), 7, v2, s2, e2, zerolog.Nop()))

	first := v1.Snapshot()
	second := v2.Snapshot()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].LicensePlate, second[i].LicensePlate)
		assert.Equal(t, first[i].OwnerName, second[i].OwnerName)
		assert.Equal(t, first[i].Type, second[i].Type)
	}
}

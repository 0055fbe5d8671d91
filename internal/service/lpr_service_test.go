package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-service/internal/domain/parking"
)

func TestBandConfidence(t *testing.T) {
	tests := []struct {
		score int
		want  parking.LPRConfidence
	}{
		{100, parking.ConfidenceHigh},
		{95, parking.ConfidenceHigh},
		{94, parking.ConfidenceMedium},
		{80, parking.ConfidenceMedium},
		{79, parking.ConfidenceLow},
		{60, parking.ConfidenceLow},
		{59, parking.ConfidenceFailed},
		{0, parking.ConfidenceFailed},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, BandConfidence(tc.score, testLPR), "score %d", tc.score)
	}
}

func TestProcessEntryEventConfident(t *testing.T) {
	f := newFixture(10)
	f.setClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	result, err := f.lpr.ProcessEntryEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-12345", Gate: "A", Confidence: 97,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Nil(t, result.Exception)
	assert.Equal(t, parking.ConfidenceHigh, result.Session.EntryConfidence)
	assert.Equal(t, 0, f.exceptions.QueueCount())

	// A low band read still enters directly; only failed reads queue.
	result, err = f.lpr.ProcessEntryEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-67890", Gate: "A", Confidence: 62,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.Equal(t, parking.ConfidenceLow, result.Session.EntryConfidence)
	assert.Equal(t, 2, f.sessions.OccupiedCount())
}

func TestProcessEntryEventFailedRead(t *testing.T) {
	f := newFixture(10)
	f.setClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	result, err := f.lpr.ProcessEntryEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-1234?", Gate: "B", Confidence: 40,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Session)
	require.NotNil(t, result.Exception)
	assert.Equal(t, parking.DirectionEntry, result.Exception.Direction)
	assert.Equal(t, parking.ErrorLowConfidence, result.Exception.ErrorType)
	assert.Equal(t, 0, f.sessions.OccupiedCount(), "no session until an operator resolves")
	assert.Equal(t, 1, f.exceptions.QueueCount())

	_, err = f.lpr.ProcessEntryEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-12345", Gate: "A", Confidence: 101,
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestProcessExitEventConfident(t *testing.T) {
	f := newFixture(10)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	f.setClock(now)
	ctx := context.Background()

	_, err := f.sessions.AdmitEntry(ctx, EntryInput{LicensePlate: "29A-12345", Gate: "A"})
	require.NoError(t, err)

	f.setClock(now.Add(45 * time.Minute))
	result, err := f.lpr.ProcessExitEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-12345", Gate: "B", Confidence: 90,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Session)
	assert.False(t, result.Session.Open())
	assert.Equal(t, 0, f.sessions.OccupiedCount())
}

func TestProcessExitEventNoOpenSession(t *testing.T) {
	f := newFixture(10)
	f.setClock(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()

	// Confident read but nothing open for the plate: the barrier stays
	// down and an operator sorts it out.
	result, err := f.lpr.ProcessExitEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-12345", Gate: "B", Confidence: 90,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Session)
	require.NotNil(t, result.Exception)
	assert.Equal(t, parking.DirectionExit, result.Exception.Direction)
}

func TestProcessExitEventFailedRead(t *testing.T) {
	f := newFixture(10)
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	f.setClock(now)
	ctx := context.Background()

	_, err := f.sessions.AdmitEntry(ctx, EntryInput{LicensePlate: "29A-12345", Gate: "A"})
	require.NoError(t, err)

	result, err := f.lpr.ProcessExitEvent(ctx, parking.EntryEvent{
		LicensePlate: "29A-12345", Gate: "B", Confidence: 30,
	})
	require.NoError(t, err)
	assert.Nil(t, result.Session, "failed read never closes a session directly")
	require.NotNil(t, result.Exception)
	assert.Equal(t, 1, f.sessions.OccupiedCount())
}

package main

import (
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

func TestSimConfig_NormalizeRatios(t *testing.T) {
	cfg := SimConfig{Workers: 1, Duration: 1, Days: 1, BookingRatio: 2, StatusRatio: 1, RescheduleRatio: 0, ReadRatio: 1}
	require.NoError(t, cfg.normalize())
	assert.InDelta(t, 0.5, cfg.BookingRatio, 1e-9)
	assert.InDelta(t, 0.25, cfg.StatusRatio, 1e-9)
	assert.InDelta(t, 0.25, cfg.ReadRatio, 1e-9)

	bad := SimConfig{Workers: 1, Duration: 1, Days: 1}
	assert.Error(t, bad.normalize())

	assert.Error(t, (&SimConfig{Duration: 1, Days: 1, BookingRatio: 1}).normalize())
}

func TestRandomWindowStaysInClinicHours(t *testing.T) {
	s := &Simulator{pool: &DataPool{Dates: []string{"2030-01-02"}}}
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 500; i++ {
		date, start, end := s.randomWindow(rng)
		assert.Equal(t, "2030-01-02", date)

		st, err := appointment.ParseClock(start)
		require.NoError(t, err)
		en, err := appointment.ParseClock(end)
		require.NoError(t, err)
		assert.Less(t, st, en)
		assert.GreaterOrEqual(t, st, appointment.MustClock("08:00"))
		assert.LessOrEqual(t, en, appointment.MustClock("17:00"))
	}
}

func TestDataPool_RandomAppointment(t *testing.T) {
	dp := &DataPool{}
	rng := rand.New(rand.NewSource(1))

	_, ok := dp.RandomAppointment(rng)
	assert.False(t, ok)

	id := uuid.New()
	dp.AddAppointment(id)
	got, ok := dp.RandomAppointment(rng)
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

package main

import (
	"bytes"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOperationMetrics_Record(t *testing.T) {
	var om OperationMetrics

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			om.Record(time.Duration(i+1)*time.Millisecond, i%2 == 0, i%5 == 1)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 50, om.Total)
	assert.EqualValues(t, 25, om.Success)
	// odd i with i%5==1: 1, 11, 21, 31, 41
	assert.EqualValues(t, 5, om.Conflict)
	assert.EqualValues(t, 20, om.Error)
}

func TestOperationMetrics_Stats(t *testing.T) {
	var om OperationMetrics
	assert.Equal(t, LatencyStats{}, om.Stats())

	for i := 100; i >= 1; i-- {
		om.Record(time.Duration(i)*time.Millisecond, true, false)
	}

	st := om.Stats()
	assert.Equal(t, time.Millisecond, st.Min)
	assert.Equal(t, 100*time.Millisecond, st.Max)
	assert.Equal(t, 51*time.Millisecond, st.P50)
	assert.Equal(t, 96*time.Millisecond, st.P95)
	assert.Equal(t, 100*time.Millisecond, st.P99)
	assert.Equal(t, 50500*time.Microsecond, st.Avg)
}

func TestMetrics_WriteReportSkipsIdleOperations(t *testing.T) {
	var m Metrics
	m.Booking.Record(10*time.Millisecond, false, true)

	var buf bytes.Buffer
	m.WriteReport(&buf, SimConfig{Duration: time.Second, Workers: 2}, 0)

	out := buf.String()
	assert.Contains(t, out, "Booking:")
	assert.Contains(t, out, "Conflicts: 1 (100.0%)")
	assert.Contains(t, out, "Overlapping bookings: 0")
	assert.NotContains(t, out, "Reschedule:")
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type DataPool struct {
	Doctors  []uuid.UUID
	Patients []uuid.UUID
	Dates    []string

	mu           sync.RWMutex
	appointments []uuid.UUID // created during this run
}

func (dp *DataPool) AddAppointment(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return uuid.Nil, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dp := &DataPool{}

	var err error
	dp.Doctors, err = loadIDs(ctx, pool, `SELECT id FROM doctors WHERE is_active ORDER BY id LIMIT $1`, cfg.DoctorLimit)
	if err != nil {
		return nil, fmt.Errorf("load doctors: %w", err)
	}
	dp.Patients, err = loadIDs(ctx, pool, `SELECT id FROM patients WHERE is_active LIMIT $1`, cfg.PatientLimit)
	if err != nil {
		return nil, fmt.Errorf("load patients: %w", err)
	}

	if len(dp.Doctors) == 0 {
		return nil, errors.New("no doctors loaded, run seed first")
	}
	if len(dp.Patients) == 0 {
		return nil, errors.New("no patients loaded, run seed first")
	}

	tomorrow := time.Now().AddDate(0, 0, 1)
	for i := 0; i < cfg.Days; i++ {
		dp.Dates = append(dp.Dates, tomorrow.AddDate(0, 0, i).Format("2006-01-02"))
	}
	return dp, nil
}

func loadIDs(ctx context.Context, pool *pgxpool.Pool, query string, limit int) ([]uuid.UUID, error) {
	rows, err := pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// countOverlaps counts pairs of live appointments for the same doctor whose
// time ranges intersect. Anything above zero is a double booking.
func countOverlaps(ctx context.Context, pool *pgxpool.Pool, doctors []uuid.UUID) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments a
		JOIN appointments b
		  ON a.doctor_id = b.doctor_id
		 AND a.appointment_date = b.appointment_date
		 AND a.id < b.id
		 AND a.start_time < b.end_time
		 AND b.start_time < a.end_time
		WHERE a.doctor_id = ANY($1)
		  AND a.status <> 'cancelled'
		  AND b.status <> 'cancelled'
	`, doctors).Scan(&n)
	return n, err
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	token   string
	client  *http.Client
	metrics Metrics
	logger  zerolog.Logger
}

func (s *Simulator) Run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.StatusRatio:
			s.doStatus(ctx, rng)
		case r < s.config.BookingRatio+s.config.StatusRatio+s.config.RescheduleRatio:
			s.doReschedule(ctx, rng)
		default:
			switch rng.Intn(3) {
			case 0:
				s.doReadByID(ctx, rng)
			case 1:
				s.doListByPatient(ctx, rng)
			case 2:
				s.doUpcoming(ctx)
			}
		}
	}
}

// randomWindow picks a 30 or 60 minute window on a quarter hour between
// 08:00 and 17:00, so concurrent workers collide often.
func (s *Simulator) randomWindow(rng *rand.Rand) (date, start, end string) {
	date = s.pool.Dates[rng.Intn(len(s.pool.Dates))]
	startMin := 8*60 + rng.Intn(32)*15
	length := 30 * (1 + rng.Intn(2))
	return date, hhmm(startMin), hhmm(startMin + length)
}

func hhmm(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	date, start, end := s.randomWindow(rng)
	body := map[string]any{
		"patient_id":       s.pool.Patients[rng.Intn(len(s.pool.Patients))],
		"doctor_id":        s.pool.Doctors[rng.Intn(len(s.pool.Doctors))],
		"appointment_date": date,
		"start_time":       start,
		"end_time":         end,
		"appointment_type": "consultation",
	}

	var created struct {
		ID uuid.UUID `json:"id"`
	}
	status, latency, err := s.do(ctx, http.MethodPost, "/api/appointments", body, &created)
	success := err == nil && status == http.StatusCreated
	if success && created.ID != uuid.Nil {
		s.pool.AddAppointment(created.ID)
	}
	s.metrics.Booking.Record(latency, success, status == http.StatusConflict)
}

var transitions = []string{"confirmed", "in_progress", "completed", "cancelled", "no_show"}

func (s *Simulator) doStatus(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	body := map[string]string{"status": transitions[rng.Intn(len(transitions))]}
	status, latency, err := s.do(ctx, http.MethodPost, "/api/appointments/"+id.String()+"/status", body, nil)
	s.metrics.Status.Record(latency, err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doReschedule(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	date, start, end := s.randomWindow(rng)
	body := map[string]string{
		"appointment_date": date,
		"start_time":       start,
		"end_time":         end,
	}
	status, latency, err := s.do(ctx, http.MethodPost, "/api/appointments/"+id.String()+"/reschedule", body, nil)
	s.metrics.Reschedule.Record(latency, err == nil && status == http.StatusOK, status == http.StatusConflict)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	status, latency, err := s.do(ctx, http.MethodGet, "/api/appointments/"+id.String(), nil, nil)
	s.metrics.ReadByID.Record(latency, err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	path := fmt.Sprintf("/api/appointments?patient_id=%s&limit=20&offset=0", patientID)
	status, latency, err := s.do(ctx, http.MethodGet, path, nil, nil)
	s.metrics.ListByPatient.Record(latency, err == nil && status == http.StatusOK, false)
}

func (s *Simulator) doUpcoming(ctx context.Context) {
	status, latency, err := s.do(ctx, http.MethodGet, "/api/appointments/upcoming?limit=10", nil, nil)
	s.metrics.Upcoming.Record(latency, err == nil && status == http.StatusOK, false)
}

// do sends one authenticated request. Errors caused by the run ending are
// not logged.
func (s *Simulator) do(ctx context.Context, method, path string, in, out any) (int, time.Duration, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, 0, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, body)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Debug().Err(err).Str("path", path).Msg("request failed")
		}
		return 0, latency, err
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, latency, err
		}
		return resp.StatusCode, latency, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, latency, nil
}

package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/arsalan507/SnookerParlorManagement-sub000/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestElapsedMs(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		session model.Session
		now     time.Time
		want    int64
	}{
		{
			name:    "active from start",
			session: model.Session{ActiveSince: ptr(t0)},
			now:     t0.Add(90 * time.Second),
			want:    90000,
		},
		{
			name:    "paused keeps accumulated only",
			session: model.Session{AccumulatedMs: 90000},
			now:     t0.Add(time.Hour),
			want:    90000,
		},
		{
			name:    "resumed adds current stretch",
			session: model.Session{AccumulatedMs: 90000, ActiveSince: ptr(t0.Add(150 * time.Second))},
			now:     t0.Add(210 * time.Second),
			want:    150000,
		},
		{
			name:    "clock behind active since clamps stretch",
			session: model.Session{AccumulatedMs: 5000, ActiveSince: ptr(t0)},
			now:     t0.Add(-time.Second),
			want:    5000,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ElapsedMs(&tc.session, tc.now))
		})
	}
}

func TestBilledMinutes(t *testing.T) {
	assert.Equal(t, int64(0), BilledMinutes(-10))
	assert.Equal(t, int64(0), BilledMinutes(0))
	assert.Equal(t, int64(1), BilledMinutes(1))
	assert.Equal(t, int64(1), BilledMinutes(60000))
	assert.Equal(t, int64(2), BilledMinutes(60001))
	assert.Equal(t, int64(2), BilledMinutes(90000))
	assert.Equal(t, int64(3), BilledMinutes(150000))
}

func TestAmount(t *testing.T) {
	testCases := []struct {
		name     string
		rate     int64
		friendly bool
		discount int
		minutes  int64
		want     int64
	}{
		{"two minutes at 300", 300, false, 0, 2, 10},
		{"three minutes at 300", 300, false, 0, 3, 15},
		{"friendly is free", 300, true, 0, 120, 0},
		{"base 2.5 rounds up", 150, false, 0, 1, 3},
		{"base 3.33 rounds down", 200, false, 0, 1, 3},
		{"discount 2.5 rounds up", 300, false, 10, 5, 22},
		{"full discount", 300, false, 100, 60, 0},
		{"discount above 100 is clamped", 300, false, 150, 60, 0},
		{"negative discount is ignored", 300, false, -20, 60, 300},
		{"zero minutes", 300, false, 0, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Amount(tc.rate, tc.friendly, tc.discount, tc.minutes))
		})
	}
}

func TestQuote(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	s := &model.Session{HourlyRate: 300, ActiveSince: ptr(t0)}

	assert.Equal(t, Charge{ElapsedMs: 90000, BilledMinutes: 2, Amount: 10}, Quote(s, t0.Add(90*time.Second)))

	// Pause at +90s, resume at +150s, quote at +210s.
	s.AccumulatedMs = 90000
	s.ActiveSince = ptr(t0.Add(150 * time.Second))
	assert.Equal(t, Charge{ElapsedMs: 150000, BilledMinutes: 3, Amount: 15}, Quote(s, t0.Add(210*time.Second)))
}

func TestQuote_PauseResumeMatchesUninterrupted(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 18, 0, 0, 0, time.UTC)
	now := t0.Add(47 * time.Minute)

	straight := &model.Session{HourlyRate: 240, DiscountPercent: 15, ActiveSince: ptr(t0)}

	// Paused and resumed at the same instant, 20 minutes in.
	pausedAt := t0.Add(20 * time.Minute)
	interrupted := &model.Session{
		HourlyRate:      240,
		DiscountPercent: 15,
		AccumulatedMs:   pausedAt.Sub(t0).Milliseconds(),
		ActiveSince:     ptr(pausedAt),
	}

	assert.Equal(t, Quote(straight, now), Quote(interrupted, now))
}

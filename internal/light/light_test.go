package light

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bridge struct {
	mu       sync.Mutex
	requests []string
	bodies   []setLightRequest
	status   int
	delay    time.Duration
}

func (b *bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body setLightRequest
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	b.requests = append(b.requests, r.Method+" "+r.URL.Path)
	b.bodies = append(b.bodies, body)
	status, delay := b.status, b.delay
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func TestHTTPController_SetLight(t *testing.T) {
	b := &bridge{}
	srv := httptest.NewServer(b)
	defer srv.Close()

	c := NewHTTPController(srv.URL+"/", time.Second)
	require.NoError(t, c.SetLight(context.Background(), 4, true))

	b.mu.Lock()
	assert.Equal(t, []string{"POST /tables/4/light"}, b.requests)
	assert.Equal(t, []setLightRequest{{On: true}}, b.bodies)
	b.status = http.StatusBadGateway
	b.mu.Unlock()

	err := c.SetLight(context.Background(), 4, false)
	assert.ErrorContains(t, err, "502")
}

func TestDispatcher_RecordsDiagnostics(t *testing.T) {
	b := &bridge{}
	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(NewHTTPController(srv.URL, time.Second), DispatcherOptions{Workers: 1}, zerolog.Nop())
	d.Start(ctx)
	defer func() {
		cancel()
		d.Wait()
	}()

	_, ok := d.Diagnostics(1)
	assert.False(t, ok)

	d.Request(1, true)
	assert.Eventually(t, func() bool {
		diag, ok := d.Diagnostics(1)
		return ok && diag.OK && diag.On
	}, time.Second, 5*time.Millisecond)

	b.mu.Lock()
	b.status = http.StatusInternalServerError
	b.mu.Unlock()

	d.Request(1, false)
	assert.Eventually(t, func() bool {
		diag, ok := d.Diagnostics(1)
		return ok && !diag.OK && !diag.On && diag.Error != ""
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcher_TimesOut(t *testing.T) {
	b := &bridge{delay: 300 * time.Millisecond}
	srv := httptest.NewServer(b)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(NewHTTPController(srv.URL, 5*time.Second), DispatcherOptions{Workers: 1, Timeout: 30 * time.Millisecond}, zerolog.Nop())
	d.Start(ctx)
	defer func() {
		cancel()
		d.Wait()
	}()

	d.Request(2, true)
	assert.Eventually(t, func() bool {
		diag, ok := d.Diagnostics(2)
		return ok && !diag.OK
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	d := NewDispatcher(NopController{}, DispatcherOptions{QueueSize: 1}, zerolog.Nop())

	// Not started: the first request fills the queue.
	d.Request(3, true)
	d.Request(3, false)

	diag, ok := d.Diagnostics(3)
	require.True(t, ok)
	assert.False(t, diag.OK)
	assert.Equal(t, ErrQueueFull.Error(), diag.Error)
}

package arrival

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jengzang/tripguide-backend-go/internal/models"
)

// ErrTrackerClosed is returned for commands sent after Close
var ErrTrackerClosed = errors.New("arrival tracker closed")

// Sink receives every event the machine emits
type Sink interface {
	Publish(e Event)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(e Event)

// Publish calls f(e)
func (f SinkFunc) Publish(e Event) { f(e) }

// Guide is the on-site guidance hand-off invoked for each confirmed stop
type Guide interface {
	Handoff(ctx context.Context, day int, activityID string)
}

// TrackerOptions tune a Tracker
type TrackerOptions struct {
	SampleRate  rate.Limit // samples per second accepted; zero disables the limit
	SampleBurst int
}

type command struct {
	apply func(m *Machine) []Event
	reply chan []Event
}

// Tracker owns a Machine on a single goroutine. Every command runs to completion
// before the next one starts, so readers never observe a half-applied sample.
type Tracker struct {
	machine *Machine
	sink    Sink
	guide   Guide
	limiter *rate.Limiter

	inbox     chan command
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewTracker starts the tracker goroutine
func NewTracker(m *Machine, sink Sink, guide Guide, opts TrackerOptions) *Tracker {
	t := &Tracker{
		machine: m,
		sink:    sink,
		guide:   guide,
		inbox:   make(chan command),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if opts.SampleRate > 0 {
		burst := opts.SampleBurst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(opts.SampleRate, burst)
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.done)
	for {
		select {
		case <-t.quit:
			return
		case cmd := <-t.inbox:
			events := cmd.apply(t.machine)
			t.dispatch(events)
			cmd.reply <- events
		}
	}
}

func (t *Tracker) dispatch(events []Event) {
	for _, e := range events {
		if t.sink != nil {
			t.sink.Publish(e)
		}
		if e.Type == EventArrivalConfirmed && t.guide != nil && e.Stop != nil {
			t.guide.Handoff(context.Background(), e.Stop.Day, e.Stop.ActivityID)
		}
	}
}

// Do runs fn on the tracker goroutine and returns the events it produced
func (t *Tracker) Do(ctx context.Context, fn func(m *Machine) []Event) ([]Event, error) {
	reply := make(chan []Event, 1)
	select {
	case t.inbox <- command{apply: fn, reply: reply}:
	case <-t.quit:
		return nil, ErrTrackerClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case events := <-reply:
		return events, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Allow reports whether one more sample fits in the sample rate
func (t *Tracker) Allow() bool {
	if t.limiter == nil || t.limiter.Allow() {
		return true
	}
	slog.Debug("sample dropped by rate limit", "component", "arrival")
	return false
}

// Sample feeds one location fix. Fixes over the sample rate are dropped.
func (t *Tracker) Sample(ctx context.Context, s models.LocationSample) ([]Event, error) {
	if !t.Allow() {
		return nil, nil
	}
	return t.Do(ctx, func(m *Machine) []Event { return m.Sample(s) })
}

// SetPlan configures the itinerary and day being tracked, with its stored records
func (t *Tracker) SetPlan(ctx context.Context, pc PlanContext, records []models.ArrivalRecord, at time.Time) ([]Event, error) {
	return t.Do(ctx, func(m *Machine) []Event {
		events := m.SetPlan(pc, at)
		m.LoadRecords(records)
		return events
	})
}

// Activate starts watching
func (t *Tracker) Activate(ctx context.Context, at time.Time) ([]Event, error) {
	return t.Do(ctx, func(m *Machine) []Event { return m.Activate(at) })
}

// Respond answers a prompt
func (t *Tracker) Respond(ctx context.Context, promptID string, yes bool, at time.Time) ([]Event, error) {
	return t.Do(ctx, func(m *Machine) []Event { return m.Respond(promptID, yes, at) })
}

// CheckIn confirms a stop manually
func (t *Tracker) CheckIn(ctx context.Context, stop models.StopKey, at time.Time) ([]Event, error) {
	return t.Do(ctx, func(m *Machine) []Event { return m.CheckIn(stop, at) })
}

// Fail reports a geolocation failure
func (t *Tracker) Fail(ctx context.Context, kind FailureKind, at time.Time) ([]Event, error) {
	return t.Do(ctx, func(m *Machine) []Event { return m.Fail(kind, at) })
}

// StopWatch tears down the watch; calling it while idle is a no-op
func (t *Tracker) StopWatch(ctx context.Context, at time.Time) ([]Event, error) {
	return t.Do(ctx, func(m *Machine) []Event { return m.Stop(at) })
}

// SetProfile swaps the geofence profile
func (t *Tracker) SetProfile(ctx context.Context, p models.GeofenceProfile) error {
	var err error
	_, doErr := t.Do(ctx, func(m *Machine) []Event {
		err = m.SetProfile(p)
		return nil
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Snapshot reads the machine state between commands
func (t *Tracker) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	_, err := t.Do(ctx, func(m *Machine) []Event {
		snap = m.Snapshot()
		return nil
	})
	return snap, err
}

// Close stops the tracker goroutine. It is safe to call more than once.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		close(t.quit)
	})
	<-t.done
}

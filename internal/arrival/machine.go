// Package arrival detects when the traveler reaches the next stop of the active day
// and asks them to confirm it.
package arrival

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jengzang/tripguide-backend-go/internal/models"
	"github.com/jengzang/tripguide-backend-go/internal/spatial"
)

// PlanContext is the itinerary state the machine tracks against
type PlanContext struct {
	Itinerary  *models.Itinerary
	Day        int  // 1-based active day
	GuidedTour bool // guided mode switched on
	Confirmed  bool // the plan was confirmed by the traveler
}

func (pc PlanContext) key() models.PlanKey {
	if pc.Itinerary == nil {
		return models.PlanKey{}
	}
	return pc.Itinerary.Key
}

// Machine is the per-plan arrival state machine. It is not safe for concurrent
// use; Tracker serializes access to it.
type Machine struct {
	profile models.GeofenceProfile
	newID   func() string

	plan     PlanContext
	watching bool
	records  map[models.StopKey]models.ArrivalRecord

	state          State
	target         *models.StopKey
	candidateSince time.Time
	prompt         *Prompt
	lastAt         time.Time
}

// NewMachine creates an idle machine using the given geofence profile
func NewMachine(profile models.GeofenceProfile) *Machine {
	return &Machine{
		profile: profile,
		newID:   uuid.NewString,
		records: make(map[models.StopKey]models.ArrivalRecord),
		state:   StateIdle,
	}
}

// WithIDs replaces the prompt id generator
func (m *Machine) WithIDs(newID func() string) *Machine {
	m.newID = newID
	return m
}

// Profile returns the geofence profile in use
func (m *Machine) Profile() models.GeofenceProfile {
	return m.profile
}

// SetProfile swaps the geofence profile. A running dwell timer restarts.
func (m *Machine) SetProfile(p models.GeofenceProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.profile = p
	m.candidateSince = time.Time{}
	return nil
}

// Plan returns the key of the tracked plan
func (m *Machine) Plan() models.PlanKey {
	return m.plan.key()
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// SetPlan points the machine at an itinerary and active day. A different plan or
// day resets tracking; a different plan also drops the arrival records.
func (m *Machine) SetPlan(pc PlanContext, at time.Time) []Event {
	pc.Itinerary = pc.Itinerary.Clone()
	keyChanged := m.plan.key() != pc.key()
	changed := keyChanged || m.plan.Day != pc.Day
	if keyChanged {
		m.records = make(map[models.StopKey]models.ArrivalRecord)
	}
	m.plan = pc

	var events []Event
	if changed || !m.active() {
		reason := "plan_changed"
		if !changed {
			reason = "inactive"
		}
		events = m.reset(reason, at)
	}
	if m.active() && m.state == StateIdle {
		events = append(events, m.setState(StateWatching, "plan_ready", at)...)
	}
	return events
}

// LoadRecords replaces the arrival records of the current plan
func (m *Machine) LoadRecords(records []models.ArrivalRecord) {
	m.records = make(map[models.StopKey]models.ArrivalRecord, len(records))
	for _, r := range records {
		m.records[r.Stop] = r
	}
}

// Activate starts consuming samples, as when location permission is granted
func (m *Machine) Activate(at time.Time) []Event {
	m.watching = true
	if m.active() && m.state == StateIdle {
		return m.setState(StateWatching, "activated", at)
	}
	return nil
}

// Stop tears down the watch. Stopping an idle machine is a no-op.
func (m *Machine) Stop(at time.Time) []Event {
	if !m.watching && m.state == StateIdle && m.prompt == nil {
		return nil
	}
	m.watching = false
	return m.reset("stopped", at)
}

// Fail handles a geolocation failure. Every kind forces Idle.
func (m *Machine) Fail(kind FailureKind, at time.Time) []Event {
	m.watching = false
	return m.reset(string(kind), at)
}

// Sample advances the machine with one location fix. Samples without usable
// coordinates are dropped without any state change.
func (m *Machine) Sample(s models.LocationSample) []Event {
	if !s.Usable() {
		return nil
	}
	at := s.Timestamp
	if at.IsZero() {
		at = m.lastAt
	}
	m.lastAt = at

	if !m.active() {
		return m.reset("inactive", at)
	}
	key, stop, ok := m.nextStop()
	if !ok {
		return m.reset("no_next_stop", at)
	}

	var events []Event
	if m.target == nil || *m.target != key {
		events = append(events, m.retarget(key, at)...)
	}

	here := s.Coordinate()
	dist := spatial.DistanceMeters(&here, stop.Location)
	p := m.profile

	if m.prompt != nil && m.prompt.Stop == key && dist > p.PromptClearMeters {
		events = append(events, m.clearPrompt("walked_away", at)...)
		m.candidateSince = time.Time{}
		return append(events, m.setState(StateWatching, "walked_away", at)...)
	}

	rec := m.records[key]
	if dist <= p.RadiusMeters {
		if rec.SnoozedAt(at) {
			m.candidateSince = time.Time{}
			return append(events, m.setState(StateSnoozed, "snoozed", at)...)
		}
		if m.candidateSince.IsZero() {
			m.candidateSince = at
			if m.prompt == nil {
				events = append(events, m.setState(StateCandidate, "entered_geofence", at)...)
			}
		}
		if m.prompt == nil && at.Sub(m.candidateSince) >= p.Dwell() {
			events = append(events, m.showPrompt(key, stop, dist, at)...)
		}
		return events
	}

	m.candidateSince = time.Time{}
	if m.prompt != nil {
		return events
	}
	if rec.SnoozedAt(at) {
		return append(events, m.setState(StateSnoozed, "snoozed", at)...)
	}
	return append(events, m.setState(StateWatching, "outside_geofence", at)...)
}

// Respond answers the shown prompt. A stale or unknown prompt id is ignored;
// an empty id answers whatever prompt is shown.
func (m *Machine) Respond(promptID string, yes bool, at time.Time) []Event {
	if m.prompt == nil || (promptID != "" && promptID != m.prompt.ID) {
		return nil
	}
	key := m.prompt.Stop
	events := m.clearPrompt("answered", at)
	m.candidateSince = time.Time{}

	if yes {
		return append(events, m.confirm(key, at)...)
	}

	until := at.Add(m.profile.Snooze())
	m.records[key] = models.ArrivalRecord{Stop: key, SnoozedUntil: &until}
	events = append(events, m.event(EventArrivalSnoozed, &key, "declined", at))
	return append(events, m.setState(StateSnoozed, "declined", at)...)
}

// CheckIn confirms a stop manually. Unknown or already confirmed stops are ignored.
func (m *Machine) CheckIn(stop models.StopKey, at time.Time) []Event {
	if m.records[stop].Confirmed() || !m.hasStop(stop) {
		return nil
	}
	var events []Event
	if m.prompt != nil && m.prompt.Stop == stop {
		events = append(events, m.clearPrompt("checked_in", at)...)
	}
	return append(events, m.confirm(stop, at)...)
}

// Record returns the arrival record of one stop
func (m *Machine) Record(stop models.StopKey) (models.ArrivalRecord, bool) {
	r, ok := m.records[stop]
	return r, ok
}

// Records returns the arrival records ordered by day and activity id
func (m *Machine) Records() []models.ArrivalRecord {
	out := make([]models.ArrivalRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Stop.Day != out[j].Stop.Day {
			return out[i].Stop.Day < out[j].Stop.Day
		}
		return out[i].Stop.ActivityID < out[j].Stop.ActivityID
	})
	return out
}

// Snapshot copies the observable machine state
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		Plan:    m.plan.key(),
		Day:     m.plan.Day,
		State:   m.state,
		Profile: m.profile,
		Records: m.Records(),
	}
	if m.target != nil {
		t := *m.target
		snap.Target = &t
	}
	if !m.candidateSince.IsZero() {
		since := m.candidateSince
		snap.CandidateSince = &since
	}
	if m.prompt != nil {
		p := *m.prompt
		snap.Prompt = &p
	}
	return snap
}

func (m *Machine) active() bool {
	if !m.watching || !m.plan.GuidedTour || !m.plan.Confirmed {
		return false
	}
	_, ok := m.plan.Itinerary.DayByNumber(m.plan.Day)
	return ok
}

// nextStop is the first unconfirmed stop with coordinates in itinerary order
func (m *Machine) nextStop() (models.StopKey, models.Activity, bool) {
	day, ok := m.plan.Itinerary.DayByNumber(m.plan.Day)
	if !ok {
		return models.StopKey{}, models.Activity{}, false
	}
	for _, a := range day.Activities {
		if !a.HasLocation() {
			continue
		}
		key := models.StopKey{Day: day.Day, ActivityID: a.ID}
		if m.records[key].Confirmed() {
			continue
		}
		return key, a, true
	}
	return models.StopKey{}, models.Activity{}, false
}

func (m *Machine) hasStop(stop models.StopKey) bool {
	day, ok := m.plan.Itinerary.DayByNumber(stop.Day)
	if !ok {
		return false
	}
	for _, a := range day.Activities {
		if a.ID == stop.ActivityID {
			return true
		}
	}
	return false
}

// retarget switches the tracked stop, discarding the old candidate and its prompt
func (m *Machine) retarget(key models.StopKey, at time.Time) []Event {
	var events []Event
	if m.prompt != nil && m.prompt.Stop != key {
		events = append(events, m.clearPrompt("target_changed", at)...)
	}
	m.candidateSince = time.Time{}
	m.target = &key
	return events
}

func (m *Machine) confirm(key models.StopKey, at time.Time) []Event {
	confirmedAt := at
	m.records[key] = models.ArrivalRecord{Stop: key, ConfirmedAt: &confirmedAt}
	if m.target != nil && *m.target == key {
		m.target = nil
		m.candidateSince = time.Time{}
	}

	events := []Event{m.event(EventArrivalConfirmed, &key, "confirmed", at)}
	if m.active() && m.prompt == nil {
		events = append(events, m.setState(StateWatching, "confirmed", at)...)
	}
	return events
}

func (m *Machine) showPrompt(key models.StopKey, stop models.Activity, dist float64, at time.Time) []Event {
	m.prompt = &Prompt{ID: m.newID(), Stop: key, Title: stop.Title, ShownAt: at}
	events := m.setState(StatePromptShown, "dwell_reached", at)
	e := m.event(EventPromptShown, &key, "dwell_reached", at)
	e.PromptID = m.prompt.ID
	e.DistanceMeters = dist
	return append(events, e)
}

func (m *Machine) clearPrompt(reason string, at time.Time) []Event {
	if m.prompt == nil {
		return nil
	}
	stop := m.prompt.Stop
	e := m.event(EventPromptCleared, &stop, reason, at)
	e.PromptID = m.prompt.ID
	m.prompt = nil
	return []Event{e}
}

func (m *Machine) reset(reason string, at time.Time) []Event {
	events := m.clearPrompt(reason, at)
	m.target = nil
	m.candidateSince = time.Time{}
	return append(events, m.setState(StateIdle, reason, at)...)
}

func (m *Machine) setState(s State, reason string, at time.Time) []Event {
	if m.state == s {
		return nil
	}
	m.state = s
	return []Event{m.event(EventStateChanged, m.target, reason, at)}
}

func (m *Machine) event(t EventType, stop *models.StopKey, reason string, at time.Time) Event {
	e := Event{Type: t, Plan: m.plan.key(), State: m.state, Reason: reason, At: at}
	if stop != nil {
		s := *stop
		e.Stop = &s
	}
	return e
}

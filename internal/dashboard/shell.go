// Package dashboard owns the per-visitor fetch state of the weather dashboard and
// turns it into view models.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/weather"
)

// CallsPerCycle is the number of provider requests one fetch cycle makes.
const CallsPerCycle = 3

// ErrNotReady is returned by RefreshLive when the shell has nothing displayed to refresh.
var ErrNotReady = errors.New("dashboard is not ready")

const refreshFailed = "refresh_failed"

// State is the lifecycle phase of a Shell.
type State int

const (
	Idle State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Cities holds the configurable city names the shell falls back to.
type Cities struct {
	Denied        string   // searched when the visitor refused geolocation
	NoGeolocation string   // searched when no location source is available
	Suggested     string   // offered on the error panel
	Pills         []string // quick-search shortcuts
}

// CityBook shares the current Cities between shells; it is swapped on config reload.
type CityBook struct {
	v atomic.Pointer[Cities]
}

func NewCityBook(c Cities) *CityBook {
	b := &CityBook{}
	b.Set(c)
	return b
}

func (b *CityBook) Get() Cities {
	return *b.v.Load()
}

func (b *CityBook) Set(c Cities) {
	c.Pills = append([]string(nil), c.Pills...)
	b.v.Store(&c)
}

// Snapshot is a read-only copy of a shell's state. Current, Forecast and AirQuality
// are replaced wholesale by each committed cycle and never mutated.
type Snapshot struct {
	State      State                      `json:"state"`
	Seq        uint64                     `json:"seq"`
	Query      weather.Query              `json:"query"`
	Current    *weather.CurrentConditions `json:"current,omitempty"`
	Forecast   *weather.Forecast          `json:"forecast,omitempty"`
	AirQuality *weather.AirQuality        `json:"airQuality,omitempty"`
	ErrKind    weather.ErrorKind          `json:"errorKind,omitempty"`
	Message    string                     `json:"message,omitempty"`
	Suggestion string                     `json:"suggestion,omitempty"`
	UpdatedAt  time.Time                  `json:"updatedAt"`
}

// Hint is what the browser reports about its location when a session starts.
type Hint struct {
	Coords            *weather.Coordinates
	GeolocationDenied bool
}

// Options configures a Shell. Only Cities is required.
type Options struct {
	Cities  *CityBook
	Locator Locator
	Metrics *metrics.Recorder
}

// Shell is the single owner of one dashboard's fetch state. Every write goes
// through its methods; readers get Snapshots.
type Shell struct {
	id       string
	provider weather.Provider
	locator  Locator
	cities   *CityBook
	metrics  *metrics.Recorder

	mu   sync.RWMutex
	seq  uint64
	snap Snapshot
}

func NewShell(id string, provider weather.Provider, opts Options) *Shell {
	if opts.Cities == nil {
		opts.Cities = NewCityBook(Cities{Denied: "London", NoGeolocation: "New York", Suggested: "Tokyo"})
	}
	return &Shell{
		id:       id,
		provider: provider,
		locator:  opts.Locator,
		cities:   opts.Cities,
		metrics:  opts.Metrics,
		snap:     Snapshot{State: Idle},
	}
}

// ID returns the session id the shell was created with.
func (s *Shell) ID() string {
	return s.id
}

// Start resolves the initial location and runs the first fetch cycle.
// Browser coordinates win, a refusal goes to the denied-geolocation city, then the
// server-side locator is asked, and without one the no-geolocation city is used.
func (s *Shell) Start(ctx context.Context, hint Hint) Snapshot {
	cities := s.cities.Get()

	switch {
	case hint.Coords != nil:
		return s.run(ctx, weather.CoordsQuery(*hint.Coords))
	case hint.GeolocationDenied:
		return s.run(ctx, weather.CityQuery(cities.Denied))
	case s.locator != nil:
		coords, err := s.locator.Locate(ctx)
		if err != nil {
			log.WithField("session", s.id).Warnf("locate failed, using %s: %v", cities.Denied, err)
			return s.run(ctx, weather.CityQuery(cities.Denied))
		}
		return s.run(ctx, weather.CoordsQuery(coords))
	default:
		return s.run(ctx, weather.CityQuery(cities.NoGeolocation))
	}
}

// Search runs a fetch cycle for a city name.
func (s *Shell) Search(ctx context.Context, city string) Snapshot {
	return s.run(ctx, weather.CityQuery(city))
}

// SearchCoords runs a fetch cycle for a coordinate pair.
func (s *Shell) SearchCoords(ctx context.Context, c weather.Coordinates) Snapshot {
	return s.run(ctx, weather.CoordsQuery(c))
}

// Refresh re-runs the last query. An idle shell has nothing to refresh.
func (s *Shell) Refresh(ctx context.Context) Snapshot {
	s.mu.RLock()
	q, state := s.snap.Query, s.snap.State
	s.mu.RUnlock()

	if state == Idle {
		return s.Snapshot()
	}
	return s.run(ctx, q)
}

// Snapshot returns a copy of the current state.
func (s *Shell) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Shell) run(ctx context.Context, q weather.Query) Snapshot {
	seq := s.begin(q)
	logger := log.WithFields(log.Fields{"session": s.id, "seq": seq, "query": q.Key()})
	logger.Debug("fetch cycle started")

	current, forecast, err := s.fetch(ctx, q)
	if err != nil {
		logger.Errorf("fetch cycle failed: %v", err)
		return s.commit(seq, Snapshot{
			State:      Error,
			Query:      q,
			ErrKind:    weather.KindOf(err),
			Message:    weather.UserMessage(err, q),
			Suggestion: s.cities.Get().Suggested,
		})
	}

	return s.commit(seq, Snapshot{
		State:      Ready,
		Query:      q,
		Current:    &current,
		Forecast:   &forecast,
		AirQuality: s.airQuality(ctx, logger, current.Coords),
	})
}

// RefreshLive re-runs the last query of a Ready shell in the background. A failed
// cycle is dropped and returned: the displayed data stays as it was. A failed
// air-quality fetch keeps the previous reading.
func (s *Shell) RefreshLive(ctx context.Context) (Snapshot, error) {
	seq, q, ok := s.beginLive()
	if !ok {
		return s.Snapshot(), ErrNotReady
	}
	logger := log.WithFields(log.Fields{"session": s.id, "seq": seq, "query": q.Key()})
	logger.Debug("live refresh started")

	current, forecast, err := s.fetch(ctx, q)
	if err != nil {
		logger.WithError(err).Warn("live refresh failed, keeping displayed data")
		s.metrics.ObserveCycle(refreshFailed)
		return s.Snapshot(), err
	}

	next := Snapshot{
		State:      Ready,
		Query:      q,
		Current:    &current,
		Forecast:   &forecast,
		AirQuality: s.airQuality(ctx, logger, current.Coords),
	}
	if next.AirQuality == nil {
		next.AirQuality = s.Snapshot().AirQuality
	}
	return s.commit(seq, next), nil
}

// fetch loads current conditions and the forecast concurrently.
func (s *Shell) fetch(ctx context.Context, q weather.Query) (weather.CurrentConditions, weather.Forecast, error) {
	var (
		wg       sync.WaitGroup
		current  weather.CurrentConditions
		forecast weather.Forecast
		curErr   error
		fcErr    error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		current, curErr = s.provider.Current(ctx, q)
	}()
	go func() {
		defer wg.Done()
		forecast, fcErr = s.provider.Forecast(ctx, q)
	}()
	wg.Wait()

	if curErr != nil {
		return current, forecast, curErr
	}
	return current, forecast, fcErr
}

// airQuality is optional: a failure is logged and yields nil.
func (s *Shell) airQuality(ctx context.Context, logger *log.Entry, at weather.Coordinates) *weather.AirQuality {
	aq, err := s.provider.AirQuality(ctx, at)
	if err != nil {
		logger.WithError(err).Warn(weather.ErrFeatureUnavailable)
		return nil
	}
	return &aq
}

// beginLive takes the next sequence number without leaving Ready. It fails when the
// shell is not Ready, including while a search is in flight.
func (s *Shell) beginLive() (uint64, weather.Query, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap.State != Ready {
		return 0, weather.Query{}, false
	}
	s.seq++
	return s.seq, s.snap.Query, true
}

func (s *Shell) begin(q weather.Query) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.snap.State = Loading
	s.snap.Seq = s.seq
	s.snap.Query = q
	s.snap.ErrKind = weather.KindNone
	s.snap.Message = ""
	s.snap.Suggestion = ""
	return s.seq
}

// commit installs next unless a newer cycle has started since seq was issued.
func (s *Shell) commit(seq uint64, next Snapshot) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq != s.seq {
		log.WithFields(log.Fields{"session": s.id, "seq": seq, "latest": s.seq}).Debug("discarding stale fetch cycle")
		s.metrics.ObserveStaleCycle()
		return s.snap
	}

	next.Seq = seq
	next.UpdatedAt = time.Now().UTC()
	s.snap = next
	s.metrics.ObserveCycle(next.State.String())
	return s.snap
}

package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/weather"
)

// stubProvider answers every known city with clear weather and rejects "Xyzzyqqq".
// A gate registered for a query key blocks Current and Forecast until it is closed.
type stubProvider struct {
	mu      sync.Mutex
	gates   map[string]chan struct{}
	entered chan string
	aqErr   error
	fail    error
	calls   atomic.Int32
}

func newStub() *stubProvider {
	return &stubProvider{gates: map[string]chan struct{}{}, entered: make(chan string, 8)}
}

func (p *stubProvider) gate(key string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{})
	p.gates[key] = ch
	return ch
}

func (p *stubProvider) wait(q weather.Query) {
	p.mu.Lock()
	ch, ok := p.gates[q.Key()]
	p.mu.Unlock()
	if ok {
		p.entered <- q.Key()
		<-ch
	}
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Current(_ context.Context, q weather.Query) (weather.CurrentConditions, error) {
	p.calls.Add(1)
	p.wait(q)
	if p.fail != nil {
		return weather.CurrentConditions{}, p.fail
	}
	if q.City == "Xyzzyqqq" {
		return weather.CurrentConditions{}, fmt.Errorf("current weather: %w", weather.ErrNotFound)
	}
	name := q.City
	coords := weather.Coordinates{Lat: 35.69, Lon: 139.69}
	if q.Coords != nil {
		name, coords = "Here", *q.Coords
	}
	return weather.CurrentConditions{
		Name:        name,
		Country:     "JP",
		Coords:      coords,
		Conditions:  []weather.Condition{{ID: 800, Main: "Clear", Description: "clear sky"}},
		Temperature: weather.Temperature{Current: 20, FeelsLike: 19, Min: 18, Max: 22},
		Humidity:    60,
	}, nil
}

func (p *stubProvider) Forecast(_ context.Context, q weather.Query) (weather.Forecast, error) {
	p.calls.Add(1)
	p.wait(q)
	if p.fail != nil {
		return weather.Forecast{}, p.fail
	}
	if q.City == "Xyzzyqqq" {
		return weather.Forecast{}, fmt.Errorf("forecast: %w", weather.ErrNotFound)
	}
	return weather.Forecast{
		City: weather.City{Name: q.City},
		Points: []weather.ForecastPoint{
			{DateText: "2024-06-01 09:00:00", Temperature: weather.Temperature{Min: 15, Max: 20}},
		},
	}, nil
}

func (p *stubProvider) AirQuality(context.Context, weather.Coordinates) (weather.AirQuality, error) {
	if p.aqErr != nil {
		return weather.AirQuality{}, p.aqErr
	}
	return weather.AirQuality{AQI: 2}, nil
}

func TestShellSearchReady(t *testing.T) {
	sh := NewShell("s1", newStub(), Options{})
	assert.Equal(t, Idle, sh.Snapshot().State)

	snap := sh.Search(context.Background(), "Tokyo")

	require.Equal(t, Ready, snap.State)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "Tokyo", snap.Current.Name)
	require.NotNil(t, snap.Forecast)
	require.NotNil(t, snap.AirQuality)
	assert.Equal(t, 2, snap.AirQuality.AQI)
	assert.Equal(t, uint64(1), snap.Seq)
	assert.Empty(t, snap.Message)
}

func TestShellSearchNotFound(t *testing.T) {
	sh := NewShell("s1", newStub(), Options{})
	sh.Search(context.Background(), "Tokyo")

	snap := sh.Search(context.Background(), "Xyzzyqqq")

	assert.Equal(t, Error, snap.State)
	assert.Equal(t, weather.KindNotFound, snap.ErrKind)
	assert.Equal(t, `City "Xyzzyqqq" not found. Please check the spelling and try again.`, snap.Message)
	assert.Equal(t, "Tokyo", snap.Suggestion)
	assert.Nil(t, snap.Current)
	assert.Nil(t, snap.Forecast)
	assert.Nil(t, snap.AirQuality)
}

func TestShellAirQualityFailureStaysReady(t *testing.T) {
	p := newStub()
	p.aqErr = fmt.Errorf("air quality: %w", weather.ErrNetwork)
	sh := NewShell("s1", p, Options{})

	snap := sh.Search(context.Background(), "Tokyo")

	assert.Equal(t, Ready, snap.State)
	assert.NotNil(t, snap.Current)
	assert.NotNil(t, snap.Forecast)
	assert.Nil(t, snap.AirQuality)
	assert.Empty(t, snap.Message)
}

func TestShellAirQualityFailureIsLogged(t *testing.T) {
	hook := logtest.NewGlobal()
	t.Cleanup(func() { log.StandardLogger().ReplaceHooks(make(log.LevelHooks)) })

	p := newStub()
	p.aqErr = fmt.Errorf("air quality: %w", weather.ErrNetwork)
	NewShell("s1", p, Options{}).Search(context.Background(), "Tokyo")

	var found *log.Entry
	for _, e := range hook.AllEntries() {
		if e.Level == log.WarnLevel && e.Message == weather.ErrFeatureUnavailable.Error() {
			found = e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, p.aqErr, found.Data[log.ErrorKey])
	assert.Equal(t, "s1", found.Data["session"])
}

func TestShellRefreshLiveKeepsDataOnFailure(t *testing.T) {
	p := newStub()
	sh := NewShell("s1", p, Options{})

	_, err := sh.RefreshLive(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.Equal(t, Idle, sh.Snapshot().State)

	before := sh.Search(context.Background(), "Tokyo")
	require.Equal(t, Ready, before.State)

	p.fail = fmt.Errorf("current weather: %w", weather.ErrNetwork)
	snap, err := sh.RefreshLive(context.Background())
	assert.ErrorIs(t, err, weather.ErrNetwork)
	assert.Equal(t, Ready, snap.State)
	assert.Empty(t, snap.Message)
	require.NotNil(t, snap.Current)
	assert.Equal(t, "Tokyo", snap.Current.Name)
	assert.Equal(t, before.Seq, snap.Seq)

	p.fail = nil
	p.aqErr = fmt.Errorf("air quality: %w", weather.ErrNetwork)
	snap, err = sh.RefreshLive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Ready, snap.State)
	require.NotNil(t, snap.AirQuality)
	assert.Equal(t, 2, snap.AirQuality.AQI)
	assert.Greater(t, snap.Seq, before.Seq)
}

func TestShellKeepsDataWhileLoading(t *testing.T) {
	p := newStub()
	sh := NewShell("s1", p, Options{})
	sh.Search(context.Background(), "Tokyo")

	release := p.gate("Paris")
	done := make(chan Snapshot)
	go func() { done <- sh.Search(context.Background(), "Paris") }()
	<-p.entered

	during := sh.Snapshot()
	assert.Equal(t, Loading, during.State)
	require.NotNil(t, during.Current)
	assert.Equal(t, "Tokyo", during.Current.Name)

	close(release)
	after := <-done
	assert.Equal(t, "Paris", after.Current.Name)
}

func TestShellDiscardsStaleCycle(t *testing.T) {
	p := newStub()
	rec := metrics.New()
	sh := NewShell("s1", p, Options{Metrics: rec})

	release := p.gate("Paris")
	stale := make(chan Snapshot)
	go func() { stale <- sh.Search(context.Background(), "Paris") }()
	<-p.entered

	latest := sh.Search(context.Background(), "Tokyo")
	require.Equal(t, Ready, latest.State)
	assert.Equal(t, uint64(2), latest.Seq)

	close(release)
	got := <-stale

	assert.Equal(t, "Tokyo", got.Current.Name)
	assert.Equal(t, "Tokyo", sh.Snapshot().Current.Name)
	assert.Equal(t, uint64(2), sh.Snapshot().Seq)
}

func TestShellRefresh(t *testing.T) {
	p := newStub()
	sh := NewShell("s1", p, Options{})

	snap := sh.Refresh(context.Background())
	assert.Equal(t, Idle, snap.State)
	assert.Zero(t, p.calls.Load())

	sh.Search(context.Background(), "Tokyo")
	snap = sh.Refresh(context.Background())
	assert.Equal(t, Ready, snap.State)
	assert.Equal(t, uint64(2), snap.Seq)
	assert.Equal(t, "Tokyo", snap.Query.City)
}

type fakeLocator struct {
	coords weather.Coordinates
	err    error
}

func (l fakeLocator) Locate(context.Context) (weather.Coordinates, error) {
	return l.coords, l.err
}

func TestShellStartLocationFallbacks(t *testing.T) {
	browser := weather.Coordinates{Lat: 48.85, Lon: 2.35}
	server := weather.Coordinates{Lat: 52.52, Lon: 13.40}

	tests := []struct {
		name    string
		hint    Hint
		locator Locator
		want    weather.Query
	}{
		{name: "browser coordinates", hint: Hint{Coords: &browser}, locator: fakeLocator{coords: server}, want: weather.CoordsQuery(browser)},
		{name: "geolocation denied", hint: Hint{GeolocationDenied: true}, locator: fakeLocator{coords: server}, want: weather.CityQuery("London")},
		{name: "server locator", locator: fakeLocator{coords: server}, want: weather.CoordsQuery(server)},
		{name: "locator failure", locator: fakeLocator{err: errors.New("boom")}, want: weather.CityQuery("London")},
		{name: "no location source", want: weather.CityQuery("New York")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sh := NewShell("s1", newStub(), Options{Locator: tt.locator})
			snap := sh.Start(context.Background(), tt.hint)

			assert.Equal(t, Ready, snap.State)
			assert.Equal(t, tt.want, snap.Query)
		})
	}
}

func TestCityBookSwap(t *testing.T) {
	book := NewCityBook(Cities{Denied: "London", Suggested: "Tokyo"})
	sh := NewShell("s1", newStub(), Options{Cities: book})

	book.Set(Cities{Denied: "Madrid", Suggested: "Lima"})

	snap := sh.Start(context.Background(), Hint{GeolocationDenied: true})
	assert.Equal(t, "Madrid", snap.Query.City)

	snap = sh.Search(context.Background(), "Xyzzyqqq")
	assert.Equal(t, "Lima", snap.Suggestion)
}

func TestStateText(t *testing.T) {
	b, err := Ready.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "ready", string(b))
	assert.Equal(t, "state(9)", State(9).String())
}

func TestSnapshotUpdatedAt(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)
	snap := NewShell("s1", newStub(), Options{}).Search(context.Background(), "Tokyo")
	assert.True(t, snap.UpdatedAt.After(before))
}

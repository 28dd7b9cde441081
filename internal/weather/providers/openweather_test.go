package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/weather"
)

const currentBody = `{
  "coord": {"lon": 139.6917, "lat": 35.6895},
  "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
  "main": {"temp": 18.5, "feels_like": 18.1, "temp_min": 17, "temp_max": 19.8, "pressure": 1009, "humidity": 82, "sea_level": 1009, "grnd_level": 1007},
  "visibility": 8000,
  "wind": {"speed": 5.1, "deg": 200, "gust": 8.2},
  "clouds": {"all": 90},
  "rain": {"1h": 0.6},
  "dt": 1717200000,
  "sys": {"country": "JP", "sunrise": 1717183200, "sunset": 1717234800},
  "timezone": 32400,
  "name": "Tokyo"
}`

const forecastBody = `{
  "list": [
    {"dt": 1717200000, "main": {"temp": 18, "feels_like": 17, "temp_min": 16, "temp_max": 19, "pressure": 1010, "humidity": 70},
     "weather": [{"id": 800, "main": "Clear", "description": "clear sky", "icon": "01d"}],
     "clouds": {"all": 0}, "wind": {"speed": 2, "deg": 90}, "visibility": 10000, "pop": 0.1,
     "sys": {"pod": "d"}, "dt_txt": "2024-06-01 00:00:00"},
    {"dt": 1717210800, "main": {"temp": 20, "feels_like": 20, "temp_min": 19, "temp_max": 21, "pressure": 1010, "humidity": 65},
     "weather": [{"id": 501, "main": "Rain", "description": "moderate rain", "icon": "10d"}],
     "clouds": {"all": 80}, "wind": {"speed": 3, "deg": 100}, "visibility": 9000, "pop": 0.7,
     "sys": {"pod": "d"}, "dt_txt": "2024-06-01 03:00:00"}
  ],
  "city": {"name": "Tokyo", "country": "JP", "coord": {"lat": 35.6895, "lon": 139.6917}, "timezone": 32400, "sunrise": 1717183200, "sunset": 1717234800}
}`

const airBody = `{"list": [{"main": {"aqi": 2}, "components": {"co": 201.9, "no": 0.1, "no2": 4.2, "o3": 68.7, "so2": 0.6, "pm2_5": 3.5, "pm10": 5.1, "nh3": 0.9}, "dt": 1717200000}]}`

type recorder struct {
	hits  atomic.Int32
	query atomic.Value
}

func newServer(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.hits.Add(1)
		rec.query.Store(r.URL.Path + "?" + r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func newTestProvider(t *testing.T, baseURL, key string) *OpenWeatherProvider {
	t.Helper()
	p, err := NewOpenWeatherProvider(ClientConfig{
		Client:  &http.Client{Timeout: 2 * time.Second},
		BaseURL: baseURL,
		Metrics: metrics.New(),
	}, key)
	require.NoError(t, err)
	return p
}

func TestCurrentMapping(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, currentBody)
	p := newTestProvider(t, srv.URL, "k")

	c, err := p.Current(context.Background(), weather.CityQuery("Tokyo"))
	require.NoError(t, err)

	assert.Equal(t, "Tokyo", c.Name)
	assert.Equal(t, "JP", c.Country)
	assert.Equal(t, weather.Coordinates{Lat: 35.6895, Lon: 139.6917}, c.Coords)
	assert.Equal(t, 500, c.Primary().ID)
	assert.Equal(t, 18.5, c.Temperature.Current)
	assert.Equal(t, 82.0, c.Humidity)
	require.NotNil(t, c.SeaLevel)
	assert.Equal(t, 1009.0, *c.SeaLevel)
	require.NotNil(t, c.Wind.Gust)
	assert.Equal(t, 8.2, *c.Wind.Gust)
	assert.Equal(t, 0.6, weather.Precipitation(c))
	assert.Nil(t, c.Snow)
	assert.Equal(t, 32400, c.UTCOffset)
	assert.Equal(t, time.Unix(1717183200, 0).UTC(), c.Sunrise)

	q := rec.query.Load().(string)
	assert.Contains(t, q, "/weather?")
	assert.Contains(t, q, "q=Tokyo")
	assert.Contains(t, q, "units=metric")
	assert.Contains(t, q, "appid=k")
}

func TestCurrentByCoords(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, currentBody)
	p := newTestProvider(t, srv.URL, "k")

	_, err := p.Current(context.Background(), weather.CoordsQuery(weather.Coordinates{Lat: 35.5, Lon: 139.25}))
	require.NoError(t, err)

	q := rec.query.Load().(string)
	assert.Contains(t, q, "lat=35.5")
	assert.Contains(t, q, "lon=139.25")
	assert.NotContains(t, q, "q=")
}

func TestForecastMapping(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, forecastBody)
	p := newTestProvider(t, srv.URL, "k")

	f, err := p.Forecast(context.Background(), weather.CityQuery("Tokyo"))
	require.NoError(t, err)

	assert.Equal(t, "Tokyo", f.City.Name)
	assert.Equal(t, 32400, f.City.UTCOffset)
	require.Len(t, f.Points, 2)
	assert.Equal(t, "2024-06-01 00:00:00", f.Points[0].DateText)
	assert.Equal(t, 0.7, f.Points[1].Pop)
	assert.Equal(t, "d", f.Points[1].PartOfDay)

	days := weather.DailySummaries(f)
	require.Len(t, days, 1)
	assert.Equal(t, 501, days[0].Condition.ID)
	assert.Equal(t, 16.0, days[0].MinTemp)
	assert.Equal(t, 21.0, days[0].MaxTemp)
}

func TestAirQualityMapping(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, airBody)
	p := newTestProvider(t, srv.URL, "k")

	aq, err := p.AirQuality(context.Background(), weather.Coordinates{Lat: 1, Lon: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, aq.AQI)
	assert.Equal(t, 3.5, aq.Components.PM25)
	assert.Equal(t, 201.9, aq.Components.CO)
	assert.Contains(t, rec.query.Load().(string), "/air_pollution?")
}

func TestAirQualityEmptyList(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"list": []}`)
	p := newTestProvider(t, srv.URL, "k")

	_, err := p.AirQuality(context.Background(), weather.Coordinates{})

	assert.ErrorIs(t, err, weather.ErrNetwork)
}

func TestNotFound(t *testing.T) {
	srv, _ := newServer(t, http.StatusNotFound, `{"cod": "404", "message": "city not found"}`)
	p := newTestProvider(t, srv.URL, "k")

	_, err := p.Current(context.Background(), weather.CityQuery("Xyzzyqqq"))

	require.ErrorIs(t, err, weather.ErrNotFound)
	assert.Equal(t, weather.KindNotFound, weather.KindOf(err))
	assert.Equal(t, `City "Xyzzyqqq" not found. Please check the spelling and try again.`,
		weather.UserMessage(err, weather.CityQuery("Xyzzyqqq")))
}

func TestServerErrorIsNetwork(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, `{"message": "internal error"}`)
	p := newTestProvider(t, srv.URL, "k")

	_, err := p.Forecast(context.Background(), weather.CityQuery("Tokyo"))

	require.ErrorIs(t, err, weather.ErrNetwork)
	assert.Contains(t, err.Error(), "internal error")
	assert.Contains(t, err.Error(), "status 500")
}

func TestUnauthorizedIsNetwork(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"cod": 401, "message": "Invalid API key"}`)
	p := newTestProvider(t, srv.URL, "bad")

	_, err := p.Current(context.Background(), weather.CityQuery("Tokyo"))

	assert.Equal(t, weather.KindNetwork, weather.KindOf(err))
}

func TestTransportFailureIsNetwork(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, currentBody)
	url := srv.URL
	srv.Close()
	p := newTestProvider(t, url, "k")

	_, err := p.Current(context.Background(), weather.CityQuery("Tokyo"))

	assert.ErrorIs(t, err, weather.ErrNetwork)
}

func TestMissingKeySendsNothing(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, currentBody)
	p := newTestProvider(t, srv.URL, "")
	ctx := context.Background()

	_, err := p.Current(ctx, weather.CityQuery("Tokyo"))
	assert.ErrorIs(t, err, weather.ErrMissingCredential)
	_, err = p.Forecast(ctx, weather.CityQuery("Tokyo"))
	assert.ErrorIs(t, err, weather.ErrMissingCredential)
	_, err = p.AirQuality(ctx, weather.Coordinates{Lat: 1, Lon: 2})
	assert.ErrorIs(t, err, weather.ErrMissingCredential)

	assert.Zero(t, rec.hits.Load())
}

func TestEmptyQuery(t *testing.T) {
	srv, rec := newServer(t, http.StatusOK, currentBody)
	p := newTestProvider(t, srv.URL, "k")

	_, err := p.Current(context.Background(), weather.Query{})

	assert.ErrorIs(t, err, weather.ErrNotFound)
	assert.Zero(t, rec.hits.Load())
}

func TestNoHTTPClient(t *testing.T) {
	_, err := NewOpenWeatherProvider(ClientConfig{}, "k")
	assert.ErrorIs(t, err, errNoHTTPClient)
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	srv, rec := newServer(t, http.StatusNotFound, `{"message": "city not found"}`)
	p := newTestProvider(t, srv.URL, "k")

	for i := 0; i < 8; i++ {
		_, err := p.Current(context.Background(), weather.CityQuery("Xyzzyqqq"))
		require.ErrorIs(t, err, weather.ErrNotFound)
	}
	assert.Equal(t, int32(8), rec.hits.Load())
}

func TestProviderMessage(t *testing.T) {
	assert.Equal(t, "city not found", providerMessage([]byte(`{"cod":"404","message":"city not found"}`)))
	assert.Equal(t, "empty response", providerMessage(nil))
	assert.Equal(t, "unexpected response", providerMessage([]byte(`<html>`)))
}

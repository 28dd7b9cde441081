package providers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 data API.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	client  *resty.Client
	limiter *rate.Limiter
	circuit *gobreaker.CircuitBreaker
	metrics *metrics.Recorder
}

func NewOpenWeatherProvider(cfg ClientConfig, apiKey string) (*OpenWeatherProvider, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultOpenWeatherBaseURL
	}

	client := resty.NewWithClient(cfg.Client).
		SetBaseURL(base).
		SetHeader("Accept", "application/json").
		SetHeader("Cache-Control", "no-cache").
		SetHeader("User-Agent", "BrightSide/3.0")

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		client:  client,
		limiter: newLimiter(cfg.RPS, cfg.Burst),
		circuit: newBreaker("openweather"),
		metrics: cfg.Metrics,
	}, nil
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Current fetches current conditions for a city or coordinate pair.
func (p *OpenWeatherProvider) Current(ctx context.Context, q weather.Query) (weather.CurrentConditions, error) {
	params, err := p.queryParams(q)
	if err != nil {
		return weather.CurrentConditions{}, err
	}

	var payload owmCurrent
	if err := call(ctx, p.client, p.limiter, p.circuit, p.metrics, "/weather", params, &payload); err != nil {
		return weather.CurrentConditions{}, fmt.Errorf("current weather for %q: %w", q.Key(), err)
	}
	return payload.toDomain(), nil
}

// Forecast fetches the 5-day/3-hour forecast. Points keep the provider's order.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, q weather.Query) (weather.Forecast, error) {
	params, err := p.queryParams(q)
	if err != nil {
		return weather.Forecast{}, err
	}

	var payload owmForecast
	if err := call(ctx, p.client, p.limiter, p.circuit, p.metrics, "/forecast", params, &payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("forecast for %q: %w", q.Key(), err)
	}
	return payload.toDomain(), nil
}

// AirQuality fetches the current air-pollution sample at a coordinate pair.
func (p *OpenWeatherProvider) AirQuality(ctx context.Context, at weather.Coordinates) (weather.AirQuality, error) {
	if p.apiKey == "" {
		return weather.AirQuality{}, weather.ErrMissingCredential
	}
	params := map[string]string{
		"lat":   formatCoord(at.Lat),
		"lon":   formatCoord(at.Lon),
		"appid": p.apiKey,
	}

	var payload owmAirPollution
	if err := call(ctx, p.client, p.limiter, p.circuit, p.metrics, "/air_pollution", params, &payload); err != nil {
		return weather.AirQuality{}, fmt.Errorf("air quality: %w", err)
	}
	if len(payload.List) == 0 {
		return weather.AirQuality{}, fmt.Errorf("air quality: %w: empty sample list", weather.ErrNetwork)
	}

	s := payload.List[0]
	return weather.AirQuality{
		AQI: s.Main.AQI,
		Components: weather.Pollutants{
			CO:   s.Components.CO,
			NO:   s.Components.NO,
			NO2:  s.Components.NO2,
			O3:   s.Components.O3,
			SO2:  s.Components.SO2,
			PM25: s.Components.PM25,
			PM10: s.Components.PM10,
			NH3:  s.Components.NH3,
		},
		Time: time.Unix(s.Dt, 0).UTC(),
	}, nil
}

func (p *OpenWeatherProvider) queryParams(q weather.Query) (map[string]string, error) {
	if p.apiKey == "" {
		return nil, weather.ErrMissingCredential
	}

	params := map[string]string{
		"units": "metric",
		"appid": p.apiKey,
	}
	switch {
	case q.Coords != nil:
		params["lat"] = formatCoord(q.Coords.Lat)
		params["lon"] = formatCoord(q.Coords.Lon)
	case q.City != "":
		params["q"] = q.City
	default:
		return nil, fmt.Errorf("%w: empty query", weather.ErrNotFound)
	}
	return params, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Wire types of the OpenWeatherMap 2.5 API.

type owmCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmMain struct {
	Temp      float64  `json:"temp"`
	FeelsLike float64  `json:"feels_like"`
	TempMin   float64  `json:"temp_min"`
	TempMax   float64  `json:"temp_max"`
	Pressure  float64  `json:"pressure"`
	Humidity  float64  `json:"humidity"`
	SeaLevel  *float64 `json:"sea_level,omitempty"`
	GrndLevel *float64 `json:"grnd_level,omitempty"`
}

type owmWind struct {
	Speed float64  `json:"speed"`
	Deg   float64  `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

type owmVolume struct {
	OneH   *float64 `json:"1h,omitempty"`
	ThreeH *float64 `json:"3h,omitempty"`
}

type owmCoord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type owmCurrent struct {
	Coord      owmCoord       `json:"coord"`
	Weather    []owmCondition `json:"weather"`
	Main       owmMain        `json:"main"`
	Visibility float64        `json:"visibility"`
	Wind       owmWind        `json:"wind"`
	Clouds     struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain *owmVolume `json:"rain,omitempty"`
	Snow *owmVolume `json:"snow,omitempty"`
	Dt   int64      `json:"dt"`
	Sys  struct {
		Country string `json:"country"`
		Sunrise int64  `json:"sunrise"`
		Sunset  int64  `json:"sunset"`
	} `json:"sys"`
	Timezone int    `json:"timezone"`
	Name     string `json:"name"`
}

type owmForecast struct {
	List []struct {
		Dt      int64          `json:"dt"`
		Main    owmMain        `json:"main"`
		Weather []owmCondition `json:"weather"`
		Clouds  struct {
			All float64 `json:"all"`
		} `json:"clouds"`
		Wind       owmWind `json:"wind"`
		Visibility float64 `json:"visibility"`
		Pop        float64 `json:"pop"`
		Sys        struct {
			Pod string `json:"pod"`
		} `json:"sys"`
		DtTxt string `json:"dt_txt"`
	} `json:"list"`
	City struct {
		Name     string   `json:"name"`
		Country  string   `json:"country"`
		Coord    owmCoord `json:"coord"`
		Timezone int      `json:"timezone"`
		Sunrise  int64    `json:"sunrise"`
		Sunset   int64    `json:"sunset"`
	} `json:"city"`
}

type owmAirPollution struct {
	List []struct {
		Main struct {
			AQI int `json:"aqi"`
		} `json:"main"`
		Components struct {
			CO   float64 `json:"co"`
			NO   float64 `json:"no"`
			NO2  float64 `json:"no2"`
			O3   float64 `json:"o3"`
			SO2  float64 `json:"so2"`
			PM25 float64 `json:"pm2_5"`
			PM10 float64 `json:"pm10"`
			NH3  float64 `json:"nh3"`
		} `json:"components"`
		Dt int64 `json:"dt"`
	} `json:"list"`
}

func (c owmCurrent) toDomain() weather.CurrentConditions {
	return weather.CurrentConditions{
		Coords:      weather.Coordinates{Lat: c.Coord.Lat, Lon: c.Coord.Lon},
		Conditions:  conditions(c.Weather),
		Temperature: temperature(c.Main),
		Humidity:    c.Main.Humidity,
		Pressure:    c.Main.Pressure,
		SeaLevel:    c.Main.SeaLevel,
		GroundLevel: c.Main.GrndLevel,
		Visibility:  c.Visibility,
		Wind:        wind(c.Wind),
		Clouds:      c.Clouds.All,
		Rain:        accumulation(c.Rain),
		Snow:        accumulation(c.Snow),
		ObservedAt:  time.Unix(c.Dt, 0).UTC(),
		Sunrise:     time.Unix(c.Sys.Sunrise, 0).UTC(),
		Sunset:      time.Unix(c.Sys.Sunset, 0).UTC(),
		UTCOffset:   c.Timezone,
		Name:        c.Name,
		Country:     c.Sys.Country,
	}
}

func (f owmForecast) toDomain() weather.Forecast {
	out := weather.Forecast{
		City: weather.City{
			Name:      f.City.Name,
			Country:   f.City.Country,
			Coords:    weather.Coordinates{Lat: f.City.Coord.Lat, Lon: f.City.Coord.Lon},
			UTCOffset: f.City.Timezone,
			Sunrise:   time.Unix(f.City.Sunrise, 0).UTC(),
			Sunset:    time.Unix(f.City.Sunset, 0).UTC(),
		},
		Points: make([]weather.ForecastPoint, 0, len(f.List)),
	}
	for _, item := range f.List {
		out.Points = append(out.Points, weather.ForecastPoint{
			Time:        time.Unix(item.Dt, 0).UTC(),
			DateText:    item.DtTxt,
			Temperature: temperature(item.Main),
			Humidity:    item.Main.Humidity,
			Conditions:  conditions(item.Weather),
			Pop:         item.Pop,
			Clouds:      item.Clouds.All,
			Wind:        wind(item.Wind),
			Visibility:  item.Visibility,
			PartOfDay:   item.Sys.Pod,
		})
	}
	return out
}

func conditions(in []owmCondition) []weather.Condition {
	out := make([]weather.Condition, 0, len(in))
	for _, c := range in {
		out = append(out, weather.Condition(c))
	}
	return out
}

func temperature(m owmMain) weather.Temperature {
	return weather.Temperature{
		Current:   m.Temp,
		FeelsLike: m.FeelsLike,
		Min:       m.TempMin,
		Max:       m.TempMax,
	}
}

func wind(w owmWind) weather.Wind {
	return weather.Wind{Speed: w.Speed, Deg: w.Deg, Gust: w.Gust}
}

func accumulation(v *owmVolume) *weather.Accumulation {
	if v == nil {
		return nil
	}
	return &weather.Accumulation{OneHour: v.OneH, ThreeHour: v.ThreeH}
}

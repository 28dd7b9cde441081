package weather

import (
	"fmt"
	"time"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Query identifies what to look up: either a city name or a coordinate pair.
// Coords takes precedence when both are set.
type Query struct {
	City   string       `json:"city,omitempty"`
	Coords *Coordinates `json:"coords,omitempty"`
}

// CityQuery returns a Query for a city name.
func CityQuery(city string) Query {
	return Query{City: city}
}

// CoordsQuery returns a Query for a coordinate pair.
func CoordsQuery(c Coordinates) Query {
	return Query{Coords: &c}
}

// ByCoords reports whether the query resolves by coordinates.
func (q Query) ByCoords() bool {
	return q.Coords != nil
}

// Key returns a canonical string used in logs and metrics labels.
func (q Query) Key() string {
	if q.Coords != nil {
		return fmt.Sprintf("%.4f,%.4f", q.Coords.Lat, q.Coords.Lon)
	}
	return q.City
}

// Condition is a single provider weather condition.
// ID follows the provider's code table: 2xx thunderstorm, 3xx drizzle,
// 5xx rain, 6xx snow, 7xx atmosphere, 800 clear, 80x clouds.
type Condition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// Clear reports whether the condition is clear sky.
func (c Condition) Clear() bool { return c.ID == 800 }

// Temperature holds the temperature block of a reading, in Celsius.
type Temperature struct {
	Current   float64 `json:"current"`
	FeelsLike float64 `json:"feelsLike"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
}

// Wind holds wind speed (m/s), heading in degrees and an optional gust.
type Wind struct {
	Speed float64  `json:"speed"`
	Deg   float64  `json:"deg"`
	Gust  *float64 `json:"gust,omitempty"`
}

// Accumulation is precipitation volume in millimetres over the last 1h/3h.
type Accumulation struct {
	OneHour   *float64 `json:"1h,omitempty"`
	ThreeHour *float64 `json:"3h,omitempty"`
}

// CurrentConditions is an immutable snapshot of the current weather for one place.
type CurrentConditions struct {
	Coords      Coordinates   `json:"coords"`
	Conditions  []Condition   `json:"conditions"`
	Temperature Temperature   `json:"temperature"`
	Humidity    float64       `json:"humidity"`
	Pressure    float64       `json:"pressure"`
	SeaLevel    *float64      `json:"seaLevel,omitempty"`
	GroundLevel *float64      `json:"groundLevel,omitempty"`
	Visibility  float64       `json:"visibility"` // meters
	Wind        Wind          `json:"wind"`
	Clouds      float64       `json:"clouds"` // percent
	Rain        *Accumulation `json:"rain,omitempty"`
	Snow        *Accumulation `json:"snow,omitempty"`
	ObservedAt  time.Time     `json:"observedAt"`
	Sunrise     time.Time     `json:"sunrise"`
	Sunset      time.Time     `json:"sunset"`
	UTCOffset   int           `json:"utcOffset"` // seconds east of UTC
	Name        string        `json:"name"`
	Country     string        `json:"country"`
}

// Primary returns the first condition, which the provider lists as the dominant one.
func (c CurrentConditions) Primary() Condition {
	if len(c.Conditions) == 0 {
		return Condition{}
	}
	return c.Conditions[0]
}

// ForecastPoint is one 3-hour forecast sample.
type ForecastPoint struct {
	Time        time.Time   `json:"time"`
	DateText    string      `json:"dateText"` // provider "YYYY-MM-DD HH:MM:SS", UTC
	Temperature Temperature `json:"temperature"`
	Humidity    float64     `json:"humidity"`
	Conditions  []Condition `json:"conditions"`
	Pop         float64     `json:"pop"`
	Clouds      float64     `json:"clouds"`
	Wind        Wind        `json:"wind"`
	Visibility  float64     `json:"visibility"`
	PartOfDay   string      `json:"partOfDay"` // "d" or "n"
}

// Primary returns the first condition of the sample.
func (p ForecastPoint) Primary() Condition {
	if len(p.Conditions) == 0 {
		return Condition{}
	}
	return p.Conditions[0]
}

// City describes the place a forecast was issued for.
type City struct {
	Name      string      `json:"name"`
	Country   string      `json:"country"`
	Coords    Coordinates `json:"coords"`
	UTCOffset int         `json:"utcOffset"`
	Sunrise   time.Time   `json:"sunrise"`
	Sunset    time.Time   `json:"sunset"`
}

// Forecast is a chronologically ordered sequence of samples for one city.
// Order is significant and must not be changed.
type Forecast struct {
	City   City            `json:"city"`
	Points []ForecastPoint `json:"points"`
}

// DailySummary aggregates the samples of one calendar date.
type DailySummary struct {
	Date      string    `json:"date"`    // YYYY-MM-DD
	DayName   string    `json:"dayName"` // Mon, Tue, ...
	MinTemp   float64   `json:"minTemp"`
	MaxTemp   float64   `json:"maxTemp"`
	Pop       float64   `json:"pop"`
	Condition Condition `json:"condition"`
}

// Pollutants are component concentrations in μg/m³.
type Pollutants struct {
	CO   float64 `json:"co"`
	NO   float64 `json:"no"`
	NO2  float64 `json:"no2"`
	O3   float64 `json:"o3"`
	SO2  float64 `json:"so2"`
	PM25 float64 `json:"pm2_5"`
	PM10 float64 `json:"pm10"`
	NH3  float64 `json:"nh3"`
}

// AirQuality is the provider's air-pollution reading.
// AQI is 1 (Good) to 5 (Very Poor).
type AirQuality struct {
	AQI        int        `json:"aqi"`
	Components Pollutants `json:"components"`
	Time       time.Time  `json:"time"`
}

package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"

	"github.com/i474232898/brightside/internal/ambient"
	"github.com/i474232898/brightside/internal/weather"
)

// View is the full dashboard view model. Panels are nil until the shell is Ready.
type View struct {
	State      string            `json:"state"`
	Seq        uint64            `json:"seq"`
	Loading    bool              `json:"loading"`
	ErrorKind  weather.ErrorKind `json:"errorKind,omitempty"`
	Message    string            `json:"message,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`

	Location   *LocationPanel         `json:"location,omitempty"`
	Current    *CurrentPanel          `json:"current,omitempty"`
	Hourly     []weather.HourlySample `json:"hourly,omitempty"`
	Daily      []DayView              `json:"daily,omitempty"`
	Stats      *StatsPanel            `json:"stats,omitempty"`
	Astro      *AstroPanel            `json:"astro,omitempty"`
	Insights   *InsightsPanel         `json:"insights,omitempty"`
	Activities []weather.Activity     `json:"activities,omitempty"`
	Theme      ThemeView              `json:"theme"`
	Footer     *Footer                `json:"footer,omitempty"`
}

type LocationPanel struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

type CurrentPanel struct {
	Code          int          `json:"code"`
	Main          string       `json:"main"`
	Description   string       `json:"description"`
	Icon          weather.Icon `json:"icon"`
	Temp          float64      `json:"temp"`
	FeelsLike     float64      `json:"feelsLike"`
	FeelsLikeNote string       `json:"feelsLikeNote"`
	Min           float64      `json:"min"`
	Max           float64      `json:"max"`
}

// DayView is a daily summary with its icon and range bar.
type DayView struct {
	weather.DailySummary
	Icon weather.Icon     `json:"icon"`
	Bar  weather.RangeBar `json:"bar"`
}

type StatsPanel struct {
	Humidity        float64  `json:"humidity"`
	DewPoint        float64  `json:"dewPoint"`
	Pressure        float64  `json:"pressure"`
	SeaLevel        *float64 `json:"seaLevel,omitempty"`
	GroundLevel     *float64 `json:"groundLevel,omitempty"`
	VisibilityKm    float64  `json:"visibilityKm"`
	VisibilityLabel string   `json:"visibilityLabel"`
	WindSpeed       float64  `json:"windSpeed"`
	WindDeg         float64  `json:"windDeg"`
	WindDirection   string   `json:"windDirection"`
	WindGust        *float64 `json:"windGust,omitempty"`
	Clouds          float64  `json:"clouds"`
	CloudBase       int      `json:"cloudBase"`
	Precipitation   float64  `json:"precipitation"`
}

type AstroPanel struct {
	Sunrise          string        `json:"sunrise"`
	Sunset           string        `json:"sunset"`
	Daylight         string        `json:"daylight"`
	Daytime          bool          `json:"daytime"`
	DaylightFraction float64       `json:"daylightFraction"`
	Sun              weather.Point `json:"sun"`
}

type InsightsPanel struct {
	Tip weather.Tip `json:"tip"`
	AQI *AQICard    `json:"aqi,omitempty"`
}

type AQICard struct {
	weather.AQILevel
	Components weather.Pollutants `json:"components"`
}

type ThemeView struct {
	Mode      weather.ThemeMode `json:"mode"`
	TimeOfDay weather.TimeOfDay `json:"timeOfDay"`
	Gradient  string            `json:"gradient"`
}

type Footer struct {
	Coords    weather.Coordinates `json:"coords"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Live      bool                `json:"live"`
}

// BuildView derives the dashboard panels from a snapshot at wall-clock time now.
// It never changes the snapshot.
func BuildView(s Snapshot, now time.Time) View {
	v := View{
		State:      s.State.String(),
		Seq:        s.Seq,
		Loading:    s.State == Loading,
		ErrorKind:  s.ErrKind,
		Message:    s.Message,
		Suggestion: s.Suggestion,
		Theme: ThemeView{
			Mode:      weather.ThemeClearDay,
			TimeOfDay: weather.TimeOfDayAt(now, 0),
			Gradient:  ambient.Gradient(0, weather.TimeOfDayAt(now, 0)),
		},
	}
	if s.Current == nil {
		return v
	}

	c := *s.Current
	cond := c.Primary()
	day := weather.IsDaytime(now, c.Sunrise, c.Sunset)
	local := weather.LocalTime(now, c.UTCOffset)
	tod := weather.TimeOfDayAt(now, c.UTCOffset)

	v.Location = &LocationPanel{
		Name:      c.Name,
		Country:   c.Country,
		LocalDate: local.Format("Monday, January 2"),
		LocalTime: local.Format("15:04"),
	}
	v.Current = &CurrentPanel{
		Code:          cond.ID,
		Main:          cond.Main,
		Description:   cond.Description,
		Icon:          weather.IconFor(cond.Main, !day),
		Temp:          c.Temperature.Current,
		FeelsLike:     c.Temperature.FeelsLike,
		FeelsLikeNote: weather.FeelsLikeNote(c.Temperature),
		Min:           c.Temperature.Min,
		Max:           c.Temperature.Max,
	}
	v.Stats = statsPanel(c)
	v.Astro = astroPanel(c, now)
	v.Insights = &InsightsPanel{Tip: weather.TipFor(c)}
	if s.AirQuality != nil {
		v.Insights.AQI = &AQICard{
			AQILevel:   weather.AQILevelFor(s.AirQuality.AQI),
			Components: s.AirQuality.Components,
		}
	}
	v.Activities = weather.ActivitiesFor(c)
	v.Theme = ThemeView{
		Mode:      weather.ThemeFor(cond.ID, day),
		TimeOfDay: tod,
		Gradient:  ambient.Gradient(cond.ID, tod),
	}
	v.Footer = &Footer{Coords: c.Coords, UpdatedAt: s.UpdatedAt, Live: s.State == Ready}

	if s.Forecast != nil {
		v.Hourly = weather.Hourly(*s.Forecast, weather.HourlySamplesShown)
		days := weather.DailySummaries(*s.Forecast)
		bars := weather.RangeBars(days)
		v.Daily = lo.Map(days, func(d weather.DailySummary, i int) DayView {
			return DayView{
				DailySummary: d,
				Icon:         weather.IconFor(d.Condition.Main, false),
				Bar:          bars[i],
			}
		})
	}
	return v
}

func statsPanel(c weather.CurrentConditions) *StatsPanel {
	return &StatsPanel{
		Humidity:        c.Humidity,
		DewPoint:        math.Round(weather.DewPoint(c.Temperature.Current, c.Humidity)*10) / 10,
		Pressure:        c.Pressure,
		SeaLevel:        c.SeaLevel,
		GroundLevel:     c.GroundLevel,
		VisibilityKm:    weather.VisibilityKm(c.Visibility),
		VisibilityLabel: weather.VisibilityLabel(c.Visibility),
		WindSpeed:       c.Wind.Speed,
		WindDeg:         c.Wind.Deg,
		WindDirection:   weather.WindDirection(c.Wind.Deg),
		WindGust:        c.Wind.Gust,
		Clouds:          c.Clouds,
		CloudBase:       weather.CloudBase(c.Temperature.Current, c.Humidity),
		Precipitation:   weather.Precipitation(c),
	}
}

func astroPanel(c weather.CurrentConditions, now time.Time) *AstroPanel {
	fraction := weather.DaylightFraction(now, c.Sunrise, c.Sunset)
	return &AstroPanel{
		Sunrise:          weather.LocalTime(c.Sunrise, c.UTCOffset).Format("15:04"),
		Sunset:           weather.LocalTime(c.Sunset, c.UTCOffset).Format("15:04"),
		Daylight:         formatDuration(weather.DaylightDuration(c.Sunrise, c.Sunset)),
		Daytime:          weather.IsDaytime(now, c.Sunrise, c.Sunset),
		DaylightFraction: fraction,
		Sun:              weather.SunPosition(fraction),
	}
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

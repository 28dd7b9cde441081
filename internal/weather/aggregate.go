package weather

import (
	"math"
	"strings"
	"time"
)

// MaxForecastDays is the number of calendar days the provider covers.
const MaxForecastDays = 5

const dateLayout = "2006-01-02"

// DailySummaries collapses a 3-hourly forecast into per-date summaries.
// Dates keep the order in which they first appear; at most MaxForecastDays are returned.
// The representative condition is the first non-clear one (code < 800) of the date,
// falling back to the date's first sample.
func DailySummaries(f Forecast) []DailySummary {
	var (
		order  []string
		byDate = make(map[string]*DailySummary)
		picked = make(map[string]bool)
	)

	for _, p := range f.Points {
		date := pointDate(p, f.City.UTCOffset)
		cond := p.Primary()

		day, ok := byDate[date]
		if !ok {
			day = &DailySummary{
				Date:      date,
				DayName:   weekdayName(date, p.Time),
				MinTemp:   p.Temperature.Min,
				MaxTemp:   p.Temperature.Max,
				Pop:       p.Pop,
				Condition: cond,
			}
			byDate[date] = day
			order = append(order, date)
			picked[date] = cond.ID < 800
			continue
		}

		day.MinTemp = math.Min(day.MinTemp, p.Temperature.Min)
		day.MaxTemp = math.Max(day.MaxTemp, p.Temperature.Max)
		day.Pop = math.Max(day.Pop, p.Pop)
		if !picked[date] && cond.ID < 800 {
			day.Condition = cond
			picked[date] = true
		}
	}

	if len(order) > MaxForecastDays {
		order = order[:MaxForecastDays]
	}

	out := make([]DailySummary, 0, len(order))
	for _, d := range order {
		out = append(out, *byDate[d])
	}
	return out
}

// pointDate returns the calendar date of a sample. The provider's date text is used
// when present; otherwise the timestamp is shifted to the city's local time.
func pointDate(p ForecastPoint, offset int) string {
	if date, _, ok := strings.Cut(p.DateText, " "); ok && len(date) == len(dateLayout) {
		return date
	}
	return LocalTime(p.Time, offset).Format(dateLayout)
}

func weekdayName(date string, fallback time.Time) string {
	if d, err := time.Parse(dateLayout, date); err == nil {
		return d.Format("Mon")
	}
	return fallback.UTC().Format("Mon")
}

// HourlySample is one entry of the next-24h strip.
type HourlySample struct {
	Time    time.Time `json:"time"`
	Label   string    `json:"label"` // local "15:04"
	Temp    float64   `json:"temp"`
	Pop     float64   `json:"pop"`
	Night   bool      `json:"night"`
	Icon    Icon      `json:"icon"`
	Summary string    `json:"summary"`
}

// HourlySamplesShown is how many 3-hour samples the hourly strip covers (24h).
const HourlySamplesShown = 8

// Hourly returns the first n samples of the forecast, in city-local time.
func Hourly(f Forecast, n int) []HourlySample {
	n = min(max(n, 0), len(f.Points))
	out := make([]HourlySample, 0, n)
	for _, p := range f.Points[:n] {
		local := LocalTime(p.Time, f.City.UTCOffset)
		night := IsNightHour(local.Hour())
		cond := p.Primary()
		out = append(out, HourlySample{
			Time:    p.Time,
			Label:   local.Format("15:04"),
			Temp:    p.Temperature.Current,
			Pop:     p.Pop,
			Night:   night,
			Icon:    IconFor(cond.Main, night),
			Summary: cond.Description,
		})
	}
	return out
}

// RangeBar positions one day's min..max bar on the shared temperature axis, in percent.
type RangeBar struct {
	Date  string  `json:"date"`
	Left  float64 `json:"left"`
	Width float64 `json:"width"`
}

// RangeBars lays out the daily min/max bars against the global range of all days.
func RangeBars(days []DailySummary) []RangeBar {
	if len(days) == 0 {
		return nil
	}

	lo, hi := days[0].MinTemp, days[0].MaxTemp
	for _, d := range days[1:] {
		lo = math.Min(lo, d.MinTemp)
		hi = math.Max(hi, d.MaxTemp)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	bars := make([]RangeBar, 0, len(days))
	for _, d := range days {
		bars = append(bars, RangeBar{
			Date:  d.Date,
			Left:  math.Max(0, (d.MinTemp-lo)/span*100),
			Width: math.Max(5, (d.MaxTemp-d.MinTemp)/span*100),
		})
	}
	return bars
}

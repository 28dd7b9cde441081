package weather

import (
	"math"
	"time"
)

var compassPoints = [8]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// DewPoint estimates the dew point in Celsius from temperature and relative humidity.
// It is the linear approximation T - (100-RH)/5 and is only meant for display.
func DewPoint(tempC, humidity float64) float64 {
	return tempC - ((100 - humidity) / 5)
}

// CloudBase estimates the cloud base height in meters from the temperature/dew-point spread.
func CloudBase(tempC, humidity float64) int {
	spread := tempC - DewPoint(tempC, humidity)
	return int(math.Max(0, math.Round(spread*125)))
}

// WindDirection maps a heading in degrees to one of eight compass points.
func WindDirection(deg float64) string {
	i := int(math.Round(deg/45)) % 8
	if i < 0 {
		i += 8
	}
	return compassPoints[i]
}

// Precipitation returns the last-hour rain amount, else the last-hour snow amount, else 0.
func Precipitation(c CurrentConditions) float64 {
	if c.Rain != nil && c.Rain.OneHour != nil {
		return *c.Rain.OneHour
	}
	if c.Snow != nil && c.Snow.OneHour != nil {
		return *c.Snow.OneHour
	}
	return 0
}

// IsDaytime reports whether now falls between sunrise and sunset, inclusive.
func IsDaytime(now, sunrise, sunset time.Time) bool {
	return !now.Before(sunrise) && !now.After(sunset)
}

// DaylightDuration is the time from sunrise to sunset.
func DaylightDuration(sunrise, sunset time.Time) time.Duration {
	if sunset.Before(sunrise) {
		return 0
	}
	return sunset.Sub(sunrise)
}

// DaylightFraction is the elapsed share of daylight at now, clamped to [0, 1].
func DaylightFraction(now, sunrise, sunset time.Time) float64 {
	total := DaylightDuration(sunrise, sunset)
	if total <= 0 {
		return 0
	}
	return clamp01(float64(now.Sub(sunrise)) / float64(total))
}

// Point is a position in percent of the astro panel box; y grows downwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var (
	sunArcStart   = Point{X: 0, Y: 100}
	sunArcControl = Point{X: 50, Y: -20}
	sunArcEnd     = Point{X: 100, Y: 100}
)

// SunPosition places the sun marker on a quadratic Bezier arc for a daylight fraction.
func SunPosition(fraction float64) Point {
	t := clamp01(fraction)
	a := (1 - t) * (1 - t)
	b := 2 * (1 - t) * t
	c := t * t
	return Point{
		X: a*sunArcStart.X + b*sunArcControl.X + c*sunArcEnd.X,
		Y: a*sunArcStart.Y + b*sunArcControl.Y + c*sunArcEnd.Y,
	}
}

// TimeOfDay is the coarse phase of the local day used for theming.
type TimeOfDay string

const (
	Dawn  TimeOfDay = "dawn"
	Day   TimeOfDay = "day"
	Dusk  TimeOfDay = "dusk"
	Night TimeOfDay = "night"
)

// LocalTime converts now to the wall clock of a place offset seconds east of UTC.
func LocalTime(now time.Time, offset int) time.Time {
	return now.In(time.FixedZone("", offset))
}

// TimeOfDayAt returns the phase of the day at a place with the given UTC offset.
func TimeOfDayAt(now time.Time, offset int) TimeOfDay {
	h := LocalTime(now, offset).Hour()
	switch {
	case h >= 5 && h < 8:
		return Dawn
	case h >= 8 && h < 17:
		return Day
	case h >= 17 && h < 20:
		return Dusk
	default:
		return Night
	}
}

// IsNightHour is the hourly-strip night rule: 18:00 through 06:59.
func IsNightHour(hour int) bool {
	return hour >= 18 || hour <= 6
}

// VisibilityKm converts visibility from meters to kilometres.
func VisibilityKm(meters float64) float64 {
	return meters / 1000
}

// VisibilityLabel grades visibility for the stats panel.
func VisibilityLabel(meters float64) string {
	if meters > 9000 {
		return "Excellent"
	}
	return "Reduced"
}

// FeelsLikeNote explains the gap between the measured and the perceived temperature.
func FeelsLikeNote(t Temperature) string {
	if t.FeelsLike < t.Current {
		return "Cooler due to wind chill"
	}
	return "Warmer due to humidity"
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

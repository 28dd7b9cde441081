package weather

import (
	"strings"

	"github.com/i474232898/brightside/internal/common"
)

// Icon names a condition glyph understood by the front-end.
type Icon string

const (
	IconThunder Icon = "cloud-lightning"
	IconDrizzle Icon = "cloud-drizzle"
	IconRain    Icon = "cloud-rain"
	IconSnow    Icon = "cloud-snow"
	IconCloud   Icon = "cloud"
	IconMoon    Icon = "moon"
	IconSun     Icon = "sun"
)

// IconFor picks a glyph from the provider's condition category.
func IconFor(main string, night bool) Icon {
	c := strings.ToLower(main)
	switch {
	case common.HasAny(c, "thunder"):
		return IconThunder
	case common.HasAny(c, "drizzle"):
		return IconDrizzle
	case common.HasAny(c, "rain"):
		return IconRain
	case common.HasAny(c, "snow"):
		return IconSnow
	case common.HasAny(c, "cloud"):
		return IconCloud
	case night:
		return IconMoon
	default:
		return IconSun
	}
}

// AQILevel is the display grading of an air-quality index.
type AQILevel struct {
	Index       int    `json:"index"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// AQILevelFor grades the provider's 1..5 index. Anything else is Unknown.
func AQILevelFor(aqi int) AQILevel {
	l := AQILevel{Index: aqi}
	switch aqi {
	case 1:
		l.Label, l.Description = "Good", "Enjoy the outdoors!"
	case 2:
		l.Label, l.Description = "Fair", "Moderate air quality."
	case 3:
		l.Label, l.Description = "Moderate", "Sensitive groups should be careful."
	case 4:
		l.Label, l.Description = "Poor", "Avoid prolonged exertion."
	case 5:
		l.Label, l.Description = "Very Poor", "Stay indoors if possible."
	default:
		l.Label, l.Description = "Unknown", "--"
	}
	return l
}

// Tip is a one-line piece of advice for the current conditions.
type Tip struct {
	Icon string `json:"icon"`
	Text string `json:"text"`
}

// TipFor picks the advice card for the current conditions. Wet weather wins,
// then temperature extremes, then clear sky.
func TipFor(c CurrentConditions) Tip {
	temp := c.Temperature.Current
	cond := c.Primary()

	switch {
	case cond.ID >= 200 && cond.ID < 600:
		return Tip{Icon: "umbrella", Text: "It's raining. Don't forget your umbrella."}
	case temp > 35:
		return Tip{Icon: "thermometer-sun", Text: "Extreme heat! Stay hydrated & avoid direct sun."}
	case temp > 28:
		return Tip{Icon: "thermometer-sun", Text: "It's hot outside. Wear sunscreen."}
	case temp < 5:
		return Tip{Icon: "alert-triangle", Text: "Freezing conditions. Layer up properly."}
	case temp < 10:
		return Tip{Icon: "wind", Text: "It's chilly. Wear a warm jacket."}
	case strings.Contains(strings.ToLower(cond.Main), "clear"):
		return Tip{Icon: "sparkles", Text: "Perfect weather for a walk."}
	default:
		return Tip{Icon: "sparkles", Text: "Have a wonderful day!"}
	}
}

// Activity is one suggestion of the activity guide.
type Activity struct {
	Name        string `json:"name"`
	Suitability string `json:"suitability"`
	Icon        string `json:"icon"`
}

// MaxActivities caps the activity guide.
const MaxActivities = 3

// ActivitiesFor suggests things to do for the current conditions.
func ActivitiesFor(c CurrentConditions) []Activity {
	temp := c.Temperature.Current
	code := c.Primary().ID
	isClear := code == 800
	isRain := code >= 500 && code < 600
	isSnow := code >= 600 && code < 700
	isCloudy := code > 800

	var out []Activity
	switch {
	case isClear && temp > 15 && temp < 30:
		out = []Activity{
			{Name: "Rooftop Bar", Suitability: "Perfect", Icon: "beer"},
			{Name: "Botanical Garden", Suitability: "Ideal", Icon: "sun"},
			{Name: "Street Photography", Suitability: "Great Light", Icon: "camera"},
		}
	case isRain || isSnow || temp < 5:
		out = []Activity{
			{Name: "Art Gallery", Suitability: "Indoor", Icon: "map"},
			{Name: "Cozy Cafe", Suitability: "Comfort", Icon: "coffee"},
			{Name: "Library", Suitability: "Quiet", Icon: "book-open"},
		}
	case temp > 30:
		out = []Activity{
			{Name: "Shopping Mall", Suitability: "AC Cooled", Icon: "map"},
			{Name: "Cinema", Suitability: "Escape Heat", Icon: "music"},
			{Name: "Water Park", Suitability: "Cool Down", Icon: "waves"},
		}
	case isCloudy:
		out = []Activity{
			{Name: "City Walk", Suitability: "Pleasant", Icon: "map"},
			{Name: "Local Market", Suitability: "Explore", Icon: "tent"},
		}
	default:
		out = []Activity{
			{Name: "Museum", Suitability: "Safe Bet", Icon: "book-open"},
			{Name: "Live Music Venue", Suitability: "Fun", Icon: "music"},
			{Name: "Historic Site", Suitability: "Explore", Icon: "map"},
		}
	}

	if len(out) > MaxActivities {
		out = out[:MaxActivities]
	}
	return out
}

// ThemeMode selects the dashboard colour theme.
type ThemeMode string

const (
	ThemeClearDay     ThemeMode = "clear-day"
	ThemeClearNight   ThemeMode = "clear-night"
	ThemeClouds       ThemeMode = "clouds"
	ThemeRain         ThemeMode = "rain"
	ThemeSnow         ThemeMode = "snow"
	ThemeThunderstorm ThemeMode = "thunderstorm"
	ThemeDrizzle      ThemeMode = "drizzle"
)

// ThemeFor maps a condition code and day/night flag to a theme.
func ThemeFor(code int, day bool) ThemeMode {
	switch {
	case code >= 200 && code < 300:
		return ThemeThunderstorm
	case code >= 300 && code < 400:
		return ThemeDrizzle
	case code >= 500 && code < 600:
		return ThemeRain
	case code >= 600 && code < 700:
		return ThemeSnow
	case code == 800 && day:
		return ThemeClearDay
	case code == 800:
		return ThemeClearNight
	default:
		return ThemeClouds
	}
}

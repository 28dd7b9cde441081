package weather

import "errors"

var (
	// ErrMissingCredential is returned before any request when no API key is configured.
	ErrMissingCredential = errors.New("missing OpenWeather API key")
	// ErrNotFound is returned when the provider cannot resolve the requested city.
	ErrNotFound = errors.New("city not found")
	// ErrNetwork covers transport failures and any non-2xx response other than not-found.
	ErrNetwork = errors.New("network error")
	// ErrFeatureUnavailable marks failures of optional data (air quality). Never shown to users.
	ErrFeatureUnavailable = errors.New("optional feature unavailable")
)

// ErrorKind classifies an error for display and HTTP mapping.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindMissingCredential  ErrorKind = "missing_credential"
	KindNotFound           ErrorKind = "not_found"
	KindNetwork            ErrorKind = "network"
	KindFeatureUnavailable ErrorKind = "feature_unavailable"
)

// KindOf returns the kind of err. Unclassified errors are treated as network errors.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrMissingCredential):
		return KindMissingCredential
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrFeatureUnavailable):
		return KindFeatureUnavailable
	default:
		return KindNetwork
	}
}

// UserMessage renders err as the text shown on the dashboard error panel.
func UserMessage(err error, q Query) string {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindMissingCredential:
		return "Missing OpenWeather API key. Set OPENWEATHER_API_KEY in your environment."
	case KindNotFound:
		if q.City != "" {
			return `City "` + q.City + `" not found. Please check the spelling and try again.`
		}
		return "Location not found. Please check the coordinates and try again."
	default:
		return "Failed to fetch weather data. Please try again later."
	}
}

package weather

import (
	"context"
)

// Provider abstracts the weather data source (OpenWeatherMap).
// Implementations must not cache responses.
type Provider interface {
	Name() string
	Current(ctx context.Context, q Query) (CurrentConditions, error)
	Forecast(ctx context.Context, q Query) (Forecast, error)
	AirQuality(ctx context.Context, at Coordinates) (AirQuality, error)
}

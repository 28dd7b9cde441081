package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/brightside/internal/weather"
)

// Locator resolves the dashboard's location on the server side when the browser
// did not send coordinates.
type Locator interface {
	Locate(ctx context.Context) (weather.Coordinates, error)
}

// StaticLocator always answers with configured coordinates.
type StaticLocator struct {
	Coords weather.Coordinates
}

func (l StaticLocator) Locate(context.Context) (weather.Coordinates, error) {
	return l.Coords, nil
}

var errNoAddress = errors.New("geocoder address is empty")

// geocodeFunc matches geocoder.Geocoding.
type geocodeFunc func(geocoder.Address) (geocoder.Location, error)

// GeocoderLocator geocodes a configured address through the Google Geocoding API.
// The first successful answer is kept for the life of the process.
type GeocoderLocator struct {
	address geocoder.Address
	geocode geocodeFunc

	mu     sync.Mutex
	coords *weather.Coordinates
}

// NewGeocoderLocator builds a locator for a free-form "City, State, Country" address.
func NewGeocoderLocator(apiKey, address string) (*GeocoderLocator, error) {
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}
	geocoder.ApiKey = apiKey
	return &GeocoderLocator{address: addr, geocode: geocoder.Geocoding}, nil
}

func (l *GeocoderLocator) Locate(ctx context.Context) (weather.Coordinates, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.coords != nil {
		return *l.coords, nil
	}

	type result struct {
		loc geocoder.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := l.geocode(l.address)
		ch <- result{loc: loc, err: err}
	}()

	select {
	case <-ctx.Done():
		return weather.Coordinates{}, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return weather.Coordinates{}, fmt.Errorf("geocode %q: %w", l.address.City, r.err)
		}
		c := weather.Coordinates{Lat: r.loc.Latitude, Lon: r.loc.Longitude}
		l.coords = &c
		return c, nil
	}
}

// parseAddress splits "City[, State][, Country]".
func parseAddress(s string) (geocoder.Address, error) {
	var parts []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}

	var addr geocoder.Address
	switch len(parts) {
	case 0:
		return addr, errNoAddress
	case 1:
		addr.City = parts[0]
	case 2:
		addr.City, addr.Country = parts[0], parts[1]
	default:
		addr.City = parts[0]
		addr.State = strings.Join(parts[1:len(parts)-1], ", ")
		addr.Country = parts[len(parts)-1]
	}
	return addr, nil
}

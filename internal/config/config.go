package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/i474232898/brightside/internal/common"
	"github.com/i474232898/brightside/internal/weather"
)

// ErrMissingAPIKey is reported when OPENWEATHER_API_KEY is not set.
var ErrMissingAPIKey = errors.New("OPENWEATHER_API_KEY is required; get a free key at https://openweathermap.org/api")

var defaultCityPills = []string{
	"Mumbai", "Delhi", "Bengaluru", "Hyderabad", "Chennai",
	"Kolkata", "Pune", "Jaipur", "Goa", "Shimla",
}

type AppConfig struct {
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	HTTPTimeout        time.Duration

	Port      string
	StaticDir string

	// Fallback and suggestion cities of the dashboard shell.
	DefaultCity       string // geolocation denied
	NoGeolocationCity string // no location source at all
	SuggestedCity     string
	CityPills         []string

	// Server-side location: fixed coordinates, or an address to geocode.
	Location        *weather.Coordinates
	GeocoderAddress string
	GeocoderAPIKey  string

	RefreshInterval time.Duration
	SessionMax      int
	SessionMaxIdle  time.Duration

	ProviderRPS   float64
	ProviderBurst int

	LogLevel  string
	LogFormat string

	v *viper.Viper
}

// Load reads configuration from .env, the environment and an optional YAML file.
// configFile falls back to CONFIG_FILE. Every invalid setting is reported at once.
func Load(configFile string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Infof("No .env file found or error loading it: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("OPENWEATHER_BASE_URL", "")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("PORT", "8080")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("DEFAULT_CITY", "London")
	v.SetDefault("NO_GEOLOCATION_CITY", "New York")
	v.SetDefault("SUGGESTED_CITY", "Tokyo")
	v.SetDefault("CITY_PILLS", strings.Join(defaultCityPills, ","))
	v.SetDefault("LOCATION_LAT", "")
	v.SetDefault("LOCATION_LON", "")
	v.SetDefault("GEOCODER_ADDRESS", "")
	v.SetDefault("GOOGLE_GEOCODING_API_KEY", "")
	v.SetDefault("REFRESH_INTERVAL", "10m")
	v.SetDefault("SESSION_MAX", 1000)
	v.SetDefault("SESSION_MAX_IDLE", "1h")
	v.SetDefault("PROVIDER_RPS", 1)
	v.SetDefault("PROVIDER_BURST", 10)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
}

func fromViper(v *viper.Viper) (*AppConfig, error) {
	var errs *multierror.Error

	cfg := &AppConfig{
		OpenWeatherAPIKey:  strings.TrimSpace(v.GetString("OPENWEATHER_API_KEY")),
		OpenWeatherBaseURL: v.GetString("OPENWEATHER_BASE_URL"),
		Port:               v.GetString("PORT"),
		StaticDir:          v.GetString("STATIC_DIR"),
		GeocoderAddress:    v.GetString("GEOCODER_ADDRESS"),
		GeocoderAPIKey:     v.GetString("GOOGLE_GEOCODING_API_KEY"),
		SessionMax:         v.GetInt("SESSION_MAX"),
		ProviderRPS:        v.GetFloat64("PROVIDER_RPS"),
		ProviderBurst:      v.GetInt("PROVIDER_BURST"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		v:                  v,
	}
	cfg.applyCities()

	if cfg.OpenWeatherAPIKey == "" {
		errs = multierror.Append(errs, ErrMissingAPIKey)
	}

	var err error
	if cfg.HTTPTimeout, err = duration(v, "HTTP_TIMEOUT"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.RefreshInterval, err = duration(v, "REFRESH_INTERVAL"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.SessionMaxIdle, err = duration(v, "SESSION_MAX_IDLE"); err != nil {
		errs = multierror.Append(errs, err)
	}
	if cfg.Location, err = location(v); err != nil {
		errs = multierror.Append(errs, err)
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	if cfg.GeocoderAddress != "" && cfg.GeocoderAPIKey == "" {
		errs = multierror.Append(errs, errors.New("GEOCODER_ADDRESS requires GOOGLE_GEOCODING_API_KEY"))
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyCities() {
	c.DefaultCity = strings.TrimSpace(c.v.GetString("DEFAULT_CITY"))
	c.NoGeolocationCity = strings.TrimSpace(c.v.GetString("NO_GEOLOCATION_CITY"))
	c.SuggestedCity = strings.TrimSpace(c.v.GetString("SUGGESTED_CITY"))
	c.CityPills = cityList(c.v, "CITY_PILLS")
}

// Watch re-reads the city settings whenever the config file changes and hands the
// updated config to fn. It is a no-op when no config file was loaded.
func (c *AppConfig) Watch(fn func(*AppConfig)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		log.WithField("file", e.Name).Info("config file changed")
		next := *c
		next.applyCities()
		fn(&next)
	})
	c.v.WatchConfig()
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func location(v *viper.Viper) (*weather.Coordinates, error) {
	lat, lon := v.GetString("LOCATION_LAT"), v.GetString("LOCATION_LON")
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, errors.New("LOCATION_LAT and LOCATION_LON must be set together")
	}

	latF, errLat := strconv.ParseFloat(lat, 64)
	lonF, errLon := strconv.ParseFloat(lon, 64)
	if errLat != nil || errLon != nil {
		return nil, fmt.Errorf("invalid location %s,%s", lat, lon)
	}

	c := weather.Coordinates{Lat: latF, Lon: lonF}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return nil, fmt.Errorf("location %s,%s is out of range", lat, lon)
	}
	return &c, nil
}

// cityList accepts a comma-separated string (env) or a YAML list.
func cityList(v *viper.Viper, key string) []string {
	switch raw := v.Get(key).(type) {
	case string:
		return common.NormalizeNames(strings.Split(raw, ","))
	default:
		return common.NormalizeNames(v.GetStringSlice(key))
	}
}

package httpapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/brightside/internal/ambient"
	"github.com/i474232898/brightside/internal/dashboard"
	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/store"
	"github.com/i474232898/brightside/internal/weather"
)

var validate = validator.New()

// Deps are the collaborators of the HTTP handlers.
type Deps struct {
	Provider weather.Provider
	Sessions *store.SessionStore
	Cities   *dashboard.CityBook
	Locator  dashboard.Locator
	Metrics  *metrics.Recorder

	// Context bounds long-lived streams; cancel it on shutdown.
	Context context.Context
	// FPS of the ambient stream.
	FPS int
	Now func() time.Time
}

type handlers struct {
	Deps
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	if d.Context == nil {
		d.Context = context.Background()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handlers{Deps: d}

	v1 := app.Group("/api/v1", noStore)

	v1.Get("/cities", h.cities)
	v1.Get("/weather/current", h.current)
	v1.Get("/weather/forecast", h.forecast)
	v1.Get("/air-quality", h.airQuality)

	v1.Post("/sessions", h.createSession)
	v1.Get("/sessions/:id", h.getSession)
	v1.Post("/sessions/:id/search", h.search)
	v1.Get("/sessions/:id/ambient", h.ambient)
}

// noStore keeps browsers and service workers from serving weather data stale.
func noStore(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Next()
}

func (h *handlers) cities(c *fiber.Ctx) error {
	cities := h.Cities.Get()
	return c.JSON(fiber.Map{
		"cities":    cities.Pills,
		"suggested": cities.Suggested,
	})
}

func (h *handlers) current(c *fiber.Ctx) error {
	q, err := parseLocationQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	cur, err := h.Provider.Current(c.UserContext(), q)
	if err != nil {
		return weatherError(err, q)
	}

	now := h.Now()
	day := weather.IsDaytime(now, cur.Sunrise, cur.Sunset)
	return c.JSON(fiber.Map{
		"current": cur,
		"derived": fiber.Map{
			"dewPoint":        weather.DewPoint(cur.Temperature.Current, cur.Humidity),
			"cloudBase":       weather.CloudBase(cur.Temperature.Current, cur.Humidity),
			"windDirection":   weather.WindDirection(cur.Wind.Deg),
			"precipitation":   weather.Precipitation(cur),
			"visibilityKm":    weather.VisibilityKm(cur.Visibility),
			"visibilityLabel": weather.VisibilityLabel(cur.Visibility),
			"feelsLikeNote":   weather.FeelsLikeNote(cur.Temperature),
			"daytime":         day,
			"timeOfDay":       weather.TimeOfDayAt(now, cur.UTCOffset),
			"theme":           weather.ThemeFor(cur.Primary().ID, day),
		},
	})
}

func (h *handlers) forecast(c *fiber.Ctx) error {
	q, err := parseLocationQuery(c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	f, err := h.Provider.Forecast(c.UserContext(), q)
	if err != nil {
		return weatherError(err, q)
	}

	days := weather.DailySummaries(f)
	return c.JSON(fiber.Map{
		"city":   f.City,
		"points": f.Points,
		"hourly": weather.Hourly(f, weather.HourlySamplesShown),
		"daily":  days,
		"bars":   weather.RangeBars(days),
	})
}

func (h *handlers) airQuality(c *fiber.Ctx) error {
	coords, err := parseCoords(c.Query("lat"), c.Query("lon"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	aq, err := h.Provider.AirQuality(c.UserContext(), coords)
	if err != nil {
		if weather.KindOf(err) == weather.KindMissingCredential {
			return weatherError(err, weather.CoordsQuery(coords))
		}
		return &apiError{
			Code:    fiber.StatusServiceUnavailable,
			Kind:    weather.KindFeatureUnavailable,
			Message: "Air quality data is currently unavailable.",
			err:     fmt.Errorf("%w: %v", weather.ErrFeatureUnavailable, err),
		}
	}

	return c.JSON(fiber.Map{
		"airQuality": aq,
		"level":      weather.AQILevelFor(aq.AQI),
	})
}

// sessionRequest is the body of POST /sessions. All fields are optional.
type sessionRequest struct {
	City              string   `json:"city" validate:"max=100"`
	Lat               *float64 `json:"lat"`
	Lon               *float64 `json:"lon"`
	GeolocationDenied bool     `json:"geolocationDenied"`
}

// searchRequest is the body of POST /sessions/:id/search.
type searchRequest struct {
	City string   `json:"city" validate:"max=100"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

func (h *handlers) createSession(c *fiber.Ctx) error {
	var req sessionRequest
	if err := bindBody(c, &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	coords, err := bodyCoords(req.Lat, req.Lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	sh := dashboard.NewShell(store.NewID(), h.Provider, dashboard.Options{
		Cities:  h.Cities,
		Locator: h.Locator,
		Metrics: h.Metrics,
	})
	if err := h.Sessions.Save(sh); err != nil {
		if errors.Is(err, store.ErrFull) {
			return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
		}
		return err
	}
	h.Metrics.SetActiveSessions(h.Sessions.Len())

	ctx := c.UserContext()
	var snap dashboard.Snapshot
	if city := strings.TrimSpace(req.City); city != "" && coords == nil {
		snap = sh.Search(ctx, city)
	} else {
		snap = sh.Start(ctx, dashboard.Hint{Coords: coords, GeolocationDenied: req.GeolocationDenied})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":   sh.ID(),
		"view": dashboard.BuildView(snap, h.Now()),
	})
}

func (h *handlers) getSession(c *fiber.Ctx) error {
	sh, err := h.shell(c)
	if err != nil {
		return err
	}
	return c.JSON(dashboard.BuildView(sh.Snapshot(), h.Now()))
}

func (h *handlers) search(c *fiber.Ctx) error {
	sh, err := h.shell(c)
	if err != nil {
		return err
	}

	var req searchRequest
	if err := bindBody(c, &req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	coords, err := bodyCoords(req.Lat, req.Lon)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	var snap dashboard.Snapshot
	switch city := strings.TrimSpace(req.City); {
	case coords != nil:
		snap = sh.SearchCoords(c.UserContext(), *coords)
	case city != "":
		snap = sh.Search(c.UserContext(), city)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "city or lat and lon are required")
	}
	return c.JSON(dashboard.BuildView(snap, h.Now()))
}

// ambient streams animation frames of the session's current scene as server-sent events.
// The stream ends when the client goes away, the server shuts down, or after ?frames=N.
func (h *handlers) ambient(c *fiber.Ctx) error {
	sh, err := h.shell(c)
	if err != nil {
		return err
	}

	var opts ambientQuery
	if err := opts.bind(c); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	snap := sh.Snapshot()
	code, offset := 0, 0
	if snap.Current != nil {
		code, offset = snap.Current.Primary().ID, snap.Current.UTCOffset
	}
	scene := ambient.NewScene(code, weather.TimeOfDayAt(h.Now(), offset), opts.Width, opts.Height, nil)
	animator := ambient.NewAnimator(h.FPS)
	encode := c.App().Config().JSONEncoder
	base := h.Context
	id := sh.ID()

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(base)
		defer cancel()

		sent := 0
		err := animator.Run(ctx, scene, func(f ambient.Frame) error {
			payload, err := encode(f)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "event: frame\ndata: %s\n\n", payload); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			sent++
			if opts.Frames > 0 && sent >= opts.Frames {
				return errStreamDone
			}
			return nil
		})
		if err != nil && !errors.Is(err, errStreamDone) {
			log.WithFields(log.Fields{"session": id, "frames": sent}).Debugf("ambient stream closed: %v", err)
		}
	}))
	return nil
}

var errStreamDone = errors.New("stream complete")

func (h *handlers) shell(c *fiber.Ctx) (*dashboard.Shell, error) {
	sh, err := h.Sessions.Get(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, err.Error())
	}
	return sh, nil
}

// cityQuery holds a free-text city search.
type cityQuery struct {
	City string `validate:"required,max=100"`
}

// parseLocationQuery reads ?city= or ?lat=&lon=. Coordinates win when both are given.
func parseLocationQuery(c *fiber.Ctx) (weather.Query, error) {
	lat, lon := c.Query("lat"), c.Query("lon")
	if lat != "" || lon != "" {
		coords, err := parseCoords(lat, lon)
		if err != nil {
			return weather.Query{}, err
		}
		return weather.CoordsQuery(coords), nil
	}

	q := cityQuery{City: strings.TrimSpace(c.Query("city"))}
	if q.City == "" {
		return weather.Query{}, errors.New("either city or lat and lon query parameters are required")
	}
	if err := validate.Struct(q); err != nil {
		return weather.Query{}, err
	}
	return weather.CityQuery(q.City), nil
}

func parseCoords(latStr, lonStr string) (weather.Coordinates, error) {
	if latStr == "" || lonStr == "" {
		return weather.Coordinates{}, errors.New("lat and lon query parameters are required")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("invalid lat: %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("invalid lon: %q", lonStr)
	}

	coords := weather.Coordinates{Lat: lat, Lon: lon}
	if err := validate.Struct(coords); err != nil {
		return weather.Coordinates{}, err
	}
	return coords, nil
}

// bindBody parses an optional JSON body and validates it.
func bindBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) > 0 {
		if err := c.App().Config().JSONDecoder(c.Body(), out); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	return validate.Struct(out)
}

func bodyCoords(lat, lon *float64) (*weather.Coordinates, error) {
	switch {
	case lat == nil && lon == nil:
		return nil, nil
	case lat == nil || lon == nil:
		return nil, errors.New("lat and lon must be sent together")
	}
	coords := weather.Coordinates{Lat: *lat, Lon: *lon}
	if err := validate.Struct(coords); err != nil {
		return nil, err
	}
	return &coords, nil
}

// ambientQuery holds the canvas size and optional frame limit of a stream.
type ambientQuery struct {
	Width  float64 `validate:"gt=0,lte=8192"`
	Height float64 `validate:"gt=0,lte=8192"`
	Frames int     `validate:"gte=0"`
}

func (a *ambientQuery) bind(c *fiber.Ctx) error {
	a.Width = float64(c.QueryInt("width", 1280))
	a.Height = float64(c.QueryInt("height", 720))
	a.Frames = c.QueryInt("frames", 0)
	return validate.Struct(a)
}

package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/buger/jsonparser"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/i474232898/brightside/internal/metrics"
	"github.com/i474232898/brightside/internal/weather"
)

// ClientConfig bundles the HTTP client and call-shaping settings of a provider.
type ClientConfig struct {
	Client  *http.Client
	BaseURL string

	// RPS and Burst size the token bucket shared by all calls of the provider.
	// RPS <= 0 disables rate limiting.
	RPS   float64
	Burst int

	Metrics *metrics.Recorder
}

var errNoHTTPClient = errors.New("http client not configured")

func newLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
		// An unknown city is a valid answer, not a provider fault.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, weather.ErrNotFound)
		},
	})
}

// call performs a single GET through the rate limiter and circuit breaker.
// There are no retries: any failure is returned to the caller as a weather error kind.
func call(
	ctx context.Context,
	client *resty.Client,
	limiter *rate.Limiter,
	cb *gobreaker.CircuitBreaker,
	rec *metrics.Recorder,
	endpoint string,
	params map[string]string,
	result interface{},
) error {
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit wait canceled: %v", weather.ErrNetwork, err)
	}

	start := time.Now()
	_, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(result).
			ForceContentType("application/json").
			Get(endpoint)
		if execErr != nil {
			return nil, fmt.Errorf("%w: %v", weather.ErrNetwork, execErr)
		}

		switch {
		case resp.StatusCode() == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", weather.ErrNotFound, providerMessage(resp.Body()))
		case !resp.IsSuccess():
			return nil, fmt.Errorf("%w: status %d: %s", weather.ErrNetwork, resp.StatusCode(), providerMessage(resp.Body()))
		}
		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: circuit breaker open: %v", weather.ErrNetwork, err)
	}

	rec.ObserveProviderCall(endpoint, outcome(err), time.Since(start))
	return err
}

// providerMessage extracts the "message" field OpenWeather puts in error bodies.
func providerMessage(body []byte) string {
	if msg, err := jsonparser.GetString(body, "message"); err == nil && msg != "" {
		return msg
	}
	if len(body) == 0 {
		return "empty response"
	}
	return "unexpected response"
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(weather.KindOf(err))
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/i474232898/brightside/internal/weather"
)

// apiError is a handler error that already knows its status and user-facing text.
type apiError struct {
	Code    int
	Kind    weather.ErrorKind
	Message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return e.Message
}

func (e *apiError) Unwrap() error { return e.err }

// weatherError maps a provider error to its HTTP status and dashboard message.
func weatherError(err error, q weather.Query) error {
	kind := weather.KindOf(err)
	return &apiError{
		Code:    statusFor(kind),
		Kind:    kind,
		Message: weather.UserMessage(err, q),
		err:     err,
	}
}

func statusFor(kind weather.ErrorKind) int {
	switch kind {
	case weather.KindMissingCredential:
		return http.StatusInternalServerError
	case weather.KindNotFound:
		return http.StatusNotFound
	case weather.KindFeatureUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// ErrorHandler renders every error as {"error":true,"kind":...,"message":...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	kind := "internal"
	message := err.Error()

	var apiErr *apiError
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &apiErr):
		code, kind, message = apiErr.Code, string(apiErr.Kind), apiErr.Message
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		kind = "request"
		if code == fiber.StatusBadRequest {
			kind = "validation"
		}
	}

	if code >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{"path": c.Path(), "status": code}).Errorf("request failed: %v", err)
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"kind":    kind,
		"message": message,
	})
}

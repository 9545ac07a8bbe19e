package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const errorPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Something went wrong</title></head>
<body><h1>Something went wrong</h1><p>Please try again later.</p></body></html>`

// ErrorHandler answers API paths with JSON and everything else with plain
// text for 404 or a generic HTML page.
func ErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "internal server error"
	retryable := false
	isAPICall := strings.HasPrefix(c.Request().URL.Path, "/api/")

	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		code = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else if code == http.StatusNotFound {
			message = "not found"
		}
	case errors.Is(err, internal.ErrAnalyticsUnavailable):
		code = http.StatusServiceUnavailable
		message = dataUnavailable
		retryable = true
	case errors.Is(err, internal.ErrLinkNotFound):
		code = http.StatusNotFound
		message = "not found"
	}

	event := log.Warn()
	if code >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.
		Int("code", code).
		Str("method", c.Request().Method).
		Str("path", c.Request().URL.Path).
		Err(err).
		Msg("http error")

	if c.Response().Committed {
		return
	}

	var writeErr error
	switch {
	case isAPICall && retryable:
		writeErr = c.JSON(code, map[string]any{"error": message, "retryable": true})
	case isAPICall:
		writeErr = c.JSON(code, map[string]any{"error": message})
	case code == http.StatusNotFound:
		writeErr = c.String(code, "not found")
	case code < http.StatusInternalServerError:
		writeErr = c.String(code, message)
	default:
		writeErr = c.HTML(code, errorPage)
	}
	if writeErr != nil {
		log.Error().Err(writeErr).Msg("failed to write error response")
	}
}

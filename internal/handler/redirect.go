package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type Resolver interface {
	Resolve(ctx context.Context, slug string, signals internal.Signals) (string, error)
}

type RedirectHandler struct {
	resolver Resolver
	headers  SignalHeaders
}

func NewRedirectHandler(resolver Resolver, headers SignalHeaders) *RedirectHandler {
	return &RedirectHandler{resolver: resolver, headers: headers}
}

func (h *RedirectHandler) Redirect(c echo.Context) error {
	slug := c.Param("slug")
	signals := signalsFrom(c.Request(), h.headers)

	log.Debug().Str("slug", slug).Str("ip", signals.IP).Msg("redirect request")

	destination, err := h.resolver.Resolve(c.Request().Context(), slug, signals)
	if errors.Is(err, internal.ErrLinkNotFound) {
		return echo.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", slug, err)
	}

	return c.Redirect(http.StatusFound, destination)
}

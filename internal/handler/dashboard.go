package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/analytics"
	"github.com/labstack/echo/v4"
)

const dataUnavailable = "data unavailable"

type Aggregator interface {
	Summary(ctx context.Context, projectID string) (internal.Summary, error)
	ClicksOverTime(ctx context.Context, projectID string, windowDays int) ([]internal.DailyCount, error)
	DeviceBreakdown(ctx context.Context, projectID string, topN int) ([]internal.OSCount, error)
	Dashboard(ctx context.Context, projectID string, windowDays, topN int) analytics.Dashboard
}

type DashboardHandler struct {
	aggregator Aggregator
	projects   ProjectStore
}

func NewDashboardHandler(aggregator Aggregator, projects ProjectStore) *DashboardHandler {
	return &DashboardHandler{aggregator: aggregator, projects: projects}
}

// WidgetResponse carries either the widget data or the unavailable marker.
type WidgetResponse struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

type DashboardResponse struct {
	Summary        WidgetResponse `json:"summary"`
	ClicksOverTime WidgetResponse `json:"clicksOverTime"`
	Devices        WidgetResponse `json:"devices"`
}

func widget[T any](w analytics.Widget[T]) WidgetResponse {
	if w.Err != nil {
		return WidgetResponse{Error: dataUnavailable}
	}
	return WidgetResponse{Data: w.Data}
}

func (h *DashboardHandler) Summary(c echo.Context) error {
	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	summary, err := h.aggregator.Summary(c.Request().Context(), project.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *DashboardHandler) ClicksOverTime(c echo.Context) error {
	days, err := intQuery(c, "days", analytics.DefaultWindowDays, analytics.MaxWindowDays)
	if err != nil {
		return err
	}

	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	counts, err := h.aggregator.ClicksOverTime(c.Request().Context(), project.ID, days)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}

func (h *DashboardHandler) Devices(c echo.Context) error {
	limit, err := intQuery(c, "limit", analytics.DefaultTopN, analytics.MaxTopN)
	if err != nil {
		return err
	}

	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	counts, err := h.aggregator.DeviceBreakdown(c.Request().Context(), project.ID, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, counts)
}

// Dashboard returns every widget at once. Failed widgets are marked
// unavailable and the response is still 200.
func (h *DashboardHandler) Dashboard(c echo.Context) error {
	days, err := intQuery(c, "days", analytics.DefaultWindowDays, analytics.MaxWindowDays)
	if err != nil {
		return err
	}
	limit, err := intQuery(c, "limit", analytics.DefaultTopN, analytics.MaxTopN)
	if err != nil {
		return err
	}

	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	d := h.aggregator.Dashboard(c.Request().Context(), project.ID, days, limit)
	return c.JSON(http.StatusOK, DashboardResponse{
		Summary:        widget(d.Summary),
		ClicksOverTime: widget(d.ClicksOverTime),
		Devices:        widget(d.Devices),
	})
}

// intQuery reads an optional integer query parameter in [1, limit].
func intQuery(c echo.Context, name string, fallback, limit int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > limit {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be an integer between 1 and %d", name, limit))
	}
	return n, nil
}

// Package analytics computes the dashboard aggregates for one project.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/rs/zerolog/log"
)

const (
	DefaultWindowDays = 7
	MaxWindowDays     = 365
	DefaultTopN       = 5
	MaxTopN           = 50
)

type Store interface {
	CountClicks(ctx context.Context, projectID string) (int64, error)
	CountLinks(ctx context.Context, projectID string) (int64, error)
	CountDistinctIPs(ctx context.Context, projectID string) (int64, error)
	ClicksPerDay(ctx context.Context, projectID string, since time.Time) ([]internal.DailyCount, error)
	ClicksByOS(ctx context.Context, projectID string, limit uint) ([]internal.OSCount, error)
}

// Aggregator is read-only. Every method either returns the real aggregate or
// an error wrapping internal.ErrAnalyticsUnavailable; a failed query is never
// reported as zero.
type Aggregator struct {
	store Store
	now   func() time.Time
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) TotalClicks(ctx context.Context, projectID string) (int64, error) {
	n, err := a.store.CountClicks(ctx, projectID)
	if err != nil {
		return 0, unavailable("total clicks", projectID, err)
	}
	return n, nil
}

func (a *Aggregator) TotalLinks(ctx context.Context, projectID string) (int64, error) {
	n, err := a.store.CountLinks(ctx, projectID)
	if err != nil {
		return 0, unavailable("total links", projectID, err)
	}
	return n, nil
}

// UniqueVisitors approximates visitors by distinct client IP.
func (a *Aggregator) UniqueVisitors(ctx context.Context, projectID string) (int64, error) {
	n, err := a.store.CountDistinctIPs(ctx, projectID)
	if err != nil {
		return 0, unavailable("unique visitors", projectID, err)
	}
	return n, nil
}

func (a *Aggregator) Summary(ctx context.Context, projectID string) (internal.Summary, error) {
	var (
		s   internal.Summary
		err error
	)
	if s.TotalClicks, err = a.TotalClicks(ctx, projectID); err != nil {
		return internal.Summary{}, err
	}
	if s.TotalLinks, err = a.TotalLinks(ctx, projectID); err != nil {
		return internal.Summary{}, err
	}
	if s.UniqueVisitors, err = a.UniqueVisitors(ctx, projectID); err != nil {
		return internal.Summary{}, err
	}
	return s, nil
}

// ClicksOverTime counts clicks per UTC day over the last windowDays calendar
// days, today included, oldest first. Days without clicks are absent.
// windowDays <= 0 means DefaultWindowDays; larger than MaxWindowDays is clamped.
func (a *Aggregator) ClicksOverTime(ctx context.Context, projectID string, windowDays int) ([]internal.DailyCount, error) {
	since := WindowStart(a.now(), windowDays)

	counts, err := a.store.ClicksPerDay(ctx, projectID, since)
	if err != nil {
		return nil, unavailable("clicks over time", projectID, err)
	}
	return counts, nil
}

// DeviceBreakdown returns the topN operating systems by click count. Equal
// counts are ordered by name.
func (a *Aggregator) DeviceBreakdown(ctx context.Context, projectID string, topN int) ([]internal.OSCount, error) {
	counts, err := a.store.ClicksByOS(ctx, projectID, uint(clamp(topN, DefaultTopN, MaxTopN)))
	if err != nil {
		return nil, unavailable("device breakdown", projectID, err)
	}
	return counts, nil
}

// WindowStart is midnight UTC of the first day in a windowDays window ending
// on now's UTC day.
func WindowStart(now time.Time, windowDays int) time.Time {
	days := clamp(windowDays, DefaultWindowDays, MaxWindowDays)
	today := now.UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(days - 1))
}

func clamp(n, fallback, limit int) int {
	if n <= 0 {
		return fallback
	}
	return min(n, limit)
}

func unavailable(what, projectID string, err error) error {
	log.Error().Err(err).Str("project_id", projectID).Msgf("failed to compute %s", what)
	return fmt.Errorf("%w: %s: %v", internal.ErrAnalyticsUnavailable, what, err)
}

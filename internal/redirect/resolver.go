// Package redirect resolves slugs to their tracked destination URLs.
package redirect

import (
	"context"
	"errors"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/metrics"
	"github.com/rs/zerolog/log"
)

type LinkFinder interface {
	GetBySlug(ctx context.Context, slug string) (*internal.Link, error)
}

type Tracker interface {
	Track(ctx context.Context, linkID string, signals internal.Signals) error
}

type Resolver struct {
	links   LinkFinder
	tracker Tracker
	metrics *metrics.Metrics
}

func NewResolver(links LinkFinder, tracker Tracker, m *metrics.Metrics) *Resolver {
	return &Resolver{links: links, tracker: tracker, metrics: m}
}

// Resolve looks up slug, records a click and returns the destination with UTM
// parameters applied. Unknown slugs return internal.ErrLinkNotFound and record
// nothing. Tracking failures never change the outcome. A stored destination
// that is not an absolute URL returns internal.ErrMalformedDestination.
func (r *Resolver) Resolve(ctx context.Context, slug string, signals internal.Signals) (string, error) {
	link, err := r.links.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, internal.ErrLinkNotFound) {
			r.metrics.Redirects.WithLabelValues(metrics.OutcomeNotFound).Inc()
			return "", internal.ErrLinkNotFound
		}
		r.metrics.Redirects.WithLabelValues(metrics.OutcomeError).Inc()
		return "", err
	}

	// The tracker logs and counts its own failures.
	if err := r.tracker.Track(ctx, link.ID, signals); err != nil {
		log.Debug().Err(err).Str("slug", slug).Msg("click not tracked")
	}

	destination, err := BuildDestination(link.DestinationURL, link.UTM)
	if err != nil {
		r.metrics.Redirects.WithLabelValues(metrics.OutcomeError).Inc()
		log.Error().Err(err).Str("slug", slug).Str("link_id", link.ID).Msg("stored destination is malformed")
		return "", err
	}

	r.metrics.Redirects.WithLabelValues(metrics.OutcomeFound).Inc()
	return destination, nil
}

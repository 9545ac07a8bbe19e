// Package tracking turns request signals into click records and appends them
// to the click store, either inline (Recorder) or through a bounded queue
// (Queue). Both are fail-open: errors are logged and counted, and returned
// only so callers can log them.
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/geo"
	"github.com/Lucasvitorkkx/UTM/internal/metrics"
	"github.com/Lucasvitorkkx/UTM/internal/useragent"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// UnknownIP is stored when the request carried no client address.
const UnknownIP = "unknown"

const defaultWriteTimeout = 5 * time.Second

type ClickStore interface {
	Append(ctx context.Context, click internal.Click) error
}

// Locator fills in geography when the edge did not send it.
type Locator interface {
	Locate(ip string) geo.Location
}

// Tracker records one click for a link.
type Tracker interface {
	Track(ctx context.Context, linkID string, signals internal.Signals) error
}

// Builder assembles click records. It is shared by Recorder and Queue.
type Builder struct {
	now     func() time.Time
	newID   func() string
	locator Locator
}

type BuilderOption func(*Builder)

func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) { b.now = now }
}

func WithLocator(l Locator) BuilderOption {
	return func(b *Builder) { b.locator = l }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{now: time.Now, newID: uuid.NewString}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build classifies the user agent, defaults the IP, and stamps the click with
// the current time. It does no I/O apart from the optional geo lookup.
func (b *Builder) Build(linkID string, s internal.Signals) internal.Click {
	ua := useragent.Classify(s.UserAgent)

	ip := s.IP
	if ip == "" {
		ip = UnknownIP
	}

	country, city := s.Country, s.City
	if country == "" && city == "" && b.locator != nil && ip != UnknownIP {
		loc := b.locator.Locate(ip)
		country, city = loc.Country, loc.City
	}

	return internal.Click{
		ID:         b.newID(),
		LinkID:     linkID,
		Timestamp:  b.now().UTC(),
		IP:         ip,
		Country:    country,
		City:       city,
		DeviceType: ua.DeviceType,
		OS:         ua.OS,
		Browser:    ua.Browser,
		Referer:    s.Referer,
		UserAgent:  s.UserAgent,
	}
}

// Recorder writes each click before returning.
type Recorder struct {
	builder *Builder
	store   ClickStore
	metrics *metrics.Metrics
	timeout time.Duration
}

func NewRecorder(store ClickStore, builder *Builder, m *metrics.Metrics) *Recorder {
	return &Recorder{builder: builder, store: store, metrics: m, timeout: defaultWriteTimeout}
}

// Track appends exactly one click on success and none on failure. The write
// is detached from ctx cancellation so a client hanging up mid-redirect does
// not abort it.
func (r *Recorder) Track(ctx context.Context, linkID string, s internal.Signals) error {
	click := r.builder.Build(linkID, s)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	if err := r.store.Append(writeCtx, click); err != nil {
		r.metrics.ClicksFailed.Inc()
		log.Error().Err(err).Str("link_id", linkID).Msg("failed to record click")
		return fmt.Errorf("record click: %w", err)
	}

	r.metrics.ClicksRecorded.Inc()
	return nil
}

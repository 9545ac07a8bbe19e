package analytics

import (
	"context"
	"sync"

	"github.com/Lucasvitorkkx/UTM/internal"
)

// Widget holds one dashboard section: Data on success, Err otherwise.
type Widget[T any] struct {
	Data T
	Err  error
}

type Dashboard struct {
	Summary        Widget[internal.Summary]
	ClicksOverTime Widget[[]internal.DailyCount]
	Devices        Widget[[]internal.OSCount]
}

// Dashboard computes every widget concurrently. A failing widget does not
// affect the others.
func (a *Aggregator) Dashboard(ctx context.Context, projectID string, windowDays, topN int) Dashboard {
	var (
		d  Dashboard
		wg sync.WaitGroup
	)

	wg.Go(func() {
		d.Summary.Data, d.Summary.Err = a.Summary(ctx, projectID)
	})
	wg.Go(func() {
		d.ClicksOverTime.Data, d.ClicksOverTime.Err = a.ClicksOverTime(ctx, projectID, windowDays)
	})
	wg.Go(func() {
		d.Devices.Data, d.Devices.Err = a.DeviceBreakdown(ctx, projectID, topN)
	})

	wg.Wait()
	return d
}

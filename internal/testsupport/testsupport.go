// Package testsupport opens migrated throwaway databases and seeds them with
// links and clicks at fixed times.
package testsupport

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/db"
	"github.com/Lucasvitorkkx/UTM/internal/repo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// NewDB returns a migrated SQLite database in the test's temp dir. It is
// closed when the test ends.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	instance, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { instance.Close() })

	return instance
}

// SeedLink creates a link under projectID pointing at https://example.com/<slug>.
func SeedLink(t *testing.T, instance *sql.DB, projectID, slug string) *internal.Link {
	t.Helper()

	link, err := repo.NewLinksRepo(instance).Create(context.Background(), internal.Link{
		ProjectID:      projectID,
		Slug:           slug,
		DestinationURL: "https://example.com/" + slug,
	})
	require.NoError(t, err)
	return link
}

// ClickOption customizes a seeded click.
type ClickOption func(*internal.Click)

func WithIP(ip string) ClickOption {
	return func(c *internal.Click) { c.IP = ip }
}

func WithOS(os string) ClickOption {
	return func(c *internal.Click) { c.OS = os }
}

func At(ts time.Time) ClickOption {
	return func(c *internal.Click) { c.Timestamp = ts }
}

// SeedClick appends one click for linkID. Defaults: now, IP 203.0.113.1,
// Linux desktop Firefox.
func SeedClick(t *testing.T, instance *sql.DB, linkID string, opts ...ClickOption) internal.Click {
	t.Helper()

	click := internal.Click{
		ID:         uuid.NewString(),
		LinkID:     linkID,
		Timestamp:  time.Now().UTC(),
		IP:         "203.0.113.1",
		DeviceType: "desktop",
		OS:         "Linux",
		Browser:    "Firefox",
	}
	for _, opt := range opts {
		opt(&click)
	}

	require.NoError(t, repo.NewClicksRepo(instance).Append(context.Background(), click))
	return click
}

// CountClicks returns the raw number of rows in the click log.
func CountClicks(t *testing.T, instance *sql.DB) int {
	t.Helper()

	var n int
	require.NoError(t, instance.QueryRow("SELECT COUNT(*) FROM clicks").Scan(&n))
	return n
}

package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/rs/zerolog/log"
)

var clickColumns = []any{
	"id", "link_id", "clicked_at", "ip", "country", "city",
	"device_type", "os", "browser", "referer", "user_agent",
}

// ClicksRepo is the append-only click log. It never updates or deletes rows.
type ClicksRepo struct {
	db *sql.DB
}

func NewClicksRepo(db *sql.DB) *ClicksRepo {
	return &ClicksRepo{db: db}
}

func (r *ClicksRepo) Append(ctx context.Context, click internal.Click) error {
	return r.AppendBatch(ctx, []internal.Click{click})
}

// AppendBatch writes all clicks in one INSERT statement, so either every row
// lands or none does.
func (r *ClicksRepo) AppendBatch(ctx context.Context, clicks []internal.Click) error {
	if len(clicks) == 0 {
		return nil
	}

	executor := goqu.New("sqlite3", r.db)

	query := executor.Insert("clicks").Cols(clickColumns...)
	for _, c := range clicks {
		query = query.Vals([]any{
			c.ID, c.LinkID, Timestamp(c.Timestamp), c.IP,
			nullable(c.Country), nullable(c.City),
			c.DeviceType, c.OS, c.Browser,
			nullable(c.Referer), nullable(c.UserAgent),
		})
	}

	if _, err := query.Executor().ExecContext(ctx); err != nil {
		return fmt.Errorf("insert %d clicks: %w", len(clicks), err)
	}

	log.Debug().Int("count", len(clicks)).Msg("clicks recorded")
	return nil
}

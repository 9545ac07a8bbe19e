package repo

import (
	"context"
	"database/sql"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

const unknownOS = "Unknown"

type dayCountRow struct {
	Day   string `db:"day"`
	Total int64  `db:"total"`
}

type osCountRow struct {
	Name  string `db:"name"`
	Total int64  `db:"total"`
}

// AnalyticsRepo runs read-only aggregate queries over clicks joined to links.
// Every query is scoped to one project.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

func (r *AnalyticsRepo) projectClicks(projectID string) *goqu.SelectDataset {
	return goqu.New("sqlite3", r.db).
		From("clicks").
		InnerJoin(goqu.T("links"), goqu.On(goqu.I("clicks.link_id").Eq(goqu.I("links.id")))).
		Where(goqu.I("links.project_id").Eq(projectID))
}

func (r *AnalyticsRepo) CountClicks(ctx context.Context, projectID string) (int64, error) {
	return r.projectClicks(projectID).CountContext(ctx)
}

func (r *AnalyticsRepo) CountLinks(ctx context.Context, projectID string) (int64, error) {
	return goqu.New("sqlite3", r.db).
		From("links").
		Where(goqu.Ex{"project_id": projectID}).
		CountContext(ctx)
}

// CountDistinctIPs counts distinct non-null click IPs.
func (r *AnalyticsRepo) CountDistinctIPs(ctx context.Context, projectID string) (int64, error) {
	var total int64
	_, err := r.projectClicks(projectID).
		Select(goqu.COUNT(goqu.DISTINCT(goqu.I("clicks.ip"))).As("total")).
		ScanValContext(ctx, &total)
	return total, err
}

// ClicksPerDay buckets clicks at or after since by UTC calendar day, oldest
// first. Days without clicks produce no row.
func (r *AnalyticsRepo) ClicksPerDay(ctx context.Context, projectID string, since time.Time) ([]internal.DailyCount, error) {
	day := goqu.L("date(?)", goqu.I("clicks.clicked_at"))

	query := r.projectClicks(projectID).
		Select(day.As("day"), goqu.COUNT("*").As("total")).
		Where(goqu.I("clicks.clicked_at").Gte(Timestamp(since))).
		GroupBy(day).
		Order(goqu.C("day").Asc())

	var rows []dayCountRow
	if err := query.ScanStructsContext(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make([]internal.DailyCount, len(rows))
	for i, row := range rows {
		counts[i] = internal.DailyCount{Date: row.Day, Count: row.Total}
	}
	return counts, nil
}

// ClicksByOS groups clicks by OS, largest first, ties by name. Null or empty
// OS values share the "Unknown" bucket.
func (r *AnalyticsRepo) ClicksByOS(ctx context.Context, projectID string, limit uint) ([]internal.OSCount, error) {
	name := goqu.COALESCE(goqu.L("NULLIF(?, '')", goqu.I("clicks.os")), unknownOS)

	query := r.projectClicks(projectID).
		Select(name.As("name"), goqu.COUNT("*").As("total")).
		GroupBy(name).
		Order(goqu.C("total").Desc(), goqu.C("name").Asc()).
		Limit(limit)

	var rows []osCountRow
	if err := query.ScanStructsContext(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make([]internal.OSCount, len(rows))
	for i, row := range rows {
		counts[i] = internal.OSCount{OS: row.Name, Count: row.Total}
	}
	return counts, nil
}

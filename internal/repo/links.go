package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var linkColumns = []any{
	"id", "project_id", "slug", "destination_url",
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"created_at",
}

type linkRow struct {
	ID             string         `db:"id"`
	ProjectID      string         `db:"project_id"`
	Slug           string         `db:"slug"`
	DestinationURL string         `db:"destination_url"`
	UTMSource      sql.NullString `db:"utm_source"`
	UTMMedium      sql.NullString `db:"utm_medium"`
	UTMCampaign    sql.NullString `db:"utm_campaign"`
	UTMTerm        sql.NullString `db:"utm_term"`
	UTMContent     sql.NullString `db:"utm_content"`
	CreatedAt      Timestamp      `db:"created_at"`
}

type LinksRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewLinksRepo(db *sql.DB) *LinksRepo {
	return &LinksRepo{db: db, now: time.Now}
}

// Create inserts link with a fresh ID and creation time. Slug uniqueness is
// enforced by the unique index on links.slug; a violation comes back as
// *internal.SlugConflictError.
func (r *LinksRepo) Create(ctx context.Context, link internal.Link) (*internal.Link, error) {
	executor := goqu.New("sqlite3", r.db)

	link.ID = uuid.NewString()
	link.CreatedAt = r.now().UTC().Truncate(time.Second)

	log.Debug().Str("slug", link.Slug).Str("project_id", link.ProjectID).Msg("creating link")

	query := executor.Insert("links").
		Cols(linkColumns...).
		Vals([]any{
			link.ID, link.ProjectID, link.Slug, link.DestinationURL,
			nullable(link.UTM.Source), nullable(link.UTM.Medium), nullable(link.UTM.Campaign),
			nullable(link.UTM.Term), nullable(link.UTM.Content),
			Timestamp(link.CreatedAt),
		})

	if _, err := query.Executor().ExecContext(ctx); err != nil {
		if isUniqueViolation(err) {
			log.Debug().Str("slug", link.Slug).Msg("slug already taken")
			return nil, &internal.SlugConflictError{Slug: link.Slug}
		}
		log.Error().Err(err).Str("slug", link.Slug).Msg("failed to create link")
		return nil, err
	}

	log.Info().Str("id", link.ID).Str("slug", link.Slug).Msg("link created successfully")
	return &link, nil
}

// GetBySlug returns internal.ErrLinkNotFound when no link has the slug.
func (r *LinksRepo) GetBySlug(ctx context.Context, slug string) (*internal.Link, error) {
	executor := goqu.New("sqlite3", r.db)

	query := executor.From("links").Select(linkColumns...).Where(goqu.Ex{"slug": slug})

	var row linkRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		log.Error().Err(err).Str("slug", slug).Msg("failed to fetch link")
		return nil, err
	}
	if !found {
		return nil, internal.ErrLinkNotFound
	}

	return row.toDomain(), nil
}

// ListByProject returns the project's links, newest first.
func (r *LinksRepo) ListByProject(ctx context.Context, projectID string) ([]*internal.Link, error) {
	executor := goqu.New("sqlite3", r.db)

	query := executor.From("links").
		Select(linkColumns...).
		Where(goqu.Ex{"project_id": projectID}).
		Order(goqu.C("created_at").Desc(), goqu.C("slug").Asc())

	var rows []linkRow
	if err := query.Executor().ScanStructsContext(ctx, &rows); err != nil {
		return nil, err
	}

	links := make([]*internal.Link, len(rows))
	for i := range rows {
		links[i] = rows[i].toDomain()
	}
	return links, nil
}

func (r *linkRow) toDomain() *internal.Link {
	return &internal.Link{
		ID:             r.ID,
		ProjectID:      r.ProjectID,
		Slug:           r.Slug,
		DestinationURL: r.DestinationURL,
		UTM: internal.UTM{
			Source:   r.UTMSource.String,
			Medium:   r.UTMMedium.String,
			Campaign: r.UTMCampaign.String,
			Term:     r.UTMTerm.String,
			Content:  r.UTMContent.String,
		},
		CreatedAt: r.CreatedAt.Time(),
	}
}

// nullable maps empty optional strings to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// libsql reports constraint failures as plain messages.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

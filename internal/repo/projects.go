package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/google/uuid"
)

const defaultProjectName = "Default Project"

type projectRow struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	CreatedAt Timestamp `db:"created_at"`
}

type ProjectsRepo struct {
	db *sql.DB
}

func NewProjectsRepo(db *sql.DB) *ProjectsRepo {
	return &ProjectsRepo{db: db}
}

// DefaultForUser returns the user's default project, creating it on first
// use. The insert is ignored when a concurrent request created it first.
func (r *ProjectsRepo) DefaultForUser(ctx context.Context, userID string) (*internal.Project, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}

	executor := goqu.New("sqlite3", r.db)

	insert := executor.Insert("projects").
		Cols("id", "user_id", "name", "created_at").
		Vals([]any{uuid.NewString(), userID, defaultProjectName, Timestamp(time.Now())}).
		OnConflict(goqu.DoNothing())
	if _, err := insert.Executor().ExecContext(ctx); err != nil {
		return nil, err
	}

	query := executor.From("projects").
		Select("id", "user_id", "name", "created_at").
		Where(goqu.Ex{"user_id": userID, "name": defaultProjectName})

	var row projectRow
	found, err := query.Executor().ScanStructContext(ctx, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.New("default project missing after insert")
	}

	return &internal.Project{
		ID:        row.ID,
		UserID:    row.UserID,
		Name:      row.Name,
		CreatedAt: row.CreatedAt.Time(),
	}, nil
}

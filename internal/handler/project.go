package handler

import (
	"context"
	"fmt"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/Lucasvitorkkx/UTM/internal/auth"
	"github.com/labstack/echo/v4"
)

type ProjectStore interface {
	DefaultForUser(ctx context.Context, userID string) (*internal.Project, error)
}

// currentProject resolves the signed-in user's default project.
func currentProject(c echo.Context, projects ProjectStore) (*internal.Project, error) {
	userID, ok := auth.IdentityFrom(c)
	if !ok {
		return nil, echo.ErrUnauthorized
	}

	project, err := projects.DefaultForUser(c.Request().Context(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project for %s: %w", userID, err)
	}
	return project, nil
}

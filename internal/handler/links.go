package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/Lucasvitorkkx/UTM/internal"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/skip2/go-qrcode"
)

const (
	generatedSlugLength   = 7
	generatedSlugAttempts = 3
	qrSize                = 256
)

var (
	slugPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{3,64}$`)
	reservedSlugs = []string{"api", "login", "logout", "health", "metrics"}
)

type LinkStore interface {
	Create(ctx context.Context, link internal.Link) (*internal.Link, error)
	GetBySlug(ctx context.Context, slug string) (*internal.Link, error)
	ListByProject(ctx context.Context, projectID string) ([]*internal.Link, error)
}

type LinkHandler struct {
	links    LinkStore
	projects ProjectStore
	baseURL  string
}

func NewLinkHandler(links LinkStore, projects ProjectStore, baseURL string) *LinkHandler {
	return &LinkHandler{
		links:    links,
		projects: projects,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

type CreateLinkRequest struct {
	URL  string `json:"url"`
	Slug string `json:"slug"`
	internal.UTM
}

func (r *CreateLinkRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	r.Slug = strings.TrimSpace(r.Slug)

	if r.URL == "" {
		return fmt.Errorf("%w: url is required", internal.ErrInvalidLink)
	}
	u, err := url.Parse(r.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: url must be an absolute http(s) url", internal.ErrInvalidLink)
	}

	if r.Slug == "" {
		return nil
	}
	if !slugPattern.MatchString(r.Slug) {
		return fmt.Errorf("%w: slug must be 3-64 letters, digits, '-' or '_'", internal.ErrInvalidLink)
	}
	if lo.Contains(reservedSlugs, strings.ToLower(r.Slug)) {
		return fmt.Errorf("%w: slug %q is reserved", internal.ErrInvalidLink, r.Slug)
	}
	return nil
}

type LinkResponse struct {
	ID             string    `json:"id"`
	Slug           string    `json:"slug"`
	DestinationURL string    `json:"destinationUrl"`
	ShortURL       string    `json:"shortUrl"`
	CreatedAt      time.Time `json:"createdAt"`
	internal.UTM
}

type CreateLinkResponse struct {
	Link LinkResponse `json:"link"`
}

type ListLinksResponse struct {
	Links []LinkResponse `json:"links"`
}

func (h *LinkHandler) CreateLink(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateLinkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}

	if err := req.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	link := internal.Link{
		ProjectID:      project.ID,
		Slug:           req.Slug,
		DestinationURL: req.URL,
		UTM:            req.UTM,
	}

	created, err := h.create(ctx, link)
	if errors.Is(err, internal.ErrSlugExists) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	return c.JSON(http.StatusCreated, CreateLinkResponse{Link: h.toResponse(created)})
}

// create stores link as given, or under a generated slug when it has none,
// retrying generated slugs that collide.
func (h *LinkHandler) create(ctx context.Context, link internal.Link) (*internal.Link, error) {
	if link.Slug != "" {
		return h.links.Create(ctx, link)
	}

	var err error
	for attempt := 1; attempt <= generatedSlugAttempts; attempt++ {
		link.Slug = lo.RandomString(generatedSlugLength, lo.AlphanumericCharset)

		var created *internal.Link
		created, err = h.links.Create(ctx, link)
		if !errors.Is(err, internal.ErrSlugExists) {
			return created, err
		}
		log.Warn().Str("slug", link.Slug).Int("attempt", attempt).Msg("generated slug collided")
	}
	return nil, err
}

func (h *LinkHandler) ListLinks(c echo.Context) error {
	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	links, err := h.links.ListByProject(c.Request().Context(), project.ID)
	if err != nil {
		return fmt.Errorf("failed to list links: %w", err)
	}

	return c.JSON(http.StatusOK, ListLinksResponse{
		Links: lo.Map(links, func(link *internal.Link, _ int) LinkResponse {
			return h.toResponse(link)
		}),
	})
}

// QRCode renders a PNG of the link's short URL. Links of other projects are
// reported as missing.
func (h *LinkHandler) QRCode(c echo.Context) error {
	project, err := currentProject(c, h.projects)
	if err != nil {
		return err
	}

	link, err := h.links.GetBySlug(c.Request().Context(), c.Param("slug"))
	if errors.Is(err, internal.ErrLinkNotFound) || (err == nil && link.ProjectID != project.ID) {
		return echo.NewHTTPError(http.StatusNotFound, "link not found")
	}
	if err != nil {
		return fmt.Errorf("failed to fetch link: %w", err)
	}

	png, err := qrcode.Encode(h.shortURL(link.Slug), qrcode.Medium, qrSize)
	if err != nil {
		return fmt.Errorf("failed to encode qr code: %w", err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (h *LinkHandler) shortURL(slug string) string {
	return h.baseURL + "/" + slug
}

func (h *LinkHandler) toResponse(link *internal.Link) LinkResponse {
	return LinkResponse{
		ID:             link.ID,
		Slug:           link.Slug,
		DestinationURL: link.DestinationURL,
		ShortURL:       h.shortURL(link.Slug),
		CreatedAt:      link.CreatedAt,
		UTM:            link.UTM,
	}
}

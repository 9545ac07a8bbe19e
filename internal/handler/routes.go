package handler

import (
	"github.com/labstack/echo/v4"
)

type Routes struct {
	Auth        *AuthHandler
	Links       *LinkHandler
	Dashboard   *DashboardHandler
	Redirect    *RedirectHandler
	// RequireAuth guards every /api route.
	RequireAuth echo.MiddlewareFunc
}

// Register mounts the routes on e. The slug catch-all goes last so fixed
// paths registered before it keep priority.
func (r Routes) Register(e *echo.Echo) {
	e.POST("/login", r.Auth.Login)
	e.GET("/logout", r.Auth.Logout)

	api := e.Group("/api", r.RequireAuth)
	api.POST("/links", r.Links.CreateLink)
	api.GET("/links", r.Links.ListLinks)
	api.GET("/links/:slug/qr", r.Links.QRCode)

	api.GET("/dashboard", r.Dashboard.Dashboard)
	api.GET("/dashboard/summary", r.Dashboard.Summary)
	api.GET("/dashboard/clicks", r.Dashboard.ClicksOverTime)
	api.GET("/dashboard/devices", r.Dashboard.Devices)

	// Parameterized route (must be last)
	e.GET("/:slug", r.Redirect.Redirect)
}

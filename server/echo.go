package server

import (
	"github.com/karagenc/fj4echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func NewEchoApp() *echo.Echo {
	app := echo.New()
	app.HideBanner = true
	app.HidePort = true

	app.Use(middleware.Recover())
	app.Use(middleware.Secure())

	app.JSONSerializer = fj4echo.New()

	return app
}

package controller

import "github.com/labstack/echo/v4"

type PlaceController interface {
	Get(c echo.Context) error
	Lookup(c echo.Context) error
	Benefits(c echo.Context) error
	ImportURL(c echo.Context) error
}

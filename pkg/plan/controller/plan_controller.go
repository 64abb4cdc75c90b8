package controller

import "github.com/labstack/echo/v4"

type PlanController interface {
	Full(c echo.Context) error
	FullIDs(c echo.Context) error
	AdjustItem(c echo.Context) error
	RemoveItem(c echo.Context) error
	RecommendAgain(c echo.Context) error
	ResetExclusions(c echo.Context) error
	Revision(c echo.Context) error
}

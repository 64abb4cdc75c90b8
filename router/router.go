package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authctrl "daytrip/pkg/auth/controller"
	"daytrip/pkg/middleware"
	placectrl "daytrip/pkg/place/controller"
	planctrl "daytrip/pkg/plan/controller"
)

func New(
	e *echo.Echo,
	sessions middleware.TokenValidator,
	planCtrl planctrl.PlanController,
	placeCtrl placectrl.PlaceController,
	authCtrl authctrl.AuthController,
	healthCtrl interface{ Health(echo.Context) error },
	metrics http.Handler,
) *echo.Echo {
	e.GET("/health", healthCtrl.Health)
	e.GET("/metrics", echo.WrapHandler(metrics))

	api := e.Group("/api", middleware.Session(sessions))

	api.POST("/auth/token", authCtrl.IssueToken)
	api.GET("/auth/whoami", authCtrl.WhoAmI)

	plan := api.Group("/plan")
	plan.POST("/full", planCtrl.Full)
	plan.POST("/full-ids", planCtrl.FullIDs)
	plan.POST("/adjust-item", planCtrl.AdjustItem)
	plan.POST("/remove-item", planCtrl.RemoveItem)
	plan.GET("/revision", planCtrl.Revision)

	api.POST("/recommend/again", planCtrl.RecommendAgain)
	api.DELETE("/recommend/exclusions", planCtrl.ResetExclusions)

	api.GET("/place", placeCtrl.Get)
	api.POST("/place", placeCtrl.Lookup)
	api.GET("/benefits", placeCtrl.Benefits)
	api.POST("/places/import/url", placeCtrl.ImportURL)
	return e
}

package controllerImp

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"daytrip/pkg/apperr"
	"daytrip/pkg/middleware"
	"daytrip/pkg/plan/controller"
	"daytrip/pkg/plan/service"
	"daytrip/pkg/plan/types"
)

type PlanCtrl struct {
	svc service.PlanService
	log *slog.Logger
}

var _ controller.PlanController = (*PlanCtrl)(nil)

func NewPlanCtrl(svc service.PlanService, log *slog.Logger) *PlanCtrl {
	return &PlanCtrl{svc: svc, log: log}
}

func (h *PlanCtrl) Full(c echo.Context) error {
	var req types.PlanRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	plan, err := h.svc.PlanFull(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

// FullIDs answers {data: {"1": id, "2": id, ...}, count}.
func (h *PlanCtrl) FullIDs(c echo.Context) error {
	var req types.PlanRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	ids, err := h.svc.PlanFullIDs(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": numbered(ids...), "count": len(ids)})
}

func (h *PlanCtrl) AdjustItem(c echo.Context) error {
	var req types.AdjustItemRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	plan, err := h.svc.AdjustItem(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *PlanCtrl) RemoveItem(c echo.Context) error {
	var req types.RemoveItemRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	plan, err := h.svc.RemoveItem(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, plan)
}

func (h *PlanCtrl) RecommendAgain(c echo.Context) error {
	var req types.PlanRequest
	if err := c.Bind(&req); err != nil {
		return badJSON(c)
	}
	id, err := h.svc.RecommendAgain(c.Request().Context(), middleware.SessionID(c), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": numbered(id)})
}

func (h *PlanCtrl) ResetExclusions(c echo.Context) error {
	h.svc.ResetExclusions(middleware.SessionID(c))
	return c.NoContent(http.StatusNoContent)
}

func (h *PlanCtrl) Revision(c echo.Context) error {
	id := strings.TrimSpace(c.QueryParam("draftId"))
	if id == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": string(apperr.BadInput), "message": "draftId is required"})
	}
	return c.JSON(http.StatusOK, map[string]any{"draftId": id, "revision": h.svc.Revision(id)})
}

func numbered(ids ...string) map[string]string {
	out := make(map[string]string, len(ids))
	for i, id := range ids {
		out[strconv.Itoa(i+1)] = id
	}
	return out
}

func badJSON(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": string(apperr.BadInput), "message": "bad json"})
}

func (h *PlanCtrl) fail(c echo.Context, err error) error {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("[plan] request failed", "path", c.Path(), "kind", kind, "err", err)
	}
	return c.JSON(status, map[string]string{"error": string(kind), "message": apperr.Message(err)})
}

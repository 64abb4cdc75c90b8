package controllerImp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrip/pkg/apperr"
	"daytrip/pkg/middleware"
	"daytrip/pkg/plan/types"
)

type stubSvc struct {
	plan     *types.PlanResponse
	ids      []string
	again    string
	err      error
	lastSID  string
	lastReq  types.PlanRequest
	resetSID string
}

func (s *stubSvc) PlanFull(_ context.Context, req types.PlanRequest) (*types.PlanResponse, error) {
	s.lastReq = req
	return s.plan, s.err
}

func (s *stubSvc) PlanFullIDs(_ context.Context, req types.PlanRequest) ([]string, error) {
	s.lastReq = req
	return s.ids, s.err
}

func (s *stubSvc) RecommendAgain(_ context.Context, sid string, req types.PlanRequest) (string, error) {
	s.lastSID, s.lastReq = sid, req
	return s.again, s.err
}

func (s *stubSvc) ResetExclusions(sid string) { s.resetSID = sid }

func (s *stubSvc) AdjustItem(context.Context, types.AdjustItemRequest) (*types.PlanResponse, error) {
	return s.plan, s.err
}

func (s *stubSvc) RemoveItem(context.Context, types.RemoveItemRequest) (*types.PlanResponse, error) {
	return s.plan, s.err
}

func (s *stubSvc) Revision(draftID string) int {
	if draftID == "D" {
		return 2
	}
	return 0
}

type noTokens struct{}

func (noTokens) Validate(string) (string, error) { return "", errors.New("no tokens") }

func serve(svc *stubSvc, method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	e := echo.New()
	e.Use(middleware.Session(noTokens{}))
	h := NewPlanCtrl(svc, slog.Default())
	e.POST("/api/plan/full", h.Full)
	e.POST("/api/plan/full-ids", h.FullIDs)
	e.POST("/api/plan/adjust-item", h.AdjustItem)
	e.POST("/api/plan/remove-item", h.RemoveItem)
	e.GET("/api/plan/revision", h.Revision)
	e.POST("/api/recommend/again", h.RecommendAgain)
	e.DELETE("/api/recommend/exclusions", h.ResetExclusions)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestFull_BindsCamelCaseRequest(t *testing.T) {
	svc := &stubSvc{plan: &types.PlanResponse{Date: "2026-10-15", Items: []types.PlanItem{{PlaceID: "a1", Time: "10:00"}}}}

	rec := serve(svc, http.MethodPost, "/api/plan/full", `{"userLat":37.5,"userLng":127.0,"radiusKm":4,"categories":["카페"],"startAt":"09:30"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"placeId":"a1"`)
	require.NotNil(t, svc.lastReq.RadiusKm)
	assert.Equal(t, 4.0, *svc.lastReq.RadiusKm)
	assert.Equal(t, "09:30", svc.lastReq.StartAt)
}

func TestFull_BadJSON(t *testing.T) {
	rec := serve(&stubSvc{}, http.MethodPost, "/api/plan/full", `{"userLat":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "BAD_INPUT")
}

func TestFullIDs_NumbersIDs(t *testing.T) {
	rec := serve(&stubSvc{ids: []string{"a1", "c1", "r1"}}, http.MethodPost, "/api/plan/full-ids", `{"userLat":37.5,"userLng":127.0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"1":"a1","2":"c1","3":"r1"},"count":3}`, rec.Body.String())
}

func TestErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.New(apperr.BadInput, "userLat/userLng is required"), http.StatusBadRequest},
		{apperr.New(apperr.SameCategory, "same"), http.StatusConflict},
		{apperr.New(apperr.RevisionMismatch, "stale"), http.StatusConflict},
		{apperr.New(apperr.NoCandidate, "none"), http.StatusNotFound},
		{apperr.Wrap(apperr.StoreUnavailable, "place store unavailable", errors.New("secret dsn")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := serve(&stubSvc{err: tc.err}, http.MethodPost, "/api/plan/adjust-item", `{"items":[],"index":0}`)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.NotContains(t, rec.Body.String(), "secret dsn")
	}
}

func TestRecommendAgain_UsesSession(t *testing.T) {
	svc := &stubSvc{again: "r9"}
	rec := serve(svc, http.MethodPost, "/api/recommend/again",
		`{"userLat":37.5,"userLng":127.0,"exclude":["a1"],"excludePlaceId":"c1","targetCategory":"식당"}`,
		&http.Cookie{Name: middleware.SessionCookie, Value: "sess-1"})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"1":"r9"}}`, rec.Body.String())
	assert.Equal(t, "sess-1", svc.lastSID)
	assert.Equal(t, "c1", svc.lastReq.ExcludePlaceID)
	assert.Equal(t, "식당", svc.lastReq.TargetCategory)

	rec = serve(svc, http.MethodDelete, "/api/recommend/exclusions", "", &http.Cookie{Name: middleware.SessionCookie, Value: "sess-1"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "sess-1", svc.resetSID)
}

func TestRevision(t *testing.T) {
	rec := serve(&stubSvc{}, http.MethodGet, "/api/plan/revision?draftId=D", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"draftId":"D","revision":2}`, rec.Body.String())

	rec = serve(&stubSvc{}, http.MethodGet, "/api/plan/revision", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem_ReturnsPlan(t *testing.T) {
	svc := &stubSvc{plan: &types.PlanResponse{Date: "2026-10-15", Items: []types.PlanItem{}}}
	rec := serve(svc, http.MethodPost, "/api/plan/remove-item", `{"items":[{"time":"10:00","place_id":"a1"}],"index":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"items":[]`)
}

package controllerImp

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"daytrip/entities"
	"daytrip/pkg/apperr"
	"daytrip/pkg/place/controller"
	"daytrip/pkg/place/importer"
	"daytrip/pkg/place/repository"
)

const (
	benefitPageSize = 20
	benefitMaxPages = 5
)

type PlaceCtrl struct {
	store    repository.PlaceStore
	allow    map[string]bool
	maxBytes int
	client   *http.Client
	log      *slog.Logger
}

var _ controller.PlaceController = (*PlaceCtrl)(nil)

// New builds the place endpoints. URL imports are accepted only from hosts
// in allowedHosts.
func New(store repository.PlaceStore, allowedHosts []string, maxBytes int, client *http.Client, log *slog.Logger) *PlaceCtrl {
	allow := map[string]bool{}
	for _, h := range allowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allow[h] = true
		}
	}
	return &PlaceCtrl{store: store, allow: allow, maxBytes: maxBytes, client: client, log: log}
}

// Get answers {data: place} or {data: null} for ?code=.
func (h *PlaceCtrl) Get(c echo.Context) error {
	return h.lookup(c, c.QueryParam("code"))
}

func (h *PlaceCtrl) Lookup(c echo.Context) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.Code) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": string(apperr.BadInput), "message": "code is required"})
	}
	return h.lookup(c, body.Code)
}

func (h *PlaceCtrl) lookup(c echo.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return c.JSON(http.StatusOK, map[string]any{"data": nil})
	}
	p, err := h.store.FetchByPlaceID(c.Request().Context(), code)
	if errors.Is(err, repository.ErrPlaceNotFound) {
		return c.JSON(http.StatusOK, map[string]any{"data": nil})
	}
	if err != nil {
		return h.storeDown(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": p})
}

// Benefits lists places of a region by discount, 20 per page, at most 5
// pages. search is "<sido> <sigungu>"; either part may be omitted.
func (h *PlaceCtrl) Benefits(c echo.Context) error {
	ctx := c.Request().Context()
	sido, sigungu := splitRegion(c.QueryParam("search"))
	page, _ := strconv.Atoi(c.QueryParam("page"))
	page = min(max(page, 1), benefitMaxPages)

	pool, err := h.store.FetchPlaces(ctx, sido, sigungu, benefitPageSize*benefitMaxPages, 0)
	if err != nil {
		return h.storeDown(c, err)
	}
	total, err := h.store.CountPlaces(ctx, sido, sigungu)
	if err != nil {
		return h.storeDown(c, err)
	}

	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].DiscountPercent != pool[j].DiscountPercent {
			return pool[i].DiscountPercent > pool[j].DiscountPercent
		}
		return pool[i].Name < pool[j].Name
	})
	from := min((page-1)*benefitPageSize, len(pool))
	to := min(from+benefitPageSize, len(pool))
	items := append([]entities.Place{}, pool[from:to]...)

	pages := int((total + benefitPageSize - 1) / benefitPageSize)
	return c.JSON(http.StatusOK, map[string]any{"data": map[string]any{
		"items":      items,
		"page":       page,
		"pageSize":   benefitPageSize,
		"totalPages": min(pages, benefitMaxPages),
	}})
}

func splitRegion(search string) (string, string) {
	parts := strings.Fields(strings.Trim(search, `"'`))
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}

// ImportURL fetches a place sheet from an allowed host and upserts its rows.
func (h *PlaceCtrl) ImportURL(c echo.Context) error {
	var body struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&body); err != nil || strings.TrimSpace(body.URL) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": string(apperr.BadInput), "message": "url required"})
	}
	u, err := url.Parse(strings.TrimSpace(body.URL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": string(apperr.BadInput), "message": "bad url"})
	}
	if !h.allow[strings.ToLower(u.Host)] {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "FORBIDDEN", "message": "domain not allowed"})
	}

	ctx := c.Request().Context()
	res, err := importer.FetchURL(ctx, h.client, u.String(), h.maxBytes)
	if err != nil {
		h.log.Warn("[import] fetch failed", "url", u.String(), "err", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "IMPORT_FAILED", "message": err.Error()})
	}
	n, err := h.store.UpsertPlaces(ctx, res.Places)
	if err != nil {
		return h.storeDown(c, err)
	}
	h.log.Info("[import] url imported", "url", u.String(), "upserted", n, "skipped", res.Skipped)
	return c.JSON(http.StatusCreated, map[string]int{"imported": n, "skipped": res.Skipped})
}

func (h *PlaceCtrl) storeDown(c echo.Context, err error) error {
	h.log.Error("[place] store failed", "path", c.Path(), "err", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": string(apperr.StoreUnavailable), "message": "place store unavailable"})
}

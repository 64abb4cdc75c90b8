package controllerImp

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthCtrl struct {
	store     Pinger
	storeKind string
	started   time.Time
}

func NewHealthCtrl(store Pinger, storeKind string) *HealthCtrl {
	return &HealthCtrl{store: store, storeKind: storeKind, started: time.Now()}
}

func (h *HealthCtrl) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 800*time.Millisecond)
	defer cancel()

	type sub struct {
		OK   bool   `json:"ok"`
		Kind string `json:"kind"`
		Err  string `json:"err,omitempty"`
	}
	store := sub{OK: true, Kind: h.storeKind}
	if h.store == nil {
		store.OK, store.Err = false, "place store not configured"
	} else if err := h.store.Ping(ctx); err != nil {
		store.OK, store.Err = false, "ping: "+err.Error()
	}

	status := http.StatusOK
	if !store.OK {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, map[string]any{
		"status":     map[string]any{"ok": store.OK},
		"uptime_sec": int(time.Since(h.started).Seconds()),
		"checks":     map[string]any{"place_store": store},
		"time":       time.Now().Format(time.RFC3339),
	})
}

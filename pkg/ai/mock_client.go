// pkg/ai/mock_client.go

package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type mockPlanner struct{}

// NewMock returns an offline planner: it walks the pool in order, skipping a
// candidate whose category repeats the previous stop, and spaces stops 90
// minutes apart from start_at.
func NewMock() Planner { return &mockPlanner{} }

func (m *mockPlanner) PlanOneDayJSON(_ context.Context, regionLabel, placesJSON, prefsJSON string) (string, error) {
	var pool []struct {
		PlaceID  string `json:"place_id"`
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(placesJSON), &pool); err != nil {
		return "", fmt.Errorf("mock planner: bad places json: %w", err)
	}
	var prefs struct {
		StartAt string `json:"start_at"`
	}
	_ = json.Unmarshal([]byte(prefsJSON), &prefs)
	start, err := time.Parse("15:04", prefs.StartAt)
	if err != nil {
		start, _ = time.Parse("15:04", "10:00")
	}

	type item struct {
		Time    string `json:"time"`
		PlaceID string `json:"place_id"`
		Note    string `json:"note"`
		EstCost int    `json:"est_cost"`
	}
	var (
		items   []item
		used    = map[int]bool{}
		lastCat string
	)
	for pass := 0; pass < 2 && len(items) < 6; pass++ {
		for i, p := range pool {
			if len(items) == 6 {
				break
			}
			cat := strings.ToLower(strings.TrimSpace(p.Category))
			if used[i] || p.PlaceID == "" || (pass == 0 && len(items) > 0 && cat == lastCat) {
				continue
			}
			used[i] = true
			lastCat = cat
			items = append(items, item{
				Time:    start.Add(time.Duration(len(items)) * 90 * time.Minute).Format("15:04"),
				PlaceID: p.PlaceID,
				Note:    "mock pick",
			})
		}
	}

	out := map[string]any{
		"date":  time.Now().Format("2006-01-02"),
		"items": items,
		"summary": map[string]any{
			"total_est_cost": 0,
			"rationale":      "mock plan for " + regionLabel,
		},
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

package ai

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrip/pkg/apperr"
)

func TestExtractJSON(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
	}{
		"plain":       {`{"a":1}`, `{"a":1}`},
		"fenced":      {"Here you go:\n```json\n{\"a\":2}\n```\nthanks", `{"a":2}`},
		"bare fence":  {"```\n{\"a\":3}\n```", `{"a":3}`},
		"prose":       {`Sure! {"items":[{"note":"brace } in string"}]} done`, `{"items":[{"note":"brace } in string"}]}`},
		"skip broken": {`{oops {"a":4}`, `{"a":4}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, got)
		})
	}

	_, err := ExtractJSON("no json here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestMockPlanner_AlternatesCategories(t *testing.T) {
	pool := `[
		{"place_id":"c1","category":"카페"},
		{"place_id":"c2","category":"카페"},
		{"place_id":"r1","category":"음식점"},
		{"place_id":"a1","category":"놀거리"},
		{"place_id":"r2","category":"음식점"}
	]`
	out, err := NewMock().PlanOneDayJSON(context.Background(), "서울", pool, `{"start_at":"09:00"}`)
	require.NoError(t, err)

	var plan struct {
		Items []struct {
			Time    string `json:"time"`
			PlaceID string `json:"place_id"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &plan))
	require.Len(t, plan.Items, 5)
	assert.Equal(t, "c1", plan.Items[0].PlaceID)
	assert.Equal(t, "r1", plan.Items[1].PlaceID)
	assert.Equal(t, "09:00", plan.Items[0].Time)
	assert.Equal(t, "10:30", plan.Items[1].Time)
}

func TestRenderPlanPrompt_UsesConfiguredLimits(t *testing.T) {
	p := renderPlanPrompt(PromptRules{CafeLimit: 1, RestaurantLimit: 2, MinActivities: 3}, "서울", "[]", "{}")
	assert.Contains(t, p, "At most 1 cafes and at most 2 restaurants")
	assert.Contains(t, p, "at least 3 other activity")
	assert.Contains(t, p, "Region: 서울")
}

type countingPlanner struct{ calls int }

func (c *countingPlanner) PlanOneDayJSON(context.Context, string, string, string) (string, error) {
	c.calls++
	return "{}", nil
}

func TestRateLimited_WaitsAndRespectsContext(t *testing.T) {
	inner := &countingPlanner{}
	p := RateLimited(inner, 0.001, 1)

	_, err := p.PlanOneDayJSON(context.Background(), "", "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.PlanOneDayJSON(ctx, "", "", "")
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.PlannerUnavailable))
	assert.Equal(t, 1, inner.calls)
}

func TestRateLimited_DisabledReturnsInner(t *testing.T) {
	inner := &countingPlanner{}
	assert.Same(t, Planner(inner), RateLimited(inner, 0, 5))
}

func TestNewOpenAI_WrapsErrors(t *testing.T) {
	p, err := NewOpenAI("http://127.0.0.1:1/v1", "sk-test", "gpt-3.5-turbo", DefaultPromptRules(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err = p.PlanOneDayJSON(ctx, "서울", "[]", "{}")
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.PlannerUnavailable, ae.Kind)
}

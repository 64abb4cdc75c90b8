// pkg/ai/client.go

package ai

import (
	"context"
	"fmt"
)

// Planner drafts a one-day itinerary as JSON text from a candidate pool.
type Planner interface {
	PlanOneDayJSON(ctx context.Context, regionLabel, placesJSON, prefsJSON string) (string, error)
}

// PromptRules are the category rules the planner is asked to follow.
type PromptRules struct {
	CafeLimit       int
	RestaurantLimit int
	MinActivities   int
}

func DefaultPromptRules() PromptRules {
	return PromptRules{CafeLimit: 2, RestaurantLimit: 3, MinActivities: 1}
}

func renderPlanPrompt(r PromptRules, regionLabel, placesJSON, prefsJSON string) string {
	return fmt.Sprintf(`
You plan one-day city itineraries. Balance travel distance, discounts (discountpercent) and score (totalscore) across the candidates below.
Reply with valid JSON only. No prose.

Rules:
- Identify every stop by its "place_id" string exactly as given. Never invent ids.
- Use only place_id values from the candidate list.
- Times are HH:MM (24h) and fall between start_at and end_at of the preferences.
- Plan at least 4 and at most 6 stops.
- Never place two stops of the same category next to each other.
- At most %d cafes and at most %d restaurants in the day; include at least %d other activity (park, exhibition, experience, shopping, ...).
- Before answering, check: (1) adjacent categories differ (2) cafes <= %d, restaurants <= %d (3) activities >= %d. Fix the plan if any check fails.

Region: %s
Candidates (places): %s
Preferences (userPref): %s

Output schema:
{
  "date": "YYYY-MM-DD",
  "items": [
    { "time": "HH:MM", "place_id": "string", "note": "reason, max 60 chars", "est_cost": 0 }
  ],
  "summary": { "total_est_cost": 0, "rationale": "why these stops, max 200 chars" }
}
`, r.CafeLimit, r.RestaurantLimit, r.MinActivities,
		r.CafeLimit, r.RestaurantLimit, r.MinActivities,
		regionLabel, placesJSON, prefsJSON)
}

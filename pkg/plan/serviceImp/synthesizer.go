package serviceImp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"daytrip/entities"
	"daytrip/pkg/ai"
)

const (
	timeSentinel  = "99:99"
	plannerRegion = "AUTO"
	maxPlanStops  = 6
)

type synthesis struct {
	places    []entities.Place
	times     map[string]string // placeId -> HH:MM, well-formed only
	rationale string
}

// candidate is the wire form of a pool entry in the planner prompt.
type candidate struct {
	PlaceID         string  `json:"place_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Address         string  `json:"address"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	DiscountPercent int     `json:"discountpercent"`
	TotalScore      int     `json:"totalscore"`
}

type preferences struct {
	StartAt    string   `json:"start_at"`
	EndAt      string   `json:"end_at"`
	Categories []string `json:"categories,omitempty"`
	BudgetMin  *int     `json:"budget_min,omitempty"`
	BudgetMax  *int     `json:"budget_max,omitempty"`
}

type proposedItem struct {
	time    string
	placeID string
}

func (s *PlanSvc) synthesize(ctx context.Context, c point, startAt, endAt string, pool []entities.Place, categories []string, budgetMin, budgetMax *int) synthesis {
	cands := make([]candidate, len(pool))
	for i, p := range pool {
		cands[i] = candidate{
			PlaceID: p.PlaceID, Name: p.Name, Category: p.Category, Address: p.Address,
			Lat: p.Lat, Lng: p.Lng,
			DiscountPercent: max(0, p.DiscountPercent), TotalScore: max(0, p.TotalScore),
		}
	}
	placesJSON, _ := json.Marshal(cands)
	prefsJSON, _ := json.Marshal(preferences{
		StartAt: startAt, EndAt: endAt, Categories: categories,
		BudgetMin: budgetMin, BudgetMax: budgetMax,
	})

	began := time.Now()
	raw, err := s.planner.PlanOneDayJSON(ctx, plannerRegion, string(placesJSON), string(prefsJSON))
	s.metrics.PlannerSeconds.Observe(time.Since(began).Seconds())
	if err != nil {
		s.log.Warn("[plan] planner failed", "err", err)
		return s.degrade(pool, c, "planner_error", "planner unavailable")
	}

	items, summary, err := parsePlan(raw)
	if err != nil {
		s.log.Warn("[plan] planner output not parseable", "err", err)
		return s.degrade(pool, c, "unparseable", "planner output not parseable")
	}
	if len(items) == 0 {
		return s.degrade(pool, c, "no_items", "planner returned no items")
	}

	byID := make(map[string]entities.Place, len(pool))
	for _, p := range pool {
		if _, dup := byID[p.PlaceID]; !dup {
			byID[p.PlaceID] = p
		}
	}
	var picked []entities.Place
	seen := map[string]bool{}
	times := map[string]string{}
	for _, it := range items {
		p, ok := byID[it.placeID]
		if !ok || seen[it.placeID] {
			continue
		}
		seen[it.placeID] = true
		picked = append(picked, p)
	}
	for _, it := range items {
		if _, taken := times[it.placeID]; !taken && wellFormedTime(it.time) {
			times[it.placeID] = it.time
		}
	}
	if len(picked) == 0 {
		return s.degrade(pool, c, "no_whitelisted", "no proposed place was a candidate")
	}

	picked = s.balance(picked)
	if len(picked) > maxPlanStops {
		picked = picked[:maxPlanStops]
	}
	picked, times = s.ensureActivity(picked, pool, c, times)
	picked = s.spreadCategories(picked)

	rationale := strings.TrimSpace(summary)
	if rationale == "" {
		rationale = "planner itinerary (candidate whitelist applied)"
	}
	return synthesis{places: picked, times: redealTimes(picked, times), rationale: rationale}
}

func (s *PlanSvc) degrade(pool []entities.Place, c point, reason, why string) synthesis {
	s.metrics.Degradations.WithLabelValues(reason).Inc()
	return synthesis{
		places:    nearestFirst(pool, c, nearestFallbackLength),
		times:     map[string]string{},
		rationale: "nearest-first fallback: " + why,
	}
}

// parsePlan extracts the items of a planner reply, stably sorted by time
// with malformed or missing times last.
func parsePlan(raw string) ([]proposedItem, string, error) {
	body, err := ai.ExtractJSON(raw)
	if err != nil {
		return nil, "", err
	}
	var doc struct {
		Items   []map[string]any `json:"items"`
		Summary struct {
			Rationale any `json:"rationale"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return nil, "", err
	}

	var items []proposedItem
	for _, it := range doc.Items {
		id, _ := it["place_id"].(string)
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		t, _ := it["time"].(string)
		items = append(items, proposedItem{time: strings.TrimSpace(t), placeID: id})
	}
	sort.SliceStable(items, func(i, j int) bool { return sortKey(items[i].time) < sortKey(items[j].time) })

	rationale, _ := doc.Summary.Rationale.(string)
	return items, rationale, nil
}

func sortKey(t string) string {
	if wellFormedTime(t) {
		return t
	}
	return timeSentinel
}

// balance deals one place per category group round-robin, in first-seen
// group order. A group that hits its limit is dropped for the rest of the
// pass.
func (s *PlanSvc) balance(places []entities.Place) []entities.Place {
	var order []string
	queues := map[string][]entities.Place{}
	for _, p := range places {
		g := s.rules.group(p)
		if _, ok := queues[g]; !ok {
			order = append(order, g)
		}
		queues[g] = append(queues[g], p)
	}

	counts := map[string]int{}
	out := make([]entities.Place, 0, len(places))
	for added := true; added; {
		added = false
		for _, g := range order {
			q := queues[g]
			if len(q) == 0 {
				continue
			}
			if lim, ok := s.rules.limit(g); ok && counts[g] >= lim {
				queues[g] = nil
				continue
			}
			out = append(out, q[0])
			queues[g] = q[1:]
			counts[g]++
			added = true
		}
	}
	return out
}

// ensureActivity swaps in activities until the plan holds the configured
// minimum. Each swap replaces the last item of the most frequent
// non-activity group with the unpicked activity nearest to that item's
// predecessor; the new place inherits the replaced item's time.
func (s *PlanSvc) ensureActivity(picked, pool []entities.Place, c point, times map[string]string) ([]entities.Place, map[string]string) {
	for s.countActivities(picked) < s.rules.minActivities {
		inPlan := map[string]bool{}
		for _, p := range picked {
			inPlan[p.PlaceID] = true
		}

		freq := map[string]int{}
		var order []string
		for _, p := range picked {
			g := s.rules.group(p)
			if s.rules.isActivity(g) {
				continue
			}
			if freq[g] == 0 {
				order = append(order, g)
			}
			freq[g]++
		}
		if len(order) == 0 {
			break
		}
		top := order[0]
		for _, g := range order[1:] {
			if freq[g] > freq[top] {
				top = g
			}
		}
		idx := -1
		for i := len(picked) - 1; i >= 0; i-- {
			if s.rules.group(picked[i]) == top {
				idx = i
				break
			}
		}

		from := c
		if idx > 0 && picked[idx-1].HasLocation() {
			from = point{picked[idx-1].Lat, picked[idx-1].Lng}
		}
		best, bestD := -1, 0.0
		for i, p := range pool {
			if inPlan[p.PlaceID] || !s.rules.isActivity(s.rules.group(p)) {
				continue
			}
			if d := distanceFrom(from, p); best < 0 || d < bestD {
				best, bestD = i, d
			}
		}
		if best < 0 {
			break
		}

		old := picked[idx]
		repl := pool[best]
		picked = append([]entities.Place(nil), picked...)
		picked[idx] = repl
		if t, ok := times[old.PlaceID]; ok {
			times[repl.PlaceID] = t
			delete(times, old.PlaceID)
		}
	}
	return picked, times
}

func (s *PlanSvc) countActivities(ps []entities.Place) int {
	n := 0
	for _, p := range ps {
		if s.rules.isActivity(s.rules.group(p)) {
			n++
		}
	}
	return n
}

// spreadCategories walks left to right; when an item repeats the group of
// its predecessor it is swapped with the nearest later item of another
// group, if any.
func (s *PlanSvc) spreadCategories(places []entities.Place) []entities.Place {
	out := append([]entities.Place(nil), places...)
	for i := 1; i < len(out); i++ {
		prev := s.rules.group(out[i-1])
		if s.rules.group(out[i]) != prev {
			continue
		}
		for j := i + 1; j < len(out); j++ {
			if s.rules.group(out[j]) != prev {
				out[i], out[j] = out[j], out[i]
				break
			}
		}
	}
	return out
}

// redealTimes hands the well-formed times of the final places, ascending,
// to the leading positions of the arrangement.
func redealTimes(places []entities.Place, times map[string]string) map[string]string {
	var ts []string
	for _, p := range places {
		if t, ok := times[p.PlaceID]; ok {
			ts = append(ts, t)
		}
	}
	sort.Strings(ts)
	out := make(map[string]string, len(ts))
	for i, t := range ts {
		out[places[i].PlaceID] = t
	}
	return out
}

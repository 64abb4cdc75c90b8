package serviceImp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"daytrip/entities"
	"daytrip/pkg/apperr"
	"daytrip/pkg/geo"
	"daytrip/pkg/plan/types"
)

const minSlotMinutes = 20

// CostEstimator prices a single stop.
type CostEstimator interface {
	Estimate(p entities.Place) int
}

// DiscountCostEstimator uses the discount percent as a cost proxy.
type DiscountCostEstimator struct{}

func (DiscountCostEstimator) Estimate(p entities.Place) int { return max(0, p.DiscountPercent) }

// wellFormedTime accepts a 24h "HH:MM" clock time.
func wellFormedTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

func minutesOf(hhmm string) int {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0
	}
	return t.Hour()*60 + t.Minute()
}

// clock wraps past midnight.
func clock(minutes int) string {
	m := ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func (s *PlanSvc) assemble(ordered []entities.Place, orderIDs []string, c point, startAt, endAt string, times map[string]string, rationale string) *types.PlanResponse {
	rank := make(map[string]int, len(orderIDs))
	for i, id := range orderIDs {
		if _, ok := rank[id]; !ok {
			rank[id] = i
		}
	}
	places := append([]entities.Place(nil), ordered...)
	sort.SliceStable(places, func(i, j int) bool {
		ri, iok := rank[places[i].PlaceID]
		rj, jok := rank[places[j].PlaceID]
		if iok != jok {
			return iok
		}
		return ri < rj
	})

	n := max(1, len(places))
	span := max(0, minutesOf(endAt)-minutesOf(startAt))
	slot := max(minSlotMinutes, span/n)

	resp := &types.PlanResponse{Date: s.today(), Rationale: rationale, Items: make([]types.PlanItem, 0, len(places))}
	cursor := minutesOf(startAt)
	prev := c
	var rawKm float64
	for _, p := range places {
		at := clock(cursor)
		if t, ok := times[p.PlaceID]; ok && wellFormedTime(t) {
			at = t
			cursor = max(cursor, minutesOf(t))
		}
		cursor += slot

		leg := geo.DistanceKm(prev.Lat, prev.Lng, p.Lat, p.Lng)
		rawKm += leg
		prev = point{p.Lat, p.Lng}

		cost := s.cost.Estimate(p)
		resp.TotalEstCost += cost
		resp.Items = append(resp.Items, types.PlanItem{
			Time:          at,
			PlaceID:       p.PlaceID,
			Name:          p.Name,
			Category:      p.Category,
			Address:       p.Address,
			Lat:           p.Lat,
			Lng:           p.Lng,
			LegDistanceKm: geo.Round1(leg),
			EstCost:       cost,
		})
	}
	resp.TotalKm = geo.Round1(rawKm)
	return resp
}

// assembleFromDraft rebuilds a plan from client-held draft items. Items whose
// place no longer resolves are skipped.
func (s *PlanSvc) assembleFromDraft(ctx context.Context, date string, userLat, userLng *float64, items []types.DraftItem) (*types.PlanResponse, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, strings.TrimSpace(it.PlaceID))
	}
	found, err := s.places.FetchPlacesInOrder(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "place store unavailable", err)
	}
	byID := make(map[string]entities.Place, len(found))
	for _, p := range found {
		byID[p.PlaceID] = p
	}

	if strings.TrimSpace(date) == "" {
		date = s.today()
	}
	resp := &types.PlanResponse{Date: date, Items: make([]types.PlanItem, 0, len(items))}

	var prev *point
	if userLat != nil && userLng != nil {
		prev = &point{*userLat, *userLng}
	}
	var rawKm float64
	for i, it := range items {
		p, ok := byID[ids[i]]
		if !ok {
			continue
		}
		var leg float64
		if prev != nil {
			leg = geo.DistanceKm(prev.Lat, prev.Lng, p.Lat, p.Lng)
		}
		prev = &point{p.Lat, p.Lng}
		rawKm += leg

		cost := 0
		if it.EstCost != nil {
			cost = *it.EstCost
		}
		resp.TotalEstCost += cost
		resp.Items = append(resp.Items, types.PlanItem{
			Time:          it.Time,
			PlaceID:       p.PlaceID,
			Name:          p.Name,
			Category:      p.Category,
			Address:       p.Address,
			Lat:           p.Lat,
			Lng:           p.Lng,
			LegDistanceKm: geo.Round1(leg),
			EstCost:       cost,
			Note:          it.Note,
		})
	}
	resp.TotalKm = geo.Round1(rawKm)
	return resp, nil
}

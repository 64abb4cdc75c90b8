package types

import "strings"

type PlanRequest struct {
	Date           string   `json:"date"`
	UserLat        *float64 `json:"userLat"`
	UserLng        *float64 `json:"userLng"`
	Categories     []string `json:"categories"`
	StartAt        string   `json:"startAt"`
	EndAt          string   `json:"endAt"`
	RadiusKm       *float64 `json:"radiusKm"`
	CandidateLimit *int     `json:"candidateLimit"`
	BudgetStart    *int     `json:"budgetStart"`
	BudgetEnd      *int     `json:"budgetEnd"`
	Code           string   `json:"code"` // placeId used as center when coordinates are missing
	Exclude        []string `json:"exclude"`
	ExcludePlaceID string   `json:"excludePlaceId"` // the stop the user wants replaced
	TargetCategory string   `json:"targetCategory"`
}

type DraftItem struct {
	Time    string `json:"time"`
	PlaceID string `json:"place_id"`
	Note    string `json:"note"`
	EstCost *int   `json:"est_cost"`
}

type AdjustItemRequest struct {
	UserLat *float64    `json:"userLat"`
	UserLng *float64    `json:"userLng"`
	Date    string      `json:"date"`
	Items   []DraftItem `json:"items"`
	Index   *int        `json:"index"`

	DraftID  string   `json:"draftId"`
	Revision *int     `json:"revision"`
	Exclude  []string `json:"exclude"`

	NewPlaceID string  `json:"new_place_id"`
	NewTime    *string `json:"new_time"`
	NewNote    *string `json:"new_note"`
	NewEstCost *int    `json:"new_est_cost"`
}

// HasChange reports whether any new_* field was supplied.
func (r *AdjustItemRequest) HasChange() bool {
	return strings.TrimSpace(r.NewPlaceID) != "" || r.NewTime != nil || r.NewNote != nil || r.NewEstCost != nil
}

type RemoveItemRequest struct {
	UserLat *float64    `json:"userLat"`
	UserLng *float64    `json:"userLng"`
	Date    string      `json:"date"`
	Items   []DraftItem `json:"items"`
	Index   *int        `json:"index"`
}

type PlanItem struct {
	Time          string  `json:"time"`
	PlaceID       string  `json:"placeId"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Address       string  `json:"address"`
	Lat           float64 `json:"lat"`
	Lng           float64 `json:"lng"`
	LegDistanceKm float64 `json:"legDistanceKm"`
	EstCost       int     `json:"estCost"`
	Note          string  `json:"note"`
}

type PlanResponse struct {
	Date         string     `json:"date"`
	TotalKm      float64    `json:"totalKm"`
	TotalEstCost int        `json:"totalEstCost"`
	Rationale    string     `json:"rationale"`
	Items        []PlanItem `json:"items"`
}

// IDs returns the placeIds of the plan in order.
func (p *PlanResponse) IDs() []string {
	out := make([]string, 0, len(p.Items))
	for _, it := range p.Items {
		if it.PlaceID != "" {
			out = append(out, it.PlaceID)
		}
	}
	return out
}

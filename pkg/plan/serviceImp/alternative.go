package serviceImp

import (
	"context"
	"strings"

	"daytrip/entities"
	"daytrip/pkg/apperr"
	"daytrip/pkg/plan/types"
)

// RecommendAgain picks a random replacement stop near the user that the
// session has not already rejected.
func (s *PlanSvc) RecommendAgain(ctx context.Context, sessionID string, req types.PlanRequest) (string, error) {
	s.metrics.PlanRequests.WithLabelValues("again").Inc()
	if req.UserLat == nil || req.UserLng == nil {
		return "", apperr.New(apperr.NoCandidate, "userLat/userLng is required")
	}
	if id := strings.TrimSpace(req.ExcludePlaceID); id != "" {
		s.exclusions.Add(sessionID, id)
	}

	excluded := map[string]bool{}
	for _, id := range req.Exclude {
		excluded[strings.TrimSpace(id)] = true
	}
	for id := range s.exclusions.Snapshot(sessionID) {
		excluded[id] = true
	}
	target := ""
	if strings.TrimSpace(req.TargetCategory) != "" {
		target = s.rules.target(req.TargetCategory)
	}

	// the first radius that returns anything bounds the search; exclusions
	// and the target are applied to that pool only
	c := point{*req.UserLat, *req.UserLng}
	categories := normalizeCategories(req.Categories)
	var found []entities.Place
	for _, r := range againRadiiKm {
		var err error
		found, err = s.fetchNear(ctx, c, r, categories, againCandidateLimit, againFallbackLimit)
		if err != nil {
			return "", err
		}
		if len(found) > 0 {
			break
		}
	}
	pool := make([]entities.Place, 0, len(found))
	for _, p := range found {
		if excluded[p.PlaceID] {
			continue
		}
		if target != "" && s.rules.group(p) != target {
			continue
		}
		pool = append(pool, p)
	}
	if len(pool) == 0 {
		return "", apperr.New(apperr.NoCandidate, "no alternative candidate nearby")
	}
	pick := pool[s.pick(len(pool))]
	s.log.Debug("[again] picked", "session", sessionID, "place", pick.PlaceID, "pool", len(pool))
	return pick.PlaceID, nil
}

func (s *PlanSvc) ResetExclusions(sessionID string) { s.exclusions.Reset(sessionID) }

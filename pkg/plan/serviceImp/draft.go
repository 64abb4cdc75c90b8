package serviceImp

import (
	"context"
	"errors"
	"strings"

	"daytrip/entities"
	"daytrip/pkg/apperr"
	placerepo "daytrip/pkg/place/repository"
	"daytrip/pkg/plan/types"
)

func (s *PlanSvc) AdjustItem(ctx context.Context, req types.AdjustItemRequest) (*types.PlanResponse, error) {
	s.metrics.PlanRequests.WithLabelValues("adjust").Inc()
	if err := checkIndex(req.Items, req.Index); err != nil {
		return nil, err
	}
	if !req.HasChange() {
		return nil, apperr.New(apperr.BadInput, "nothing to change: set new_place_id, new_time, new_note or new_est_cost")
	}
	idx := *req.Index
	newID := strings.TrimSpace(req.NewPlaceID)

	if newID != "" {
		for i, it := range req.Items {
			if i != idx && strings.TrimSpace(it.PlaceID) == newID {
				return nil, s.conflict(apperr.DuplicatePlace, "place %q is already in the draft", newID)
			}
		}
		for _, ex := range req.Exclude {
			if strings.TrimSpace(ex) == newID {
				return nil, s.conflict(apperr.ExcludedPlace, "place %q was excluded", newID)
			}
		}
		cur, err := s.lookup(ctx, req.Items[idx].PlaceID)
		if err != nil {
			return nil, err
		}
		next, err := s.lookup(ctx, newID)
		if err != nil {
			return nil, err
		}
		if s.rules.group(cur) == s.rules.group(next) {
			return nil, s.conflict(apperr.SameCategory, "replacement must change category (both %q)", cur.Category)
		}
	}

	if err := s.revisions.Check(req.DraftID, req.Revision); err != nil {
		s.metrics.DraftConflicts.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}

	items := append([]types.DraftItem(nil), req.Items...)
	it := &items[idx]
	if newID != "" {
		it.PlaceID = newID
	}
	if req.NewTime != nil {
		it.Time = *req.NewTime
	}
	if req.NewNote != nil {
		it.Note = *req.NewNote
	}
	if req.NewEstCost != nil {
		v := *req.NewEstCost
		it.EstCost = &v
	}
	resp, err := s.assembleFromDraft(ctx, req.Date, req.UserLat, req.UserLng, items)
	if err != nil {
		return nil, err
	}
	// the revision is consumed only once the edited draft has been built
	if err := s.revisions.AssertAndBump(req.DraftID, req.Revision); err != nil {
		s.metrics.DraftConflicts.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return nil, err
	}
	return resp, nil
}

func (s *PlanSvc) RemoveItem(ctx context.Context, req types.RemoveItemRequest) (*types.PlanResponse, error) {
	s.metrics.PlanRequests.WithLabelValues("remove").Inc()
	if err := checkIndex(req.Items, req.Index); err != nil {
		return nil, err
	}
	idx := *req.Index
	items := make([]types.DraftItem, 0, len(req.Items)-1)
	items = append(items, req.Items[:idx]...)
	items = append(items, req.Items[idx+1:]...)
	return s.assembleFromDraft(ctx, req.Date, req.UserLat, req.UserLng, items)
}

func checkIndex(items []types.DraftItem, index *int) error {
	if len(items) == 0 {
		return apperr.New(apperr.BadInput, "items must not be empty")
	}
	if index == nil || *index < 0 || *index >= len(items) {
		return apperr.Newf(apperr.BadInput, "index out of range [0,%d)", len(items))
	}
	return nil
}

func (s *PlanSvc) lookup(ctx context.Context, id string) (entities.Place, error) {
	p, err := s.places.FetchByPlaceID(ctx, strings.TrimSpace(id))
	switch {
	case errors.Is(err, placerepo.ErrPlaceNotFound):
		return entities.Place{}, apperr.Newf(apperr.BadInput, "unknown place %q", id)
	case err != nil:
		return entities.Place{}, apperr.Wrap(apperr.StoreUnavailable, "place store unavailable", err)
	}
	return *p, nil
}

func (s *PlanSvc) conflict(kind apperr.Kind, format string, args ...any) error {
	s.metrics.DraftConflicts.WithLabelValues(string(kind)).Inc()
	return apperr.Newf(kind, format, args...)
}

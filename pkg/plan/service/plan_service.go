package service

import (
	"context"

	"daytrip/pkg/plan/types"
)

type PlanService interface {
	PlanFull(ctx context.Context, req types.PlanRequest) (*types.PlanResponse, error)
	// PlanFullIDs plans with the compact defaults and returns only the ordered ids.
	PlanFullIDs(ctx context.Context, req types.PlanRequest) ([]string, error)
	RecommendAgain(ctx context.Context, sessionID string, req types.PlanRequest) (string, error)
	// ResetExclusions forgets the places a session rejected through RecommendAgain.
	ResetExclusions(sessionID string)
	AdjustItem(ctx context.Context, req types.AdjustItemRequest) (*types.PlanResponse, error)
	RemoveItem(ctx context.Context, req types.RemoveItemRequest) (*types.PlanResponse, error)
	Revision(draftID string) int
}

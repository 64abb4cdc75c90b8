package serviceImp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrip/entities"
	"daytrip/pkg/apperr"
	"daytrip/pkg/plan/types"
)

func againReq(exclude ...string) types.PlanRequest {
	req := fullReq()
	req.Exclude = exclude
	return req
}

func TestRecommendAgain_RequiresCoordinates(t *testing.T) {
	svc := newTestSvc(t, &fakeStore{places: mixedPool()}, failing())
	_, err := svc.RecommendAgain(context.Background(), "s1", types.PlanRequest{})
	assert.Equal(t, apperr.NoCandidate, apperr.KindOf(err))
}

func TestRecommendAgain_SkipsExcludedAndRemembersRejections(t *testing.T) {
	store := &fakeStore{byRadius: map[float64][]entities.Place{
		3: {pl("a1", activity, 0.001), pl("c1", cafe, 0.002), pl("r1", restaurant, 0.003)},
	}}
	svc := newTestSvc(t, store, failing())
	ctx := context.Background()

	req := againReq("a1")
	req.ExcludePlaceID = "c1"
	got, err := svc.RecommendAgain(ctx, "s1", req)
	require.NoError(t, err)
	assert.Equal(t, "r1", got)

	// c1 stays rejected for this session only
	got, err = svc.RecommendAgain(ctx, "s1", againReq())
	require.NoError(t, err)
	assert.Equal(t, "a1", got)

	_, err = svc.RecommendAgain(ctx, "s1", againReq("a1", "r1"))
	assert.Equal(t, apperr.NoCandidate, apperr.KindOf(err))

	got, err = svc.RecommendAgain(ctx, "s2", againReq("a1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", got)

	svc.ResetExclusions("s1")
	got, err = svc.RecommendAgain(ctx, "s1", againReq("a1", "r1"))
	require.NoError(t, err)
	assert.Equal(t, "c1", got)
}

func TestRecommendAgain_WidensRadiusAndUsesLimits(t *testing.T) {
	store := &fakeStore{byRadius: map[float64][]entities.Place{
		5: {pl("far", activity, 0.04)},
	}}
	svc := newTestSvc(t, store, failing())

	got, err := svc.RecommendAgain(context.Background(), "s", againReq())
	require.NoError(t, err)
	assert.Equal(t, "far", got)
	assert.Equal(t, []float64{3, 5}, store.radii())
	assert.Equal(t, againCandidateLimit, store.calls[0].limit)
}

func TestRecommendAgain_TargetCategorySynonyms(t *testing.T) {
	pool := []entities.Place{pl("c1", cafe, 0.001), pl("r1", " 음식점", 0.002), pl("a1", activity, 0.003), pl("c2", "CAFE", 0.004)}
	cases := map[string][]string{
		"식당":   {"r1"},
		"음식":   {"r1"},
		"액티비티": {"a1"},
		"카페":   {"c1", "c2"},
		"Cafe": {"c1", "c2"},
	}
	for target, want := range cases {
		t.Run(target, func(t *testing.T) {
			svc := newTestSvc(t, &fakeStore{places: pool}, failing())
			svc.pick = func(n int) int { return n - 1 }
			req := againReq()
			req.TargetCategory = target
			got, err := svc.RecommendAgain(context.Background(), "s", req)
			require.NoError(t, err)
			assert.Contains(t, want, got)
		})
	}
}

func TestRecommendAgain_FallbackWhenRadiusQueryFails(t *testing.T) {
	store := &fakeStore{places: mixedPool(), nearErr: assert.AnError}
	svc := newTestSvc(t, store, failing())

	got, err := svc.RecommendAgain(context.Background(), "s", againReq())
	require.NoError(t, err)
	assert.Equal(t, "a1", got)

	store.allErr = assert.AnError
	_, err = svc.RecommendAgain(context.Background(), "s", againReq())
	assert.Equal(t, apperr.StoreUnavailable, apperr.KindOf(err))
}

func TestRecommendAgain_FiltersByRequestCategories(t *testing.T) {
	store := &fakeStore{places: mixedPool()}
	svc := newTestSvc(t, store, failing())

	req := againReq("c1")
	req.Categories = []string{" 카페", "Cafe"}
	got, err := svc.RecommendAgain(context.Background(), "s", req)
	require.NoError(t, err)
	assert.Equal(t, "c2", got)
	require.NotEmpty(t, store.calls)
	assert.Equal(t, []string{cafe, "cafe"}, store.calls[0].categories)

	// the in-memory fallback honours the same filter
	store.nearErr = assert.AnError
	got, err = svc.RecommendAgain(context.Background(), "s2", req)
	require.NoError(t, err)
	assert.Equal(t, "c2", got)
}

func TestRecommendAgain_StopsAtFirstNonEmptyPool(t *testing.T) {
	store := &fakeStore{byRadius: map[float64][]entities.Place{
		3: {pl("x", activity, 0.001)},
		5: {pl("x", activity, 0.001), pl("y", cafe, 0.03)},
	}}
	svc := newTestSvc(t, store, failing())

	_, err := svc.RecommendAgain(context.Background(), "s", againReq("x"))
	assert.Equal(t, apperr.NoCandidate, apperr.KindOf(err))
	assert.Equal(t, []float64{3}, store.radii())
}

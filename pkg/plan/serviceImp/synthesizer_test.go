package serviceImp

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrip/entities"
)

func TestParsePlan_ToleratesFencesAndSortsMalformedTimesLast(t *testing.T) {
	raw := "Here is your plan:\n```json\n" + `{"items":[
		{"time":"14:00","place_id":"b"},
		{"time":"soon","place_id":"x"},
		{"time":"09:30","place_id":"a"},
		{"place_id":"y"},
		{"time":"10:00","place_id":""},
		{"time":"12:00","place_id":42}
	],"summary":{"rationale":"short hops"}}` + "\n```"

	items, rationale, err := parsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "short hops", rationale)

	var got []string
	for _, it := range items {
		got = append(got, it.placeID)
	}
	assert.Equal(t, []string{"a", "b", "x", "y"}, got)
}

func TestParsePlan_NoJSON(t *testing.T) {
	_, _, err := parsePlan("I cannot help with that.")
	assert.Error(t, err)
}

func TestWellFormedTime(t *testing.T) {
	for _, ok := range []string{"00:00", "09:05", "23:59"} {
		assert.True(t, wellFormedTime(ok), ok)
	}
	for _, bad := range []string{"", "9:05", "24:00", "12:60", "12-30", "12:30:00", "99:99"} {
		assert.False(t, wellFormedTime(bad), bad)
	}
}

func TestSynthesize_Degradations(t *testing.T) {
	pool := mixedPool()
	cases := []struct {
		name   string
		reply  string
		reason string
	}{
		{"prose only", "no plan today", "unparseable"},
		{"broken json", `{"items":[{"time":"10:00",`, "unparseable"},
		{"empty items", `{"items":[],"summary":{}}`, "no_items"},
		{"nothing whitelisted", planJSON("", [2]string{"10:00", "nope"}), "no_whitelisted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestSvc(t, &fakeStore{}, replying(tc.reply))
			syn := svc.synthesize(context.Background(), center, "10:00", "18:00", pool, nil, nil, nil)

			assert.Len(t, syn.places, nearestFallbackLength)
			assert.Equal(t, "a1", syn.places[0].PlaceID)
			assert.Empty(t, syn.times)
			assert.Contains(t, syn.rationale, "nearest-first fallback")
			assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.Degradations.WithLabelValues(tc.reason)))
		})
	}
}

func TestSynthesize_CapsCafesRoundRobin(t *testing.T) {
	pool := mixedPool()
	svc := newTestSvc(t, &fakeStore{}, replying(planJSON("",
		[2]string{"10:00", "c1"}, [2]string{"11:00", "c2"}, [2]string{"12:00", "c3"}, [2]string{"13:00", "a1"},
	)))

	syn := svc.synthesize(context.Background(), center, "10:00", "18:00", pool, nil, nil, nil)
	assert.Equal(t, []string{"c1", "a1", "c2"}, idsOf(syn.places))
	// the surviving times are dealt over the new order
	assert.Equal(t, map[string]string{"c1": "10:00", "a1": "11:00", "c2": "13:00"}, syn.times)
}

func TestSynthesize_SwapsInNearestActivity(t *testing.T) {
	pool := []entities.Place{
		pl("c1", cafe, 0.001), pl("r1", restaurant, 0.002), pl("r2", restaurant, 0.003),
		pl("a-far", activity, 0.050), pl("a-near", activity, 0.0025),
	}
	svc := newTestSvc(t, &fakeStore{}, replying(planJSON("",
		[2]string{"10:00", "c1"}, [2]string{"12:00", "r1"}, [2]string{"14:00", "r2"},
	)))

	syn := svc.synthesize(context.Background(), center, "10:00", "18:00", pool, nil, nil, nil)
	assert.Equal(t, []string{"c1", "r1", "a-near"}, idsOf(syn.places))
	assert.Equal(t, "14:00", syn.times["a-near"])
	assert.NotContains(t, syn.times, "r2")
}

func TestSynthesize_NoActivityInPoolKeepsPlan(t *testing.T) {
	pool := []entities.Place{pl("c1", cafe, 0.001), pl("r1", restaurant, 0.002)}
	svc := newTestSvc(t, &fakeStore{}, replying(planJSON("",
		[2]string{"10:00", "c1"}, [2]string{"12:00", "r1"},
	)))

	syn := svc.synthesize(context.Background(), center, "10:00", "18:00", pool, nil, nil, nil)
	assert.Equal(t, []string{"c1", "r1"}, idsOf(syn.places))
}

func TestSpreadCategories(t *testing.T) {
	svc := newTestSvc(t, &fakeStore{}, failing())

	got := svc.spreadCategories([]entities.Place{
		pl("c1", cafe, 0), pl("c2", cafe, 0), pl("r1", restaurant, 0), pl("a1", activity, 0),
	})
	assert.Equal(t, []string{"c1", "r1", "c2", "a1"}, idsOf(got))

	// no legal arrangement: left as is
	got = svc.spreadCategories([]entities.Place{pl("c1", cafe, 0), pl("c2", "Cafe", 0)})
	assert.Equal(t, []string{"c1", "c2"}, idsOf(got))
}

func TestSynthesize_SendsClampedPoolAndPreferences(t *testing.T) {
	neg := entities.Place{PlaceID: "neg", Name: "Neg", Category: activity, Lat: 37.5, Lng: 127, DiscountPercent: -5, TotalScore: -1}
	budget := 30000

	var places, prefs string
	svc := newTestSvc(t, &fakeStore{}, func(_ context.Context, region, p, pr string) (string, error) {
		assert.Equal(t, plannerRegion, region)
		places, prefs = p, pr
		return planJSON("", [2]string{"10:00", "neg"}), nil
	})
	svc.synthesize(context.Background(), center, "10:00", "18:00", []entities.Place{neg}, []string{activity}, nil, &budget)

	assert.JSONEq(t, `[{"place_id":"neg","name":"Neg","category":"놀거리","address":"","lat":37.5,"lng":127,"discountpercent":0,"totalscore":0}]`, places)
	assert.JSONEq(t, `{"start_at":"10:00","end_at":"18:00","categories":["놀거리"],"budget_max":30000}`, prefs)
}

func TestSynthesize_CapsPlanLength(t *testing.T) {
	pool := mixedPool()
	svc := newTestSvc(t, &fakeStore{}, replying(planJSON("",
		[2]string{"09:00", "a1"}, [2]string{"09:30", "a2"}, [2]string{"10:00", "a3"}, [2]string{"10:30", "a4"},
		[2]string{"11:00", "c1"}, [2]string{"11:30", "c2"}, [2]string{"12:00", "r1"}, [2]string{"12:30", "r2"},
		[2]string{"13:00", "r3"}, [2]string{"13:30", "c3"},
	)))

	syn := svc.synthesize(context.Background(), center, "09:00", "21:00", pool, nil, nil, nil)
	require.Len(t, syn.places, maxPlanStops)
	assert.Len(t, syn.times, maxPlanStops)
	assert.GreaterOrEqual(t, svc.countActivities(syn.places), 1)
}

package repositoryImp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"daytrip/database"
	"daytrip/entities"
	"daytrip/pkg/place/repository"
)

var seoulPlaces = []entities.Place{
	{PlaceID: "p-hall", Name: "City Hall Cafe", Category: "카페", Lat: 37.5663, Lng: 126.9779, Sido: "서울", Sigungu: "중구", TotalScore: 90, DiscountPercent: 10},
	{PlaceID: "p-gwang", Name: "Gwanghwamun Grill", Category: "음식점", Lat: 37.5759, Lng: 126.9769, Sido: "서울", Sigungu: "종로구", TotalScore: 80, DiscountPercent: 20},
	{PlaceID: "p-museum", Name: "Palace Museum", Category: " 놀거리 ", Lat: 37.5796, Lng: 126.9770, Sido: "서울", Sigungu: "종로구", TotalScore: 80, DiscountPercent: 5},
	{PlaceID: "p-gangnam", Name: "Gangnam Bistro", Category: "음식점", Lat: 37.4979, Lng: 127.0276, Sido: "서울", Sigungu: "강남구", TotalScore: 70},
	{PlaceID: "p-busan", Name: "Haeundae Cafe", Category: "Cafe", Lat: 35.1587, Lng: 129.1604, Sido: "부산", Sigungu: "해운대구", TotalScore: 99},
	{PlaceID: "p-nowhere", Name: "Unmapped", Category: "카페", Sido: "서울", Sigungu: "중구", TotalScore: 100},
}

func newTestRepo(t *testing.T) repository.PlaceStore {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "places.db"))
	require.NoError(t, err)
	repo := New(db)
	n, err := repo.UpsertPlaces(context.Background(), seoulPlaces)
	require.NoError(t, err)
	require.Equal(t, len(seoulPlaces), n)
	return repo
}

func ids(ps []entities.Place) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.PlaceID
	}
	return out
}

func TestPlaceRepo_FetchPlacesNear_RadiusAndOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.FetchPlacesNear(ctx, 37.5665, 126.9780, 3, nil, 10)
	require.NoError(t, err)
	// score DESC, discount DESC, name ASC; unmapped and far places are dropped
	assert.Equal(t, []string{"p-hall", "p-gwang", "p-museum"}, ids(got))

	wide, err := repo.FetchPlacesNear(ctx, 37.5665, 126.9780, 15, nil, 10)
	require.NoError(t, err)
	assert.Contains(t, ids(wide), "p-gangnam")
	assert.NotContains(t, ids(wide), "p-busan")
}

func TestPlaceRepo_FetchPlacesNear_CategoryFilterAndLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.FetchPlacesNear(ctx, 37.5665, 126.9780, 15, []string{" 음식점 "}, 10)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p-gwang", "p-gangnam"}, ids(got))

	one, err := repo.FetchPlacesNear(ctx, 37.5665, 126.9780, 15, nil, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestPlaceRepo_FetchPlacesNear_InvalidCenter(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.FetchPlacesNear(context.Background(), 0, 0, 30, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPlaceRepo_FetchPlacesInOrder(t *testing.T) {
	repo := newTestRepo(t)
	got, err := repo.FetchPlacesInOrder(context.Background(), []string{"p-museum", "missing", "p-hall", "p-museum"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-museum", "p-hall"}, ids(got))
}

func TestPlaceRepo_FetchByPlaceID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.FetchByPlaceID(ctx, "p-gwang")
	require.NoError(t, err)
	assert.Equal(t, "Gwanghwamun Grill", p.Name)

	_, err = repo.FetchByPlaceID(ctx, "nope")
	assert.ErrorIs(t, err, repository.ErrPlaceNotFound)
}

func TestPlaceRepo_FetchPlacesAndCount_ByRegion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	all, err := repo.FetchPlaces(ctx, "", "", 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, len(seoulPlaces))
	assert.Equal(t, "p-nowhere", all[0].PlaceID)

	jongno, err := repo.FetchPlaces(ctx, "서울", "종로구", 10, 0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"p-gwang", "p-museum"}, ids(jongno))

	page2, err := repo.FetchPlaces(ctx, "서울", "", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page2, 2)

	n, err := repo.CountPlaces(ctx, "서울", "")
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}

func TestPlaceRepo_UpsertUpdatesExisting(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.UpsertPlaces(ctx, []entities.Place{{PlaceID: "p-hall", Name: "Renamed", Category: "카페", Lat: 37.5663, Lng: 126.9779}})
	require.NoError(t, err)

	p, err := repo.FetchByPlaceID(ctx, "p-hall")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Name)

	n, err := repo.CountPlaces(ctx, "", "")
	require.NoError(t, err)
	assert.EqualValues(t, len(seoulPlaces), n)
	assert.NoError(t, repo.Ping(ctx))
}

package repositoryImp

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daytrip/entities"
	"daytrip/pkg/geo"
	"daytrip/pkg/place/repository"
)

const scoreOrder = "total_score DESC, discount_percent DESC, name ASC"

type placeRepo struct{ db *gorm.DB }

func New(db *gorm.DB) repository.PlaceStore { return &placeRepo{db} }

func (r *placeRepo) FetchPlaces(ctx context.Context, sido, sigungu string, limit, offset int) ([]entities.Place, error) {
	var ps []entities.Place
	q := regionScope(r.db.WithContext(ctx), sido, sigungu).Order(scoreOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

func (r *placeRepo) FetchPlacesInOrder(ctx context.Context, ids []string) ([]entities.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []entities.Place
	if err := r.db.WithContext(ctx).Where("place_id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[string]entities.Place, len(found))
	for _, p := range found {
		byID[p.PlaceID] = p
	}
	out := make([]entities.Place, 0, len(found))
	seen := map[string]bool{}
	for _, id := range ids {
		if p, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *placeRepo) FetchByPlaceID(ctx context.Context, id string) (*entities.Place, error) {
	var p entities.Place
	err := r.db.WithContext(ctx).Where("place_id = ?", strings.TrimSpace(id)).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrPlaceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchPlacesNear narrows rows with a bounding box in SQL and applies the
// exact haversine radius in Go before the limit.
func (r *placeRepo) FetchPlacesNear(ctx context.Context, lat, lng, radiusKm float64, categories []string, limit int) ([]entities.Place, error) {
	if !geo.ValidPoint(lat, lng) || radiusKm <= 0 {
		return nil, nil
	}
	minLat, maxLat, minLng, maxLng := geo.BoundingBox(lat, lng, radiusKm)
	q := r.db.WithContext(ctx).Where("lat BETWEEN ? AND ?", minLat, maxLat)
	if minLng >= -180 && maxLng <= 180 {
		q = q.Where("lng BETWEEN ? AND ?", minLng, maxLng)
	}
	if cats := normalizeAll(categories); len(cats) > 0 {
		q = q.Where("lower(category) IN ?", cats)
	}

	var rows []entities.Place
	if err := q.Order(scoreOrder).Find(&rows).Error; err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	out := make([]entities.Place, 0, min(limit, len(rows)))
	for _, p := range rows {
		if !p.HasLocation() || !geo.WithinRadius(lat, lng, p.Lat, p.Lng, radiusKm) {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *placeRepo) CountPlaces(ctx context.Context, sido, sigungu string) (int64, error) {
	var n int64
	err := regionScope(r.db.WithContext(ctx).Model(&entities.Place{}), sido, sigungu).Count(&n).Error
	return n, err
}

func (r *placeRepo) UpsertPlaces(ctx context.Context, places []entities.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "place_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "category", "address", "lat", "lng", "sido", "sigungu",
			"discount_percent", "total_score", "benefit", "updated_at",
		}),
	}).CreateInBatches(places, 200)
	return int(res.RowsAffected), res.Error
}

func (r *placeRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func regionScope(q *gorm.DB, sido, sigungu string) *gorm.DB {
	if s := strings.TrimSpace(sido); s != "" {
		q = q.Where("sido = ?", s)
	}
	if s := strings.TrimSpace(sigungu); s != "" {
		q = q.Where("sigungu = ?", s)
	}
	return q
}

func normalizeAll(categories []string) []string {
	var out []string
	for _, c := range categories {
		if k := entities.NormalizeCategory(c); k != "" {
			out = append(out, k)
		}
	}
	return out
}

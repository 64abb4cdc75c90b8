package repository

import (
	"context"
	"errors"

	"daytrip/entities"
)

var ErrPlaceNotFound = errors.New("place not found")

// PlaceRepository is the read side of the curated place store.
type PlaceRepository interface {
	// FetchPlaces pages through places, best scored first, optionally
	// narrowed by region. Blank sido/sigungu mean "any".
	FetchPlaces(ctx context.Context, sido, sigungu string, limit, offset int) ([]entities.Place, error)
	// FetchPlacesInOrder resolves ids in the order given; unknown ids are skipped.
	FetchPlacesInOrder(ctx context.Context, ids []string) ([]entities.Place, error)
	FetchByPlaceID(ctx context.Context, id string) (*entities.Place, error)
	// FetchPlacesNear returns places within radiusKm of (lat, lng), best
	// scored first. An empty categories slice matches every category.
	FetchPlacesNear(ctx context.Context, lat, lng, radiusKm float64, categories []string, limit int) ([]entities.Place, error)
	CountPlaces(ctx context.Context, sido, sigungu string) (int64, error)
}

type PlaceWriter interface {
	UpsertPlaces(ctx context.Context, places []entities.Place) (int, error)
}

// PlaceStore is a repository that also accepts imports.
type PlaceStore interface {
	PlaceRepository
	PlaceWriter
	Ping(ctx context.Context) error
}

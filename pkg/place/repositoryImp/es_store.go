package repositoryImp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"daytrip/entities"
	"daytrip/pkg/geo"
	"daytrip/pkg/place/repository"
)

const placeMapping = `{
	"settings": {
		"index": { "max_result_window": 20000 }
	},
	"mappings": {
		"properties": {
			"place_id":         { "type": "keyword" },
			"name":             { "type": "text", "fields": { "raw": { "type": "keyword" } } },
			"category":         { "type": "keyword" },
			"category_key":     { "type": "keyword" },
			"address":          { "type": "text" },
			"location":         { "type": "geo_point" },
			"sido":             { "type": "keyword" },
			"sigungu":          { "type": "keyword" },
			"discount_percent": { "type": "integer" },
			"total_score":      { "type": "integer" },
			"benefit":          { "type": "text" }
		}
	}
}`

type esGeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type esPlace struct {
	PlaceID         string      `json:"place_id"`
	Name            string      `json:"name"`
	Category        string      `json:"category"`
	CategoryKey     string      `json:"category_key"`
	Address         string      `json:"address"`
	Location        *esGeoPoint `json:"location,omitempty"`
	Sido            string      `json:"sido"`
	Sigungu         string      `json:"sigungu"`
	DiscountPercent int         `json:"discount_percent"`
	TotalScore      int         `json:"total_score"`
	Benefit         string      `json:"benefit"`
}

func toESPlace(p entities.Place) esPlace {
	doc := esPlace{
		PlaceID: p.PlaceID, Name: p.Name, Category: p.Category, CategoryKey: p.CategoryKey(),
		Address: p.Address, Sido: p.Sido, Sigungu: p.Sigungu,
		DiscountPercent: p.DiscountPercent, TotalScore: p.TotalScore, Benefit: p.Benefit,
	}
	// places without coordinates are indexed without a geo_point
	if p.HasLocation() {
		doc.Location = &esGeoPoint{Lat: p.Lat, Lon: p.Lng}
	}
	return doc
}

func (d esPlace) toPlace() entities.Place {
	p := entities.Place{
		PlaceID: d.PlaceID, Name: d.Name, Category: d.Category, Address: d.Address,
		Sido: d.Sido, Sigungu: d.Sigungu,
		DiscountPercent: d.DiscountPercent, TotalScore: d.TotalScore, Benefit: d.Benefit,
	}
	if d.Location != nil {
		p.Lat, p.Lng = d.Location.Lat, d.Location.Lon
	}
	return p
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string  `json:"_id"`
			Source esPlace `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ESStore serves places from an Elasticsearch index with a geo_point field.
type ESStore struct {
	client *elasticsearch.Client
	index  string
	log    *slog.Logger
}

func NewESStore(client *elasticsearch.Client, index string, log *slog.Logger) *ESStore {
	if log == nil {
		log = slog.Default()
	}
	return &ESStore{client: client, index: index, log: log}
}

// NewESClient builds a client for the given node addresses.
func NewESClient(addresses []string) (*elasticsearch.Client, error) {
	return elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
}

var _ repository.PlaceStore = (*ESStore)(nil)

// EnsureIndex creates the index with the place mapping when it is missing.
func (s *ESStore) EnsureIndex(ctx context.Context) error {
	exist, err := s.client.Indices.Exists([]string{s.index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return err
	}
	defer exist.Body.Close()
	if exist.StatusCode == http.StatusOK {
		return nil
	}
	res, err := s.client.Indices.Create(s.index,
		s.client.Indices.Create.WithContext(ctx),
		s.client.Indices.Create.WithBody(strings.NewReader(placeMapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", s.index, res.Status())
	}
	s.log.Info("[es] index created", "index", s.index)
	return nil
}

func (s *ESStore) search(ctx context.Context, query map[string]any) ([]entities.Place, int, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, 0, err
	}
	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(bytes.NewReader(body)),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, responseError("search places", res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, 0, fmt.Errorf("decode search response: %w", err)
	}
	out := make([]entities.Place, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		p := h.Source.toPlace()
		if p.PlaceID == "" {
			p.PlaceID = h.ID
		}
		out = append(out, p)
	}
	return out, sr.Hits.Total.Value, nil
}

func scoreSort() []any {
	return []any{
		map[string]any{"total_score": map[string]any{"order": "desc", "missing": "_last"}},
		map[string]any{"discount_percent": map[string]any{"order": "desc", "missing": "_last"}},
		map[string]any{"name.raw": map[string]any{"order": "asc"}},
	}
}

func regionFilter(sido, sigungu string) []any {
	var filter []any
	if s := strings.TrimSpace(sido); s != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"sido": s}})
	}
	if s := strings.TrimSpace(sigungu); s != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"sigungu": s}})
	}
	return filter
}

func boolQuery(filter []any) map[string]any {
	if len(filter) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}
	return map[string]any{"bool": map[string]any{"filter": filter}}
}

func (s *ESStore) FetchPlaces(ctx context.Context, sido, sigungu string, limit, offset int) ([]entities.Place, error) {
	query := map[string]any{
		"size":  max(limit, 1),
		"from":  max(offset, 0),
		"query": boolQuery(regionFilter(sido, sigungu)),
		"sort":  scoreSort(),
	}
	ps, _, err := s.search(ctx, query)
	return ps, err
}

func (s *ESStore) FetchPlacesInOrder(ctx context.Context, ids []string) ([]entities.Place, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := map[string]any{
		"size":  len(ids),
		"query": map[string]any{"ids": map[string]any{"values": ids}},
	}
	found, _, err := s.search(ctx, query)
	if err != nil {
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

func (s *ESStore) FetchByPlaceID(ctx context.Context, id string) (*entities.Place, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, repository.ErrPlaceNotFound
	}
	res, err := s.client.Get(s.index, id, s.client.Get.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, repository.ErrPlaceNotFound
	}
	if res.IsError() {
		return nil, responseError("get place", res)
	}
	var doc struct {
		ID     string  `json:"_id"`
		Found  bool    `json:"found"`
		Source esPlace `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode place: %w", err)
	}
	if !doc.Found {
		return nil, repository.ErrPlaceNotFound
	}
	p := doc.Source.toPlace()
	if p.PlaceID == "" {
		p.PlaceID = doc.ID
	}
	return &p, nil
}

func (s *ESStore) FetchPlacesNear(ctx context.Context, lat, lng, radiusKm float64, categories []string, limit int) ([]entities.Place, error) {
	if !geo.ValidPoint(lat, lng) || radiusKm <= 0 {
		return nil, nil
	}
	filter := []any{
		map[string]any{"geo_distance": map[string]any{
			"distance": strconv.FormatFloat(radiusKm, 'f', -1, 64) + "km",
			"location": map[string]any{"lat": lat, "lon": lng},
		}},
	}
	if cats := normalizeAll(categories); len(cats) > 0 {
		filter = append(filter, map[string]any{"terms": map[string]any{"category_key": cats}})
	}
	query := map[string]any{
		"size":  max(limit, 1),
		"query": boolQuery(filter),
		"sort":  scoreSort(),
	}
	ps, _, err := s.search(ctx, query)
	return ps, err
}

func (s *ESStore) CountPlaces(ctx context.Context, sido, sigungu string) (int64, error) {
	body, err := json.Marshal(map[string]any{"query": boolQuery(regionFilter(sido, sigungu))})
	if err != nil {
		return 0, err
	}
	res, err := s.client.Count(
		s.client.Count.WithContext(ctx),
		s.client.Count.WithIndex(s.index),
		s.client.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("count places", res)
	}
	var out struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode count: %w", err)
	}
	return out.Count, nil
}

// UpsertPlaces indexes places by place_id through the bulk indexer and
// returns how many documents were accepted.
func (s *ESStore) UpsertPlaces(ctx context.Context, places []entities.Place) (int, error) {
	if len(places) == 0 {
		return 0, nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         s.index,
		Client:        s.client,
		NumWorkers:    2,
		FlushBytes:    5e+6,
		FlushInterval: 30 * time.Second,
		Refresh:       "wait_for",
	})
	if err != nil {
		return 0, fmt.Errorf("create bulk indexer: %w", err)
	}

	var ok, failed uint64
	for _, p := range places {
		data, err := json.Marshal(toESPlace(p))
		if err != nil {
			return 0, fmt.Errorf("encode place %s: %w", p.PlaceID, err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: p.PlaceID,
			Body:       bytes.NewReader(data),
			OnSuccess: func(context.Context, esutil.BulkIndexerItem, esutil.BulkIndexerResponseItem) {
				atomic.AddUint64(&ok, 1)
			},
			OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				atomic.AddUint64(&failed, 1)
				if err != nil {
					s.log.Warn("[es] bulk item failed", "id", item.DocumentID, "err", err)
				} else {
					s.log.Warn("[es] bulk item failed", "id", item.DocumentID, "type", res.Error.Type, "reason", res.Error.Reason)
				}
			},
		})
		if err != nil {
			return int(atomic.LoadUint64(&ok)), fmt.Errorf("queue place %s: %w", p.PlaceID, err)
		}
	}
	if err := bi.Close(ctx); err != nil {
		return int(atomic.LoadUint64(&ok)), fmt.Errorf("flush bulk indexer: %w", err)
	}
	if n := atomic.LoadUint64(&failed); n > 0 {
		return int(ok), fmt.Errorf("%d of %d places failed to index", n, len(places))
	}
	return int(ok), nil
}

func (s *ESStore) Ping(ctx context.Context) error {
	res, err := s.client.Ping(s.client.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("ping elasticsearch: %s", res.Status())
	}
	return nil
}

func responseError(op string, res *esapi.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 512))
	return fmt.Errorf("%s: %s: %s", op, res.Status(), strings.TrimSpace(string(b)))
}

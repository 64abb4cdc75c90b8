package serviceImp

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"daytrip/config"
	"daytrip/pkg/ai"
	"daytrip/pkg/apperr"
	"daytrip/pkg/exclusion"
	"daytrip/pkg/metrics"
	placerepo "daytrip/pkg/place/repository"
	"daytrip/pkg/plan/service"
	"daytrip/pkg/plan/types"
	"daytrip/pkg/revision"
)

// Defaults of a full plan request.
const (
	defaultStartAt        = "10:00"
	defaultEndAt          = "18:00"
	defaultRadiusKm       = 5.0
	defaultCandidateLimit = 300
)

// Defaults of the compact full-ids request.
const (
	idsStartAt        = "09:00"
	idsEndAt          = "21:00"
	idsRadiusKm       = 3.0
	idsCandidateLimit = 30
)

type Options struct {
	Rules      config.PlannerRules
	Revisions  *revision.Registry
	Exclusions *exclusion.Store
	Metrics    *metrics.Metrics
	Log        *slog.Logger
	Cost       CostEstimator
	Now        func() time.Time
	Pick       func(n int) int // uniform index in [0, n)
}

type PlanSvc struct {
	places  placerepo.PlaceRepository
	planner ai.Planner

	rules      categoryRules
	radii      []float64
	minPool    int
	revisions  *revision.Registry
	exclusions *exclusion.Store
	metrics    *metrics.Metrics
	log        *slog.Logger
	cost       CostEstimator
	now        func() time.Time
	pick       func(n int) int
}

var _ service.PlanService = (*PlanSvc)(nil)

func NewPlanService(places placerepo.PlaceRepository, planner ai.Planner, opts Options) (*PlanSvc, error) {
	s := &PlanSvc{
		places:     places,
		planner:    planner,
		rules:      newCategoryRules(opts.Rules),
		radii:      opts.Rules.RadiusStepsKm,
		minPool:    opts.Rules.MinPoolSize,
		revisions:  opts.Revisions,
		exclusions: opts.Exclusions,
		metrics:    opts.Metrics,
		log:        opts.Log,
		cost:       opts.Cost,
		now:        opts.Now,
		pick:       opts.Pick,
	}
	if len(s.radii) == 0 {
		s.radii = config.DefaultRules().RadiusStepsKm
	}
	if s.minPool <= 0 {
		s.minPool = config.DefaultRules().MinPoolSize
	}
	if s.revisions == nil {
		s.revisions = revision.NewRegistry()
	}
	if s.exclusions == nil {
		ex, err := exclusion.New(10000, 200)
		if err != nil {
			return nil, err
		}
		s.exclusions = ex
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.cost == nil {
		s.cost = DiscountCostEstimator{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.pick == nil {
		s.pick = rand.IntN
	}
	return s, nil
}

func (s *PlanSvc) today() string { return s.now().Format("2006-01-02") }

func (s *PlanSvc) Revision(draftID string) int { return s.revisions.Get(draftID) }

// PlanFull runs center resolution, candidate fetch, synthesis and assembly.
func (s *PlanSvc) PlanFull(ctx context.Context, req types.PlanRequest) (*types.PlanResponse, error) {
	s.metrics.PlanRequests.WithLabelValues("full").Inc()
	return s.planFull(ctx, req)
}

func (s *PlanSvc) planFull(ctx context.Context, req types.PlanRequest) (*types.PlanResponse, error) {
	startAt := orDefault(req.StartAt, defaultStartAt)
	endAt := orDefault(req.EndAt, defaultEndAt)
	if !wellFormedTime(startAt) || !wellFormedTime(endAt) {
		return nil, apperr.Newf(apperr.BadInput, "startAt/endAt must be HH:MM, got %q/%q", startAt, endAt)
	}
	radius := defaultRadiusKm
	if req.RadiusKm != nil && *req.RadiusKm > 0 && !math.IsInf(*req.RadiusKm, 0) {
		radius = *req.RadiusKm
	}
	limit := defaultCandidateLimit
	if req.CandidateLimit != nil && *req.CandidateLimit > 0 {
		limit = *req.CandidateLimit
	}
	categories := normalizeCategories(req.Categories)

	center := s.resolveCenter(ctx, req)
	pool, usedRadius, err := s.fetchCandidates(ctx, center, radius, categories, limit)
	if err != nil {
		return nil, err
	}
	s.log.Debug("[plan] candidates", "center", center, "radius_km", usedRadius, "pool", len(pool))
	if len(pool) == 0 {
		return &types.PlanResponse{
			Date:      s.today(),
			Rationale: "no candidates near the starting point; widen the radius or categories",
			Items:     []types.PlanItem{},
		}, nil
	}

	syn := s.synthesize(ctx, center, startAt, endAt, pool, categories, req.BudgetStart, req.BudgetEnd)
	return s.assemble(syn.places, idsOf(syn.places), center, startAt, endAt, syn.times, syn.rationale), nil
}

func (s *PlanSvc) PlanFullIDs(ctx context.Context, req types.PlanRequest) ([]string, error) {
	s.metrics.PlanRequests.WithLabelValues("full_ids").Inc()
	if req.UserLat == nil || req.UserLng == nil {
		return nil, apperr.New(apperr.BadInput, "userLat/userLng is required")
	}
	if strings.TrimSpace(req.StartAt) == "" {
		req.StartAt = idsStartAt
	}
	if strings.TrimSpace(req.EndAt) == "" {
		req.EndAt = idsEndAt
	}
	if req.RadiusKm == nil || *req.RadiusKm <= 0 {
		r := idsRadiusKm
		req.RadiusKm = &r
	}
	if req.CandidateLimit == nil || *req.CandidateLimit <= 0 {
		l := idsCandidateLimit
		req.CandidateLimit = &l
	}
	plan, err := s.planFull(ctx, req)
	if err != nil {
		return nil, err
	}
	return plan.IDs(), nil
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

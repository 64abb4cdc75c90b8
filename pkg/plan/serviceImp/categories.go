package serviceImp

import (
	"daytrip/config"
	"daytrip/entities"
)

// categoryRules folds raw categories into groups: every cafe alias shares
// one group, every restaurant alias another, and any other category is its
// own activity group.
type categoryRules struct {
	cafe, restaurant string
	aliases          map[string]string
	limits           map[string]int // by group; absent means unlimited
	minActivities    int
	synonyms         map[string]string
}

func newCategoryRules(r config.PlannerRules) categoryRules {
	def := config.DefaultRules()
	if len(r.CafeCategories) == 0 {
		r.CafeCategories = def.CafeCategories
	}
	if len(r.RestaurantCategories) == 0 {
		r.RestaurantCategories = def.RestaurantCategories
	}
	if r.CategoryLimits == nil {
		r.CategoryLimits = def.CategoryLimits
	}
	if r.CategorySynonyms == nil {
		r.CategorySynonyms = def.CategorySynonyms
	}

	c := categoryRules{
		cafe:          entities.NormalizeCategory(r.CafeCategories[0]),
		restaurant:    entities.NormalizeCategory(r.RestaurantCategories[0]),
		aliases:       map[string]string{},
		limits:        map[string]int{},
		minActivities: r.MinActivities,
		synonyms:      map[string]string{},
	}
	for _, a := range r.CafeCategories {
		c.aliases[entities.NormalizeCategory(a)] = c.cafe
	}
	for _, a := range r.RestaurantCategories {
		c.aliases[entities.NormalizeCategory(a)] = c.restaurant
	}
	for k, v := range r.CategoryLimits {
		c.limits[c.groupOf(entities.NormalizeCategory(k))] = v
	}
	for k, v := range r.CategorySynonyms {
		c.synonyms[entities.NormalizeCategory(k)] = entities.NormalizeCategory(v)
	}
	return c
}

func (c categoryRules) groupOf(key string) string {
	if g, ok := c.aliases[key]; ok {
		return g
	}
	return key
}

func (c categoryRules) group(p entities.Place) string { return c.groupOf(p.CategoryKey()) }

func (c categoryRules) isActivity(group string) bool {
	return group != c.cafe && group != c.restaurant
}

func (c categoryRules) limit(group string) (int, bool) {
	n, ok := c.limits[group]
	return n, ok
}

// target maps a requested category through the synonym table to its group.
func (c categoryRules) target(raw string) string {
	key := entities.NormalizeCategory(raw)
	if syn, ok := c.synonyms[key]; ok {
		key = syn
	}
	return c.groupOf(key)
}

func normalizeCategories(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range in {
		k := entities.NormalizeCategory(c)
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

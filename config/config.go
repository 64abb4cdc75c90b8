package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	Port      string
	Timezone  string
	LogLevel  string
	DBPath    string
	StoreKind string // sqlite|elasticsearch

	ESAddresses []string
	ESIndex     string

	LLMEndpoint   string
	LLMAPIKey     string
	LLMModel      string
	LLMRatePerSec float64
	LLMBurst      int

	JWTSecret string
	TokenTTL  time.Duration

	ExclusionSessions   int
	ExclusionPerSession int

	ImportAllowedDomains []string
	ImportMaxBytes       int

	RulesFile string
	Rules     PlannerRules
}

// PlannerRules are the tunable category and radius rules of the planner.
type PlannerRules struct {
	CategoryLimits       map[string]int    `yaml:"category_limits"`
	CafeCategories       []string          `yaml:"cafe_categories"`
	RestaurantCategories []string          `yaml:"restaurant_categories"`
	MinActivities        int               `yaml:"min_activities"`
	CategorySynonyms     map[string]string `yaml:"category_synonyms"`
	RadiusStepsKm        []float64         `yaml:"radius_steps_km"`
	MinPoolSize          int               `yaml:"min_pool_size"`
}

func DefaultRules() PlannerRules {
	return PlannerRules{
		CategoryLimits:       map[string]int{"카페": 2, "음식점": 3},
		CafeCategories:       []string{"카페", "cafe"},
		RestaurantCategories: []string{"음식점", "restaurant"},
		MinActivities:        1,
		CategorySynonyms: map[string]string{
			"음식":   "음식점",
			"식당":   "음식점",
			"놀거리":  "놀거리",
			"액티비티": "놀거리",
			"카페":   "카페",
		},
		RadiusStepsKm: []float64{8, 12, 15, 20, 30},
		MinPoolSize:   20,
	}
}

func Load() AppConfig {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		slog.Debug("[cfg] no .env file loaded", "err", err)
	}

	get := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}
	getInt := func(k string, def int) int {
		if v, err := strconv.Atoi(get(k, "")); err == nil {
			return v
		}
		return def
	}
	getFloat := func(k string, def float64) float64 {
		if v, err := strconv.ParseFloat(get(k, ""), 64); err == nil {
			return v
		}
		return def
	}
	ttl, err := time.ParseDuration(get("TOKEN_TTL", "24h"))
	if err != nil {
		ttl = 24 * time.Hour
	}

	cfg := AppConfig{
		Port:                 get("PORT", "8080"),
		Timezone:             get("TZ", "Asia/Seoul"),
		LogLevel:             get("LOG_LEVEL", "info"),
		DBPath:               get("DB_PATH", "daytrip.db"),
		StoreKind:            strings.ToLower(get("PLACE_STORE", "sqlite")),
		ESAddresses:          splitList(get("ES_ADDRESSES", "http://localhost:9200")),
		ESIndex:              get("ES_INDEX", "places"),
		LLMEndpoint:          get("LLM_ENDPOINT", ""),
		LLMAPIKey:            get("LLM_API_KEY", ""),
		LLMModel:             get("LLM_MODEL", "gpt-3.5-turbo"),
		LLMRatePerSec:        getFloat("LLM_RATE_PER_SEC", 2),
		LLMBurst:             getInt("LLM_BURST", 4),
		JWTSecret:            get("JWT_SECRET", "dev-secret"),
		TokenTTL:             ttl,
		ExclusionSessions:    getInt("EXCLUSION_SESSIONS", 10000),
		ExclusionPerSession:  getInt("EXCLUSION_PER_SESSION", 200),
		ImportAllowedDomains: splitList(strings.ToLower(get("IMPORT_ALLOWED_DOMAINS", ""))),
		ImportMaxBytes:       getInt("IMPORT_MAX_BYTES", 1500000),
		RulesFile:            get("RULES_FILE", ""),
		Rules:                DefaultRules(),
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			slog.Warn("[cfg] rules file ignored", "path", cfg.RulesFile, "err", err)
		} else {
			cfg.Rules = rules
		}
	}

	slog.Info("[cfg] loaded", "config", cfg.redacted())
	return cfg
}

// LoadRules reads a YAML rules file on top of DefaultRules; keys absent from
// the file keep their defaults.
func LoadRules(path string) (PlannerRules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PlannerRules{}, err
	}
	rules := DefaultRules()
	var file PlannerRules
	if err := yaml.Unmarshal(b, &file); err != nil {
		return PlannerRules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if file.CategoryLimits != nil {
		rules.CategoryLimits = file.CategoryLimits
	}
	if len(file.CafeCategories) > 0 {
		rules.CafeCategories = file.CafeCategories
	}
	if len(file.RestaurantCategories) > 0 {
		rules.RestaurantCategories = file.RestaurantCategories
	}
	var explicit struct {
		MinActivities *int `yaml:"min_activities"`
	}
	if err := yaml.Unmarshal(b, &explicit); err == nil && explicit.MinActivities != nil {
		rules.MinActivities = max(0, *explicit.MinActivities)
	}
	if file.CategorySynonyms != nil {
		rules.CategorySynonyms = file.CategorySynonyms
	}
	if len(file.RadiusStepsKm) > 0 {
		rules.RadiusStepsKm = file.RadiusStepsKm
	}
	if file.MinPoolSize > 0 {
		rules.MinPoolSize = file.MinPoolSize
	}
	return rules, nil
}

func (c AppConfig) redacted() AppConfig {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "***"
	}
	c.LLMAPIKey = mask(c.LLMAPIKey)
	c.JWTSecret = mask(c.JWTSecret)
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

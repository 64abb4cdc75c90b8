package entities

import (
	"strings"
	"time"

	"daytrip/pkg/geo"
)

// Place is a curated stop candidate. Lat/Lng of (0,0) mean "no coordinates".
type Place struct {
	PlaceID         string    `gorm:"primaryKey;column:place_id" json:"placeId"`
	Name            string    `gorm:"index" json:"name"`
	Category        string    `gorm:"index" json:"category"`
	Address         string    `json:"address"`
	Lat             float64   `gorm:"index:idx_places_latlng,priority:1" json:"lat"`
	Lng             float64   `gorm:"index:idx_places_latlng,priority:2" json:"lng"`
	Sido            string    `gorm:"index:idx_places_region,priority:1" json:"sido"`
	Sigungu         string    `gorm:"index:idx_places_region,priority:2" json:"sigungu"`
	DiscountPercent int       `json:"discountPercent"`
	TotalScore      int       `gorm:"index" json:"totalScore"`
	Benefit         string    `json:"benefit"`
	CreatedAt       time.Time `json:"-"`
	UpdatedAt       time.Time `json:"-"`
}

func (Place) TableName() string { return "places" }

func (p *Place) HasLocation() bool { return geo.ValidPoint(p.Lat, p.Lng) }

// CategoryKey is the form used for category filters and comparisons.
func (p *Place) CategoryKey() string { return NormalizeCategory(p.Category) }

func NormalizeCategory(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

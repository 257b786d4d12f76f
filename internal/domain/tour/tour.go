package tour

import (
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("tour not found")

// Location pins where a tour starts. Tours without one simply never match
// the geo search routes.
type Location struct {
	Lat         float64 `json:"lat" binding:"min=-90,max=90"`
	Lng         float64 `json:"lng" binding:"min=-180,max=180"`
	Description string  `json:"description,omitempty" binding:"omitempty,max=255"`
}

type Tour struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	Duration        int       `json:"duration"`
	MaxGroupSize    int       `json:"maxGroupSize"`
	Difficulty      string    `json:"difficulty"`
	RatingsAverage  float64   `json:"ratingsAverage"`
	RatingsQuantity int       `json:"ratingsQuantity"`
	Price           float64   `json:"price"`
	Summary         string    `json:"summary"`
	Description     string    `json:"description,omitempty"`
	ImageCover      string    `json:"imageCover,omitempty"`
	StartLocation   *Location `json:"startLocation,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type CreateTourRequest struct {
	Name         string  `json:"name" binding:"required,min=3,max=120"`
	Duration     int     `json:"duration" binding:"required,min=1"`
	MaxGroupSize int     `json:"maxGroupSize" binding:"required,min=1"`
	Difficulty   string  `json:"difficulty" binding:"required,oneof=easy medium difficult"`
	Price        float64 `json:"price" binding:"required,gt=0"`
	Summary      string  `json:"summary" binding:"required,max=300"`
	Description  string  `json:"description" binding:"omitempty,max=2000"`
	ImageCover   string  `json:"imageCover" binding:"omitempty,max=255"`

	StartLocation *Location `json:"startLocation" binding:"omitempty"`
}

// UpdateTourRequest is a partial update; nil means unchanged.
type UpdateTourRequest struct {
	Name         *string  `json:"name" binding:"omitempty,min=3,max=120"`
	Duration     *int     `json:"duration" binding:"omitempty,min=1"`
	MaxGroupSize *int     `json:"maxGroupSize" binding:"omitempty,min=1"`
	Difficulty   *string  `json:"difficulty" binding:"omitempty,oneof=easy medium difficult"`
	Price        *float64 `json:"price" binding:"omitempty,gt=0"`
	Summary      *string  `json:"summary" binding:"omitempty,max=300"`
	Description  *string  `json:"description" binding:"omitempty,max=2000"`
	ImageCover   *string  `json:"imageCover" binding:"omitempty,max=255"`

	StartLocation *Location `json:"startLocation" binding:"omitempty"`
}

// Stats is one row of the by-difficulty aggregation.
type Stats struct {
	Difficulty string  `json:"difficulty"`
	NumTours   int     `json:"numTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// Distance is one row of the distances listing: how far a tour's start
// location is from the query point.
type Distance struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Distance float64 `json:"distance"`
}

// MonthlyPlanEntry counts the tours starting in one month of a year.
type MonthlyPlanEntry struct {
	Month    int      `json:"month"`
	NumTours int      `json:"numTourStarts"`
	Tours    []string `json:"tours"`
}

// Slugify derives the URL slug from a tour name.
func Slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		default:
			return -1
		}
	}, slug)

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}

	return strings.Trim(slug, "-")
}

package review

import (
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("review not found")
	// one review per user per tour
	ErrDuplicate = errors.New("user already reviewed this tour")
)

type Review struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tourId"`
	UserID    string    `json:"userId"`
	Review    string    `json:"review"`
	Rating    float64   `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateReviewRequest struct {
	Review string  `json:"review" binding:"required,max=1000"`
	Rating float64 `json:"rating" binding:"required,min=1,max=5"`
}

type UpdateReviewRequest struct {
	Review *string  `json:"review" binding:"omitempty,max=1000"`
	Rating *float64 `json:"rating" binding:"omitempty,min=1,max=5"`
}

// RatingSummary is the per-tour aggregate recomputed after every write.
type RatingSummary struct {
	Quantity int
	Average  float64
}

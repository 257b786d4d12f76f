package booking

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("booking not found")

type Booking struct {
	ID        string    `json:"id"`
	TourID    string    `json:"tourId"`
	UserID    string    `json:"userId"`
	Price     float64   `json:"price"`
	Paid      bool      `json:"paid"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

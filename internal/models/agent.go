package models

import (
	"time"

	"github.com/lib/pq"
)

// Agent represents a service provider capable of fulfilling one or more
// service categories. Capacity across bookings is intentionally
// unconstrained; availability is a simple on/off flag.
type Agent struct {
	ID                string         `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	Phone             string         `json:"phone" db:"phone"`
	ServiceCategories pq.StringArray `json:"service_categories" db:"service_categories"`
	Rating            float64        `json:"rating" db:"rating"`
	Availability      bool           `json:"availability" db:"availability"`
	TotalBookings     int            `json:"total_bookings" db:"total_bookings"`
	CompletedBookings int            `json:"completed_bookings" db:"completed_bookings"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" db:"updated_at"`
}

// Serves reports whether the agent covers at least one of the given
// categories
func (a *Agent) Serves(categories []string) bool {
	for _, want := range categories {
		for _, have := range a.ServiceCategories {
			if want == have {
				return true
			}
		}
	}
	return false
}

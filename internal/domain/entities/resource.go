package entities

import (
	"time"
)

// ResourceCategory classifies a healthcare resource
type ResourceCategory string

const (
	ResourceCategoryClinic    ResourceCategory = "clinic"
	ResourceCategoryPharmacy  ResourceCategory = "pharmacy"
	ResourceCategoryBloodBank ResourceCategory = "blood_bank"
	ResourceCategoryOther     ResourceCategory = "other"
)

// IsValid reports whether c is a known category
func (c ResourceCategory) IsValid() bool {
	switch c {
	case ResourceCategoryClinic, ResourceCategoryPharmacy, ResourceCategoryBloodBank, ResourceCategoryOther:
		return true
	}
	return false
}

// Resource is a clinic, pharmacy or blood bank that providers can be attached to
type Resource struct {
	ID             string           `json:"id" db:"id"`
	Name           string           `json:"name" db:"name"`
	Category       ResourceCategory `json:"category" db:"category"`
	Address        string           `json:"address" db:"address"`
	ContactNumbers []string         `json:"contactNumbers" db:"-"`
	Location       GeoPoint         `json:"location" db:"-"`
	OperatingHours OperatingHours   `json:"operatingHours" db:"-"`
	Rating         float64          `json:"rating" db:"rating"`
	Services       []string         `json:"services" db:"-"`
	Accessibility  Accessibility    `json:"accessibility" db:"-"`
	IsVerified     bool             `json:"isVerified" db:"is_verified"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time        `json:"updatedAt" db:"updated_at"`
}

// OperatingHours describes when a resource is open
type OperatingHours struct {
	Open      string   `json:"open"`
	Close     string   `json:"close"`
	Days      []string `json:"days"`
	Is24Hours bool     `json:"is24Hours"`
}

// Accessibility flags for a resource
type Accessibility struct {
	WheelchairAccessible bool `json:"wheelchairAccessible"`
	SignLanguage         bool `json:"signLanguage"`
	Parking              bool `json:"parking"`
}

// ResourceWithDistance is a resource annotated with its distance from a query point
type ResourceWithDistance struct {
	*Resource
	DistanceKm float64 `json:"distance"`
}

package entities

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyType is the kind of emergency a requester reports or a user subscribes to
type EmergencyType string

const (
	EmergencyTypeMedical  EmergencyType = "medical"
	EmergencyTypeBlood    EmergencyType = "blood"
	EmergencyTypeAccident EmergencyType = "accident"
	EmergencyTypePharmacy EmergencyType = "pharmacy"
	EmergencyTypeFire     EmergencyType = "fire"
	EmergencyTypeOther    EmergencyType = "other"
)

// IsValid reports whether t is a known emergency type
func (t EmergencyType) IsValid() bool {
	switch t {
	case EmergencyTypeMedical, EmergencyTypeBlood, EmergencyTypeAccident,
		EmergencyTypePharmacy, EmergencyTypeFire, EmergencyTypeOther:
		return true
	}
	return false
}

// DefaultEmergencyTypes are assigned when a record is created implicitly
func DefaultEmergencyTypes() []EmergencyType {
	return []EmergencyType{EmergencyTypeMedical, EmergencyTypeBlood, EmergencyTypeAccident, EmergencyTypePharmacy}
}

// DefaultServiceMaxDistanceKm is the radius used for implicitly created records
const DefaultServiceMaxDistanceKm = 10.0

// EmergencyService is a user's emergency preferences. One per user.
type EmergencyService struct {
	ID                string          `json:"id" db:"id"`
	UserID            string          `json:"userId" db:"user_id"`
	IsEnabled         bool            `json:"isEnabled" db:"is_enabled"`
	MaxDistanceKm     float64         `json:"maxDistance" db:"max_distance_km"`
	LastKnownLocation *GeoPoint       `json:"lastKnownLocation,omitempty" db:"-"`
	EmergencyTypes    []EmergencyType `json:"emergencyTypes" db:"-"`
	LastUpdated       time.Time       `json:"lastUpdated" db:"last_updated"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}

// NewEmergencyService builds a fresh record for userID with the default
// radius and emergency types. It starts disabled.
func NewEmergencyService(userID string, now time.Time) *EmergencyService {
	return &EmergencyService{
		ID:             uuid.NewString(),
		UserID:         userID,
		MaxDistanceKm:  DefaultServiceMaxDistanceKm,
		EmergencyTypes: DefaultEmergencyTypes(),
		LastUpdated:    now,
		CreatedAt:      now,
	}
}

// EmergencyTypeStrings returns the types as plain strings for storage
func (s *EmergencyService) EmergencyTypeStrings() []string {
	out := make([]string, len(s.EmergencyTypes))
	for i, t := range s.EmergencyTypes {
		out[i] = string(t)
	}
	return out
}

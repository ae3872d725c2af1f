package entities

import (
	"time"
)

// AlertStatus is the provider-side state of an alert
type AlertStatus string

const (
	AlertStatusSent         AlertStatus = "sent"
	AlertStatusViewed       AlertStatus = "viewed"
	AlertStatusAcknowledged AlertStatus = "acknowledged"
	AlertStatusDeclined     AlertStatus = "declined"
	// AlertStatusResponding and AlertStatusCompleted are accepted in storage and
	// filters but no operation sets them yet.
	AlertStatusResponding AlertStatus = "responding"
	AlertStatusCompleted  AlertStatus = "completed"
)

// IsValid reports whether s is a known status
func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertStatusSent, AlertStatusViewed, AlertStatusAcknowledged,
		AlertStatusDeclined, AlertStatusResponding, AlertStatusCompleted:
		return true
	}
	return false
}

// UrgencyLevel of an emergency
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// IsValid reports whether u is a known urgency level
func (u UrgencyLevel) IsValid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// RequesterInfo is a snapshot of the person asking for help
type RequesterInfo struct {
	Name     string   `json:"name"`
	Phone    string   `json:"phone"`
	Location GeoPoint `json:"location"`
}

// ResourceInfo is a snapshot of the resource that matched the provider
type ResourceInfo struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	DistanceKm float64 `json:"distance"`
}

// ProviderResponse records what the provider did with the alert
type ProviderResponse struct {
	ViewedAt         *time.Time `json:"viewedAt,omitempty"`
	AcknowledgedAt   *time.Time `json:"acknowledgedAt,omitempty"`
	EstimatedArrival string     `json:"estimatedArrival,omitempty"`
	ResponseMessage  string     `json:"responseMessage,omitempty"`
	CanRespond       *bool      `json:"canRespond,omitempty"`
}

// DeliveryOutcome is the result of the out-of-band call and SMS legs
type DeliveryOutcome struct {
	CallDelivered bool `json:"callDelivered"`
	SMSDelivered  bool `json:"smsDelivered"`
}

// Delivered reports whether at least one leg reached the provider
func (d DeliveryOutcome) Delivered() bool {
	return d.CallDelivered || d.SMSDelivered
}

// UserEmergencyAlert is one provider's copy of an emergency
type UserEmergencyAlert struct {
	ID              string           `json:"id"`
	EmergencyID     string           `json:"emergencyId"`
	RequesterID     string           `json:"requesterId"`
	ProviderUserID  string           `json:"providerUserId"`
	EmergencyType   EmergencyType    `json:"emergencyType"`
	UrgencyLevel    UrgencyLevel     `json:"urgencyLevel"`
	Requester       RequesterInfo    `json:"requesterInfo"`
	Resource        ResourceInfo     `json:"resourceInfo"`
	Message         string           `json:"message"`
	Status          AlertStatus      `json:"status"`
	IsRead          bool             `json:"isRead"`
	Response        ProviderResponse `json:"providerResponse"`
	Delivery        DeliveryOutcome  `json:"delivery"`
	ExpiresAt       time.Time        `json:"expiresAt"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	ResourceDetails *Resource        `json:"resource,omitempty"`
}

// IsExpired reports whether the alert is past its expiry at now
func (a *UserEmergencyAlert) IsExpired(now time.Time) bool {
	return !a.ExpiresAt.After(now)
}

// MarkViewed flags the alert as read and moves sent alerts to viewed.
// Other statuses are left untouched.
func (a *UserEmergencyAlert) MarkViewed(now time.Time) {
	a.IsRead = true
	if a.Response.ViewedAt == nil {
		a.Response.ViewedAt = &now
	}
	if a.Status == AlertStatusSent {
		a.Status = AlertStatusViewed
	}
	a.UpdatedAt = now
}

// Acknowledge records a positive provider response
func (a *UserEmergencyAlert) Acknowledge(now time.Time, eta, message string) {
	a.markRead(now)
	canRespond := true
	a.Status = AlertStatusAcknowledged
	a.Response.AcknowledgedAt = &now
	a.Response.CanRespond = &canRespond
	a.Response.EstimatedArrival = eta
	a.Response.ResponseMessage = message
	a.UpdatedAt = now
}

// Decline records that the provider cannot help. An earlier acknowledgement
// is withdrawn.
func (a *UserEmergencyAlert) Decline(now time.Time, message string) {
	a.markRead(now)
	canRespond := false
	a.Status = AlertStatusDeclined
	a.Response.CanRespond = &canRespond
	a.Response.AcknowledgedAt = nil
	a.Response.EstimatedArrival = ""
	a.Response.ResponseMessage = message
	a.UpdatedAt = now
}

func (a *UserEmergencyAlert) markRead(now time.Time) {
	a.IsRead = true
	if a.Response.ViewedAt == nil {
		a.Response.ViewedAt = &now
	}
}

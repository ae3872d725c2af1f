package entities

import (
	"time"
)

// UserRole distinguishes ordinary users from staff
type UserRole string

const (
	UserRoleUser      UserRole = "user"
	UserRoleAdmin     UserRole = "admin"
	UserRoleModerator UserRole = "moderator"
)

// User represents a user in the system. A user with IsServiceProvider set and an
// AssignedResourceID receives emergency alerts for that resource.
type User struct {
	ID                            string    `json:"id" db:"id"`
	ExternalID                    string    `json:"externalId" db:"external_id"`
	Name                          string    `json:"name" db:"name"`
	Phone                         string    `json:"phone" db:"phone"`
	Email                         string    `json:"email,omitempty" db:"email"`
	IsServiceProvider             bool      `json:"isServiceProvider" db:"is_service_provider"`
	AssignedResourceID            *string   `json:"assignedResourceId,omitempty" db:"assigned_resource_id"`
	EmergencyNotificationsEnabled bool      `json:"emergencyNotificationsEnabled" db:"emergency_notifications_enabled"`
	Role                          UserRole  `json:"role" db:"role"`
	IsActive                      bool      `json:"isActive" db:"is_active"`
	Language                      string    `json:"language" db:"language"`
	CreatedAt                     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt                     time.Time `json:"updatedAt" db:"updated_at"`
}

// CanReceiveAlerts reports whether the user is an eligible alert recipient
func (u *User) CanReceiveAlerts() bool {
	return u.IsServiceProvider && u.EmergencyNotificationsEnabled && u.IsActive && u.AssignedResourceID != nil
}

// Package model defines domain entities used by services and repositories.
package model

import (
	"slices"
	"time"
)

// AdminRole grants override access to any record.
const AdminRole = "admin"

// Identity is the authenticated caller, resolved from verified token claims.
// It is never persisted.
type Identity struct {
	Subject           string         `json:"sub"`
	PreferredUsername string         `json:"preferred_username,omitempty"`
	Name              string         `json:"name,omitempty"`
	GivenName         string         `json:"given_name,omitempty"`
	FamilyName        string         `json:"family_name,omitempty"`
	Email             string         `json:"email,omitempty"`
	Picture           string         `json:"picture,omitempty"`
	Locale            string         `json:"locale,omitempty"`
	Roles             []string       `json:"roles"`
	Groups            []string       `json:"groups"`
	Extra             map[string]any `json:"extra,omitempty"`
}

// HasRole reports whether the identity carries the role.
func (i Identity) HasRole(role string) bool { return slices.Contains(i.Roles, role) }

// IsAdmin reports whether the identity carries AdminRole.
func (i Identity) IsAdmin() bool { return i.HasRole(AdminRole) }

// Message is a persisted text record owned by UserID.
type Message struct {
	ID        int64
	UserID    string // owner subject id, immutable
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MessageInput holds the mutable fields of a Message.
type MessageInput struct {
	Content string `json:"content" validate:"required"`
}

// MapState is a persisted named state blob owned by UserID.
// State is opaque text; it is never interpreted.
type MapState struct {
	ID        int64
	UserID    string
	Name      string
	State     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MapStateInput holds the mutable fields of a MapState.
type MapStateInput struct {
	Name  string `json:"name" validate:"required,max=255"`
	State string `json:"state" validate:"required"`
}

// HealthStatus is the overall outcome of a health check.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthDegraded  HealthStatus = "degraded"
)

// HealthCheck is the result of probing backing dependencies.
type HealthCheck struct {
	Status    HealthStatus      `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Details   map[string]string `json:"details"`
}

// IsHealthy reports whether Status is HealthHealthy.
func (h HealthCheck) IsHealthy() bool { return h.Status == HealthHealthy }

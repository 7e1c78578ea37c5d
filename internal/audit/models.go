// Package audit defines the immutable audit trail: the persisted record shape,
// the sink contract, and the sink implementations. Records are written once
// and never updated or deleted through this package; immutability is a policy
// invariant, not a storage-engine constraint.
package audit

import (
	"time"

	"nucleo/internal/entity"
)

// Action names the mutation an audit record describes.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Verb returns the description verb for the action ("Created", "Updated",
// "Deleted").
func (a Action) Verb() string {
	switch a {
	case ActionCreate:
		return "Created"
	case ActionUpdate:
		return "Updated"
	case ActionDelete:
		return "Deleted"
	}
	return string(a)
}

// Record is one immutable audit trail entry. Snapshots are already redacted
// when a record is constructed; no sink may see a sensitive value.
type Record struct {
	ID string `json:"id"`

	// Actor identity, resolved per request.
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail,omitempty"`
	UserName  string `json:"userName,omitempty"`

	// Tenant identity.
	CompanyID   string `json:"companyId,omitempty"`
	CompanyName string `json:"companyName,omitempty"`

	Action      Action      `json:"action"`
	EntityType  entity.Type `json:"entityType"`
	EntityID    string      `json:"entityId"`
	EntityCode  string      `json:"entityCode,omitempty"`
	Description string      `json:"description"`

	// Redacted snapshots. Nil means absent (no baseline for creates, no
	// surviving row for deletes).
	OldValues     map[string]any `json:"oldValues,omitempty"`
	NewValues     map[string]any `json:"newValues,omitempty"`
	ChangedFields []string       `json:"changedFields"`

	// Request metadata.
	IPAddress     string `json:"ipAddress,omitempty"`
	UserAgent     string `json:"userAgent,omitempty"`
	Device        string `json:"device,omitempty"`
	RequestPath   string `json:"requestPath,omitempty"`
	RequestMethod string `json:"requestMethod,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

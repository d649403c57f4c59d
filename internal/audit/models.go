// Package audit captures security-relevant auth events. Emission is
// best-effort: a failed publish is logged by the caller, never surfaced to
// the user whose login just succeeded.
package audit

import "time"

// Action names the audited operation.
type Action string

const (
	ActionSessionCreated   Action = "session.created"
	ActionSessionRefreshed Action = "session.refreshed"
	ActionSessionDestroyed Action = "session.destroyed"
	ActionDeviceRequested  Action = "device.requested"
	ActionDeviceAuthorized Action = "device.authorized"
	ActionDeviceConsumed   Action = "device.consumed"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp      time.Time         `json:"timestamp"`
	Action         Action            `json:"action"`
	UserID         string            `json:"user_id,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	IPAddress      string            `json:"ip_address,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

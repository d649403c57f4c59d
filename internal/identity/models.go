// Package identity holds the user and organization records the auth core
// binds sessions to. The full platform profile lives elsewhere; this carries
// only what token claims and permission resolution need.
package identity

import (
	"strings"
	"time"
)

// User is the identity a session or device grant is bound to.
type User struct {
	ID             string
	OrganizationID string
	Email          string
	FirstName      string
	LastName       string
	Role           string
	ExternalUserID string
	LastSeenAt     time.Time
	CreatedAt      time.Time
}

// DisplayName synthesizes a human-facing name, falling back to the email's
// local part when no name is on record.
func (u User) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		if i := strings.IndexByte(u.Email, '@'); i > 0 {
			return u.Email[:i]
		}
		return u.Email
	}
}

// Organization is the tenant a session belongs to.
type Organization struct {
	ID            string
	Name          string
	ExternalOrgID string
	CreatedAt     time.Time
}

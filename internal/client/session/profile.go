package session

import (
	"strings"
	"time"
)

// UserProfile is the cached identity returned by the login endpoint.
// A profile without a role is never persisted.
type UserProfile struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Phone    string `json:"phone,omitempty"`
	Company  string `json:"company,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
	TenantID string `json:"tenantId,omitempty"`
}

func (p *UserProfile) Valid() bool {
	return p != nil && strings.TrimSpace(p.Role) != ""
}

// Session is a snapshot of the stored credentials.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         *UserProfile
	// ExpiresAt is zero when the access token carries no readable expiry.
	ExpiresAt time.Time
}

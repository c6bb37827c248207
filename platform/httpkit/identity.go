// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated agent working the lead list.
type Identity interface {
	// UserID returns the authenticated agent's ID.
	UserID() uuid.UUID
	// Roles returns the agent's assigned roles.
	Roles() []string
	// HasRole checks if the agent has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the request carried a valid token.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID     { return i.userID }
func (i *identity) Roles() []string       { return i.roles }
func (i *identity) IsAuthenticated() bool { return i.authenticated }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	if !userOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	var roleList []string
	if roles, rolesOK := c.Get(ContextRolesKey); rolesOK {
		roleList, _ = roles.([]string)
	}

	return &identity{
		userID:        uid,
		roles:         roleList,
		authenticated: true,
	}
}

// ActorID returns the authenticated agent ID, or nil for anonymous callers.
// Services record it on the lead activity trail.
func ActorID(c *gin.Context) *uuid.UUID {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		return nil
	}
	uid := id.UserID()
	return &uid
}

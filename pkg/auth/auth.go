// Package auth provides the authorization gate in front of the drive.
//
// This is not an authentication mechanism: identity establishment happens
// elsewhere and hands the current principal UID to this package. The gate
// only answers "may store calls be attempted right now". Not-authorized is a
// precondition failure, not a recoverable in-band error.
//
// The guard is implemented allow-if-match against a configured set of
// allowed UIDs. The deny-if-mismatch formulation is equivalent only while
// exactly one UID is ever allowed; the set form generalizes safely to
// multiple principals.
package auth

import (
	"errors"
	"sync"
)

// ErrNotAuthorized indicates the current principal may not use the drive.
var ErrNotAuthorized = errors.New("not authorized")

// Context tracks the currently signed-in principal and the allowed set.
//
// Thread safety: safe for concurrent use.
type Context struct {
	mu      sync.RWMutex
	allowed map[string]struct{}
	current string
}

// New creates a Context allowing the given principal UIDs. An empty allowed
// set authorizes nobody.
func New(allowedUIDs ...string) *Context {
	allowed := make(map[string]struct{}, len(allowedUIDs))
	for _, uid := range allowedUIDs {
		allowed[uid] = struct{}{}
	}
	return &Context{allowed: allowed}
}

// SetCurrent records the currently signed-in principal ("" for signed out).
func (c *Context) SetCurrent(uid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = uid
}

// Current returns the currently signed-in principal UID.
func (c *Context) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Authorize returns nil when the current principal is in the allowed set,
// ErrNotAuthorized otherwise.
func (c *Context) Authorize() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == "" {
		return ErrNotAuthorized
	}
	if _, ok := c.allowed[c.current]; !ok {
		return ErrNotAuthorized
	}
	return nil
}

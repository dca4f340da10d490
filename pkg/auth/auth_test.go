package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	c := New("uid-1", "uid-2")

	assert.ErrorIs(t, c.Authorize(), ErrNotAuthorized, "signed out")

	c.SetCurrent("uid-1")
	assert.NoError(t, c.Authorize())

	c.SetCurrent("uid-2")
	assert.NoError(t, c.Authorize())

	c.SetCurrent("stranger")
	assert.ErrorIs(t, c.Authorize(), ErrNotAuthorized)

	c.SetCurrent("")
	assert.ErrorIs(t, c.Authorize(), ErrNotAuthorized)
}

func TestEmptyAllowedSetAuthorizesNobody(t *testing.T) {
	c := New()
	c.SetCurrent("anyone")
	assert.ErrorIs(t, c.Authorize(), ErrNotAuthorized)
}

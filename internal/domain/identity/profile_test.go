package identity

import (
	"testing"

	"github.com/housing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" Manager ")
	require.NoError(t, err)
	assert.Equal(t, RoleManager, r)

	_, err = ParseRole("owner")
	assert.True(t, shared.IsValidation(err))
}

func TestNewProfile(t *testing.T) {
	p, err := NewProfile("Ada Lovelace", "ada@example.com", " 555-0100 ", RoleTenant)
	require.NoError(t, err)
	assert.Equal(t, "555-0100", p.Phone)

	_, err = NewProfile("", "ada@example.com", "", RoleTenant)
	assert.True(t, shared.IsValidation(err))

	_, err = NewProfile("Ada", "not-an-email", "", RoleTenant)
	assert.True(t, shared.IsValidation(err))

	_, err = NewProfile("Ada", "", "", Role("owner"))
	assert.True(t, shared.IsValidation(err))
}

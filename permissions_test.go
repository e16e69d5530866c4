package drawchat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPermissions(t *testing.T) {
	assert.Equal(t, PermAdmin, NewPermissions(true, true, true))
	assert.Equal(t, PermUser, NewPermissions(false, true, true))
	assert.Equal(t, PermDraw, NewPermissions(false, true, false))
	assert.Equal(t, PermChat, NewPermissions(false, false, true))
	assert.Equal(t, PermViewer, NewPermissions(false, false, false))

	for _, p := range []Permissions{PermAdmin, PermUser, PermDraw, PermChat, PermViewer, "______", "R_____"} {
		assert.NoError(t, p.Validate(), string(p))
	}
	assert.True(t, PermAdmin.Admin())
	assert.False(t, PermChat.Draw())
	assert.True(t, PermChat.Chat())
}

package push

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserChannelIsDeterministic(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "notifications:user:b@x.com", UserChannel("notifications", "b@x.com"))
	// derivation normalizes case and whitespace so the same user always maps
	// to the same channel
	assert.Equal(t, UserChannel("notifications", "b@x.com"), UserChannel("notifications", "  B@X.COM "))
}

func TestBroadcastChannel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "notifications:broadcast", BroadcastChannel("notifications"))
}

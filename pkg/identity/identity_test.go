package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "anonymous", UserID(ctx))

	ctx = NewContext(ctx, Identity{UserID: "u-1", Email: "a@b.co", Role: "admin"})
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "u-1", UserID(ctx))
}

package context

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestManager_OwnerID(t *testing.T) {
	m := NewManager()

	_, ok := m.GetOwnerIDFromContext(context.Background())
	assert.False(t, ok)

	owner := uuid.New()
	ctx := m.SetOwnerIDToContext(context.Background(), owner)
	got, ok := m.GetOwnerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, owner, got)

	ctx = m.SetOwnerIDToContext(context.Background(), uuid.Nil)
	_, ok = m.GetOwnerIDFromContext(ctx)
	assert.False(t, ok)
}

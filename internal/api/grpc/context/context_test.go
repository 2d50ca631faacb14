package context

import (
	stdctx "context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"
)

func TestManager_SetAndGetOwnerID(t *testing.T) {
	m := NewManager()
	ownerID := uuid.New()

	got, ok := m.GetOwnerIDFromContext(m.SetOwnerIDToContext(stdctx.Background(), ownerID))
	assert.True(t, ok)
	assert.Equal(t, ownerID, got)

	_, ok = m.GetOwnerIDFromContext(stdctx.Background())
	assert.False(t, ok)
}

func TestManager_SetOwnerID_OverridesClientValue(t *testing.T) {
	m := NewManager()
	ownerID := uuid.New()
	spoofed := uuid.New()

	base := metadata.New(map[string]string{OwnerIDKey: spoofed.String(), "x-trace-id": "t"})
	ctx := m.SetOwnerIDToContext(metadata.NewIncomingContext(stdctx.Background(), base), ownerID)

	got, ok := m.GetOwnerIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, ownerID, got)

	md, _ := metadata.FromIncomingContext(ctx)
	assert.Equal(t, []string{"t"}, md.Get("x-trace-id"))
	assert.Equal(t, []string{spoofed.String()}, base.Get(OwnerIDKey))
}

func TestManager_GetOwnerID_Invalid(t *testing.T) {
	m := NewManager()

	for _, v := range []string{"not-a-uuid", uuid.Nil.String()} {
		ctx := metadata.NewIncomingContext(stdctx.Background(), metadata.New(map[string]string{OwnerIDKey: v}))
		_, ok := m.GetOwnerIDFromContext(ctx)
		assert.False(t, ok, v)
	}
}

package context

import (
	"context"

	"github.com/google/uuid"
	"google.golang.org/grpc/metadata"
)

// OwnerIDKey is the incoming metadata key carrying the authenticated owner.
const OwnerIDKey = "x-privenote-owner-id"

// Manager keeps the authenticated owner ID in incoming gRPC metadata so it
// travels with the request through the interceptor chain.
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// SetOwnerIDToContext replaces any client-supplied value for OwnerIDKey.
func (m *Manager) SetOwnerIDToContext(ctx context.Context, ownerID uuid.UUID) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	md.Set(OwnerIDKey, ownerID.String())

	return metadata.NewIncomingContext(ctx, md)
}

func (m *Manager) GetOwnerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return uuid.Nil, false
	}

	values := md.Get(OwnerIDKey)
	if len(values) != 1 {
		return uuid.Nil, false
	}

	ownerID, err := uuid.Parse(values[0])
	if err != nil || ownerID == uuid.Nil {
		return uuid.Nil, false
	}

	return ownerID, true
}

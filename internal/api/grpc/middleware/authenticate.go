package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

var (
	errMissingToken = errors.New("missing authorization token")
	errInvalidToken = errors.New("invalid authorization token")
)

// Authenticate validates bearer tokens and injects the owner ID into context.
type Authenticate struct {
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	logger         *logger.Logger
}

func NewAuthenticate(tokenManager model.TokenManager, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenManager: tokenManager, contextManager: contextManager, logger: logger}
}

// AuthFunc reads the authorization metadata, validates the token and returns
// a context carrying the owner ID.
func (m *Authenticate) AuthFunc(ctx context.Context) (context.Context, error) {
	var tokenString string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if authHeaders := md.Get("authorization"); len(authHeaders) > 0 {
			tokenString = strings.TrimPrefix(authHeaders[0], "Bearer ")
		}
	}

	ownerID, err := m.authenticateOwner(tokenString)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, err.Error())
	}

	return m.contextManager.SetOwnerIDToContext(ctx, ownerID), nil
}

func (m *Authenticate) authenticateOwner(tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, errMissingToken
	}

	ownerID, err := m.tokenManager.ParseAccessToken(tokenString)
	if err != nil {
		m.logger.Debug("Rejected access token", "error", err)
		return uuid.Nil, errInvalidToken
	}
	if ownerID == uuid.Nil {
		return uuid.Nil, errInvalidToken
	}

	return ownerID, nil
}

package router

import (
	"context"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/auth"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/selector"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/dtroode/privenote-server/internal/api/grpc/handler"
	"github.com/dtroode/privenote-server/internal/api/grpc/middleware"
	"github.com/dtroode/privenote-server/internal/api/grpc/notesrpc"
	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

// Router registers the Notes service and its interceptor chain.
type Router struct {
	noteService    handler.NoteService
	tokenManager   model.TokenManager
	contextManager model.ContextManager
	observer       middleware.GRPCObserver
	logger         *logger.Logger
}

// New creates a Router. observer may be nil.
func New(
	noteService handler.NoteService,
	tokenManager model.TokenManager,
	contextManager model.ContextManager,
	observer middleware.GRPCObserver,
	logger *logger.Logger,
) *Router {
	return &Router{
		noteService:    noteService,
		tokenManager:   tokenManager,
		contextManager: contextManager,
		observer:       observer,
		logger:         logger,
	}
}

// requiresOwner selects the methods that act on behalf of an owner.
func requiresOwner(_ context.Context, c interceptors.CallMeta) bool {
	switch c.FullMethod() {
	case notesrpc.CreateNoteMethod, notesrpc.DeleteNoteMethod:
		return true
	}
	return false
}

// Register builds the gRPC server with logging, recovery, metrics and
// selective authentication.
func (r *Router) Register(opts ...grpc.ServerOption) *grpc.Server {
	logging := middleware.NewLogging(r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenManager, r.contextManager, r.logger)

	unary := []grpc.UnaryServerInterceptor{
		logging.HandleGRPC,
		recovery.UnaryServerInterceptor(recovery.WithRecoveryHandler(r.recoverPanic)),
	}
	if r.observer != nil {
		unary = append(unary, middleware.NewMetrics(r.observer).HandleGRPC)
	}
	unary = append(unary, selector.UnaryServerInterceptor(
		auth.UnaryServerInterceptor(authenticate.AuthFunc),
		selector.MatchFunc(requiresOwner),
	))

	s := grpc.NewServer(append(opts, grpc.ChainUnaryInterceptor(unary...))...)

	notesrpc.RegisterNotesServer(s, handler.NewNote(r.noteService, r.contextManager, r.logger))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(notesrpc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthServer)

	return s
}

func (r *Router) recoverPanic(p any) error {
	r.logger.Error("gRPC handler panicked", "panic", p)
	return status.Error(codes.Internal, "internal server error")
}

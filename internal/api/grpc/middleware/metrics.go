package middleware

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

// GRPCObserver records per-call metrics.
type GRPCObserver interface {
	ObserveGRPC(method, code string)
}

// Metrics counts unary calls by method and status code.
type Metrics struct {
	observer GRPCObserver
}

func NewMetrics(observer GRPCObserver) *Metrics {
	return &Metrics{observer: observer}
}

func (m *Metrics) HandleGRPC(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	m.observer.ObserveGRPC(info.FullMethod, status.Code(err).String())
	return resp, err
}

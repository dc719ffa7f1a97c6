package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/session"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/wildwood.v1.Game/Test"}

func TestChainRunsInOrder(t *testing.T) {
	var order []string
	mark := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
			order = append(order, name)
			return handler(ctx, req)
		}
	}

	chain := ChainUnaryInterceptors(mark("a"), mark("b"), mark("c"))
	resp, err := chain(context.Background(), "req", testInfo, func(ctx context.Context, req any) (any, error) {
		order = append(order, "handler")
		return req, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
	assert.Equal(t, []string{"a", "b", "c", "handler"}, order)
}

func TestRecoveryInterceptor(t *testing.T) {
	ic := RecoveryInterceptor(zaptest.NewLogger(t))
	_, err := ic(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
		panic("boom")
	})
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestErrorInterceptorMapsDomainErrors(t *testing.T) {
	tests := []struct {
		err  error
		want codes.Code
	}{
		{session.ErrNotFound, codes.NotFound},
		{session.ErrLimit, codes.ResourceExhausted},
		{fmt.Errorf("wrapped: %w", game.ErrBusy), codes.Aborted},
		{game.ErrSuperseded, codes.Aborted},
		{game.ErrRejected, codes.FailedPrecondition},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{errors.New("disk on fire"), codes.Internal},
		{status.Error(codes.Unauthenticated, "who"), codes.Unauthenticated},
	}
	ic := ErrorInterceptor()
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			_, err := ic(context.Background(), nil, testInfo, func(ctx context.Context, req any) (any, error) {
				return nil, tt.err
			})
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestExtractHostFromContext(t *testing.T) {
	assert.Equal(t, "unknown", extractHostFromContext(context.Background()))

	ctx := peer.NewContext(context.Background(), &peer.Peer{
		Addr: &net.TCPAddr{IP: net.ParseIP("10.0.0.7"), Port: 5555},
	})
	assert.Equal(t, "10.0.0.7", extractHostFromContext(ctx))
}

func TestNewGRPCServerRegistersHealth(t *testing.T) {
	srv, hs := NewGRPCServer(zaptest.NewLogger(t), 10)
	t.Cleanup(srv.Stop)
	require.NotNil(t, hs)

	info := srv.GetServiceInfo()
	assert.Contains(t, info, "grpc.health.v1.Health")
}

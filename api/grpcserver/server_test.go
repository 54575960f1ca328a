package grpcserver

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeBook struct {
	render string
	err    error
}

func (f fakeBook) Render(context.Context) (string, error) { return f.render, f.err }

func dial(t *testing.T, book Renderer) (*Gateway, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	g := NewGateway(book, zap.NewNop())
	go func() { _ = g.Serve(lis) }()
	t.Cleanup(g.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return g, conn
}

func TestRender(t *testing.T) {
	_, conn := dial(t, fakeBook{render: "B: 10@100#o1\nS:"})

	got, err := Render(context.Background(), conn)
	require.NoError(t, err)
	assert.Equal(t, "B: 10@100#o1\nS:", got)
}

func TestRenderCancelled(t *testing.T) {
	_, conn := dial(t, fakeBook{err: context.DeadlineExceeded})

	_, err := Render(context.Background(), conn)
	assert.Equal(t, codes.DeadlineExceeded, status.Code(err))
}

func TestHealthFollowsSession(t *testing.T) {
	g, conn := dial(t, fakeBook{})
	client := healthpb.NewHealthClient(conn)
	check := func() healthpb.HealthCheckResponse_ServingStatus {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
	g.SetServing(true)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, check())
	g.SetServing(false)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, check())
}

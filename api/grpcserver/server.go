// Package grpcserver exposes the live book over gRPC. It is read-only:
// orders only enter through the session's command source.
package grpcserver

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ServiceName  = "clob.v1.Book"
	RenderMethod = "/clob.v1.Book/Render"
)

// Renderer is satisfied by *service.Session.
type Renderer interface {
	Render(ctx context.Context) (string, error)
}

// BookServer is the server side of clob.v1.Book.
type BookServer interface {
	Render(context.Context, *emptypb.Empty) (*wrapperspb.StringValue, error)
}

// BookServiceDesc describes clob.v1.Book:
//
//	service Book {
//	  rpc Render(google.protobuf.Empty) returns (google.protobuf.StringValue);
//	}
var BookServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BookServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Render", Handler: renderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clob/v1/book.proto",
}

func renderHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(BookServer).Render(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: RenderMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(BookServer).Render(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// -------------------- Server --------------------

// Server adapts a Renderer to BookServer.
type Server struct {
	book Renderer
}

func NewServer(book Renderer) *Server {
	return &Server{book: book}
}

func (s *Server) Render(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	r, err := s.book.Render(ctx)
	if err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return wrapperspb.String(r), nil
}

// -------------------- Gateway --------------------

// Gateway owns the grpc.Server with the book and health services.
type Gateway struct {
	srv    *grpc.Server
	health *health.Server
	log    *zap.Logger
}

func NewGateway(book Renderer, log *zap.Logger) *Gateway {
	log = log.Named("grpc")
	g := &Gateway{
		srv:    grpc.NewServer(grpc.UnaryInterceptor(logUnary(log))),
		health: health.NewServer(),
		log:    log,
	}
	g.srv.RegisterService(&BookServiceDesc, NewServer(book))
	healthpb.RegisterHealthServer(g.srv, g.health)
	g.SetServing(false)
	return g
}

// SetServing flips both the overall and the book health status.
func (g *Gateway) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	g.health.SetServingStatus("", st)
	g.health.SetServingStatus(ServiceName, st)
}

func (g *Gateway) Serve(lis net.Listener) error {
	g.log.Info("listening", zap.String("addr", lis.Addr().String()))
	return g.srv.Serve(lis)
}

func (g *Gateway) Stop() {
	g.health.Shutdown()
	g.srv.GracefulStop()
}

func logUnary(log *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log.Debug("call",
			zap.String("method", info.FullMethod),
			zap.Duration("took", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		)
		return resp, err
	}
}

// -------------------- Client --------------------

// Render calls clob.v1.Book/Render on conn.
func Render(ctx context.Context, conn grpc.ClientConnInterface) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := conn.Invoke(ctx, RenderMethod, &emptypb.Empty{}, out); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"procinfo/collector"
	"procinfo/models"
	"procinfo/query"
)

const (
	grpcServiceName = "procinfo.v1.ProcessService"
	grpcQueryMethod = "/" + grpcServiceName + "/Query"
)

// JSONCodec lets the gRPC endpoint speak JSON without generated protobuf types.
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

// QueryRequest mirrors the REST query parameters.
type QueryRequest struct {
	ID           *int64   `json:"id,omitempty"`
	MinUsage     *float64 `json:"min_usage,omitempty"`
	MinRSSKB     *uint64  `json:"min_rss_kb,omitempty"`
	MinRuntimeMS *uint64  `json:"min_runtime_ms,omitempty"`
	SettleMS     *uint64  `json:"settle_ms,omitempty"`
}

func (q *QueryRequest) Filter() query.Filter {
	return query.Filter{
		PID:          q.ID,
		MinUsage:     q.MinUsage,
		MinRSSKB:     q.MinRSSKB,
		MinRuntimeMS: q.MinRuntimeMS,
		SettleMS:     q.SettleMS,
	}
}

type QueryResponse struct {
	Processes []models.ProcessMetrics `json:"processes"`
}

type processServiceServer interface {
	Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error)
}

var processServiceDesc = grpc.ServiceDesc{
	ServiceName: grpcServiceName,
	HandlerType: (*processServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Query", Handler: queryHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "procinfo/v1/process.proto",
}

func queryHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(QueryRequest)
	if err := dec(in); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %s", status.Convert(err).Message())
	}
	if interceptor == nil {
		return srv.(processServiceServer).Query(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: grpcQueryMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(processServiceServer).Query(ctx, req.(*QueryRequest))
	}
	return interceptor(ctx, in, info, handler)
}

type grpcService struct {
	s *Server
}

func (g *grpcService) Query(ctx context.Context, req *QueryRequest) (*QueryResponse, error) {
	procs, err := g.s.engine.Execute(ctx, req.Filter())
	if err != nil {
		return nil, g.s.grpcError(err)
	}
	return &QueryResponse{Processes: procs}, nil
}

func (s *Server) grpcError(err error) error {
	switch {
	case errors.Is(err, query.ErrInvalidFilter):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, collector.ErrEnumeration):
		s.logger.Error("process enumeration failed", "error", err)
		return status.Error(codes.Internal, err.Error())
	default:
		s.logger.Error("query failed", "error", err)
		return status.Error(codes.Unknown, err.Error())
	}
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	s.logger.Info("grpc request", "method", info.FullMethod, "code", status.Code(err).String())
	return resp, err
}

// GRPCServer builds a gRPC server exposing the query service.
func (s *Server) GRPCServer() *grpc.Server {
	srv := grpc.NewServer(
		grpc.ForceServerCodec(JSONCodec{}),
		grpc.UnaryInterceptor(s.logUnary),
	)
	srv.RegisterService(&processServiceDesc, &grpcService{s: s})
	return srv
}

package server

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func dialBufconn(t *testing.T, engine Querier) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := newTestServer(t, engine).GRPCServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(JSONCodec{}.Name())),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPCQuery(t *testing.T) {
	conn := dialBufconn(t, scenarioEngine())

	minUsage := 1.0
	var resp QueryResponse
	if err := conn.Invoke(context.Background(), grpcQueryMethod, &QueryRequest{MinUsage: &minUsage}, &resp); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(resp.Processes) != 1 || resp.Processes[0].PID != 2 {
		t.Fatalf("processes = %+v; want only pid 2", resp.Processes)
	}
}

func TestGRPCQueryByID(t *testing.T) {
	conn := dialBufconn(t, scenarioEngine())

	id := int64(1)
	var resp QueryResponse
	if err := conn.Invoke(context.Background(), grpcQueryMethod, &QueryRequest{ID: &id}, &resp); err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(resp.Processes) != 1 || resp.Processes[0].PID != 1 {
		t.Fatalf("processes = %+v; want only pid 1", resp.Processes)
	}
}

func TestGRPCInvalidArgument(t *testing.T) {
	stub := &stubQuerier{}
	conn := dialBufconn(t, stub)

	var resp QueryResponse
	err := conn.Invoke(context.Background(), grpcQueryMethod, map[string]any{"min_rss_kb": -1}, &resp)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v; want InvalidArgument (err %v)", status.Code(err), err)
	}
	if stub.calls != 0 {
		t.Errorf("engine ran %d times for rejected input", stub.calls)
	}
}

func TestGRPCSettleAboveLimit(t *testing.T) {
	conn := dialBufconn(t, scenarioEngine())

	settle := uint64(3_600_000)
	var resp QueryResponse
	err := conn.Invoke(context.Background(), grpcQueryMethod, &QueryRequest{SettleMS: &settle}, &resp)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v; want InvalidArgument", status.Code(err))
	}
}

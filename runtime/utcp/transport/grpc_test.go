package transport

import (
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/stretchr/testify/require"

	"github.com/goadesign/utcp-go/runtime/utcp"
)

// grpcGenericServer starts a grpc.Server whose only handler is a
// grpc.UnknownServiceHandler, letting it answer an arbitrary FullMethod
// with google.protobuf.Struct request/response payloads, matching how GRPC
// invokes tools without generated service stubs.
func grpcGenericServer(t *testing.T, respond func(req map[string]any) (map[string]any, error)) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := func(srv any, stream grpc.ServerStream) error {
		req := &structpb.Struct{}
		if err := stream.RecvMsg(req); err != nil {
			return err
		}
		respMap, err := respond(req.AsMap())
		if err != nil {
			return err
		}
		resp, err := structpb.NewStruct(respMap)
		if err != nil {
			return err
		}
		return stream.SendMsg(resp)
	}
	srv := grpc.NewServer(grpc.UnknownServiceHandler(handler))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return lis.Addr().String()
}

func TestGRPCCallToolRoundTrips(t *testing.T) {
	target := grpcGenericServer(t, func(req map[string]any) (map[string]any, error) {
		require.Equal(t, "greet", req["tool"])
		return map[string]any{"result": "hi"}, nil
	})

	tmpl := utcp.GRPCCallTemplate{Target: target, FullMethod: "/utcp.ToolInvoker/Call"}
	out, err := GRPC{}.CallTool(t.Context(), nil, "greet", nil, tmpl)
	require.NoError(t, err)
	require.Equal(t, "hi", out)
}

func TestGRPCCallToolErrorFieldFails(t *testing.T) {
	target := grpcGenericServer(t, func(map[string]any) (map[string]any, error) {
		return map[string]any{"error": "bad input"}, nil
	})

	tmpl := utcp.GRPCCallTemplate{Target: target, FullMethod: "/utcp.ToolInvoker/Call"}
	_, err := GRPC{}.CallTool(t.Context(), nil, "t", nil, tmpl)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad input")
}

func TestGRPCRegisterManualDiscovers(t *testing.T) {
	target := grpcGenericServer(t, func(req map[string]any) (map[string]any, error) {
		require.Equal(t, "discover", req["action"])
		return map[string]any{
			"utcp_version": "1.0.0", "manual_version": "1.0.0",
			"tools": []any{map[string]any{"name": "t1"}},
		}, nil
	})

	tmpl := utcp.GRPCCallTemplate{Target: target, FullMethod: "/utcp.ToolInvoker/Discover"}
	result, err := GRPC{}.RegisterManual(t.Context(), nil, tmpl)
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.Manual.Tools, 1)
}

func TestGRPCCallToolStreamingIsUnsupported(t *testing.T) {
	_, err := GRPC{}.CallToolStreaming(t.Context(), nil, "t", nil, utcp.GRPCCallTemplate{})
	require.Error(t, err)
}

func TestGRPCCallToolWrongTemplateTypeErrors(t *testing.T) {
	_, err := GRPC{}.CallTool(t.Context(), nil, "t", nil, utcp.TextCallTemplate{})
	require.Error(t, err)
}

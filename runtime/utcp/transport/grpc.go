package transport

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/goadesign/utcp-go/runtime/utcp"
	"github.com/goadesign/utcp-go/runtime/utcp/registry"
)

func init() {
	registry.Global().RegisterTransport("grpc", GRPC{}, false)
}

// GRPC invokes a tool as a generic unary gRPC call against a
// caller-configured FullMethod, exchanging google.protobuf.Struct payloads
// rather than requiring hand-generated protobuf stubs for every possible
// service. Grounded on spec.md §4.5's grpc transport and the teacher's
// google.golang.org/grpc + google.golang.org/protobuf dependency pair.
type GRPC struct{}

func dialGRPC(ctx context.Context, target string, useTLS bool) (*grpc.ClientConn, error) {
	var creds credentials.TransportCredentials
	if useTLS {
		creds = credentials.NewTLS(nil)
	} else {
		creds = insecure.NewCredentials()
	}
	return grpc.NewClient(target, grpc.WithTransportCredentials(creds))
}

func argsToStruct(args map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(args)
}

func (GRPC) RegisterManual(ctx context.Context, _ utcp.Runtime, tmpl utcp.CallTemplate) (utcp.RegisterManualResult, error) {
	t, ok := tmpl.(utcp.GRPCCallTemplate)
	if !ok {
		return utcp.RegisterManualResult{}, fmt.Errorf("grpc transport received %T", tmpl)
	}
	conn, err := dialGRPC(ctx, t.Target, t.UseTLS)
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	defer conn.Close()

	req, err := structpb.NewStruct(map[string]any{"action": "discover"})
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, t.FullMethod, req, resp); err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	manual, err := decodeManual(resp.AsMap())
	if err != nil {
		return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Success: false, Errors: []string{err.Error()}}, nil
	}
	return utcp.RegisterManualResult{ManualCallTemplate: tmpl, Manual: manual, Success: true}, nil
}

func (GRPC) DeregisterManual(context.Context, utcp.Runtime, utcp.CallTemplate) error { return nil }

func (GRPC) CallTool(ctx context.Context, _ utcp.Runtime, toolName string, args map[string]any, tmpl utcp.CallTemplate) (any, error) {
	t, ok := tmpl.(utcp.GRPCCallTemplate)
	if !ok {
		return nil, fmt.Errorf("grpc transport received %T", tmpl)
	}
	conn, err := dialGRPC(ctx, t.Target, t.UseTLS)
	if err != nil {
		return nil, &utcp.ErrTransport{Transport: "grpc", Err: err}
	}
	defer conn.Close()

	req, err := argsToStruct(map[string]any{"tool": toolName, "arguments": args})
	if err != nil {
		return nil, err
	}
	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, t.FullMethod, req, resp); err != nil {
		return nil, &utcp.ErrTransport{Transport: "grpc", Err: err}
	}
	out := resp.AsMap()
	if errMsg, ok := out["error"]; ok && errMsg != nil {
		return nil, &utcp.ErrTransport{Transport: "grpc", Err: fmt.Errorf("%v", errMsg)}
	}
	return out["result"], nil
}

func (GRPC) CallToolStreaming(context.Context, utcp.Runtime, string, map[string]any, utcp.CallTemplate) (utcp.ToolStream, error) {
	return nil, fmt.Errorf("grpc transport does not support streaming calls in this client; use server-streaming via a dedicated method when needed")
}

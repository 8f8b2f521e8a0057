package core

// grpc_remote.go — the default RemoteEvaluator, dialing a Semantic
// Validator service over gRPC. Modeled on the teacher's AIEngine in
// core/ai.go, which holds a pre-configured grpc.ClientConn and issues
// unary calls against it; here the call is a single fixed RPC method
// exchanging raw JSON-over-bytes payloads, sidestepping the need to vendor
// generated protobuf stubs for a service contract outside this module's
// scope.

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// evaluateMethod is the fixed fully-qualified RPC method name the
// Semantic Validator service exposes.
const evaluateMethod = "/natlangchain.validator.v1.Validator/Evaluate"

// bytesCodec passes payloads through unmodified, since the validator
// protocol already exchanges pre-serialized JSON rather than protobuf
// messages.
type bytesCodec struct{}

func (bytesCodec) Marshal(v interface{}) ([]byte, error) {
	b, ok := v.(*[]byte)
	if !ok {
		return nil, fmt.Errorf("bytesCodec: unsupported type %T", v)
	}
	return *b, nil
}

func (bytesCodec) Unmarshal(data []byte, v interface{}) error {
	b, ok := v.(*[]byte)
	if !ok {
		return fmt.Errorf("bytesCodec: unsupported type %T", v)
	}
	*b = append((*b)[:0], data...)
	return nil
}

func (bytesCodec) Name() string { return "bytes" }

func init() {
	encoding.RegisterCodec(bytesCodec{})
}

// grpcRemoteEvaluator is the default RemoteEvaluator backing
// GRPCStubHandle in production deployments.
type grpcRemoteEvaluator struct {
	conn *grpc.ClientConn
}

// DialInsecureEvaluator dials target with no transport security, the same
// credentials.insecure posture the teacher's core/ai.go uses for its
// development AI endpoint. Production deployments should supply a
// grpc.ClientConn configured with real TLS credentials and wrap it with
// NewGRPCStubHandle directly instead of calling this helper.
func DialInsecureEvaluator(target string) (*GRPCStubHandle, error) {
	conn, err := grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()), grpc.WithDefaultCallOptions(grpc.CallContentSubtype("bytes")))
	if err != nil {
		return nil, fmt.Errorf("dial validator endpoint %s: %w", target, err)
	}
	return NewGRPCStubHandle(target, &grpcRemoteEvaluator{conn: conn}), nil
}

func (g *grpcRemoteEvaluator) Evaluate(ctx context.Context, payload []byte) ([]byte, error) {
	in := payload
	var out []byte
	if err := g.conn.Invoke(ctx, evaluateMethod, &in, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases the underlying gRPC connection.
func (g *grpcRemoteEvaluator) Close() error {
	return g.conn.Close()
}

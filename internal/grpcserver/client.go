package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the Library service over an existing connection.
type Client struct {
	Conn  grpc.ClientConnInterface
	Token string
}

func NewClient(conn grpc.ClientConnInterface, token string) *Client {
	return &Client{Conn: conn, Token: token}
}

// Call invokes one method with req as the request struct. A nil req sends
// an empty struct.
func (c *Client) Call(ctx context.Context, method string, req map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	if c.Token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.Token)
	}
	out := new(structpb.Struct)
	if err := c.Conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

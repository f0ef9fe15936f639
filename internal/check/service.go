// Package check serves lookups over the in-memory index with gRPC.
package check

import (
	"context"
	"errors"

	"google.golang.org/grpc"
)

// ServiceName - full gRPC service name.
const ServiceName = "check.Check"

// ErrUnknownMessage - the codec got a value that is not a check message.
var ErrUnknownMessage = errors.New("unknown message")

// CheckServer - check service methods.
type CheckServer interface {
	SearchID(ctx context.Context, in *IDRequest) (*SearchResponse, error)
	SearchIP4(ctx context.Context, in *IP4Request) (*SearchResponse, error)
	SearchIP6(ctx context.Context, in *IP6Request) (*SearchResponse, error)
	SearchURL(ctx context.Context, in *URLRequest) (*SearchResponse, error)
	SearchDomain(ctx context.Context, in *DomainRequest) (*SearchResponse, error)
	SearchDecision(ctx context.Context, in *DecisionRequest) (*SearchResponse, error)
	Ping(ctx context.Context, in *PingRequest) (*PongResponse, error)
}

// method - unary handler for a request type M.
func method[T any, M interface {
	*T
	message
}](name string, call func(CheckServer, context.Context, M) (any, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := M(new(T))
			if err := dec(in); err != nil {
				return nil, err
			}

			if interceptor == nil {
				return call(srv.(CheckServer), ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}

			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CheckServer), ctx, req.(M))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CheckServer)(nil),
	Methods: []grpc.MethodDesc{
		method("SearchID", func(s CheckServer, ctx context.Context, in *IDRequest) (any, error) {
			return s.SearchID(ctx, in)
		}),
		method("SearchIP4", func(s CheckServer, ctx context.Context, in *IP4Request) (any, error) {
			return s.SearchIP4(ctx, in)
		}),
		method("SearchIP6", func(s CheckServer, ctx context.Context, in *IP6Request) (any, error) {
			return s.SearchIP6(ctx, in)
		}),
		method("SearchURL", func(s CheckServer, ctx context.Context, in *URLRequest) (any, error) {
			return s.SearchURL(ctx, in)
		}),
		method("SearchDomain", func(s CheckServer, ctx context.Context, in *DomainRequest) (any, error) {
			return s.SearchDomain(ctx, in)
		}),
		method("SearchDecision", func(s CheckServer, ctx context.Context, in *DecisionRequest) (any, error) {
			return s.SearchDecision(ctx, in)
		}),
		method("Ping", func(s CheckServer, ctx context.Context, in *PingRequest) (any, error) {
			return s.Ping(ctx, in)
		}),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "msg.proto",
}

// RegisterCheckServer - attach srv to s. s must use Codec (see NewGRPCServer).
func RegisterCheckServer(s grpc.ServiceRegistrar, srv CheckServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Client - check service client.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient - client over an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, name string, in, out message, opts []grpc.CallOption) error {
	opts = append(opts, grpc.ForceCodec(Codec{}))

	return c.cc.Invoke(ctx, "/"+ServiceName+"/"+name, in, out, opts...)
}

// SearchID - search by content id.
func (c *Client) SearchID(ctx context.Context, in *IDRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchID", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// SearchIP4 - search by IPv4.
func (c *Client) SearchIP4(ctx context.Context, in *IP4Request, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchIP4", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// SearchIP6 - search by IPv6.
func (c *Client) SearchIP6(ctx context.Context, in *IP6Request, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchIP6", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// SearchURL - search by URL.
func (c *Client) SearchURL(ctx context.Context, in *URLRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchURL", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// SearchDomain - search by domain.
func (c *Client) SearchDomain(ctx context.Context, in *DomainRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchDomain", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// SearchDecision - search by decision number.
func (c *Client) SearchDecision(ctx context.Context, in *DecisionRequest, opts ...grpc.CallOption) (*SearchResponse, error) {
	out := new(SearchResponse)
	if err := c.invoke(ctx, "SearchDecision", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

// Ping - just ping.
func (c *Client) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PongResponse, error) {
	out := new(PongResponse)
	if err := c.invoke(ctx, "Ping", in, out, opts); err != nil {
		return nil, err
	}

	return out, nil
}

package check

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"google.golang.org/grpc"

	"github.com/usher2/u2dumpsync/internal/index"
	"github.com/usher2/u2dumpsync/internal/logger"
)

// Answers.
const (
	SrvDataNotReady = "Data not ready"
	SrvPongMessage  = "pong"
)

// Server - check service over the index.
type Server struct {
	idx *index.Index
}

var _ CheckServer = (*Server)(nil)

// NewServer - check service over idx.
func NewServer(idx *index.Index) *Server {
	return &Server{idx: idx}
}

// NewGRPCServer - gRPC server with the check service registered.
func NewGRPCServer(idx *index.Index, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(append(opts, grpc.ForceServerCodec(Codec{}))...)
	RegisterCheckServer(s, NewServer(idx))

	return s
}

func newContent(m index.Match, utime int64) *Content {
	c := &Content{
		ID:                 m.Record.ID,
		BlockType:          int32(m.Record.BlockType),
		RegistryUpdateTime: utime,
		IP4:                m.IPv4,
		Domain:             m.Domain,
		URL:                m.URL,
		Aggr:               m.Subnet,
	}

	if m.IPv6 != "" {
		c.IP6 = net.ParseIP(m.IPv6)
	}

	pack, err := json.Marshal(m.Record)
	if err != nil {
		logger.Error.Printf("Can't pack content %d: %s\n", m.Record.ID, err)
	}

	c.Pack = pack

	return c
}

func searchResponse(res []index.Match, utime int64, err error) (*SearchResponse, error) {
	if errors.Is(err, index.ErrNotReady) {
		return &SearchResponse{Error: SrvDataNotReady}, nil
	}

	if err != nil {
		return nil, err
	}

	resp := &SearchResponse{RegistryUpdateTime: utime, Results: make([]*Content, 0, len(res))}

	for _, m := range res {
		resp.Results = append(resp.Results, newContent(m, utime))
	}

	return resp, nil
}

// SearchID - search by content ID.
func (s *Server) SearchID(_ context.Context, in *IDRequest) (*SearchResponse, error) {
	logger.Debug.Printf("Received content ID: %d\n", in.Query)

	return searchResponse(s.idx.SearchID(in.Query))
}

// SearchIP4 - search by IPv4.
func (s *Server) SearchIP4(_ context.Context, in *IP4Request) (*SearchResponse, error) {
	logger.Debug.Printf("Received IPv4: %d\n", in.Query)

	return searchResponse(s.idx.SearchIPv4(in.Query))
}

// SearchIP6 - search by IPv6.
func (s *Server) SearchIP6(_ context.Context, in *IP6Request) (*SearchResponse, error) {
	logger.Debug.Printf("Received IPv6: %s\n", net.IP(in.Query))

	return searchResponse(s.idx.SearchIPv6(net.IP(in.Query)))
}

// SearchURL - search by URL.
func (s *Server) SearchURL(_ context.Context, in *URLRequest) (*SearchResponse, error) {
	logger.Debug.Printf("Received URL: %s\n", in.Query)

	return searchResponse(s.idx.SearchURL(in.Query))
}

// SearchDomain - search by domain.
func (s *Server) SearchDomain(_ context.Context, in *DomainRequest) (*SearchResponse, error) {
	logger.Debug.Printf("Received Domain: %s\n", in.Query)

	return searchResponse(s.idx.SearchDomain(in.Query))
}

// SearchDecision - search by decision number.
func (s *Server) SearchDecision(_ context.Context, in *DecisionRequest) (*SearchResponse, error) {
	logger.Debug.Printf("Received decision: %s\n", in.Query)

	return searchResponse(s.idx.SearchDecision(in.Query))
}

// Ping - just ping.
func (s *Server) Ping(_ context.Context, in *PingRequest) (*PongResponse, error) {
	logger.Debug.Printf("Received Ping: %s\n", in.Ping)

	utime, err := s.idx.UpdateTime()
	if err != nil {
		return &PongResponse{Error: SrvDataNotReady}, nil
	}

	return &PongResponse{Pong: SrvPongMessage, RegistryUpdateTime: utime}, nil
}

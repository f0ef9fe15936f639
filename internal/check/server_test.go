package check

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/usher2/u2dumpsync/internal/index"
	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/store"
)

func init() {
	logger.LogInit(io.Discard, io.Discard, os.Stderr, os.Stderr)
}

const testEpoch = 1293832861

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())

	st, err := store.Open(context.Background(), store.KindSQLite,
		fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name))
	require.NoError(t, err)

	t.Cleanup(func() { _ = st.Close() })

	return st
}

func seedIndex(t *testing.T) *index.Index {
	t.Helper()

	ctx := context.Background()
	st := newTestStore(t)

	item := &store.Item{
		ContentID: 111, IncludeTime: "2001-01-01 01:01:01", EntryType: 1, BlockType: "domain-mask",
		HashRecord: "h111", DecisionDate: "2000-01-01", DecisionNum: "1/1/11-1111", DecisionOrg: "ONE",
		Add: testEpoch,
		IPs: []store.IP{
			{ContentID: 111, IP: "192.168.1.11", Mask: 32, Version: 4, Add: testEpoch},
			{ContentID: 111, IP: "10.4.0.0", Mask: 16, Version: 4, Add: testEpoch},
			{ContentID: 111, IP: "fd11:1::1", Mask: 128, Version: 6, Add: testEpoch},
		},
		Domains: []store.Domain{{ContentID: 111, Domain: "mask.tld", Add: testEpoch}},
		URLs:    []store.URL{{ContentID: 111, URL: "http://mask.tld/page", Add: testEpoch}},
	}
	require.NoError(t, store.InsertItem(st.DB(), item))
	require.NoError(t, st.Set(ctx, store.ParamLastDumpDate, "1293832861"))

	idx := index.New()
	require.NoError(t, idx.Rebuild(ctx, st))

	return idx
}

func dialTest(t *testing.T, idx *index.Index) *Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(idx)

	go func() { _ = srv.Serve(lis) }()

	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = conn.Close() })

	return NewClient(conn)
}

func TestNotReady(t *testing.T) {
	ctx := context.Background()
	c := dialTest(t, index.New())

	pong, err := c.Ping(ctx, &PingRequest{Ping: "ping"})
	require.NoError(t, err)
	assert.Equal(t, SrvDataNotReady, pong.Error)
	assert.Empty(t, pong.Pong)

	resp, err := c.SearchID(ctx, &IDRequest{Query: 111})
	require.NoError(t, err)
	assert.Equal(t, SrvDataNotReady, resp.Error)
	assert.Empty(t, resp.Results)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	c := dialTest(t, seedIndex(t))

	pong, err := c.Ping(ctx, &PingRequest{Ping: "ping"})
	require.NoError(t, err)
	assert.Equal(t, SrvPongMessage, pong.Pong)
	assert.Equal(t, int64(testEpoch), pong.RegistryUpdateTime)

	resp, err := c.SearchID(ctx, &IDRequest{Query: 111})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, int64(testEpoch), resp.RegistryUpdateTime)
	assert.Equal(t, int32(index.BlockTypeMask), resp.Results[0].BlockType)

	var rec index.Record
	require.NoError(t, json.Unmarshal(resp.Results[0].Pack, &rec))
	assert.Equal(t, "1/1/11-1111", rec.Decision.Number)
	assert.Equal(t, []string{"mask.tld"}, rec.Domains)

	ip := index.IPv4StrToInt("192.168.1.11")
	resp, err = c.SearchIP4(ctx, &IP4Request{Query: ip})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, ip, resp.Results[0].IP4)

	resp, err = c.SearchIP4(ctx, &IP4Request{Query: index.IPv4StrToInt("10.4.200.1")})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "10.4.0.0/16", resp.Results[0].Aggr)

	resp, err = c.SearchIP6(ctx, &IP6Request{Query: net.ParseIP("fd11:1::1")})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.True(t, net.ParseIP("fd11:1::1").Equal(resp.Results[0].IP6))

	resp, err = c.SearchURL(ctx, &URLRequest{Query: "http://MASK.tld/page"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "http://mask.tld/page", resp.Results[0].URL)

	resp, err = c.SearchDomain(ctx, &DomainRequest{Query: "www.mask.tld"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "mask.tld", resp.Results[0].Domain)

	resp, err = c.SearchDecision(ctx, &DecisionRequest{Query: "1/1/11-1111"})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 1)

	resp, err = c.SearchDecision(ctx, &DecisionRequest{Query: "nope"})
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
	assert.Empty(t, resp.Error)
}

package index

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func ip(contentID int64, addr string, mask, version int) store.IP {
	return store.IP{ContentID: contentID, IP: addr, Mask: mask, Version: version, Add: testEpoch}
}

// seed - two active records and one purged.
func seed(t *testing.T, st *store.Store) []*store.Item {
	t.Helper()

	purged := int64(testEpoch)
	items := []*store.Item{
		{
			ContentID: 111, IncludeTime: "2001-01-01 01:01:01", EntryType: 1, BlockType: "default",
			HashRecord: "h111", DecisionDate: "2000-01-01", DecisionNum: "1/1/11-1111", DecisionOrg: "ONE",
			Add: testEpoch,
			IPs: []store.IP{ip(111, "192.168.1.11", 32, 4), ip(111, "fd11:1::1", 128, 6)},
			Domains: []store.Domain{
				{ContentID: 111, Domain: "www.e01.tld", Add: testEpoch},
			},
			URLs: []store.URL{
				{ContentID: 111, URL: "https://www.e01.tld/sex", Add: testEpoch},
				{ContentID: 111, URL: "http://www.e01.tld/cheese", Add: testEpoch},
			},
		},
		{
			ContentID: 222, IncludeTime: "2001-01-01 02:02:02", EntryType: 2, BlockType: "domain-mask",
			HashRecord: "h222", DecisionDate: "2000-01-02", DecisionNum: "2/2/22-2222", DecisionOrg: "TWO",
			Add: testEpoch,
			IPs: []store.IP{ip(222, "10.4.0.0", 16, 4), ip(222, "fd44:4::", 32, 6)},
			Domains: []store.Domain{
				{ContentID: 222, Domain: "mask.tld", Add: testEpoch},
			},
		},
		{
			ContentID: 333, IncludeTime: "2001-01-01 03:03:03", EntryType: 1, BlockType: "ip",
			HashRecord: "h333", DecisionDate: "2000-01-03", DecisionNum: "1/1/11-1111", DecisionOrg: "ONE",
			Add: testEpoch, Purge: &purged,
			IPs: []store.IP{ip(333, "192.168.1.11", 32, 4)},
		},
	}

	for _, item := range items {
		require.NoError(t, store.InsertItem(st.DB(), item))
	}

	ctx := context.Background()
	require.NoError(t, st.Set(ctx, store.ParamLastDumpDate, "1293832861"))
	require.NoError(t, st.Set(ctx, store.ParamLastDumpDateUrgently, "1265065321"))

	return items
}

func ids(res []Match) []int64 {
	out := make([]int64, 0, len(res))
	for _, m := range res {
		out = append(out, m.Record.ID)
	}

	return out
}

func TestNotReady(t *testing.T) {
	x := New()

	assert.False(t, x.Ready())

	_, _, err := x.SearchID(111)
	require.ErrorIs(t, err, ErrNotReady)

	_, err = x.UpdateTime()
	require.ErrorIs(t, err, ErrNotReady)
}

func TestRebuildAndSearch(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seed(t, st)

	x := New()
	require.NoError(t, x.Rebuild(ctx, st))
	require.True(t, x.Ready())

	utime, err := x.UpdateTime()
	require.NoError(t, err)
	assert.Equal(t, int64(1293832861), utime)

	res, utime, err := x.SearchID(111)
	require.NoError(t, err)
	assert.Equal(t, int64(1293832861), utime)
	require.Len(t, res, 1)
	assert.Equal(t, BlockTypeHTTPS, res[0].Record.BlockType)
	assert.Equal(t, "1/1/11-1111", res[0].Record.Decision.Number)
	assert.ElementsMatch(t, []string{"192.168.1.11"}, res[0].Record.IPv4)
	assert.ElementsMatch(t, []string{"fd11:1::1"}, res[0].Record.IPv6)

	res, _, err = x.SearchID(333)
	require.NoError(t, err)
	assert.Empty(t, res, "purged record")

	res, _, err = x.SearchIPv4(IPv4StrToInt("192.168.1.11"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(111), res[0].Record.ID)
	assert.Equal(t, IPv4StrToInt("192.168.1.11"), res[0].IPv4)

	res, _, err = x.SearchIPv4(IPv4StrToInt("10.4.5.6"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(222), res[0].Record.ID)
	assert.Equal(t, "10.4.0.0/16", res[0].Subnet)

	res, _, err = x.SearchIPv4(IPv4StrToInt("10.5.0.1"))
	require.NoError(t, err)
	assert.Empty(t, res)

	res, _, err = x.SearchIPv6(net.ParseIP("fd11:1::1"))
	require.NoError(t, err)
	assert.Equal(t, []int64{111}, ids(res))

	res, _, err = x.SearchIPv6(net.ParseIP("fd44:4:1::5"))
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "fd44:4::/32", res[0].Subnet)

	res, _, err = x.SearchURL("http://WWW.E01.tld/cheese#frag")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "http://www.e01.tld/cheese", res[0].URL)

	res, _, err = x.SearchDomain("WWW.e01.tld")
	require.NoError(t, err)
	assert.Equal(t, []int64{111}, ids(res))

	res, _, err = x.SearchDomain("a.b.mask.tld")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, int64(222), res[0].Record.ID)
	assert.Equal(t, "mask.tld", res[0].Domain)

	res, _, err = x.SearchDomain("e01.tld")
	require.NoError(t, err)
	assert.Empty(t, res)

	res, _, err = x.SearchSuffix("e01.tld")
	require.NoError(t, err)
	assert.Equal(t, []int64{111}, ids(res))

	res, _, err = x.SearchDecision("1/1/11-1111")
	require.NoError(t, err)
	assert.Equal(t, []int64{111}, ids(res))
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seed(t, st)

	x := New()
	require.NoError(t, x.Rebuild(ctx, st))

	sum, err := x.Summary()
	require.NoError(t, err)

	assert.Equal(t, int64(1293832861), sum.UpdateTime)
	assert.Equal(t, 2, sum.ContentEntries)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, sum.EntryTypes)
	assert.Equal(t, map[string]int{"ONE": 1, "TWO": 1}, sum.DecisionOrgs)
	assert.Equal(t, 1, sum.IPv4Entries)
	assert.Equal(t, 1, sum.IPv6Entries)
	assert.Equal(t, 1, sum.SubnetIPv4Entries)
	assert.Equal(t, 1, sum.SubnetIPv6Entries)
	assert.Equal(t, 2, sum.DomainEntries)
	assert.Equal(t, 2, sum.URLEntries)
	assert.Equal(t, 1, sum.BlockTypeHTTPS)
	assert.Equal(t, 1, sum.BlockTypeMask)
	assert.Equal(t, 1, sum.MaxItemReferences)
}

func TestRebuildSwaps(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	items := seed(t, st)

	x := New()
	require.NoError(t, x.Rebuild(ctx, st))

	require.NoError(t, store.PurgeItem(st.DB(), items[0].ID, testEpoch+1))
	require.NoError(t, x.Rebuild(ctx, st))

	res, _, err := x.SearchID(111)
	require.NoError(t, err)
	assert.Empty(t, res)

	res, _, err = x.SearchIPv4(IPv4StrToInt("192.168.1.11"))
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestRebuildCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	st := newTestStore(t)
	seed(t, st)

	cancel()

	x := New()
	require.Error(t, x.Rebuild(ctx, st))
	assert.False(t, x.Ready())
}

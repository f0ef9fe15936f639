// Package index keeps an in-memory snapshot of active registry records for lookups.
package index

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"

	"github.com/yl2chen/cidranger"

	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/store"
)

const rebuildBatch = 1000

// ErrNotReady - no snapshot was loaded yet.
var ErrNotReady = errors.New("data not ready")

// Snapshot - immutable set of indexes over active records.
type Snapshot struct {
	utime        int64
	records      map[int64]*Record
	ipv4         Uint32Index
	ipv6         StringIndex
	subnetIPv4   StringIndex
	subnetIPv6   StringIndex
	netTree      cidranger.Ranger
	url          StringIndex
	domain       StringIndex
	publicSuffix StringIndex
	decision     StringIndex
	summary      Summary
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		records:      make(map[int64]*Record),
		ipv4:         make(Uint32Index),
		ipv6:         make(StringIndex),
		subnetIPv4:   make(StringIndex),
		subnetIPv6:   make(StringIndex),
		netTree:      cidranger.NewPCTrieRanger(),
		url:          make(StringIndex),
		domain:       make(StringIndex),
		publicSuffix: make(StringIndex),
		decision:     make(StringIndex),
	}
}

func (s *Snapshot) insert(r *Record) {
	s.records[r.ID] = r

	for _, ip := range r.IPv4 {
		if x := IPv4StrToInt(ip); x != BadIPv4 {
			s.ipv4.Insert(x, r.ID)
		}
	}

	for _, ip := range r.IPv6 {
		if addr, err := netip.ParseAddr(ip); err == nil {
			s.ipv6.Insert(addr.String(), r.ID)
		}
	}

	for _, subnet := range r.SubnetIPv4 {
		s.insertSubnet(s.subnetIPv4, subnet, r.ID)
	}

	for _, subnet := range r.SubnetIPv6 {
		s.insertSubnet(s.subnetIPv6, subnet, r.ID)
	}

	for _, u := range r.URLs {
		s.url.Insert(u, r.ID)
	}

	for _, domain := range r.Domains {
		s.domain.Insert(domain, r.ID)

		parent, suffix := parentDomains(domain)
		if parent != "" {
			s.publicSuffix.Insert(parent, r.ID)
		}

		if suffix != "" {
			s.publicSuffix.Insert(suffix, r.ID)
		}
	}

	if r.Decision.Number != "" {
		s.decision.Insert(r.Decision.Number, r.ID)
	}
}

// insertSubnet - subnets are keyed by their network address.
func (s *Snapshot) insertSubnet(idx StringIndex, subnet string, id int64) {
	_, network, err := net.ParseCIDR(subnet)
	if err != nil {
		logger.Debug.Printf("Can't parse CIDR: %s: %s\n", subnet, err)

		return
	}

	if idx.Insert(network.String(), id) {
		if err := s.netTree.Insert(cidranger.NewBasicRangerEntry(*network)); err != nil {
			logger.Debug.Printf("Can't insert CIDR: %s: %s\n", subnet, err)
		}
	}
}

// Index - the current snapshot.
type Index struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// New - empty index, not ready until the first Rebuild.
func New() *Index {
	return &Index{}
}

// Rebuild - load active records from the store and swap the snapshot in.
func (x *Index) Rebuild(ctx context.Context, st *store.Store) error {
	snap := newSnapshot()

	err := st.EachActive(ctx, rebuildBatch, func(items []store.Item) error {
		for i := range items {
			snap.insert(newRecord(&items[i]))
		}

		return ctx.Err()
	})
	if err != nil {
		return err
	}

	normal, err := st.GetInt(ctx, store.ParamLastDumpDate)
	if err != nil {
		return err
	}

	urgent, err := st.GetInt(ctx, store.ParamLastDumpDateUrgently)
	if err != nil {
		return err
	}

	snap.utime = max(normal, urgent)
	snap.summarize()

	x.mu.Lock()
	x.snap = snap
	x.mu.Unlock()

	logger.Info.Printf("Index: records: %d IP: %d IPv6: %d Subnets: %d Subnets6: %d Domains: %d URLs: %d\n",
		len(snap.records), len(snap.ipv4), len(snap.ipv6), len(snap.subnetIPv4), len(snap.subnetIPv6),
		len(snap.domain), len(snap.url))

	return nil
}

func (x *Index) current() (*Snapshot, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.snap == nil {
		return nil, ErrNotReady
	}

	return x.snap, nil
}

// Ready - a snapshot is loaded.
func (x *Index) Ready() bool {
	_, err := x.current()

	return err == nil
}

// UpdateTime - registry time of the loaded snapshot.
func (x *Index) UpdateTime() (int64, error) {
	snap, err := x.current()
	if err != nil {
		return 0, err
	}

	return snap.utime, nil
}

// Summary - counters of the loaded snapshot.
func (x *Index) Summary() (Summary, error) {
	snap, err := x.current()
	if err != nil {
		return Summary{}, err
	}

	return snap.summary, nil
}

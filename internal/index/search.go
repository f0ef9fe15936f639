package index

import (
	"net"
	"net/netip"
	"strings"

	"github.com/usher2/u2dumpsync/internal/dump"
	"github.com/usher2/u2dumpsync/internal/logger"
)

// Match - record found by a lookup and the key it matched by.
type Match struct {
	Record *Record
	IPv4   uint32
	IPv6   string
	Domain string
	URL    string
	Subnet string
}

func (s *Snapshot) collect(res []Match, ids IDSet, tmpl Match) []Match {
	for _, id := range ids {
		if r, ok := s.records[id]; ok {
			m := tmpl
			m.Record = r
			res = append(res, m)
		}
	}

	return res
}

func (s *Snapshot) containing(ip net.IP, idx StringIndex, res []Match) []Match {
	cnw, err := s.netTree.ContainingNetworks(ip)
	if err != nil {
		logger.Debug.Printf("Can't get containing networks: %s: %s\n", ip, err)

		return res
	}

	for _, entry := range cnw {
		network := entry.Network()
		subnet := network.String()

		if ids, ok := idx[subnet]; ok {
			res = s.collect(res, ids, Match{Subnet: subnet})
		}
	}

	return res
}

// SearchID - search by content id.
func (x *Index) SearchID(id int64) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	return snap.collect(nil, IDSet{id}, Match{}), snap.utime, nil
}

// SearchIPv4 - exact address and containing subnets.
func (x *Index) SearchIPv4(ip uint32) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	ipBytes := net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))

	res := snap.containing(ipBytes, snap.subnetIPv4, nil)
	res = snap.collect(res, snap.ipv4[ip], Match{IPv4: ip})

	return res, snap.utime, nil
}

// SearchIPv6 - exact address and containing subnets.
func (x *Index) SearchIPv6(ip net.IP) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	addr, ok := netip.AddrFromSlice(ip)
	if !ok || !addr.Is6() || addr.Is4In6() {
		return nil, snap.utime, nil
	}

	res := snap.containing(ip, snap.subnetIPv6, nil)
	res = snap.collect(res, snap.ipv6[addr.String()], Match{IPv6: addr.String()})

	return res, snap.utime, nil
}

// SearchURL - search by URL, normalized the same way as the registry ones.
func (x *Index) SearchURL(u string) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	u = dump.NormalizeURL(u)

	return snap.collect(nil, snap.url[u], Match{URL: u}), snap.utime, nil
}

// SearchDomain - exact domain and domain-mask records of its ancestors.
func (x *Index) SearchDomain(domain string) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	domain = dump.NormalizeDomain(domain)
	res := snap.collect(nil, snap.domain[domain], Match{Domain: domain})

	for parent := domain; ; {
		i := strings.IndexByte(parent, '.')
		if i < 0 {
			break
		}

		parent = parent[i+1:]

		for _, id := range snap.domain[parent] {
			if r, ok := snap.records[id]; ok && r.BlockType == BlockTypeMask {
				res = append(res, Match{Record: r, Domain: parent})
			}
		}
	}

	return res, snap.utime, nil
}

// SearchSuffix - records under a registered domain or public suffix.
func (x *Index) SearchSuffix(domain string) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	domain = dump.NormalizeDomain(domain)

	return snap.collect(nil, snap.publicSuffix[domain], Match{}), snap.utime, nil
}

// SearchDecision - search by decision number.
func (x *Index) SearchDecision(number string) ([]Match, int64, error) {
	snap, err := x.current()
	if err != nil {
		return nil, 0, err
	}

	return snap.collect(nil, snap.decision[number], Match{}), snap.utime, nil
}

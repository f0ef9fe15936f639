package index

import (
	"net/netip"
	"strconv"
)

// Summary - counters over the loaded snapshot.
type Summary struct {
	UpdateTime           int64          `json:"update_time"`
	ContentEntries       int            `json:"content_entries"`
	EntryTypes           map[string]int `json:"entry_types"`
	DecisionOrgs         map[string]int `json:"decision_orgs"`
	IPv4Entries          int            `json:"ipv4_entries"`
	IPv6Entries          int            `json:"ipv6_entries"`
	DomainEntries        int            `json:"domain_entries"`
	URLEntries           int            `json:"url_entries"`
	SubnetIPv4Entries    int            `json:"subnet_ipv4_entries"`
	SubnetIPv6Entries    int            `json:"subnet_ipv6_entries"`
	BlockTypeURL         int            `json:"block_type_url"`
	BlockTypeHTTPS       int            `json:"block_type_https"`
	BlockTypeDomain      int            `json:"block_type_domain"`
	BlockTypeMask        int            `json:"block_type_mask"`
	BlockTypeIP          int            `json:"block_type_ip"`
	MaxItemReferences    int            `json:"max_item_references"`
	MaxItemReferencesKey string         `json:"max_item_references_key"`
}

func (s *Snapshot) summarize() {
	sum := Summary{
		UpdateTime:        s.utime,
		ContentEntries:    len(s.records),
		EntryTypes:        make(map[string]int),
		DecisionOrgs:      make(map[string]int),
		IPv4Entries:       len(s.ipv4),
		IPv6Entries:       len(s.ipv6),
		DomainEntries:     len(s.domain),
		URLEntries:        len(s.url),
		SubnetIPv4Entries: len(s.subnetIPv4),
		SubnetIPv6Entries: len(s.subnetIPv6),
	}

	for _, r := range s.records {
		sum.EntryTypes[strconv.Itoa(r.EntryType)]++

		if r.Decision.Org != "" {
			sum.DecisionOrgs[r.Decision.Org]++
		}

		switch r.BlockType {
		case BlockTypeURL:
			sum.BlockTypeURL++
		case BlockTypeHTTPS:
			sum.BlockTypeHTTPS++
		case BlockTypeDomain:
			sum.BlockTypeDomain++
		case BlockTypeMask:
			sum.BlockTypeMask++
		case BlockTypeIP:
			sum.BlockTypeIP++
		}
	}

	refs := func(key string, ids IDSet) {
		if len(ids) > sum.MaxItemReferences {
			sum.MaxItemReferences = len(ids)
			sum.MaxItemReferencesKey = key
		}
	}

	for ip, ids := range s.ipv4 {
		refs(netip.AddrFrom4([4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}).String(), ids)
	}

	for _, idx := range []StringIndex{s.ipv6, s.subnetIPv4, s.subnetIPv6, s.domain, s.url} {
		for key, ids := range idx {
			refs(key, ids)
		}
	}

	s.summary = sum
}

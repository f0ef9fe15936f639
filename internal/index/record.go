package index

import (
	"strconv"
	"strings"

	"github.com/usher2/u2dumpsync/internal/dump"
	"github.com/usher2/u2dumpsync/internal/store"
)

// Block types as the check service reports them.
const (
	BlockTypeURL = iota
	BlockTypeHTTPS
	BlockTypeDomain
	BlockTypeMask
	BlockTypeIP
)

// Record - active registry record as the index keeps it.
type Record struct {
	ID          int64         `json:"id"`
	EntryType   int           `json:"entry_type"`
	UrgencyType int           `json:"urgency_type"`
	BlockType   int           `json:"block_type"`
	IncludeTime string        `json:"include_time"`
	Add         int64         `json:"add"`
	Decision    dump.Decision `json:"decision"`
	URLs        []string      `json:"url,omitempty"`
	Domains     []string      `json:"domain,omitempty"`
	IPv4        []string      `json:"ip4,omitempty"`
	IPv6        []string      `json:"ip6,omitempty"`
	SubnetIPv4  []string      `json:"subnet4,omitempty"`
	SubnetIPv6  []string      `json:"subnet6,omitempty"`
}

func newRecord(item *store.Item) *Record {
	r := &Record{
		ID:          item.ContentID,
		EntryType:   item.EntryType,
		UrgencyType: item.UrgencyType,
		IncludeTime: item.IncludeTime,
		Add:         item.Add,
		Decision: dump.Decision{
			Date:   item.DecisionDate,
			Number: item.DecisionNum,
			Org:    item.DecisionOrg,
		},
	}

	for _, u := range item.URLs {
		r.URLs = append(r.URLs, u.URL)
	}

	for _, d := range item.Domains {
		r.Domains = append(r.Domains, d.Domain)
	}

	for _, ip := range item.IPs {
		switch {
		case ip.Version == 4 && ip.Mask == 32:
			r.IPv4 = append(r.IPv4, ip.IP)
		case ip.Version == 4:
			r.SubnetIPv4 = append(r.SubnetIPv4, cidr(ip))
		case ip.Mask == 128:
			r.IPv6 = append(r.IPv6, ip.IP)
		default:
			r.SubnetIPv6 = append(r.SubnetIPv6, cidr(ip))
		}
	}

	r.BlockType = r.constructBlockType(item.BlockType)

	return r
}

func cidr(ip store.IP) string {
	return ip.IP + "/" + strconv.Itoa(ip.Mask)
}

// constructBlockType - default records block by URL, https ones need a DPI.
func (r *Record) constructBlockType(blockType string) int {
	switch blockType {
	case dump.BlockTypeIP:
		return BlockTypeIP
	case dump.BlockTypeDomain:
		return BlockTypeDomain
	case dump.BlockTypeDomainMask:
		return BlockTypeMask
	}

	for _, u := range r.URLs {
		if strings.HasPrefix(u, "https://") {
			return BlockTypeHTTPS
		}
	}

	return BlockTypeURL
}

// Package dump decodes registry dump archives and reconciles them with the record store.
package dump

import "errors"

// Errors
var (
	ErrParse     = errors.New("dump parse error")
	ErrReconcile = errors.New("dump reconcile error")
)

// Block types.
const (
	BlockTypeDefault    = "default"
	BlockTypeDomain     = "domain"
	BlockTypeDomainMask = "domain-mask"
	BlockTypeIP         = "ip"
)

// Register - one decoded dump.
type Register struct {
	UpdateTime         int64 // epoch seconds, 0 when absent
	UpdateTimeUrgently int64
	FormatVersion      string
	Contents           []*Content
}

// Epoch - the later of both register times, 0 when the register carries neither.
func (r *Register) Epoch() int64 {
	return max(r.UpdateTime, r.UpdateTimeUrgently)
}

// Content - one <content> record.
type Content struct {
	ID          int64
	IncludeTime string // YYYY-MM-DD HH:MM:SS
	UrgencyType int
	EntryType   int
	BlockType   string
	Hash        string // registry supplied
	RecordHash  string // fnv64a of the raw element
	Decision    Decision
	URLs        []string
	Domains     []string
	IPs         []Address
}

// Decision - <decision> of a record.
type Decision struct {
	Date   string `json:"date"`
	Number string `json:"number"`
	Org    string `json:"org"`
}

// Address - host address or subnet.
type Address struct {
	IP      string
	Mask    int
	Version int
}

// Stats - reconciliation counters.
type Stats struct {
	Count       int
	AddCount    int
	UpdateCount int
	RemoveCount int
}

package store

import "time"

// Param - one named dump state parameter.
type Param struct {
	Name  string `gorm:"primaryKey;size:255"`
	Value string `gorm:"type:text;not null"`
}

func (Param) TableName() string { return "dump" }

// Item - one registry <content> version. Purge is nil while the record is active.
type Item struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	ContentID    int64  `gorm:"not null;index"`
	IncludeTime  string `gorm:"not null"`
	UrgencyType  int    `gorm:"not null"`
	EntryType    int    `gorm:"not null"`
	BlockType    string `gorm:"type:text;not null"`
	HashRecord   string `gorm:"type:text;not null"`
	DecisionDate string `gorm:"not null"`
	DecisionNum  string `gorm:"type:text;not null"`
	DecisionOrg  string `gorm:"type:text;not null"`
	Add          int64  `gorm:"column:add;not null;index"`
	Purge        *int64 `gorm:"column:purge;index"`

	IPs     []IP     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Domains []Domain `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	URLs    []URL    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (Item) TableName() string { return "item" }

// IP - <ip>, <ipv6>, <ipSubnet> or <ipv6Subnet> of an item.
type IP struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ItemID    uint64 `gorm:"not null;index"`
	ContentID int64  `gorm:"not null;index"`
	IP        string `gorm:"type:text;not null;index"`
	Mask      int    `gorm:"not null"`
	Version   int    `gorm:"not null"`
	Add       int64  `gorm:"column:add;not null;index"`
	Purge     *int64 `gorm:"column:purge;index"`
}

func (IP) TableName() string { return "ip" }

// Domain - <domain> of an item, normalized.
type Domain struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ItemID    uint64 `gorm:"not null;index"`
	ContentID int64  `gorm:"not null;index"`
	Domain    string `gorm:"type:text;not null;index"`
	Add       int64  `gorm:"column:add;not null;index"`
	Purge     *int64 `gorm:"column:purge;index"`
}

func (Domain) TableName() string { return "domain" }

// URL - <url> of an item, normalized.
type URL struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ItemID    uint64 `gorm:"not null;index"`
	ContentID int64  `gorm:"not null;index"`
	URL       string `gorm:"type:text;not null;index"`
	Add       int64  `gorm:"column:add;not null;index"`
	Purge     *int64 `gorm:"column:purge;index"`
}

func (URL) TableName() string { return "url" }

// DNSResolver - address a blocked domain resolved to.
type DNSResolver struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	Domain  string `gorm:"type:text;not null;index"`
	IP      string `gorm:"type:text;not null;index"`
	Mask    int    `gorm:"not null"`
	Version int    `gorm:"not null"`
	Add     int64  `gorm:"column:add;not null;index"`
	Purge   *int64 `gorm:"column:purge;index"`
}

func (DNSResolver) TableName() string { return "dnsresolver" }

// History - one row per sync attempt.
type History struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	RequestCode string    `gorm:"type:text;not null"`
	Dump        bool      `gorm:"not null"`
	Resolver    bool      `gorm:"not null"`
	Date        time.Time `gorm:"not null"`
}

func (History) TableName() string { return "history" }

// Models - everything AutoMigrate creates.
func Models() []any {
	return []any{&Param{}, &Item{}, &IP{}, &Domain{}, &URL{}, &DNSResolver{}, &History{}}
}

package dump

// XML shapes of a <content> element.

type xmlContent struct {
	ID          string      `xml:"id,attr"`
	EntryType   string      `xml:"entryType,attr"`
	UrgencyType string      `xml:"urgencyType,attr"`
	IncludeTime string      `xml:"includeTime,attr"`
	BlockType   string      `xml:"blockType,attr"`
	Hash        string      `xml:"hash,attr"`
	Decision    xmlDecision `xml:"decision"`
	URL         []xmlValue  `xml:"url"`
	Domain      []xmlValue  `xml:"domain"`
	IP          []xmlValue  `xml:"ip"`
	IP6         []xmlValue  `xml:"ipv6"`
	Subnet      []xmlValue  `xml:"ipSubnet"`
	Subnet6     []xmlValue  `xml:"ipv6Subnet"`
}

type xmlDecision struct {
	Date   string `xml:"date,attr"`
	Number string `xml:"number,attr"`
	Org    string `xml:"org,attr"`
}

type xmlValue struct {
	Value string `xml:",chardata"`
	Ts    string `xml:"ts,attr"`
}

package dump

import (
	"bytes"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"hash/fnv"
	"io"
	"net/netip"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/usher2/u2dumpsync/internal/logger"
)

const (
	elementRegister = "register"
	elementContent  = "content"
)

// gate - tee target that can be switched off.
type gate struct {
	w      io.Writer
	closed bool
}

func (g *gate) Write(p []byte) (int, error) {
	if g.closed {
		return len(p), nil
	}

	return g.w.Write(p)
}

// Parse - decode one dump document. Records repeated inside the document
// keep the position of the first occurrence and the body of the last one.
func Parse(r io.Reader) (*Register, error) {
	var (
		reg                            Register
		buffer                         bytes.Buffer
		bufferOffset, offsetCorrection int64
		maxContentSize                 int
	)

	raw := &gate{w: &buffer}
	hasher := fnv.New64a()
	decoder := xml.NewDecoder(io.TeeReader(r, raw))
	index := make(map[int64]int)

	// after the switch offsets count decoded bytes, the buffer restarts with them
	decoder.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		cr, err := charset.NewReaderLabel(label, input)
		if err != nil {
			return nil, err
		}

		raw.closed = true
		buffer.Reset()
		bufferOffset = 0
		offsetCorrection = decoder.InputOffset()

		return io.TeeReader(cr, &buffer), nil
	}

	for {
		tokenStartOffset := decoder.InputOffset() - offsetCorrection

		// drop everything before the token
		buffer.Next(int(tokenStartOffset - bufferOffset))
		bufferOffset = tokenStartOffset

		token, err := decoder.Token()
		if token == nil {
			if err != io.EOF {
				return nil, fmt.Errorf("%w: %w", ErrParse, err)
			}

			break
		}

		element, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch element.Name.Local {
		case elementRegister:
			if err := parseRegisterElement(element, &reg); err != nil {
				return nil, err
			}
		case elementContent:
			if err := decoder.Skip(); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrParse, err)
			}

			// <content>...</content> as it is in the stream
			tokenEndOffset := decoder.InputOffset() - offsetCorrection
			contBuf := buffer.Next(int(tokenEndOffset - bufferOffset))
			bufferOffset = tokenEndOffset

			if maxContentSize < len(contBuf) {
				maxContentSize = len(contBuf)
			}

			hasher.Reset()
			hasher.Write(contBuf)

			cont, err := UnmarshalContent(contBuf)
			if err != nil {
				return nil, err
			}

			cont.RecordHash = hex.EncodeToString(hasher.Sum(nil))

			if i, ok := index[cont.ID]; ok {
				reg.Contents[i] = cont

				continue
			}

			index[cont.ID] = len(reg.Contents)
			reg.Contents = append(reg.Contents, cont)
		}
	}

	logger.Debug.Printf("Parsed records: %d biggest content: %d\n", len(reg.Contents), maxContentSize)

	return &reg, nil
}

// ParseArchive - decode every document of a dump archive into one register.
func ParseArchive(data []byte) (*Register, error) {
	docs, err := ReadArchive(data)
	if err != nil {
		return nil, err
	}

	var merged *Register

	index := make(map[int64]int)

	for _, doc := range docs {
		reg, err := Parse(bytes.NewReader(doc.Data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.Name, err)
		}

		logger.Info.Printf("Document %s: %d records, format %s\n", doc.Name, len(reg.Contents), reg.FormatVersion)

		if merged == nil {
			merged = reg
			for i, cont := range reg.Contents {
				index[cont.ID] = i
			}

			continue
		}

		merged.UpdateTime = max(merged.UpdateTime, reg.UpdateTime)
		merged.UpdateTimeUrgently = max(merged.UpdateTimeUrgently, reg.UpdateTimeUrgently)

		if reg.FormatVersion != "" {
			merged.FormatVersion = reg.FormatVersion
		}

		for _, cont := range reg.Contents {
			if i, ok := index[cont.ID]; ok {
				merged.Contents[i] = cont

				continue
			}

			index[cont.ID] = len(merged.Contents)
			merged.Contents = append(merged.Contents, cont)
		}
	}

	return merged, nil
}

func parseRegisterElement(element xml.StartElement, reg *Register) error {
	for _, attr := range element.Attr {
		var err error

		switch attr.Name.Local {
		case "updateTime":
			reg.UpdateTime, err = parseRegisterTime(attr.Value)
		case "updateTimeUrgently":
			reg.UpdateTimeUrgently, err = parseRegisterTime(attr.Value)
		case "formatVersion":
			reg.FormatVersion = attr.Value
		}

		if err != nil {
			return fmt.Errorf("%s: %w", attr.Name.Local, err)
		}
	}

	return nil
}

// UnmarshalContent - decode a UTF-8 <content> element.
func UnmarshalContent(b []byte) (*Content, error) {
	var x xmlContent

	if err := xml.Unmarshal(b, &x); err != nil {
		return nil, fmt.Errorf("%w: content: %w", ErrParse, err)
	}

	id, err := strconv.ParseInt(strings.TrimSpace(x.ID), 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: content id: %q", ErrParse, x.ID)
	}

	cont := &Content{
		ID:        id,
		BlockType: x.BlockType,
		Hash:      x.Hash,
		Decision: Decision{
			Date:   x.Decision.Date,
			Number: x.Decision.Number,
			Org:    x.Decision.Org,
		},
	}

	if cont.BlockType == "" {
		cont.BlockType = BlockTypeDefault
	}

	if cont.EntryType, err = optionalInt(x.EntryType); err != nil {
		return nil, fmt.Errorf("%w: content %d: entryType: %q", ErrParse, id, x.EntryType)
	}

	if cont.UrgencyType, err = optionalInt(x.UrgencyType); err != nil {
		return nil, fmt.Errorf("%w: content %d: urgencyType: %q", ErrParse, id, x.UrgencyType)
	}

	if cont.IncludeTime, err = NormalizeDateTime(x.IncludeTime); err != nil {
		return nil, fmt.Errorf("content %d: includeTime: %w", id, err)
	}

	if err := checkDecisionDate(x.Decision.Date); err != nil {
		return nil, fmt.Errorf("content %d: %w", id, err)
	}

	for _, u := range x.URL {
		if v := strings.TrimSpace(u.Value); v != "" {
			cont.URLs = append(cont.URLs, NormalizeURL(v))
		}
	}

	for _, d := range x.Domain {
		if v := strings.TrimSpace(d.Value); v != "" {
			cont.Domains = append(cont.Domains, NormalizeDomain(v))
		}
	}

	for _, group := range [][]xmlValue{x.IP, x.IP6} {
		for _, ip := range group {
			if a, ok := parseAddress(id, ip.Value); ok {
				cont.IPs = append(cont.IPs, a)
			}
		}
	}

	for _, group := range [][]xmlValue{x.Subnet, x.Subnet6} {
		for _, s := range group {
			if a, ok := parseSubnet(id, s.Value); ok {
				cont.IPs = append(cont.IPs, a)
			}
		}
	}

	return cont, nil
}

func optionalInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	return strconv.Atoi(s)
}

func parseAddress(id int64, s string) (Address, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		logger.Warning.Printf("Content %d: bad address: %q\n", id, s)

		return Address{}, false
	}

	addr = addr.Unmap()

	return Address{IP: addr.String(), Mask: addr.BitLen(), Version: addrVersion(addr)}, true
}

func parseSubnet(id int64, s string) (Address, bool) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		logger.Warning.Printf("Content %d: bad subnet: %q\n", id, s)

		return Address{}, false
	}

	return Address{IP: prefix.Addr().String(), Mask: prefix.Bits(), Version: addrVersion(prefix.Addr())}, true
}

func addrVersion(addr netip.Addr) int {
	if addr.Is4() {
		return 4
	}

	return 6
}

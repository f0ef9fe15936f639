package check

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// message - protobuf wire format by hand, field numbers are the msg.proto ones.
type message interface {
	marshal(b []byte) []byte
	unmarshal(b []byte) error
}

// IDRequest - content id.
type IDRequest struct {
	Query int64
}

// IP4Request - IPv4 as uint32.
type IP4Request struct {
	Query uint32
}

// IP6Request - IPv6 as 16 bytes.
type IP6Request struct {
	Query []byte
}

// URLRequest - URL.
type URLRequest struct {
	Query string
}

// DomainRequest - domain.
type DomainRequest struct {
	Query string
}

// DecisionRequest - decision number.
type DecisionRequest struct {
	Query string
}

// PingRequest - ping.
type PingRequest struct {
	Ping string
}

// PongResponse - pong.
type PongResponse struct {
	Pong               string
	Error              string
	RegistryUpdateTime int64
}

// Content - one found record.
type Content struct {
	ID                 int64
	BlockType          int32
	RegistryUpdateTime int64
	IP4                uint32
	IP6                []byte
	Domain             string
	URL                string
	Aggr               string
	Pack               []byte
}

// SearchResponse - found records.
type SearchResponse struct {
	Error              string
	RegistryUpdateTime int64
	Results            []*Content
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, v)
}

// fieldFunc - consume a known field value, ok is false for fields to skip.
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (n int, ok bool)

func decode(b []byte, field fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("tag: %w", protowire.ParseError(n))
		}

		b = b[n:]

		n, ok := field(num, typ, b)
		if !ok {
			n = protowire.ConsumeFieldValue(num, typ, b)
		}

		if n < 0 {
			return fmt.Errorf("field %d: %w", num, protowire.ParseError(n))
		}

		b = b[n:]
	}

	return nil
}

func varint(typ protowire.Type, b []byte, set func(uint64)) (int, bool) {
	if typ != protowire.VarintType {
		return 0, false
	}

	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		set(v)
	}

	return n, true
}

func bytesField(typ protowire.Type, b []byte, set func([]byte)) (int, bool) {
	if typ != protowire.BytesType {
		return 0, false
	}

	v, n := protowire.ConsumeBytes(b)
	if n >= 0 {
		set(v)
	}

	return n, true
}

func (m *IDRequest) marshal(b []byte) []byte {
	return appendVarint(b, 1, uint64(m.Query))
}

func (m *IDRequest) unmarshal(b []byte) error {
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			return varint(typ, b, func(v uint64) { m.Query = int64(v) })
		}

		return 0, false
	})
}

func (m *IP4Request) marshal(b []byte) []byte {
	return appendVarint(b, 1, uint64(m.Query))
}

func (m *IP4Request) unmarshal(b []byte) error {
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			return varint(typ, b, func(v uint64) { m.Query = uint32(v) })
		}

		return 0, false
	})
}

func (m *IP6Request) marshal(b []byte) []byte {
	return appendBytes(b, 1, m.Query)
}

func (m *IP6Request) unmarshal(b []byte) error {
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			return bytesField(typ, b, func(v []byte) { m.Query = append([]byte(nil), v...) })
		}

		return 0, false
	})
}

func stringQuery(dst *string) fieldFunc {
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		if num == 1 {
			return bytesField(typ, b, func(v []byte) { *dst = string(v) })
		}

		return 0, false
	}
}

func (m *URLRequest) marshal(b []byte) []byte       { return appendString(b, 1, m.Query) }
func (m *URLRequest) unmarshal(b []byte) error      { return decode(b, stringQuery(&m.Query)) }
func (m *DomainRequest) marshal(b []byte) []byte    { return appendString(b, 1, m.Query) }
func (m *DomainRequest) unmarshal(b []byte) error   { return decode(b, stringQuery(&m.Query)) }
func (m *DecisionRequest) marshal(b []byte) []byte  { return appendString(b, 1, m.Query) }
func (m *DecisionRequest) unmarshal(b []byte) error { return decode(b, stringQuery(&m.Query)) }
func (m *PingRequest) marshal(b []byte) []byte      { return appendString(b, 1, m.Ping) }
func (m *PingRequest) unmarshal(b []byte) error     { return decode(b, stringQuery(&m.Ping)) }

func (m *PongResponse) marshal(b []byte) []byte {
	b = appendString(b, 1, m.Pong)
	b = appendString(b, 2, m.Error)

	return appendVarint(b, 3, uint64(m.RegistryUpdateTime))
}

func (m *PongResponse) unmarshal(b []byte) error {
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return bytesField(typ, b, func(v []byte) { m.Pong = string(v) })
		case 2:
			return bytesField(typ, b, func(v []byte) { m.Error = string(v) })
		case 3:
			return varint(typ, b, func(v uint64) { m.RegistryUpdateTime = int64(v) })
		}

		return 0, false
	})
}

func (m *Content) marshal(b []byte) []byte {
	b = appendVarint(b, 1, uint64(m.ID))
	b = appendVarint(b, 2, uint64(m.BlockType))
	b = appendVarint(b, 3, uint64(m.RegistryUpdateTime))
	b = appendVarint(b, 4, uint64(m.IP4))
	b = appendBytes(b, 5, m.IP6)
	b = appendString(b, 6, m.Domain)
	b = appendString(b, 7, m.URL)
	b = appendString(b, 8, m.Aggr)

	return appendBytes(b, 9, m.Pack)
}

func (m *Content) unmarshal(b []byte) error {
	return decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return varint(typ, b, func(v uint64) { m.ID = int64(v) })
		case 2:
			return varint(typ, b, func(v uint64) { m.BlockType = int32(v) })
		case 3:
			return varint(typ, b, func(v uint64) { m.RegistryUpdateTime = int64(v) })
		case 4:
			return varint(typ, b, func(v uint64) { m.IP4 = uint32(v) })
		case 5:
			return bytesField(typ, b, func(v []byte) { m.IP6 = append([]byte(nil), v...) })
		case 6:
			return bytesField(typ, b, func(v []byte) { m.Domain = string(v) })
		case 7:
			return bytesField(typ, b, func(v []byte) { m.URL = string(v) })
		case 8:
			return bytesField(typ, b, func(v []byte) { m.Aggr = string(v) })
		case 9:
			return bytesField(typ, b, func(v []byte) { m.Pack = append([]byte(nil), v...) })
		}

		return 0, false
	})
}

func (m *SearchResponse) marshal(b []byte) []byte {
	b = appendString(b, 1, m.Error)
	b = appendVarint(b, 2, uint64(m.RegistryUpdateTime))

	for _, c := range m.Results {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, c.marshal(nil))
	}

	return b
}

func (m *SearchResponse) unmarshal(b []byte) error {
	var err error

	derr := decode(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, bool) {
		switch num {
		case 1:
			return bytesField(typ, b, func(v []byte) { m.Error = string(v) })
		case 2:
			return varint(typ, b, func(v uint64) { m.RegistryUpdateTime = int64(v) })
		case 3:
			return bytesField(typ, b, func(v []byte) {
				c := new(Content)
				if cerr := c.unmarshal(v); cerr != nil && err == nil {
					err = cerr
				}

				m.Results = append(m.Results, c)
			})
		}

		return 0, false
	})
	if derr != nil {
		return derr
	}

	return err
}

// Codec - gRPC codec for the check messages, content type stays "proto".
type Codec struct{}

// Marshal - encode a check message.
func (Codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(message)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, v)
	}

	return m.marshal(nil), nil
}

// Unmarshal - decode a check message.
func (Codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(message)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownMessage, v)
	}

	return m.unmarshal(data)
}

// Name - codec name.
func (Codec) Name() string {
	return "proto"
}

package dump

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"golang.org/x/text/encoding/charmap"

	"github.com/usher2/u2dumpsync/internal/logger"
)

func init() {
	logger.LogInit(io.Discard, io.Discard, os.Stderr, os.Stderr)
}

const registerHead = `<?xml version="1.0" encoding="%s"?>
<reg:register xmlns:reg="http://rsoc.ru" xmlns:tns="http://rsoc.ru" updateTime="%s" updateTimeUrgently="%s" formatVersion="2.4">
`

const registerTail = `</reg:register>`

const (
	content111 = `<content id="111" includeTime="2001-01-01T01:01:01" entryType="1" blockType="default" hash="XXXX">
        <decision date="2000-01-01" number="1/1/11-1111" org="Роскомнадзор"/>
        <url><![CDATA[https://www.e01.tld/sex#top]]></url>
        <url><![CDATA[http://www.e01.tld/cheese]]></url>
        <domain><![CDATA[www.e01.tld]]></domain>
        <ip>192.168.1.11</ip>
        <ipv6>fd11:1::1</ipv6>
</content>`
	content222 = `<content id="222" includeTime="2001-01-01T02:02:02" entryType="1" blockType="domain" hash="YYYY">
        <decision date="2000-01-02" number="2/2/22-2222" org="TWO"/>
        <domain><![CDATA[Пример.рф]]></domain>
        <ip>192.168.2.22</ip>
</content>`
	content333 = `<content id="333" includeTime="2001-01-01T03:03:03" entryType="1" urgencyType="1" blockType="ip" hash="ZZZZ">
        <decision date="2001-01-03" number="3/3/33-3333" org="THREE"/>
        <ip>192.168.3.33</ip>
        <ipSubnet>10.4.0.0/16</ipSubnet>
        <ipv6Subnet>fd44:4::/32</ipv6Subnet>
</content>`
	content333v2 = `<content id="333" includeTime="2001-01-01T03:03:03" entryType="1" urgencyType="1" blockType="ip" hash="ZZZ2">
        <decision date="2001-01-03" number="3/3/33-3333" org="THREE"/>
        <ip>192.168.3.34</ip>
</content>`
	content444 = `<content id="444" includeTime="2001-01-01T04:04:04" entryType="2">
        <decision date="2001-01-04" number="4/4/44-4444" org="FOUR"/>
        <url><![CDATA[http:\\Example,com/path]]></url>
</content>`
)

const (
	updateTime1         = "2011-01-01T01:01:01+03:00" // 1293832861
	updateTimeUrgently1 = "2010-02-02T02:02:01+03:00" // 1265065321
	updateTime2         = "2013-03-03T03:03:03+03:00" // 1362268983
	updateTimeUrgently2 = "2012-04-04T04:04:04+03:00" // 1333501444
)

// buildRegister - UTF-8 register document with the given declared encoding.
func buildRegister(encoding, updateTime, updateTimeUrgently string, contents ...string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, registerHead, encoding, updateTime, updateTimeUrgently)

	for _, c := range contents {
		sb.WriteString("\n")
		sb.WriteString(c)
		sb.WriteString("\n")
	}

	sb.WriteString(registerTail)

	return sb.String()
}

// cp1251Register - the same document as it comes from the registry.
func cp1251Register(t *testing.T, updateTime, updateTimeUrgently string, contents ...string) []byte {
	t.Helper()

	doc := buildRegister("windows-1251", updateTime, updateTimeUrgently, contents...)

	b, err := charmap.Windows1251.NewEncoder().Bytes([]byte(doc))
	if err != nil {
		t.Fatalf("encode windows-1251: %s", err)
	}

	return b
}

type member struct {
	name string
	data []byte
}

func buildZip(t *testing.T, members ...member) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, m := range members {
		w, err := zw.Create(m.name)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := w.Write(m.data); err != nil {
			t.Fatal(err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

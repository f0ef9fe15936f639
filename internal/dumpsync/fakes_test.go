package dumpsync

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/registry"
	"github.com/usher2/u2dumpsync/internal/store"
)

func init() {
	logger.LogInit(io.Discard, io.Discard, io.Discard, os.Stderr)
}

type answer struct {
	res *registry.Result
	err error
}

type fakeRemote struct {
	mu sync.Mutex

	info    *registry.DumpInfo
	infoErr error

	sendErr   error
	code      string
	sendCalls int
	request   []byte
	signature []byte
	version   string

	// the last answer repeats
	answers     []answer
	resultCalls int
}

func (f *fakeRemote) GetLastDumpDateEx(ctx context.Context) (*registry.DumpInfo, error) {
	if f.infoErr != nil {
		return nil, f.infoErr
	}

	info := *f.info

	return &info, nil
}

func (f *fakeRemote) SendRequest(ctx context.Context, request, signature []byte, version string) (*registry.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sendCalls++
	f.request, f.signature, f.version = request, signature, version

	if f.sendErr != nil {
		return nil, f.sendErr
	}

	return &registry.SendResult{Result: true, Code: f.code}, nil
}

func (f *fakeRemote) GetResult(ctx context.Context, code string) (*registry.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	i := min(f.resultCalls, len(f.answers)-1)
	f.resultCalls++

	return f.answers[i].res, f.answers[i].err
}

func inProgress() answer {
	return answer{res: &registry.Result{ResultCode: registry.ResultInProgress, Comment: "processing"}}
}

func ready(archive []byte) answer {
	return answer{res: &registry.Result{Result: true, ResultCode: registry.ResultReady, Archive: archive, DumpFormatVersion: "2.4"}}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_fk=1", name)

	s, err := store.Open(context.Background(), store.KindSQLite, dsn)
	if err != nil {
		t.Fatalf("open store: %s", err)
	}

	t.Cleanup(func() { _ = s.Close() })

	return s
}

func testOptions(t *testing.T) Options {
	t.Helper()

	dir := t.TempDir()
	request := filepath.Join(dir, "request.xml")
	signature := filepath.Join(dir, "request.xml.sign")

	if err := os.WriteFile(request, []byte("<request/>"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(signature, []byte{0x30, 0x82, 0x01}, 0o600); err != nil {
		t.Fatal(err)
	}

	return Options{
		Normal:        true,
		Urgent:        true,
		RequestFile:   request,
		SignatureFile: signature,
		FormatVersion: "2.4",
		PollInterval:  time.Millisecond,
		PollTimeout:   5 * time.Second,
		PollRetries:   2,
		CacheDir:      filepath.Join(dir, "res"),
	}
}

func setParams(t *testing.T, s *store.Store, kv ...string) {
	t.Helper()

	for i := 0; i+1 < len(kv); i += 2 {
		if err := s.Set(context.Background(), kv[i], kv[i+1]); err != nil {
			t.Fatal(err)
		}
	}
}

func param(t *testing.T, s *store.Store, name string) string {
	t.Helper()

	v, err := s.Get(context.Background(), name)
	if err != nil {
		t.Fatal(err)
	}

	return v
}

const testDump = `<?xml version="1.0" encoding="utf-8"?>
<reg:register xmlns:reg="http://rsoc.ru" updateTime="%s" updateTimeUrgently="" formatVersion="2.4">
<content id="111" includeTime="2001-01-01T01:01:01" entryType="1" hash="XXXX">
        <decision date="2000-01-01" number="1/1/11-1111" org="ONE"/>
        <url><![CDATA[http://www.e01.tld/cheese]]></url>
        <domain><![CDATA[www.e01.tld]]></domain>
        <ip>192.168.1.11</ip>
</content>
<content id="222" includeTime="2001-01-01T02:02:02" entryType="1" blockType="domain" hash="YYYY">
        <decision date="2000-01-02" number="2/2/22-2222" org="TWO"/>
        <domain><![CDATA[www.e02.tld]]></domain>
</content>
</reg:register>`

func testArchive(t *testing.T, updateTime string) []byte {
	t.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for name, data := range map[string][]byte{
		"dump.xml":     []byte(fmt.Sprintf(testDump, updateTime)),
		"dump.xml.sig": {0x30, 0x82},
	} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	return buf.Bytes()
}

type observed struct {
	res Result
	err error
}

type fakeObserver struct {
	cycles []observed
}

func (o *fakeObserver) ObserveCycle(res Result, err error, _ time.Duration) {
	o.cycles = append(o.cycles, observed{res: res, err: err})
}

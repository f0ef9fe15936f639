package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/usher2/u2dumpsync/internal/config"
	"github.com/usher2/u2dumpsync/internal/logger"
	"github.com/usher2/u2dumpsync/internal/registry"
)

func init() {
	logger.LogInit(io.Discard, io.Discard, os.Stderr, os.Stderr)
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return out.String(), err
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	out, err := execute("init", "--config", path)
	if err != nil {
		t.Fatalf("init: %s", err)
	}

	if !strings.Contains(out, path) {
		t.Errorf("unexpected output: %q", out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load written config: %s", err)
	}

	if cfg.Registry.URL != config.Default().Registry.URL {
		t.Errorf("registry url = %q", cfg.Registry.URL)
	}

	if _, err := execute("init", "--config", path); err == nil {
		t.Error("expected error when config exists")
	}
}

func TestSyncMissingConfig(t *testing.T) {
	_, err := execute("sync", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestUnknownLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if _, err := execute("init", "--config", path); err != nil {
		t.Fatalf("init: %s", err)
	}

	if _, err := execute("sync", "--config", path, "--log-level", "loud"); err == nil {
		t.Fatal("expected error for an unknown log level")
	}
}

func soapServer(t *testing.T, answers map[string]string) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := strings.TrimPrefix(strings.Trim(r.Header.Get("SOAPAction"), `"`), registry.Namespace)

		fields, ok := answers[op]
		if !ok {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		w.Header().Set("Content-Type", "text/xml")
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>`+
			`<SOAP-ENV:Envelope xmlns:SOAP-ENV="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ns1="`+registry.Namespace+`">`+
			`<SOAP-ENV:Body><ns1:`+op+`Response>`+fields+`</ns1:`+op+`Response></SOAP-ENV:Body></SOAP-ENV:Envelope>`)
	}))

	t.Cleanup(srv.Close)

	return srv.URL
}

func TestVersionsCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if _, err := execute("init", "--config", path); err != nil {
		t.Fatalf("init: %s", err)
	}

	url := soapServer(t, map[string]string{
		"getLastDumpDateEx": "<lastDumpDate>1325462400000</lastDumpDate>" +
			"<lastDumpDateUrgently>1325376000000</lastDumpDateUrgently>" +
			"<webServiceVersion>3</webServiceVersion>" +
			"<dumpFormatVersion>2.4</dumpFormatVersion>" +
			"<docVersion>4</docVersion>",
		"getLastDumpDate": "<lastDumpDate>1325462400000</lastDumpDate>",
	})

	t.Setenv("U2DS_REGISTRY_URL", url)
	t.Setenv("U2DS_DATABASE_PATH", filepath.Join(dir, "blacklist.db"))

	out, err := execute("versions", "--config", path)
	if err != nil {
		t.Fatalf("versions: %s", err)
	}

	if out != "Versions not changed\nLast dump date: 2012-01-02 00:00:00\n" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestDumpPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan struct{})

	go func() {
		defer close(done)

		dumpPoll(ctx, time.Millisecond, func(context.Context) {
			calls++
			if calls == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poll loop did not stop")
	}

	if calls != 3 {
		t.Errorf("refresh calls = %d, want 3", calls)
	}
}

func TestDumpPollCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0

	dumpPoll(ctx, time.Hour, func(context.Context) { calls++ })

	if calls != 1 {
		t.Errorf("refresh calls = %d, want 1", calls)
	}
}

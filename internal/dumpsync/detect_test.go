package dumpsync

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/usher2/u2dumpsync/internal/registry"
	"github.com/usher2/u2dumpsync/internal/store"
)

func TestHasNewDumpModes(t *testing.T) {
	tests := []struct {
		name           string
		normal, urgent bool
		remoteNormal   int64 // ms
		remoteUrgent   int64 // ms
		expected       bool
	}{
		{"normal only unchanged", true, false, 100_000, 999_000, false},
		{"normal only changed", true, false, 101_000, 200_000, true},
		{"urgent only unchanged", false, true, 555_000, 200_000, false},
		{"urgent only changed", false, true, 100_000, 201_000, true},
		{"both unchanged", true, true, 100_000, 200_000, false},
		{"both changed", true, true, 300_000, 200_000, true},
		{"both max unchanged", true, true, 150_000, 200_000, false},
		{"neither unchanged", false, false, 100_000, 200_000, false},
		{"neither changed", false, false, 100_000, 250_000, true},
		{"milliseconds are truncated", true, false, 100_999, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			st := newTestStore(t)
			setParams(t, st,
				store.ParamLastDumpDate, "100",
				store.ParamLastDumpDateUrgently, "200",
				store.ParamLastAction, "sendRequest",
				store.ParamLastResult, "Ok",
			)

			opts := testOptions(t)
			opts.Normal, opts.Urgent = tt.normal, tt.urgent

			remote := &fakeRemote{info: &registry.DumpInfo{
				LastDumpDate:         tt.remoteNormal,
				LastDumpDateUrgently: tt.remoteUrgent,
			}}

			changed, err := New(st, remote, opts).HasNewDump(ctx)
			if err != nil {
				t.Fatal(err)
			}

			if changed != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, changed)
			}

			if v := param(t, st, store.ParamLastAction); v != "getLastDumpDate" {
				t.Errorf("lastAction: %q", v)
			}

			want := "lastDump"
			if tt.expected {
				want = "NewDump"
			}

			if v := param(t, st, store.ParamLastResult); v != want {
				t.Errorf("lastResult: expected %q, got %q", want, v)
			}
		})
	}
}

func TestHasNewDumpAfterError(t *testing.T) {
	st := newTestStore(t)
	setParams(t, st, store.ParamLastResult, "Error")

	remote := &fakeRemote{info: &registry.DumpInfo{
		LastDumpDate:         1325376000000,
		LastDumpDateUrgently: 1325376000000,
	}}

	changed, err := New(st, remote, testOptions(t)).HasNewDump(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if !changed {
		t.Error("a failed cycle must force a new dump")
	}

	if v := param(t, st, store.ParamLastResult); v != "NewDump" {
		t.Errorf("lastResult: %q", v)
	}
}

func TestHasNewDumpFirstSync(t *testing.T) {
	st := newTestStore(t)

	remote := &fakeRemote{info: &registry.DumpInfo{
		LastDumpDate:         1325462400000,
		LastDumpDateUrgently: 1325376000000,
	}}

	for _, mode := range []struct{ normal, urgent bool }{{true, false}, {true, true}} {
		opts := testOptions(t)
		opts.Normal, opts.Urgent = mode.normal, mode.urgent

		changed, err := New(st, remote, opts).HasNewDump(context.Background())
		if err != nil {
			t.Fatal(err)
		}

		if !changed {
			t.Errorf("normal=%v urgent=%v: expected a new dump", mode.normal, mode.urgent)
		}

		if v := param(t, st, store.ParamLastAction); v != "getLastDumpDate" {
			t.Errorf("lastAction: %q", v)
		}

		if v := param(t, st, store.ParamLastResult); v != "NewDump" {
			t.Errorf("lastResult: %q", v)
		}
	}
}

func TestHasNewDumpRemoteError(t *testing.T) {
	st := newTestStore(t)
	setParams(t, st, store.ParamLastAction, "sendRequest", store.ParamLastResult, "Ok")

	failure := errors.New("connection refused")
	remote := &fakeRemote{infoErr: failure}

	changed, err := New(st, remote, testOptions(t)).HasNewDump(context.Background())
	if err != failure {
		t.Fatalf("expected the remote error as is, got %v", err)
	}

	if changed {
		t.Error("expected false on error")
	}

	if v := param(t, st, store.ParamLastAction); v != "sendRequest" {
		t.Errorf("lastAction written: %q", v)
	}

	if v := param(t, st, store.ParamLastResult); v != "Ok" {
		t.Errorf("lastResult written: %q", v)
	}
}

func TestHasNewDumpBrokenParam(t *testing.T) {
	st := newTestStore(t)
	setParams(t, st, store.ParamLastDumpDateUrgently, "yesterday")

	changed, err := New(st, &fakeRemote{info: syncInfo()}, testOptions(t)).HasNewDump(context.Background())
	if err == nil || !strings.Contains(err.Error(), "parameter lastDumpDateUrgently") {
		t.Fatalf("expected parameter error, got %v", err)
	}

	if changed {
		t.Error("expected false on error")
	}
}

func TestCheckServiceVersions(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	remote := &fakeRemote{info: &registry.DumpInfo{
		WebServiceVersion: "3",
		DumpFormatVersion: "2.5",
		DocVersion:        "5",
	}}

	msg, err := New(st, remote, testOptions(t)).CheckServiceVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}

	expected := "Current dumpFormatVersion: 2.4\nNew dumpFormatVersion: 2.5\n\n" +
		"Current docVersion: 4\nNew docVersion: 5\n\n"
	if msg != expected {
		t.Errorf("unexpected message:\n%q\nwant\n%q", msg, expected)
	}

	if v := param(t, st, store.ParamDumpFormatVersion); v != "2.5" {
		t.Errorf("dumpFormatVersion: %q", v)
	}

	if v := param(t, st, store.ParamDocVersion); v != "5" {
		t.Errorf("docVersion: %q", v)
	}

	msg, err = New(st, remote, testOptions(t)).CheckServiceVersions(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if msg != "" {
		t.Errorf("expected empty message, got %q", msg)
	}
}

// Package dumpsync drives one registry synchronization cycle: version check,
// change detection, dump request and polling, parsing and reconciliation.
package dumpsync

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/usher2/u2dumpsync/internal/dump"
	"github.com/usher2/u2dumpsync/internal/registry"
	"github.com/usher2/u2dumpsync/internal/store"
)

// ErrPollTimeout - the dump was not ready in time.
var ErrPollTimeout = fmt.Errorf("%w: poll timeout", registry.ErrTransport)

// Parameter values written by the cycle.
const (
	actionGetLastDumpDate = "getLastDumpDate"
	actionSendRequest     = "sendRequest"
	actionGetResult       = "getResult"

	resultNewDump  = "NewDump"
	resultLastDump = "lastDump"
	resultOk       = "Ok"
	resultError    = "Error"
)

// ParamStore - named dump state parameters.
type ParamStore interface {
	Get(ctx context.Context, name string) (string, error)
	GetInt(ctx context.Context, name string) (int64, error)
	Set(ctx context.Context, name, value string) error
}

// HistoryWriter - journal of sync attempts.
type HistoryWriter interface {
	AddHistory(ctx context.Context, code string, dump, resolver bool, at time.Time) error
}

// Remote - registry web service.
type Remote interface {
	GetLastDumpDateEx(ctx context.Context) (*registry.DumpInfo, error)
	SendRequest(ctx context.Context, request, signature []byte, version string) (*registry.SendResult, error)
	GetResult(ctx context.Context, code string) (*registry.Result, error)
}

// Observer - gets the outcome of every cycle.
type Observer interface {
	ObserveCycle(res Result, err error, elapsed time.Duration)
}

// Hook - runs after a committed cycle.
type Hook func(ctx context.Context) error

// Options - cycle settings.
type Options struct {
	Normal        bool
	Urgent        bool
	RequestFile   string
	SignatureFile string
	FormatVersion string
	PollInterval  time.Duration
	PollTimeout   time.Duration
	PollRetries   int
	CacheDir      string
}

// Result - what a cycle did. State is Committed, NoChange or Error.
type Result struct {
	State          State
	NewDump        bool
	VersionMessage string
	Code           string
	Epoch          int64
	Stats          dump.Stats
}

type namedHook struct {
	name string
	fn   Hook
}

// Syncer - runs cycles against one store. Not safe for concurrent use,
// overlapping cycles are prevented with RunLocked.
type Syncer struct {
	params  ParamStore
	history HistoryWriter
	db      *gorm.DB
	remote  Remote
	opts    Options

	observer Observer
	hooks    []namedHook
	now      func() time.Time

	state State
	info  *registry.DumpInfo
	// remote timestamp picked by the change detector, seconds
	selected int64
}

// New - syncer over the store.
func New(st *store.Store, remote Remote, opts Options) *Syncer {
	return &Syncer{
		params:  st,
		history: st,
		db:      st.DB(),
		remote:  remote,
		opts:    opts,
		now:     time.Now,
		state:   StateIdle,
	}
}

// SetObserver - cycle outcome receiver.
func (s *Syncer) SetObserver(o Observer) {
	s.observer = o
}

// AddHook - run fn after each committed cycle.
func (s *Syncer) AddHook(name string, fn Hook) {
	s.hooks = append(s.hooks, namedHook{name: name, fn: fn})
}

// State - current state.
func (s *Syncer) State() State {
	return s.state
}

package syncer

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/integrity"
	"github.com/bft-labs/fimsync/internal/protocol"
	"github.com/bft-labs/fimsync/internal/store"
	"github.com/bft-labs/fimsync/pkg/log/logtest"
)

var epoch = time.Unix(1_700_000_000, 0)

type recordingSender struct {
	mu   sync.Mutex
	msgs []string
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func (s *recordingSender) messages(t *testing.T) []decoded {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]decoded, 0, len(s.msgs))
	for _, m := range s.msgs {
		var d decoded
		require.NoError(t, json.Unmarshal([]byte(m), &d))
		out = append(out, d)
	}
	return out
}

type decoded struct {
	Component string               `json:"component"`
	Type      protocol.MessageType `json:"type"`
	Data      struct {
		ID       int64   `json:"id"`
		Begin    string  `json:"begin"`
		End      string  `json:"end"`
		Tail     *string `json:"tail"`
		Checksum string  `json:"checksum"`
		Path     string  `json:"path"`
	} `json:"data"`
}

func sha1Hex(parts ...string) string {
	h := sha1.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func newStore(paths ...string) *store.Store {
	s := store.New()
	for _, p := range paths {
		s.Put(domain.Entry{Path: p, Attributes: domain.Attributes{Checksum: "sum-" + p}})
	}
	return s
}

type fixture struct {
	engine     *integrity.Engine
	sender     *recordingSender
	clock      clockwork.FakeClock
	logs       *logtest.Recorder
	dispatcher *Dispatcher
}

func newFixture(paths ...string) *fixture {
	f := &fixture{
		engine: integrity.NewEngine(newStore(paths...), nil),
		sender: &recordingSender{},
		clock:  clockwork.NewFakeClockAt(epoch),
		logs:   logtest.New(),
	}
	f.dispatcher = NewDispatcher(f.engine, f.sender, protocol.NewEncoder(""), f.clock, f.logs)
	return f
}

func TestDispatch_LowersCurrentID(t *testing.T) {
	f := newFixture("a", "b")
	s := &Session{CurrentID: 100}

	err := f.dispatcher.Dispatch(context.Background(), s, `checksum_fail {"id":90,"begin":"a","end":"b"}`)
	require.NoError(t, err)
	require.Equal(t, int64(90), s.CurrentID)
	require.Equal(t, epoch, s.LastMessageTime)
	require.True(t, f.logs.Contains("info", "lowered sync id"))

	msgs := f.sender.messages(t)
	require.Len(t, msgs, 2)
	require.Equal(t, int64(90), msgs[0].Data.ID)
}

// Newer ids are dropped; the original code compared the same condition
// twice and never reached this branch.
func TestDispatch_DropsNewerID(t *testing.T) {
	f := newFixture("a", "b")
	s := &Session{CurrentID: 100}

	err := f.dispatcher.Dispatch(context.Background(), s, `checksum_fail {"id":110,"begin":"a","end":"b"}`)
	require.ErrorIs(t, err, domain.ErrStaleMessage)
	require.Equal(t, int64(100), s.CurrentID)
	require.Equal(t, epoch, s.LastMessageTime)
	require.Empty(t, f.sender.messages(t))
}

func TestDispatch_MalformedChangesNothing(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"no payload", "checksum_fail", domain.ErrNoArgument},
		{"not json", "checksum_fail {id:5}", domain.ErrInvalidArgument},
		{"missing begin", `checksum_fail {"id":5,"end":"d"}`, domain.ErrInvalidArgument},
		{"missing end", `no_data {"id":5,"begin":"a"}`, domain.ErrInvalidArgument},
		{"string id", `checksum_fail {"id":"5","begin":"a","end":"d"}`, domain.ErrInvalidArgument},
		{"missing id", `checksum_fail {"begin":"a","end":"d"}`, domain.ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture("a", "b", "c", "d")
			s := &Session{CurrentID: 5}

			err := f.dispatcher.Dispatch(context.Background(), s, tt.raw)
			require.ErrorIs(t, err, tt.want)
			require.True(t, isMalformed(err))
			require.Equal(t, Session{CurrentID: 5}, *s)
			require.Empty(t, f.sender.messages(t))
		})
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	f := newFixture("a")
	s := &Session{CurrentID: 5}

	err := f.dispatcher.Dispatch(context.Background(), s, `resend {"id":5,"begin":"a","end":"a"}`)
	require.ErrorIs(t, err, domain.ErrUnknownCommand)
	require.Empty(t, f.sender.messages(t))
}

func TestDispatch_ChecksumFailConverges(t *testing.T) {
	f := newFixture("a", "b", "c", "d")
	s := &Session{CurrentID: 5}
	ctx := context.Background()

	require.NoError(t, f.dispatcher.Dispatch(ctx, s, `checksum_fail {"id":5,"begin":"a","end":"d"}`))
	msgs := f.sender.messages(t)
	require.Len(t, msgs, 2)

	left, right := msgs[0], msgs[1]
	require.Equal(t, protocol.TypeLeft, left.Type)
	require.Equal(t, "syscheck", left.Component)
	require.Equal(t, int64(5), left.Data.ID)
	require.Equal(t, "a", left.Data.Begin)
	require.Equal(t, "b", left.Data.End)
	require.NotNil(t, left.Data.Tail)
	require.Equal(t, "c", *left.Data.Tail)
	require.Equal(t, sha1Hex("sum-a", "sum-b"), left.Data.Checksum)

	require.Equal(t, protocol.TypeRight, right.Type)
	require.Equal(t, int64(5), right.Data.ID)
	require.Equal(t, "c", right.Data.Begin)
	require.Equal(t, "d", right.Data.End)
	require.NotNil(t, right.Data.Tail)
	require.Empty(t, *right.Data.Tail)
	require.Equal(t, sha1Hex("sum-c", "sum-d"), right.Data.Checksum)

	// Two entries still split into digests.
	require.NoError(t, f.dispatcher.Dispatch(ctx, s, `checksum_fail {"id":5,"begin":"a","end":"b"}`))
	msgs = f.sender.messages(t)[2:]
	require.Len(t, msgs, 2)
	require.Equal(t, protocol.TypeLeft, msgs[0].Type)
	require.Equal(t, "a", msgs[0].Data.Begin)
	require.Equal(t, "a", msgs[0].Data.End)
	require.Equal(t, protocol.TypeRight, msgs[1].Type)
	require.Equal(t, "b", msgs[1].Data.Begin)

	// A single entry is sent in full.
	require.NoError(t, f.dispatcher.Dispatch(ctx, s, `checksum_fail {"id":5,"begin":"a","end":"a"}`))
	msgs = f.sender.messages(t)[4:]
	require.Len(t, msgs, 1)
	require.Equal(t, protocol.TypeState, msgs[0].Type)
	require.Equal(t, "a", msgs[0].Data.Path)
}

func TestDispatch_ChecksumFailEmptyRange(t *testing.T) {
	f := newFixture("a", "b")
	s := &Session{CurrentID: 5}

	require.NoError(t, f.dispatcher.Dispatch(context.Background(), s, `checksum_fail {"id":5,"begin":"x","end":"z"}`))
	require.Empty(t, f.sender.messages(t))
}

func TestDispatch_NoDataResendsRange(t *testing.T) {
	f := newFixture("a", "b", "c", "d")
	s := &Session{CurrentID: 5}

	require.NoError(t, f.dispatcher.Dispatch(context.Background(), s, `no_data {"id":5,"begin":"a","end":"c"}`))
	msgs := f.sender.messages(t)
	require.Len(t, msgs, 3)
	for i, want := range []string{"a", "b", "c"} {
		require.Equal(t, protocol.TypeState, msgs[i].Type)
		require.Equal(t, want, msgs[i].Data.Path)
	}
}

func TestDispatch_SendError(t *testing.T) {
	f := newFixture("a", "b")
	f.sender.err = errors.New("closed")
	s := &Session{CurrentID: 5}

	err := f.dispatcher.Dispatch(context.Background(), s, `checksum_fail {"id":5,"begin":"a","end":"b"}`)
	require.ErrorContains(t, err, "closed")
	require.False(t, isMalformed(err))
}

func TestSession_Deadline(t *testing.T) {
	now := epoch
	s := &Session{}
	require.Equal(t, now.Add(5*time.Minute), s.Deadline(now, 5*time.Minute, 30*time.Second))

	s.LastMessageTime = now.Add(-10 * time.Second)
	require.Equal(t, now.Add(20*time.Second), s.Deadline(now, 5*time.Second, 30*time.Second))
	require.Equal(t, now.Add(time.Minute), s.Deadline(now, time.Minute, 30*time.Second))
}

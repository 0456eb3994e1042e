package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"vidtrack/internal/channel"
	"vidtrack/internal/model"
)

const testURL = "ws://backend.test/ws"

var errLocalClose = errors.New("use of closed connection")

type fakeTransport struct {
	in       chan []byte
	peer     chan error
	closed   chan struct{}
	closeOne sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		in:     make(chan []byte),
		peer:   make(chan error, 1),
		closed: make(chan struct{}),
	}
}

func (t *fakeTransport) ReadMessage() ([]byte, error) {
	select {
	case b := <-t.in:
		return b, nil
	case err := <-t.peer:
		return nil, err
	case <-t.closed:
		return nil, errLocalClose
	}
}

func (t *fakeTransport) Close() error {
	t.closeOne.Do(func() { close(t.closed) })
	return nil
}

func (t *fakeTransport) isClosed() bool {
	select {
	case <-t.closed:
		return true
	default:
		return false
	}
}

// sendRaw hands one payload to the reader and returns once it was read.
func (t *fakeTransport) sendRaw(tb testing.TB, b []byte) {
	tb.Helper()
	select {
	case t.in <- b:
	case <-time.After(2 * time.Second):
		tb.Fatalf("payload %s was never read", b)
	}
}

func (t *fakeTransport) send(tb testing.TB, v any) {
	tb.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		tb.Fatalf("marshal: %v", err)
	}
	t.sendRaw(tb, b)
}

func (t *fakeTransport) update(tb testing.TB, step, status, msg string) {
	tb.Helper()
	t.send(tb, map[string]string{"type": "progress_update", "step": step, "status": status, "message": msg})
}

type fakeDialer struct {
	err   error
	block bool

	mu         sync.Mutex
	transports []*fakeTransport
	dials      atomic.Int32
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (channel.Transport, error) {
	d.dials.Add(1)
	if d.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if d.err != nil {
		return nil, d.err
	}
	t := newFakeTransport()
	d.mu.Lock()
	d.transports = append(d.transports, t)
	d.mu.Unlock()
	return t, nil
}

func (d *fakeDialer) last(tb testing.TB) *fakeTransport {
	tb.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.transports) == 0 {
		tb.Fatal("no transport dialed")
	}
	return d.transports[len(d.transports)-1]
}

type fakeSubmitter struct {
	calls atomic.Int32
	fn    func(ctx context.Context, in model.VideoInput) (string, error)
}

func (s *fakeSubmitter) Submit(ctx context.Context, in model.VideoInput) (string, error) {
	s.calls.Add(1)
	if s.fn == nil {
		return "", nil
	}
	return s.fn(ctx, in)
}

type recorder struct {
	mu    sync.Mutex
	snaps []Snapshot
}

func (r *recorder) Observe(s Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Snapshot, len(r.snaps))
	copy(out, r.snaps)
	return out
}

// progressSteps returns the distinct consecutive aggregate values observed.
func (r *recorder) progressSteps() []float64 {
	var out []float64
	for _, s := range r.all() {
		if len(out) == 0 || out[len(out)-1] != s.AggregateProgress {
			out = append(out, s.AggregateProgress)
		}
	}
	return out
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	eng   *Engine
	dial  *fakeDialer
	sub   *fakeSubmitter
	rec   *recorder
	clock *fakeClock
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		dial:  &fakeDialer{},
		sub:   &fakeSubmitter{},
		rec:   &recorder{},
		clock: newFakeClock(),
	}
	base := []Option{
		WithChannelURL(testURL),
		WithDialer(h.dial),
		WithSubmitter(h.sub),
		WithObserver(h.rec),
		WithClock(h.clock.Now),
		WithRefreshInterval(0),
	}
	h.eng = New(append(base, opts...)...)
	t.Cleanup(h.eng.Reset)
	return h
}

func testInput() model.VideoInput {
	return model.VideoInput{Path: "/tmp/clip.mp4", Name: "clip.mp4", ContentType: "video/mp4", Size: 1024}
}

// waitFor polls the engine snapshot until cond holds.
func waitFor(t *testing.T, e *Engine, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := e.Snapshot()
		if cond(s) {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot %+v", what, s)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

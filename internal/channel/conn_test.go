package channel

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingListener struct {
	mu        sync.Mutex
	messages  []Message
	malformed [][]byte
	states    []State
	stateErrs []error
	events    chan string
}

func newRecordingListener() *recordingListener {
	return &recordingListener{events: make(chan string, 256)}
}

func (r *recordingListener) Message(m Message) {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
	r.push("message")
}

func (r *recordingListener) Malformed(raw []byte, _ error) {
	r.mu.Lock()
	r.malformed = append(r.malformed, raw)
	r.mu.Unlock()
	r.push("malformed")
}

func (r *recordingListener) StateChanged(s State, err error) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.stateErrs = append(r.stateErrs, err)
	r.mu.Unlock()
	r.push("state:" + string(s))
}

func (r *recordingListener) push(ev string) {
	select {
	case r.events <- ev:
	default:
	}
}

func (r *recordingListener) messageCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func waitEvent(t *testing.T, r *recordingListener, want string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev := <-r.events:
			if ev == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func newWSServer(t *testing.T, handler func(ws *websocket.Conn)) string {
	t.Helper()
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()
		handler(ws)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func drain(ws *websocket.Conn) {
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}

type countingDialer struct {
	inner Dialer
	n     atomic.Int32
}

func (d *countingDialer) Dial(ctx context.Context, url string) (Transport, error) {
	d.n.Add(1)
	return d.inner.Dial(ctx, url)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantType MessageType
		wantErr  bool
	}{
		{name: "progress update", in: `{"type":"progress_update","step":"extract_audio","status":"in_progress","message":"Starting","overall_progress":30}`, wantType: TypeProgressUpdate},
		{name: "error", in: `{"type":"error","message":"Processing failed","step":"upload_video","status":"failed"}`, wantType: TypeError},
		{name: "connection status", in: `{"type":"connection_status","status":"connected"}`, wantType: TypeConnectionStatus},
		{name: "unknown type decodes", in: `{"type":"heartbeat"}`, wantType: "heartbeat"},
		{name: "not json", in: `hello`, wantErr: true},
		{name: "array", in: `[1,2]`, wantErr: true},
		{name: "missing type", in: `{"step":"upload_video"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decode() err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Errorf("Decode() err = %v, want ErrMalformed", err)
				}
				return
			}
			if m.Type != tt.wantType {
				t.Errorf("Decode() type = %q, want %q", m.Type, tt.wantType)
			}
		})
	}
}

func TestConn_DeliversInOrderAndSurvivesMalformed(t *testing.T) {
	url := newWSServer(t, func(ws *websocket.Conn) {
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"progress_update","step":"upload_video","status":"in_progress"}`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`not json`))
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"progress_update","step":"upload_video","status":"completed"}`))
		drain(ws)
	})

	rec := newRecordingListener()
	c := NewConn(url, WebSocketDialer{HandshakeTimeout: time.Second}, rec, nil)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer c.Close()

	waitEvent(t, rec, "message")
	waitEvent(t, rec, "malformed")
	waitEvent(t, rec, "message")

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(rec.messages))
	}
	if rec.messages[0].Status != "in_progress" || rec.messages[1].Status != "completed" {
		t.Errorf("messages out of order: %+v", rec.messages)
	}
	if len(rec.malformed) != 1 || string(rec.malformed[0]) != "not json" {
		t.Errorf("malformed = %q", rec.malformed)
	}
	if got := c.State(); got != StateConnected {
		t.Errorf("State() = %q after malformed payload, want connected", got)
	}
	if rec.states[0] != StateConnecting || rec.states[1] != StateConnected {
		t.Errorf("states = %v, want [connecting connected]", rec.states)
	}
}

func TestConn_PeerCloseDisconnects(t *testing.T) {
	url := newWSServer(t, func(ws *websocket.Conn) {
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "backend restarting")
		_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		drain(ws)
	})

	rec := newRecordingListener()
	c := NewConn(url, WebSocketDialer{}, rec, nil)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer c.Close()

	waitEvent(t, rec, "state:disconnected")
	if got := c.State(); got != StateDisconnected {
		t.Errorf("State() = %q, want disconnected", got)
	}
	rec.mu.Lock()
	last := rec.stateErrs[len(rec.stateErrs)-1]
	rec.mu.Unlock()
	var ce *CloseError
	if !errors.As(last, &ce) {
		t.Fatalf("state error = %v, want *CloseError", last)
	}
	if ce.Code != websocket.CloseTryAgainLater || ce.Reason != "backend restarting" {
		t.Errorf("CloseError = %+v", ce)
	}
}

func TestConn_OpenFailsBeforeConnected(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	rec := newRecordingListener()
	c := NewConn("ws"+strings.TrimPrefix(srv.URL, "http"), WebSocketDialer{}, rec, nil)
	err := c.Open(context.Background())
	if err == nil {
		t.Fatal("Open() succeeded against a non-websocket endpoint")
	}
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Errorf("Open() err = %T, want *OpenError", err)
	}
	if got := c.State(); got != StateError {
		t.Errorf("State() = %q, want error", got)
	}
	waitEvent(t, rec, "state:error")
}

func TestConn_OpenIdempotent(t *testing.T) {
	url := newWSServer(t, drain)
	d := &countingDialer{inner: WebSocketDialer{}}
	c := NewConn(url, d, nil, nil)
	defer c.Close()

	for i := 0; i < 3; i++ {
		if err := c.Open(context.Background()); err != nil {
			t.Fatalf("Open() #%d error: %v", i, err)
		}
	}
	if n := d.n.Load(); n != 1 {
		t.Errorf("dial count = %d, want 1", n)
	}
	if c.URL() != url {
		t.Errorf("URL() = %q, want %q", c.URL(), url)
	}
}

func TestConn_CloseStopsDelivery(t *testing.T) {
	url := newWSServer(t, func(ws *websocket.Conn) {
		for {
			err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"connection_status"}`))
			if err != nil {
				return
			}
			time.Sleep(2 * time.Millisecond)
		}
	})

	rec := newRecordingListener()
	c := NewConn(url, WebSocketDialer{}, rec, nil)
	if err := c.Open(context.Background()); err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	waitEvent(t, rec, "message")

	_ = c.Close()
	n := rec.messageCount()
	time.Sleep(30 * time.Millisecond)
	if got := rec.messageCount(); got != n {
		t.Errorf("messages after Close = %d, want %d", got, n)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if err := c.Open(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Open() after Close = %v, want ErrClosed", err)
	}
}

type blockingDialer struct {
	started chan struct{}
}

func (d blockingDialer) Dial(ctx context.Context, _ string) (Transport, error) {
	close(d.started)
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestConn_CloseCancelsPendingOpen(t *testing.T) {
	d := blockingDialer{started: make(chan struct{})}
	c := NewConn("ws://example.invalid/ws/progress/", d, nil, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Open(context.Background()) }()
	<-d.started
	_ = c.Close()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("Open() resolved after Close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Open() hung after Close")
	}
}

// Package channel manages the push-channel connection over which the
// processing backend reports step progress.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"vidtrack/internal/logger"
)

// State is the lifecycle state of a Conn.
type State string

const (
	StateNotConnected State = "not_connected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
	StateError        State = "error"
)

var (
	// ErrClosed is returned by Open after Close.
	ErrClosed = errors.New("channel closed")
	// ErrOpenInProgress is returned when Open is called while another Open
	// is still dialing.
	ErrOpenInProgress = errors.New("channel open already in progress")
)

// CloseError is a close handshake received from the peer.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("channel closed by peer (code %d): %s", e.Code, e.Reason)
}

// OpenError reports a channel that never reached StateConnected.
type OpenError struct {
	URL string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open %s: %v", e.URL, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Transport is an established bidirectional connection. ReadMessage blocks
// until the next payload arrives and returns a *CloseError when the peer
// closes cleanly.
type Transport interface {
	ReadMessage() ([]byte, error)
	Close() error
}

// Dialer establishes Transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// Listener receives connection events. Calls come from a single goroutine
// at a time, in arrival order.
type Listener interface {
	Message(m Message)
	Malformed(raw []byte, err error)
	StateChanged(s State, err error)
}

// Conn is a single push-channel connection with explicit lifecycle.
type Conn struct {
	url      string
	dialer   Dialer
	listener Listener
	logger   *slog.Logger

	mu         sync.Mutex
	state      State
	transport  Transport
	cancelDial context.CancelFunc
	readerDone chan struct{}
	closed     bool

	// deliver is held for the duration of each listener call so Close can
	// wait out an in-flight delivery.
	deliver sync.Mutex
}

// NewConn returns an unopened connection to url.
func NewConn(url string, d Dialer, l Listener, log *slog.Logger) *Conn {
	if log == nil {
		log = logger.Logger()
	}
	return &Conn{
		url:      url,
		dialer:   d,
		listener: l,
		logger:   log.With("component", "channel"),
		state:    StateNotConnected,
	}
}

// URL returns the endpoint this connection dials.
func (c *Conn) URL() string { return c.url }

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open dials the endpoint and returns once the connection is established.
// It returns nil immediately when already connected. An error means the
// connection never reached StateConnected.
func (c *Conn) Open(ctx context.Context) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.state == StateConnected:
		c.mu.Unlock()
		return nil
	case c.state == StateConnecting:
		c.mu.Unlock()
		return ErrOpenInProgress
	}
	dialCtx, cancel := context.WithCancel(ctx)
	c.cancelDial = cancel
	c.state = StateConnecting
	c.mu.Unlock()

	c.emit(func(l Listener) { l.StateChanged(StateConnecting, nil) })
	c.logger.Debug("dialing push channel", "url", c.url)

	tr, err := c.dialer.Dial(dialCtx, c.url)
	cancel()

	c.mu.Lock()
	c.cancelDial = nil
	if c.closed {
		c.mu.Unlock()
		if tr != nil {
			_ = tr.Close()
		}
		return &OpenError{URL: c.url, Err: ErrClosed}
	}
	if err != nil {
		c.state = StateError
		c.mu.Unlock()
		c.logger.Warn("push channel dial failed", "url", c.url, "error", err)
		c.emit(func(l Listener) { l.StateChanged(StateError, err) })
		return &OpenError{URL: c.url, Err: err}
	}
	done := make(chan struct{})
	c.transport = tr
	c.readerDone = done
	c.state = StateConnected
	c.mu.Unlock()

	c.logger.Info("push channel connected", "url", c.url)
	c.emit(func(l Listener) { l.StateChanged(StateConnected, nil) })
	go c.readLoop(tr, done)
	return nil
}

// Close tears the connection down. It is safe to call repeatedly and from
// any state, but not from inside a Listener callback. Once it returns no
// further Listener calls are made.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	cancel, tr, done := c.cancelDial, c.transport, c.readerDone
	c.transport = nil
	if c.state == StateConnected || c.state == StateConnecting {
		c.state = StateDisconnected
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if tr != nil {
		err = tr.Close()
	}
	c.deliver.Lock()
	c.deliver.Unlock() //nolint:staticcheck // barrier for in-flight deliveries
	if done != nil {
		<-done
	}
	c.logger.Debug("push channel closed", "url", c.url)
	return err
}

func (c *Conn) readLoop(tr Transport, done chan struct{}) {
	defer close(done)
	for {
		data, err := tr.ReadMessage()
		if err != nil {
			c.readFailed(tr, err)
			return
		}
		msg, err := Decode(data)
		if err != nil {
			c.logger.Debug("malformed push message", "error", err, "bytes", len(data))
			c.emit(func(l Listener) { l.Malformed(data, err) })
			continue
		}
		c.emit(func(l Listener) { l.Message(msg) })
	}
}

func (c *Conn) readFailed(tr Transport, err error) {
	c.mu.Lock()
	if c.closed || c.transport != tr {
		c.mu.Unlock()
		return
	}
	next := StateError
	var ce *CloseError
	if errors.As(err, &ce) {
		next = StateDisconnected
	}
	c.state = next
	c.transport = nil
	c.mu.Unlock()

	_ = tr.Close()
	c.logger.Warn("push channel lost", "url", c.url, "state", next, "error", err)
	c.emit(func(l Listener) { l.StateChanged(next, err) })
}

func (c *Conn) emit(fn func(Listener)) {
	if c.listener == nil {
		return
	}
	c.deliver.Lock()
	defer c.deliver.Unlock()
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return
	}
	fn(c.listener)
}

package relay

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/nostrcore/crypto"
	"github.com/opd-ai/nostrcore/event"
)

var errFakeClosed = errors.New("fake connection closed")

// fakeConn is an in-memory relay connection.
type fakeConn struct {
	inbound   chan []byte
	closed    chan struct{}
	closeOnce sync.Once

	mu      sync.Mutex
	written []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case data := <-c.inbound:
		return websocket.TextMessage, data, nil
	case <-c.closed:
		return 0, nil, errFakeClosed
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// push simulates a frame sent by the relay server.
func (c *fakeConn) push(frame []byte) {
	c.inbound <- frame
}

func (c *fakeConn) frames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.written))
	copy(out, c.written)
	return out
}

// fakeDialer hands out fakeConns and counts attempts per url.
type fakeDialer struct {
	mu       sync.Mutex
	attempts map[string]int
	fail     map[string]error
	conns    map[string]*fakeConn
	proxies  map[string]*net.TCPAddr
	greeting map[string][][]byte
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{
		attempts: make(map[string]int),
		fail:     make(map[string]error),
		conns:    make(map[string]*fakeConn),
		proxies:  make(map[string]*net.TCPAddr),
		greeting: make(map[string][][]byte),
	}
}

func (d *fakeDialer) Dial(ctx context.Context, url string, proxyAddr *net.TCPAddr) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.attempts[url]++
	d.proxies[url] = proxyAddr
	if err := d.fail[url]; err != nil {
		return nil, err
	}
	conn := newFakeConn()
	for _, frame := range d.greeting[url] {
		conn.push(frame)
	}
	d.conns[url] = conn
	return conn, nil
}

func (d *fakeDialer) attemptCount(url string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts[url]
}

func (d *fakeDialer) conn(url string) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[url]
}

// greet queues frames the relay sends as soon as a connection opens.
func (d *fakeDialer) greet(url string, frames ...[]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.greeting[url] = append(d.greeting[url], frames...)
}

func (d *fakeDialer) setFail(url string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail[url] = err
}

func newTestPool(t *testing.T, dialer *fakeDialer) *Pool {
	t.Helper()
	opts := NewPoolOptions()
	opts.Dialer = dialer
	opts.MaxReconnects = 0
	opts.NotificationCapacity = 64
	pool := NewPoolWithOptions(opts)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func testEvent(t *testing.T, content string) *event.Event {
	t.Helper()
	keys, err := crypto.GenerateKeys()
	require.NoError(t, err)
	ev, err := event.NewBuilder().BuildTextNote(keys, content, nil)
	require.NoError(t, err)
	return ev
}

// recvKind waits for the next notification of the given kind, skipping others.
func recvKind(t *testing.T, sub Subscription, kind NotificationKind) Notification {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		n, err := sub.Recv(ctx)
		require.NoError(t, err)
		if n.Kind == kind {
			return n
		}
	}
}

package nostrcore

import (
	"context"
	"net"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/nostrcore/contact"
	"github.com/opd-ai/nostrcore/event"
	"github.com/opd-ai/nostrcore/relay"
)

// ---------------------------------------------------------------------------
// fakePool is an in-memory RelayPool that records every call.
// ---------------------------------------------------------------------------

type fakePool struct {
	mu       sync.Mutex
	calls    map[string]int
	relays   map[string]bool // url -> connected
	proxies  map[string]*net.TCPAddr
	sent     []*event.Event
	filters  []event.Filter
	errs     map[string]error
	attempts map[string]int

	hub  *relay.Hub
	subs []*relay.Receiver
}

func newFakePool() *fakePool {
	return &fakePool{
		calls:    make(map[string]int),
		relays:   make(map[string]bool),
		proxies:  make(map[string]*net.TCPAddr),
		errs:     make(map[string]error),
		attempts: make(map[string]int),
		hub:      relay.NewHub(testHubCapacity),
	}
}

func (p *fakePool) record(op string) error {
	p.calls[op]++
	return p.errs[op]
}

func (p *fakePool) AddRelay(ctx context.Context, url string, proxy *net.TCPAddr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("AddRelay"); err != nil {
		return err
	}
	if _, ok := p.relays[url]; ok {
		return &relay.Error{Op: "add_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayExists}
	}
	p.relays[url] = false
	p.proxies[url] = proxy
	return nil
}

func (p *fakePool) RemoveRelay(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("RemoveRelay"); err != nil {
		return err
	}
	if _, ok := p.relays[url]; !ok {
		return &relay.Error{Op: "remove_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayNotFound}
	}
	delete(p.relays, url)
	return nil
}

func (p *fakePool) ConnectRelay(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("ConnectRelay"); err != nil {
		return err
	}
	if _, ok := p.relays[url]; !ok {
		return &relay.Error{Op: "connect_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayNotFound}
	}
	p.attempts[url]++
	p.relays[url] = true
	return nil
}

func (p *fakePool) DisconnectRelay(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("DisconnectRelay"); err != nil {
		return err
	}
	if _, ok := p.relays[url]; !ok {
		return &relay.Error{Op: "disconnect_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayNotFound}
	}
	p.relays[url] = false
	return nil
}

func (p *fakePool) ConnectAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("ConnectAll"); err != nil {
		return err
	}
	for url, connected := range p.relays {
		if !connected {
			p.attempts[url]++
			p.relays[url] = true
		}
	}
	return nil
}

func (p *fakePool) Subscribe(ctx context.Context, filters []event.Filter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("Subscribe"); err != nil {
		return err
	}
	p.filters = filters
	return nil
}

func (p *fakePool) SendEvent(ctx context.Context, ev *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.record("SendEvent"); err != nil {
		return err
	}
	p.sent = append(p.sent, ev)
	return nil
}

func (p *fakePool) Notifications() relay.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	r := p.hub.Subscribe()
	p.subs = append(p.subs, r)
	p.calls["Notifications"]++
	return r
}

// subscription returns the i-th subscription handed out by Notifications.
func (p *fakePool) subscription(i int) *relay.Receiver {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subs[i]
}

func (p *fakePool) Close() error {
	p.mu.Lock()
	p.calls["Close"]++
	p.mu.Unlock()
	p.hub.Close()
	return nil
}

func (p *fakePool) callCount(op string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

func (p *fakePool) attemptCount(url string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts[url]
}

func (p *fakePool) sentEvents() []*event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*event.Event, len(p.sent))
	copy(out, p.sent)
	return out
}

func (p *fakePool) failOn(op string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[op] = err
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newTestClient(t *testing.T) (*Client, *fakePool) {
	t.Helper()
	pool := newFakePool()
	c := NewWithPool(GenerateKeys(), nil, pool)
	t.Cleanup(func() { c.Close() })
	return c, pool
}

func testContact(t *testing.T, alias string) contact.Contact {
	t.Helper()
	c := contact.New(GenerateKeys().PublicKey())
	c.Alias = alias
	return c
}

// noticeN builds a NOTICE notification carrying i as its message.
func noticeN(i int) relay.Notification {
	return relay.Notification{
		Kind:     relay.NotificationNotice,
		RelayURL: testRelayURL,
		Message:  strconv.Itoa(i),
	}
}

// waitForReceivers blocks until the hub has n receivers.
func waitForReceivers(t *testing.T, hub *relay.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ReceiverCount() >= n }, testWaitTimeout, testPollInterval)
}

package blocking

import (
	"context"
	"net"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opd-ai/nostrcore"
	"github.com/opd-ai/nostrcore/crypto"
	"github.com/opd-ai/nostrcore/event"
	"github.com/opd-ai/nostrcore/relay"
	"github.com/opd-ai/nostrcore/scheduler"
)

// memoryPool is a RelayPool kept entirely in memory.
type memoryPool struct {
	mu        sync.Mutex
	connected map[string]bool
	attempts  map[string]int
	sent      []*event.Event
	hub       *relay.Hub
}

func newMemoryPool() *memoryPool {
	return &memoryPool{
		connected: make(map[string]bool),
		attempts:  make(map[string]int),
		hub:       relay.NewHub(16),
	}
}

func (p *memoryPool) AddRelay(ctx context.Context, url string, proxy *net.TCPAddr) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.connected[url]; ok {
		return &relay.Error{Op: "add_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayExists}
	}
	p.connected[url] = false
	return nil
}

func (p *memoryPool) RemoveRelay(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.connected[url]; !ok {
		return &relay.Error{Op: "remove_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayNotFound}
	}
	delete(p.connected, url)
	return nil
}

func (p *memoryPool) ConnectRelay(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.connected[url]; !ok {
		return &relay.Error{Op: "connect_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayNotFound}
	}
	if !p.connected[url] {
		p.attempts[url]++
		p.connected[url] = true
	}
	return nil
}

func (p *memoryPool) DisconnectRelay(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.connected[url]; !ok {
		return &relay.Error{Op: "disconnect_relay", URL: url, Kind: relay.KindConnection, Err: relay.ErrRelayNotFound}
	}
	p.connected[url] = false
	return nil
}

func (p *memoryPool) ConnectAll(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for url, ok := range p.connected {
		if !ok {
			p.attempts[url]++
			p.connected[url] = true
		}
	}
	return nil
}

func (p *memoryPool) Subscribe(ctx context.Context, filters []event.Filter) error {
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return &relay.Error{Op: "subscribe", Kind: relay.KindProtocol, Err: err}
		}
	}
	return nil
}

func (p *memoryPool) SendEvent(ctx context.Context, ev *event.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.connected) == 0 {
		return &relay.Error{Op: "send_event", Kind: relay.KindConnection, Err: relay.ErrNoConnectedRelays}
	}
	p.sent = append(p.sent, ev)
	return nil
}

func (p *memoryPool) Notifications() relay.Subscription {
	return p.hub.Subscribe()
}

func (p *memoryPool) Close() error {
	p.hub.Close()
	return nil
}

// poolState is the observable state compared across surfaces.
type poolState struct {
	Relays   []string
	Attempts map[string]int
	Kinds    []event.Kind
}

func (p *memoryPool) state() poolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := poolState{Attempts: make(map[string]int)}
	for url, ok := range p.connected {
		if ok {
			s.Relays = append(s.Relays, url)
		}
	}
	sort.Strings(s.Relays)
	for url, n := range p.attempts {
		s.Attempts[url] = n
	}
	for _, ev := range p.sent {
		s.Kinds = append(s.Kinds, ev.Kind)
	}
	return s
}

func newTestScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New()
	t.Cleanup(s.Close)
	return s
}

func testKeys(t *testing.T) *crypto.Keys {
	t.Helper()
	keys, err := crypto.GenerateKeys()
	require.NoError(t, err)
	return keys
}

// newPair returns a native client and a blocking client with identical
// starting state over separate pools.
func newPair(t *testing.T) (*nostrcore.Client, *memoryPool, *Client, *memoryPool) {
	t.Helper()
	sched := newTestScheduler(t)
	keys := testKeys(t)

	nativePool, blockingPool := newMemoryPool(), newMemoryPool()
	native := nostrcore.NewWithPool(keys, nil, nativePool)
	blk := Wrap(nostrcore.NewWithPool(keys, nil, blockingPool), sched)
	t.Cleanup(func() {
		native.Close()
		blk.Close()
	})
	return native, nativePool, blk, blockingPool
}

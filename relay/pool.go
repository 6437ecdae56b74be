package relay

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/nostrcore/event"
	"github.com/opd-ai/nostrcore/limits"
)

// Pool manages a set of relays, one shared subscription across them and the
// notification hub fed by all of them. Pool is safe for concurrent use.
type Pool struct {
	opts *PoolOptions

	mu      sync.RWMutex
	relays  map[string]*Relay
	subID   string
	filters []event.Filter
	closed  bool

	hub  *Hub
	seen *lru.Cache[string, struct{}]
}

// NewPool creates an empty pool with default options.
func NewPool() *Pool {
	return NewPoolWithOptions(NewPoolOptions())
}

// NewPoolWithOptions creates an empty pool. Zero fields fall back to defaults.
func NewPoolWithOptions(opts *PoolOptions) *Pool {
	defaults := NewPoolOptions()
	if opts == nil {
		opts = defaults
	}
	o := *opts
	if o.NotificationCapacity <= 0 {
		o.NotificationCapacity = defaults.NotificationCapacity
	}
	if o.SeenCacheSize <= 0 {
		o.SeenCacheSize = defaults.SeenCacheSize
	}
	if o.ConnectConcurrency <= 0 {
		o.ConnectConcurrency = defaults.ConnectConcurrency
	}

	seen, err := lru.New[string, struct{}](o.SeenCacheSize)
	if err != nil {
		// Only a non-positive size fails, which was ruled out above.
		panic(fmt.Sprintf("relay: seen cache: %v", err))
	}

	logrus.WithFields(logrus.Fields{
		"function":              "NewPoolWithOptions",
		"notification_capacity": o.NotificationCapacity,
		"seen_cache_size":       o.SeenCacheSize,
		"max_reconnects":        o.MaxReconnects,
	}).Debug("Creating relay pool")

	return &Pool{
		opts:   &o,
		relays: make(map[string]*Relay),
		hub:    NewHub(o.NotificationCapacity),
		seen:   seen,
	}
}

// AddRelay registers a relay without connecting it. A non-nil proxy routes
// the connection through that SOCKS5 proxy.
func (p *Pool) AddRelay(ctx context.Context, rawURL string, proxyAddr *net.TCPAddr) error {
	if err := validateURL(rawURL); err != nil {
		return newError("add_relay", rawURL, KindConnection, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return newError("add_relay", rawURL, KindConnection, ErrPoolClosed)
	}
	if _, exists := p.relays[rawURL]; exists {
		return newError("add_relay", rawURL, KindConnection, ErrRelayExists)
	}

	p.relays[rawURL] = newRelay(rawURL, proxyAddr, p.opts, p)

	logrus.WithFields(logrus.Fields{
		"function": "Pool.AddRelay",
		"url":      rawURL,
		"proxied":  proxyAddr != nil,
		"relays":   len(p.relays),
	}).Info("Relay added")
	return nil
}

// RemoveRelay terminates and forgets a relay.
func (p *Pool) RemoveRelay(ctx context.Context, rawURL string) error {
	p.mu.Lock()
	r, exists := p.relays[rawURL]
	if !exists {
		p.mu.Unlock()
		return newError("remove_relay", rawURL, KindConnection, ErrRelayNotFound)
	}
	delete(p.relays, rawURL)
	p.mu.Unlock()

	r.terminate()

	logrus.WithFields(logrus.Fields{
		"function": "Pool.RemoveRelay",
		"url":      rawURL,
	}).Info("Relay removed")
	return nil
}

// ConnectRelay connects one relay.
func (p *Pool) ConnectRelay(ctx context.Context, rawURL string) error {
	r, err := p.lookup("connect_relay", rawURL)
	if err != nil {
		return err
	}
	return r.Connect(ctx)
}

// DisconnectRelay disconnects one relay.
func (p *Pool) DisconnectRelay(ctx context.Context, rawURL string) error {
	r, err := p.lookup("disconnect_relay", rawURL)
	if err != nil {
		return err
	}
	return r.Disconnect()
}

// ConnectAll attempts every relay that is not connected, in parallel. Relays
// already connected receive no attempt. All failures are returned combined.
func (p *Pool) ConnectAll(ctx context.Context) error {
	var pending []*Relay
	for _, r := range p.snapshot() {
		if r.Status() != StatusConnected {
			pending = append(pending, r)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function": "Pool.ConnectAll",
		"pending":  len(pending),
	}).Info("Connecting disconnected relays")

	errs := make([]error, len(pending))
	var g errgroup.Group
	g.SetLimit(p.opts.ConnectConcurrency)
	for i, r := range pending {
		g.Go(func() error {
			errs[i] = r.Connect(ctx)
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Combine(errs...)
}

// Subscribe replaces the pool subscription with filters and sends the REQ
// to every connected relay. Relays connecting later receive it on connect.
func (p *Pool) Subscribe(ctx context.Context, filters []event.Filter) error {
	if err := limits.ValidateFilterCount(len(filters)); err != nil {
		return newError("subscribe", "", KindProtocol, fmt.Errorf("%w: %w", event.ErrInvalidFilter, err))
	}
	for _, f := range filters {
		if err := f.Validate(); err != nil {
			return newError("subscribe", "", KindProtocol, err)
		}
	}

	newID := uuid.NewString()
	req, err := EncodeReq(newID, filters)
	if err != nil {
		return newError("subscribe", "", KindProtocol, err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return newError("subscribe", "", KindConnection, ErrPoolClosed)
	}
	oldID := p.subID
	p.subID = newID
	p.filters = append([]event.Filter(nil), filters...)
	p.mu.Unlock()

	var closeFrame []byte
	if oldID != "" {
		closeFrame, _ = EncodeClose(oldID)
	}

	var errs []error
	sent := 0
	for _, r := range p.connected() {
		if closeFrame != nil {
			_ = r.Send(closeFrame)
		}
		if err := r.Send(req); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}

	logrus.WithFields(logrus.Fields{
		"function":        "Pool.Subscribe",
		"subscription_id": newID,
		"filters":         len(filters),
		"sent":            sent,
	}).Info("Subscription updated")

	if sent == 0 && len(errs) > 0 {
		return multierr.Combine(errs...)
	}
	return nil
}

// SendEvent verifies ev and writes it to every connected relay. It succeeds
// when at least one relay accepted the write.
func (p *Pool) SendEvent(ctx context.Context, ev *event.Event) error {
	if ev == nil {
		return newError("send_event", "", KindProtocol, fmt.Errorf("%w: nil event", ErrInvalidEvent))
	}
	if err := ev.Verify(); err != nil {
		return newError("send_event", "", KindProtocol, fmt.Errorf("%w: %w", ErrInvalidEvent, err))
	}
	if err := ctx.Err(); err != nil {
		return newError("send_event", "", KindConnection, err)
	}

	frame, err := EncodeEvent(ev)
	if err != nil {
		return newError("send_event", "", KindProtocol, err)
	}

	relays := p.connected()
	if len(relays) == 0 {
		return newError("send_event", "", KindConnection, ErrNoConnectedRelays)
	}

	var errs []error
	sent := 0
	for _, r := range relays {
		if err := r.Send(frame); err != nil {
			errs = append(errs, err)
			continue
		}
		sent++
	}

	logrus.WithFields(logrus.Fields{
		"function": "Pool.SendEvent",
		"event_id": ev.ID,
		"kind":     ev.Kind,
		"sent":     sent,
		"failed":   len(errs),
	}).Info("Event sent")

	if sent == 0 {
		return newError("send_event", "", KindConnection, multierr.Combine(errs...))
	}
	return nil
}

// Notifications returns a fresh independent subscription to the pool's
// notifications. It never fails.
func (p *Pool) Notifications() Subscription {
	return p.hub.Subscribe()
}

// Status returns the state of one relay.
func (p *Pool) Status(rawURL string) (Status, error) {
	r, err := p.lookup("status", rawURL)
	if err != nil {
		return 0, err
	}
	return r.Status(), nil
}

// Relays returns the known relay urls in sorted order.
func (p *Pool) Relays() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	urls := make([]string, 0, len(p.relays))
	for u := range p.relays {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// SubscriptionID returns the id of the active pool subscription, or "".
func (p *Pool) SubscriptionID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.subID
}

// Close terminates every relay and shuts the notification hub down.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	relays := make([]*Relay, 0, len(p.relays))
	for _, r := range p.relays {
		relays = append(relays, r)
	}
	p.relays = make(map[string]*Relay)
	p.mu.Unlock()

	for _, r := range relays {
		r.terminate()
	}
	p.hub.Close()

	logrus.WithFields(logrus.Fields{
		"function": "Pool.Close",
		"relays":   len(relays),
	}).Info("Relay pool closed")
	return nil
}

func (p *Pool) lookup(op, rawURL string) (*Relay, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	r, exists := p.relays[rawURL]
	if !exists {
		return nil, newError(op, rawURL, KindConnection, ErrRelayNotFound)
	}
	return r, nil
}

func (p *Pool) snapshot() []*Relay {
	p.mu.RLock()
	defer p.mu.RUnlock()

	relays := make([]*Relay, 0, len(p.relays))
	for _, r := range p.relays {
		relays = append(relays, r)
	}
	return relays
}

func (p *Pool) connected() []*Relay {
	var out []*Relay
	for _, r := range p.snapshot() {
		if r.Status() == StatusConnected {
			out = append(out, r)
		}
	}
	return out
}

// handleConnected replays the active subscription and announces the relay.
func (p *Pool) handleConnected(r *Relay) {
	p.mu.RLock()
	subID := p.subID
	filters := p.filters
	p.mu.RUnlock()

	if subID != "" {
		req, err := EncodeReq(subID, filters)
		if err == nil {
			err = r.Send(req)
		}
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":        "Pool.handleConnected",
				"url":             r.URL(),
				"subscription_id": subID,
				"error":           err.Error(),
			}).Warn("Failed to replay subscription")
		}
	}

	p.hub.Publish(Notification{Kind: NotificationRelayConnected, RelayURL: r.URL()})
}

func (p *Pool) handleDisconnected(r *Relay) {
	p.hub.Publish(Notification{Kind: NotificationRelayDisconnected, RelayURL: r.URL()})
}

// handleMessage turns relay frames into notifications. Events are verified
// and delivered once no matter how many relays send them.
func (p *Pool) handleMessage(r *Relay, msg *Message) {
	switch msg.Type {
	case MessageEvent:
		if err := msg.Event.Verify(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "Pool.handleMessage",
				"url":      r.URL(),
				"event_id": msg.Event.ID,
				"error":    err.Error(),
			}).Warn("Dropping event with invalid signature")
			return
		}
		if seen, _ := p.seen.ContainsOrAdd(msg.Event.ID, struct{}{}); seen {
			return
		}
		p.hub.Publish(Notification{
			Kind:           NotificationEvent,
			RelayURL:       r.URL(),
			SubscriptionID: msg.SubscriptionID,
			Event:          msg.Event,
		})
	case MessageNotice:
		p.hub.Publish(Notification{Kind: NotificationNotice, RelayURL: r.URL(), Message: msg.Text})
	case MessageEOSE:
		p.hub.Publish(Notification{Kind: NotificationEOSE, RelayURL: r.URL(), SubscriptionID: msg.SubscriptionID})
	case MessageOK:
		p.hub.Publish(Notification{
			Kind:     NotificationOK,
			RelayURL: r.URL(),
			EventID:  msg.EventID,
			Accepted: msg.Accepted,
			Message:  msg.Text,
		})
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("%w: scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}

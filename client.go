package nostrcore

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/nostrcore/contact"
	"github.com/opd-ai/nostrcore/crypto"
	"github.com/opd-ai/nostrcore/event"
	"github.com/opd-ai/nostrcore/relay"
)

// ErrStopHandling can be returned by a HandleNotifications handler to end the
// loop without an error.
var ErrStopHandling = errors.New("stop handling notifications")

// RelayPool is the set of relay operations a Client delegates to.
// *relay.Pool implements it.
type RelayPool interface {
	AddRelay(ctx context.Context, url string, proxy *net.TCPAddr) error
	RemoveRelay(ctx context.Context, url string) error
	ConnectRelay(ctx context.Context, url string) error
	DisconnectRelay(ctx context.Context, url string) error
	ConnectAll(ctx context.Context) error
	Subscribe(ctx context.Context, filters []event.Filter) error
	SendEvent(ctx context.Context, ev *event.Event) error
	// Notifications returns a new independent subscription. It never fails.
	Notifications() relay.Subscription
}

var _ RelayPool = (*relay.Pool)(nil)

// NotificationHandler processes one notification. Returning an error ends
// HandleNotifications with that error; ErrStopHandling ends it cleanly.
type NotificationHandler func(n relay.Notification) error

// Client is a Nostr client: an identity, its contact list and the relay pool
// it publishes to and listens on. Network operations take a context and run
// on the caller's goroutine; see package blocking for a synchronous wrapper.
type Client struct {
	keys *crypto.Keys
	pool RelayPool

	builderMu sync.RWMutex
	builder   *event.Builder

	contactsMu sync.RWMutex
	contacts   *contact.List
}

// New creates a Client with its own relay pool. keys must not be nil. keys and
// contacts are copied; a nil contacts starts with an empty list.
func New(keys *crypto.Keys, contacts *contact.List) *Client {
	return NewWithPool(keys, contacts, relay.NewPool())
}

// NewWithPool creates a Client that delegates relay operations to pool.
func NewWithPool(keys *crypto.Keys, contacts *contact.List, pool RelayPool) *Client {
	c := &Client{
		keys:     keys.Clone(),
		builder:  event.NewBuilder(),
		pool:     pool,
		contacts: contacts.Clone(),
	}

	pk := c.keys.PublicKey()
	logrus.WithFields(crypto.SecureFieldHash(pk[:], "public_key")).WithFields(logrus.Fields{
		"function": "NewWithPool",
		"contacts": c.contacts.Len(),
	}).Info("Created Nostr client")

	return c
}

// GenerateKeys returns a fresh random identity. It panics if the operating
// system's random source fails.
func GenerateKeys() *crypto.Keys {
	keys, err := crypto.GenerateKeys()
	if err != nil {
		panic("nostrcore: generate keys: " + err.Error())
	}
	return keys
}

// SetTimeProvider replaces the clock used to stamp created_at on events the
// client builds. It is safe to call while other operations run.
func (c *Client) SetTimeProvider(tp crypto.TimeProvider) {
	b := event.NewBuilderWithTimeProvider(tp)
	c.builderMu.Lock()
	c.builder = b
	c.builderMu.Unlock()
}

func (c *Client) eventBuilder() *event.Builder {
	c.builderMu.RLock()
	defer c.builderMu.RUnlock()
	return c.builder
}

// PublicKey returns the client's x-only public key.
func (c *Client) PublicKey() [32]byte {
	return c.keys.PublicKey()
}

// Keys returns a copy of the client's identity.
func (c *Client) Keys() *crypto.Keys {
	return c.keys.Clone()
}

// Pool returns the relay pool the client delegates to.
func (c *Client) Pool() RelayPool {
	return c.pool
}

// AddContact appends ct unless an equal contact is already present.
func (c *Client) AddContact(ct contact.Contact) {
	c.contactsMu.Lock()
	added := c.contacts.Add(ct)
	c.contactsMu.Unlock()

	logrus.WithFields(crypto.SecureFieldHash(ct.PublicKey[:], "public_key")).WithFields(logrus.Fields{
		"function": "AddContact",
		"added":    added,
	}).Debug("Add contact")
}

// RemoveContact removes ct if present.
func (c *Client) RemoveContact(ct contact.Contact) {
	c.contactsMu.Lock()
	removed := c.contacts.Remove(ct)
	c.contactsMu.Unlock()

	logrus.WithFields(crypto.SecureFieldHash(ct.PublicKey[:], "public_key")).WithFields(logrus.Fields{
		"function": "RemoveContact",
		"removed":  removed,
	}).Debug("Remove contact")
}

// Contacts returns a snapshot of the contact list in insertion order.
func (c *Client) Contacts() []contact.Contact {
	c.contactsMu.RLock()
	defer c.contactsMu.RUnlock()
	return c.contacts.Items()
}

// AddRelay adds a relay to the pool. A non-nil proxy is a SOCKS5 proxy.
func (c *Client) AddRelay(ctx context.Context, url string, proxy *net.TCPAddr) error {
	return c.pool.AddRelay(ctx, url, proxy)
}

// RemoveRelay removes a relay from the pool.
func (c *Client) RemoveRelay(ctx context.Context, url string) error {
	return c.pool.RemoveRelay(ctx, url)
}

// ConnectRelay connects one relay.
func (c *Client) ConnectRelay(ctx context.Context, url string) error {
	return c.pool.ConnectRelay(ctx, url)
}

// DisconnectRelay disconnects one relay.
func (c *Client) DisconnectRelay(ctx context.Context, url string) error {
	return c.pool.DisconnectRelay(ctx, url)
}

// ConnectAll connects every relay in the pool that is not already connected.
func (c *Client) ConnectAll(ctx context.Context) error {
	return c.pool.ConnectAll(ctx)
}

// Subscribe replaces the pool subscription with filters.
func (c *Client) Subscribe(ctx context.Context, filters []event.Filter) error {
	return c.pool.Subscribe(ctx, filters)
}

// SendEvent publishes a signed event to the pool.
func (c *Client) SendEvent(ctx context.Context, ev *event.Event) error {
	return c.pool.SendEvent(ctx, ev)
}

// DeleteEvent publishes a deletion request for the event with the given hex
// id. Malformed ids fail with a parse error before the pool is used.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	id, err := event.ParseEventID(eventID)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "DeleteEvent",
			"error":    err.Error(),
		}).Warn("Invalid event id")
		return err
	}

	ev, err := c.eventBuilder().BuildDelete(c.keys, []event.EventID{id}, nil)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"function":  "DeleteEvent",
		"target_id": id.String(),
		"event_id":  ev.ID,
	}).Info("Publishing deletion")

	return c.SendEvent(ctx, ev)
}

// PublishTextNote signs and publishes a kind 1 note and returns it.
func (c *Client) PublishTextNote(ctx context.Context, content string) (*event.Event, error) {
	ev, err := c.eventBuilder().BuildTextNote(c.keys, content, nil)
	if err != nil {
		return nil, err
	}
	if err := c.SendEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// PublishContactList signs and publishes the current contact list as a
// kind 3 event and returns it.
func (c *Client) PublishContactList(ctx context.Context) (*event.Event, error) {
	c.contactsMu.RLock()
	tags := c.contacts.Tags()
	c.contactsMu.RUnlock()

	ev, err := c.eventBuilder().BuildContactList(c.keys, tags)
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "PublishContactList",
		"event_id": ev.ID,
		"contacts": len(tags),
	}).Info("Publishing contact list")

	if err := c.SendEvent(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// Close wipes the client's secret key and closes the pool when it supports
// closing. The client must not be used afterwards.
func (c *Client) Close() error {
	c.keys.Wipe()
	if closer, ok := c.pool.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Notifications returns a new independent subscription to pool notifications.
func (c *Client) Notifications() relay.Subscription {
	return c.pool.Notifications()
}

// HandleNotifications feeds every pool notification to handler until handler
// fails, ctx is done or the pool closes. A handler error is returned as is,
// except ErrStopHandling which yields nil. Lagged receives are skipped.
//
// When the loop's own subscription is closed it subscribes again. Closing the
// pool does not count: it ends the loop with relay.ErrPoolClosed instead of
// resubscribing, so with *relay.Pool the resubscribe path only runs when a
// custom RelayPool closes subscriptions it handed out.
func (c *Client) HandleNotifications(ctx context.Context, handler NotificationHandler) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sub := c.pool.Notifications()
		err := c.receiveLoop(ctx, sub, handler)
		sub.Close()

		var he *handlerError
		if errors.As(err, &he) {
			if errors.Is(he.err, ErrStopHandling) {
				return nil
			}
			return he.err
		}
		if errors.Is(err, relay.ErrSubscriptionClosed) {
			logrus.WithFields(logrus.Fields{
				"function": "HandleNotifications",
			}).Debug("Notification subscription closed, resubscribing")
			continue
		}
		return err
	}
}

func (c *Client) receiveLoop(ctx context.Context, sub relay.Subscription, handler NotificationHandler) error {
	for {
		n, err := sub.Recv(ctx)
		if err != nil {
			var lagged *relay.LaggedError
			if errors.As(err, &lagged) {
				logrus.WithFields(logrus.Fields{
					"function": "HandleNotifications",
					"skipped":  lagged.Skipped,
				}).Warn("Notification handler lagged behind")
				continue
			}
			return err
		}

		if err := handler(n); err != nil {
			if !errors.Is(err, ErrStopHandling) {
				logrus.WithFields(logrus.Fields{
					"function": "HandleNotifications",
					"kind":     n.Kind,
					"relay":    n.RelayURL,
					"error":    err.Error(),
				}).Warn("Notification handler failed")
			}
			return &handlerError{err}
		}
	}
}

// handlerError separates handler failures from receive failures inside
// HandleNotifications. It never escapes the package.
type handlerError struct{ err error }

func (e *handlerError) Error() string { return e.err.Error() }

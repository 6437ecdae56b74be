package blocking

import (
	"context"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/nostrcore"
	"github.com/opd-ai/nostrcore/contact"
	"github.com/opd-ai/nostrcore/crypto"
	"github.com/opd-ai/nostrcore/event"
	"github.com/opd-ai/nostrcore/relay"
	"github.com/opd-ai/nostrcore/scheduler"
)

// Client is the synchronous form of nostrcore.Client. Each method runs the
// matching nostrcore.Client method to completion on a scheduler and returns
// its result unchanged.
type Client struct {
	inner *nostrcore.Client
	sched *scheduler.Scheduler
}

// New creates a blocking client with its own relay pool, driven by the
// shared scheduler.
func New(keys *crypto.Keys, contacts *contact.List) *Client {
	return Wrap(nostrcore.New(keys, contacts), nil)
}

// NewWithPool creates a blocking client over pool, driven by the shared
// scheduler.
func NewWithPool(keys *crypto.Keys, contacts *contact.List, pool nostrcore.RelayPool) *Client {
	return Wrap(nostrcore.NewWithPool(keys, contacts, pool), nil)
}

// Wrap drives inner on sched. A nil sched selects scheduler.Shared.
func Wrap(inner *nostrcore.Client, sched *scheduler.Scheduler) *Client {
	shared := sched == nil
	if shared {
		sched = scheduler.Shared()
	}

	logrus.WithFields(logrus.Fields{
		"function": "Wrap",
		"shared":   shared,
	}).Debug("Wrapping client for blocking use")

	return &Client{inner: inner, sched: sched}
}

// Inner returns the context-based client underneath.
func (c *Client) Inner() *nostrcore.Client {
	return c.inner
}

// AddContact appends ct unless an equal contact is already present. It does
// nothing, and logs why, once the scheduler is closed.
func (c *Client) AddContact(ct contact.Contact) {
	err := c.sched.BlockOn(func(ctx context.Context) error {
		c.inner.AddContact(ct)
		return nil
	})
	logRejected("AddContact", err)
}

// RemoveContact removes ct if present. It does nothing, and logs why, once
// the scheduler is closed.
func (c *Client) RemoveContact(ct contact.Contact) {
	err := c.sched.BlockOn(func(ctx context.Context) error {
		c.inner.RemoveContact(ct)
		return nil
	})
	logRejected("RemoveContact", err)
}

// Contacts returns a snapshot of the contact list, or nil once the scheduler
// is closed.
func (c *Client) Contacts() []contact.Contact {
	out, err := scheduler.Run(c.sched, func(ctx context.Context) ([]contact.Contact, error) {
		return c.inner.Contacts(), nil
	})
	logRejected("Contacts", err)
	return out
}

// Notifications returns a new independent subscription. Its Recv still takes
// a context so callers can bound the wait. Once the scheduler is closed the
// returned subscription fails every Recv with scheduler.ErrClosed.
func (c *Client) Notifications() relay.Subscription {
	out, err := scheduler.Run(c.sched, func(ctx context.Context) (relay.Subscription, error) {
		return c.inner.Notifications(), nil
	})
	if err != nil {
		logRejected("Notifications", err)
		return rejectedSubscription{err: err}
	}
	return out
}

// AddRelay adds a relay. A non-nil proxy is a SOCKS5 proxy.
func (c *Client) AddRelay(url string, proxy *net.TCPAddr) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.AddRelay(ctx, url, proxy)
	})
}

// RemoveRelay removes a relay.
func (c *Client) RemoveRelay(url string) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.RemoveRelay(ctx, url)
	})
}

// ConnectRelay connects one relay.
func (c *Client) ConnectRelay(url string) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.ConnectRelay(ctx, url)
	})
}

// DisconnectRelay disconnects one relay.
func (c *Client) DisconnectRelay(url string) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.DisconnectRelay(ctx, url)
	})
}

// ConnectAll connects every relay that is not already connected.
func (c *Client) ConnectAll() error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.ConnectAll(ctx)
	})
}

// Subscribe replaces the pool subscription with filters.
func (c *Client) Subscribe(filters []event.Filter) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.Subscribe(ctx, filters)
	})
}

// SendEvent publishes a signed event.
func (c *Client) SendEvent(ev *event.Event) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.SendEvent(ctx, ev)
	})
}

// DeleteEvent publishes a deletion request for the event with the given hex id.
func (c *Client) DeleteEvent(eventID string) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.DeleteEvent(ctx, eventID)
	})
}

// PublishTextNote signs and publishes a kind 1 note.
func (c *Client) PublishTextNote(content string) (*event.Event, error) {
	return scheduler.Run(c.sched, func(ctx context.Context) (*event.Event, error) {
		return c.inner.PublishTextNote(ctx, content)
	})
}

// PublishContactList signs and publishes the current contact list.
func (c *Client) PublishContactList() (*event.Event, error) {
	return scheduler.Run(c.sched, func(ctx context.Context) (*event.Event, error) {
		return c.inner.PublishContactList(ctx)
	})
}

// HandleNotifications runs the notification loop until handler fails or
// returns nostrcore.ErrStopHandling, or the pool closes. Other calls on this
// or any other blocking client proceed while it runs.
func (c *Client) HandleNotifications(handler nostrcore.NotificationHandler) error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.HandleNotifications(ctx, handler)
	})
}

// Close closes the inner client.
func (c *Client) Close() error {
	return c.sched.BlockOn(func(ctx context.Context) error {
		return c.inner.Close()
	})
}

func logRejected(op string, err error) {
	if err == nil {
		return
	}
	logrus.WithFields(logrus.Fields{
		"function": op,
		"error":    err.Error(),
	}).Warn("Blocking call rejected by scheduler")
}

// rejectedSubscription is handed out when no real subscription could be made.
type rejectedSubscription struct{ err error }

func (s rejectedSubscription) Recv(ctx context.Context) (relay.Notification, error) {
	return relay.Notification{}, s.err
}

func (s rejectedSubscription) Close() {}
